package trx

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestClientPostSignsCanonicalBody(t *testing.T) {
	key := testKey(t)

	var gotBody []byte
	var gotAuth, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		_ = json.NewEncoder(w).Encode(Response{Code: CodeSuccess, Msg: "success"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, key, nil)
	resp, err := c.Post(context.Background(), "/trx/interface/handCart/unlock", map[string]any{
		"merchantNo": "M100",
		"deviceNo":   "D1",
		"cartNo":     "C42",
		"cartIndex":  3,
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "application/json", gotCT)

	// The body on the wire is the envelope with sorted keys.
	var env struct {
		Nonce     string         `json:"nonce"`
		Timestamp int64          `json:"timestamp"`
		Value     map[string]any `json:"value"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &env))
	assert.Len(t, env.Nonce, 10)
	assert.NotZero(t, env.Timestamp)
	assert.Equal(t, "C42", env.Value["cartNo"])

	// The Authorization header verifies against the exact transmitted bytes.
	sig, err := base64.StdEncoding.DecodeString(gotAuth)
	require.NoError(t, err)
	digest := sha256.Sum256(gotBody)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig))

	// And fails against any altered byte.
	tampered := append([]byte{}, gotBody...)
	tampered[len(tampered)-2] ^= 0x01
	tdigest := sha256.Sum256(tampered)
	assert.Error(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, tdigest[:], sig))
}

func TestClientPostPropagatesRemoteBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code":"30002","msg":"device offline"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testKey(t), nil)
	_, err := c.Post(context.Background(), "/trx/interface/device/deviceInfo", map[string]any{"deviceNo": "D1"})

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadGateway, re.Status)
	assert.Contains(t, string(re.Body), "30002")
}

func TestClientPostTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, testKey(t), nil)
	_, err := c.Post(context.Background(), "/trx/interface/device/deviceInfo", map[string]any{"deviceNo": "D1"})
	require.Error(t, err)
	var re *RemoteError
	assert.False(t, errors.As(err, &re), "transport failure must not look like a vendor reply")
}
