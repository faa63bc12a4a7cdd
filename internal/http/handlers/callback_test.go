package handlers

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maysqunaibi/strollers-backend/internal/modules/rentals"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

type captureEnqueuer struct {
	tasks []rentals.ReturnTask
}

func (c *captureEnqueuer) Enqueue(task rentals.ReturnTask) bool {
	c.tasks = append(c.tasks, task)
	return true
}

func callbackRouter(t *testing.T, verifier *trx.Verifier) (*gin.Engine, *captureEnqueuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enq := &captureEnqueuer{}
	h := NewCallbackHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), verifier, enq)

	r := gin.New()
	r.POST("/handcart/callback", h.HandleReturn)
	return r, enq
}

func signPayload(t *testing.T, key *rsa.PrivateKey, payload any) string {
	t.Helper()
	canonical, err := trx.Canonicalize(payload)
	require.NoError(t, err)
	digest := sha256.Sum256(canonical)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleReturn_SignedCallbackAccepted(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	router, enq := callbackRouter(t, trx.NewVerifier(&key.PublicKey))

	originalData := map[string]any{
		"cartNo":      "IC42",
		"cartIndex":   3,
		"electricity": 77.5,
		"deviceNo":    "D100",
	}
	w := postJSON(router, "/handcart/callback", map[string]any{
		"merchantNo":   "M1",
		"sign":         signPayload(t, key, originalData),
		"originalData": originalData,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "00000", resp.Code)
	assert.Equal(t, "success", resp.Msg)

	require.Len(t, enq.tasks, 1)
	task := enq.tasks[0]
	assert.Equal(t, "M1", task.MerchantNo)
	assert.Equal(t, "D100", task.DeviceNo)
	assert.Equal(t, "IC42", task.CartNo)
	require.NotNil(t, task.CartIndex)
	assert.Equal(t, 3, *task.CartIndex)
}

func TestHandleReturn_EnvelopeSignedCallbackAccepted(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	router, enq := callbackRouter(t, trx.NewVerifier(&key.PublicKey))

	originalData := map[string]any{
		"cartNo":      "IC7",
		"cartIndex":   1,
		"electricity": 90,
		"deviceNo":    "D2",
	}
	envelope := map[string]any{"merchantNo": "M1", "originalData": originalData}

	w := postJSON(router, "/handcart/callback", map[string]any{
		"merchantNo":   "M1",
		"sign":         signPayload(t, key, envelope),
		"originalData": originalData,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, enq.tasks, 1)
}

func TestHandleReturn_BadSignatureRejected(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	router, enq := callbackRouter(t, trx.NewVerifier(&key.PublicKey))

	originalData := map[string]any{
		"cartNo": "IC42", "cartIndex": 3, "electricity": 77.5, "deviceNo": "D100",
	}
	w := postJSON(router, "/handcart/callback", map[string]any{
		"merchantNo":   "M1",
		"sign":         signPayload(t, otherKey, originalData),
		"originalData": originalData,
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SIGN_INVALID", resp.Code)
	assert.Empty(t, enq.tasks)
}

func TestHandleReturn_TrustAllModeSkipsVerification(t *testing.T) {
	router, enq := callbackRouter(t, trx.NewVerifier(nil))

	originalData := map[string]any{
		"cartNo": "IC1", "cartIndex": 0, "electricity": 50, "deviceNo": "D1",
	}
	w := postJSON(router, "/handcart/callback", map[string]any{
		"merchantNo":   "M1",
		"sign":         "anything",
		"originalData": originalData,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, enq.tasks, 1)
}

func TestHandleReturn_MissingFieldsRejected(t *testing.T) {
	router, enq := callbackRouter(t, trx.NewVerifier(nil))

	w := postJSON(router, "/handcart/callback", map[string]any{
		"merchantNo": "M1",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "20001", resp.Code)
	assert.Empty(t, enq.tasks)
}

func TestHandleReturn_NonObjectOriginalDataRejected(t *testing.T) {
	router, enq := callbackRouter(t, trx.NewVerifier(nil))

	w := postJSON(router, "/handcart/callback", map[string]any{
		"merchantNo":   "M1",
		"sign":         "x",
		"originalData": []any{"not", "an", "object"},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, enq.tasks)
}
