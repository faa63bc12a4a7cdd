package trx

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// CodeSuccess is the business code the vendor platform uses for "accepted",
// both in its responses and in the acknowledgment it expects from us.
const CodeSuccess = "00000"

const requestTimeout = 20 * time.Second

// Response is the vendor's standard reply envelope.
type Response struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (r Response) OK() bool { return r.Code == CodeSuccess }

// RemoteError is a non-2xx vendor reply. The body is kept verbatim so callers
// can surface the vendor's own error codes instead of a generic failure.
type RemoteError struct {
	Status int
	Body   []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("vendor returned %d: %s", e.Status, e.Body)
}

// Client posts signed requests to the vendor platform. Each call wraps the
// payload in a {nonce, timestamp, value} envelope, signs the canonical JSON
// with the merchant private key and sends the signature as the Authorization
// header. The client never retries; retry policy belongs to the caller.
type Client struct {
	baseURL string
	key     *rsa.PrivateKey
	httpc   *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, key *rsa.PrivateKey, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		key:     key,
		httpc:   &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// Post sends value to the vendor path and decodes the reply envelope.
// A transport failure returns an error with nothing decoded; a non-2xx reply
// returns a *RemoteError carrying the body verbatim.
func (c *Client) Post(ctx context.Context, path string, value any) (Response, error) {
	body := map[string]any{
		"nonce":     newNonce(),
		"timestamp": time.Now().UnixMilli(),
		"value":     value,
	}

	canonical, err := Canonicalize(body)
	if err != nil {
		return Response{}, err
	}
	sig, err := c.sign(canonical)
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(canonical))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", sig)

	res, err := c.httpc.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("vendor request %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, fmt.Errorf("vendor request %s: %w", path, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Response{}, &RemoteError{Status: res.StatusCode, Body: raw}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, fmt.Errorf("vendor request %s: bad response body: %w", path, err)
	}

	c.logger.Debug("vendor call", "path", path, "code", out.Code)
	return out, nil
}

func (c *Client) sign(canonical []byte) (string, error) {
	digest := sha256.Sum256(canonical)
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// newNonce returns a short random token. The vendor only uses it for
// request logging on their side, so collisions are harmless.
func newNonce() string {
	b := make([]byte, 5)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
