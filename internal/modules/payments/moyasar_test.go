package payments

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatewayStub(t *testing.T, body string, status int) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		user, _, ok := r.BasicAuth()
		require.True(t, ok, "basic auth required")
		assert.Equal(t, "sk_test_123", user)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchNormalizesRecord(t *testing.T) {
	srv, _ := gatewayStub(t, `{
		"id": "pay_1", "status": "PAID", "amount": 1500, "currency": "sar",
		"source": {"type": "creditcard", "scheme": "mada"}
	}`, http.StatusOK)

	c := NewMoyasarClient(srv.URL, "sk_test_123", nil)
	rec, err := c.Fetch(context.Background(), "pay_1")
	require.NoError(t, err)

	assert.Equal(t, "paid", rec.Status)
	assert.Equal(t, "SAR", rec.Currency)
	assert.Equal(t, 1500, rec.AmountHalalas)
	require.NotNil(t, rec.Mode)
	assert.Equal(t, "creditcard", *rec.Mode)
	require.NotNil(t, rec.Scheme)
	assert.Equal(t, "mada", *rec.Scheme)
	assert.Contains(t, string(rec.Raw), "pay_1")
}

func TestConfirmAccepted(t *testing.T) {
	srv, calls := gatewayStub(t, `{"id":"pay_1","status":"paid","amount":1500,"currency":"SAR"}`, http.StatusOK)

	c := NewMoyasarClient(srv.URL, "sk_test_123", nil)
	_, err := c.Confirm(context.Background(), "pay_1", 1500, "SAR")
	require.NoError(t, err)

	// No caching: a second confirm hits the gateway again.
	_, err = c.Confirm(context.Background(), "pay_1", 1500, "SAR")
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}

func TestConfirmAuthorizedAccepted(t *testing.T) {
	srv, _ := gatewayStub(t, `{"id":"pay_1","status":"authorized","amount":1500,"currency":"SAR"}`, http.StatusOK)
	c := NewMoyasarClient(srv.URL, "sk_test_123", nil)
	_, err := c.Confirm(context.Background(), "pay_1", 1500, "SAR")
	assert.NoError(t, err)
}

func TestConfirmAmountMismatch(t *testing.T) {
	srv, _ := gatewayStub(t, `{"id":"pay_1","status":"paid","amount":1200,"currency":"SAR"}`, http.StatusOK)

	c := NewMoyasarClient(srv.URL, "sk_test_123", nil)
	_, err := c.Confirm(context.Background(), "pay_1", 1500, "SAR")

	var ie *InvalidError
	require.True(t, errors.As(err, &ie))
	require.Len(t, ie.Reasons, 1)
	assert.Contains(t, ie.Reasons[0], "amount 1200")
}

func TestConfirmEnumeratesAllFailures(t *testing.T) {
	srv, _ := gatewayStub(t, `{"id":"pay_1","status":"failed","amount":900,"currency":"USD"}`, http.StatusOK)

	c := NewMoyasarClient(srv.URL, "sk_test_123", nil)
	_, err := c.Confirm(context.Background(), "pay_1", 1500, "SAR")

	var ie *InvalidError
	require.True(t, errors.As(err, &ie))
	assert.Len(t, ie.Reasons, 3)
	assert.Contains(t, ie.Error(), "status")
	assert.Contains(t, ie.Error(), "currency")
	assert.Contains(t, ie.Error(), "amount")
}

func TestFetchGatewayErrorStatus(t *testing.T) {
	srv, _ := gatewayStub(t, `{"type":"not_found"}`, http.StatusNotFound)
	c := NewMoyasarClient(srv.URL, "sk_test_123", nil)
	_, err := c.Fetch(context.Background(), "pay_missing")
	require.Error(t, err)
	var ie *InvalidError
	assert.False(t, errors.As(err, &ie), "transport-level failure is not a PAY_INVALID")
}

func TestBasicAuthHeaderShape(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":"pay_1","status":"paid","amount":1,"currency":"SAR"}`))
	}))
	defer srv.Close()

	c := NewMoyasarClient(srv.URL, "sk_test_123", nil)
	_, err := c.Fetch(context.Background(), "pay_1")
	require.NoError(t, err)
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("sk_test_123:"))
	assert.Equal(t, want, got)
}
