package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/maysqunaibi/strollers-backend/internal/modules/payments"
	"github.com/maysqunaibi/strollers-backend/internal/modules/rentals"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

type stubGateway struct {
	rec payments.Record
	err error
}

func (g *stubGateway) Fetch(ctx context.Context, id string) (payments.Record, error) {
	return g.rec, g.err
}

func (g *stubGateway) Confirm(ctx context.Context, id string, amountHalalas int, currency string) (payments.Record, error) {
	return g.rec, g.err
}

type stubVendor struct {
	resp  trx.Response
	err   error
	calls int
}

func (v *stubVendor) Post(ctx context.Context, path string, value any) (trx.Response, error) {
	v.calls++
	return v.resp, v.err
}

func confirmUnlockRouter(t *testing.T, gw payments.Gateway, vd rentals.VendorAPI) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "rentals.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&payments.Payment{}, &rentals.RentalOrder{}))

	ledger := rentals.NewLedger(db, nil)
	svc := rentals.NewService(ledger, gw, vd, "M100", "SAR", nil)
	h := NewRentalHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

	r := gin.New()
	r.POST("/api/handcart/confirm-unlock", h.ConfirmUnlock)
	return r
}

func confirmUnlockBody() map[string]any {
	return map[string]any{
		"paymentId":     "pay_h1",
		"deviceNo":      "D1",
		"cartNo":        "C42",
		"cartIndex":     3,
		"siteNo":        "S001585",
		"amountHalalas": 1500,
	}
}

func TestConfirmUnlock_HappyPath(t *testing.T) {
	gw := &stubGateway{rec: payments.Record{
		ID: "pay_h1", Status: payments.StatusPaid, AmountHalalas: 1500,
		Currency: "SAR", Raw: json.RawMessage(`{}`),
	}}
	vd := &stubVendor{resp: trx.Response{Code: "00000", Msg: "success"}}
	router := confirmUnlockRouter(t, gw, vd)

	w := postJSON(router, "/api/handcart/confirm-unlock", confirmUnlockBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code string `json:"code"`
		Data struct {
			OrderID string              `json:"orderId"`
			Order   rentals.RentalOrder `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "00000", resp.Code)
	assert.NotEmpty(t, resp.Data.OrderID)
	assert.Equal(t, rentals.StatusInUse, resp.Data.Order.Status)
	assert.Equal(t, 1, vd.calls)
}

func TestConfirmUnlock_MissingFieldsRejected(t *testing.T) {
	router := confirmUnlockRouter(t, &stubGateway{}, &stubVendor{})

	w := postJSON(router, "/api/handcart/confirm-unlock", map[string]any{"paymentId": "pay_h1"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Code string `json:"code"`
		Data struct {
			Fields map[string]string `json:"fields"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "20001", resp.Code)
	assert.Contains(t, resp.Data.Fields, "deviceNo")
	assert.Contains(t, resp.Data.Fields, "cartIndex")
}

func TestConfirmUnlock_PaymentMismatchIsPayInvalid(t *testing.T) {
	gw := &stubGateway{err: &payments.InvalidError{
		PaymentID: "pay_h1",
		Reasons:   []string{"amount mismatch: gateway=1000 requested=1500"},
	}}
	vd := &stubVendor{}
	router := confirmUnlockRouter(t, gw, vd)

	w := postJSON(router, "/api/handcart/confirm-unlock", confirmUnlockBody())
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAY_INVALID", resp.Code)
	assert.Contains(t, resp.Msg, "amount mismatch")
	assert.Zero(t, vd.calls)
}

func TestConfirmUnlock_VendorRejectionPassesCodeThrough(t *testing.T) {
	gw := &stubGateway{rec: payments.Record{
		ID: "pay_h1", Status: payments.StatusPaid, AmountHalalas: 1500,
		Currency: "SAR", Raw: json.RawMessage(`{}`),
	}}
	vd := &stubVendor{resp: trx.Response{Code: "30001", Msg: "cart not docked"}}
	router := confirmUnlockRouter(t, gw, vd)

	w := postJSON(router, "/api/handcart/confirm-unlock", confirmUnlockBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Order rentals.RentalOrder `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "30001", resp.Code)
	assert.Equal(t, "cart not docked", resp.Msg)
	assert.Equal(t, rentals.StatusUnlockFailed, resp.Data.Order.Status)
}

func TestConfirmUnlock_VendorHTTPErrorBodyRelayed(t *testing.T) {
	gw := &stubGateway{rec: payments.Record{
		ID: "pay_h1", Status: payments.StatusPaid, AmountHalalas: 1500,
		Currency: "SAR", Raw: json.RawMessage(`{}`),
	}}
	vd := &stubVendor{err: &trx.RemoteError{
		Status: http.StatusInternalServerError,
		Body:   []byte(`{"code":"99999","msg":"platform error","data":null}`),
	}}
	router := confirmUnlockRouter(t, gw, vd)

	w := postJSON(router, "/api/handcart/confirm-unlock", confirmUnlockBody())
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"code":"99999","msg":"platform error","data":null}`, w.Body.String())
}
