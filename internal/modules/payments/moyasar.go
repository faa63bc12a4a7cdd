// Package payments owns the gateway boundary: fetching a payment's
// authoritative state from Moyasar and validating it against what the caller
// claims to have paid. The gateway is the source of truth; nothing here is
// cached.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const gatewayTimeout = 15 * time.Second

// Record is the normalized view of one gateway payment, plus the raw body
// for the audit snapshot.
type Record struct {
	ID            string
	Status        string // lower-cased gateway status: paid, authorized, failed, ...
	Mode          *string
	Scheme        *string
	AmountHalalas int
	Currency      string // upper-cased 3-letter code
	Raw           json.RawMessage
}

// InvalidError reports a payment that exists but does not prove the claimed
// charge. Reasons lists every failed check, not just the first.
type InvalidError struct {
	PaymentID string
	Reasons   []string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("payment %s invalid: %s", e.PaymentID, strings.Join(e.Reasons, "; "))
}

// Gateway is the read-side contract the unlock flow depends on.
type Gateway interface {
	Fetch(ctx context.Context, id string) (Record, error)
	Confirm(ctx context.Context, id string, amountHalalas int, currency string) (Record, error)
}

// MoyasarClient reads payments from the Moyasar REST API.
type MoyasarClient struct {
	baseURL   string
	secretKey string
	httpc     *http.Client
	logger    *slog.Logger
}

func NewMoyasarClient(baseURL, secretKey string, logger *slog.Logger) *MoyasarClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &MoyasarClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpc:     &http.Client{Timeout: gatewayTimeout},
		logger:    logger,
	}
}

type moyasarPayment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Source   struct {
		Type    string `json:"type"`
		Company string `json:"company"`
		Scheme  string `json:"scheme"`
	} `json:"source"`
}

// Fetch performs one authenticated read. Moyasar uses HTTP basic auth with
// the secret key as username and an empty password.
func (c *MoyasarClient) Fetch(ctx context.Context, id string) (Record, error) {
	url := c.baseURL + "/v1/payments/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Record{}, err
	}
	req.SetBasicAuth(c.secretKey, "")

	res, err := c.httpc.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("gateway fetch %s: %w", id, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Record{}, fmt.Errorf("gateway fetch %s: %w", id, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Record{}, fmt.Errorf("gateway fetch %s: status %d: %s", id, res.StatusCode, body)
	}

	var p moyasarPayment
	if err := json.Unmarshal(body, &p); err != nil {
		return Record{}, fmt.Errorf("gateway fetch %s: bad body: %w", id, err)
	}

	rec := Record{
		ID:            p.ID,
		Status:        strings.ToLower(p.Status),
		AmountHalalas: p.Amount,
		Currency:      strings.ToUpper(p.Currency),
		Raw:           json.RawMessage(body),
	}
	if mode := firstNonEmpty(p.Source.Type, p.Source.Company); mode != "" {
		rec.Mode = &mode
	}
	if p.Source.Scheme != "" {
		scheme := p.Source.Scheme
		rec.Scheme = &scheme
	}

	c.logger.Debug("gateway payment fetched", "payment_id", rec.ID, "status", rec.Status)
	return rec, nil
}

// Confirm re-queries the gateway and checks the three conditions that make a
// payment usable for an unlock: accepted status, expected currency, exact
// amount in minor units. All three are evaluated so the rejection reason
// names every mismatch.
func (c *MoyasarClient) Confirm(ctx context.Context, id string, amountHalalas int, currency string) (Record, error) {
	rec, err := c.Fetch(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if reasons := confirmReasons(rec, amountHalalas, currency); len(reasons) > 0 {
		return rec, &InvalidError{PaymentID: id, Reasons: reasons}
	}
	return rec, nil
}

func confirmReasons(rec Record, amountHalalas int, currency string) []string {
	var reasons []string
	if rec.Status != StatusPaid && rec.Status != StatusAuthorized {
		reasons = append(reasons, fmt.Sprintf("status %q not in [paid authorized]", rec.Status))
	}
	if rec.Currency != strings.ToUpper(currency) {
		reasons = append(reasons, fmt.Sprintf("currency %q, expected %q", rec.Currency, strings.ToUpper(currency)))
	}
	if rec.AmountHalalas != amountHalalas {
		reasons = append(reasons, fmt.Sprintf("amount %d, expected %d", rec.AmountHalalas, amountHalalas))
	}
	return reasons
}

func firstNonEmpty(xs ...string) string {
	for _, x := range xs {
		if x != "" {
			return x
		}
	}
	return ""
}
