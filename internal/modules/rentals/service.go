package rentals

import (
	"context"
	"log/slog"

	"github.com/maysqunaibi/strollers-backend/internal/modules/payments"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

// VendorAPI is the slice of the signed vendor client the unlock flow needs.
type VendorAPI interface {
	Post(ctx context.Context, path string, value any) (trx.Response, error)
}

const unlockPath = "/trx/interface/handCart/unlock"

// Service drives the unlock flow: confirm the payment against the gateway,
// open (or reuse) the ledger order, fire the signed vendor unlock, record the
// outcome. The vendor call and the ledger writes are not one transaction; if
// the status write fails after a successful unlock the order stays in
// unlocking and is reconciled by an operator.
type Service struct {
	ledger     *Ledger
	gateway    payments.Gateway
	vendor     VendorAPI
	merchantNo string
	currency   string
	logger     *slog.Logger
}

func NewService(ledger *Ledger, gateway payments.Gateway, vendor VendorAPI, merchantNo, currency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:     ledger,
		gateway:    gateway,
		vendor:     vendor,
		merchantNo: merchantNo,
		currency:   currency,
		logger:     logger,
	}
}

type UnlockInput struct {
	PaymentID     string
	DeviceNo      string
	CartNo        string
	CartIndex     int
	SiteNo        string
	AmountHalalas int
}

type UnlockResult struct {
	Order          RentalOrder
	Payment        payments.Payment
	VendorResponse trx.Response
	Replayed       bool
}

// ConfirmAndUnlock is idempotent per payment: a replayed request finds the
// existing order and, unless that order is still waiting on a vendor reply,
// returns it without another unlock call.
func (s *Service) ConfirmAndUnlock(ctx context.Context, in UnlockInput) (UnlockResult, error) {
	rec, err := s.gateway.Confirm(ctx, in.PaymentID, in.AmountHalalas, s.currency)
	if err != nil {
		return UnlockResult{}, err
	}

	pay, err := s.ledger.UpsertPayment(ctx, rec)
	if err != nil {
		return UnlockResult{}, err
	}

	order, created, err := s.ledger.OpenOrderForPayment(ctx, OpenOrderParams{
		PaymentID:     in.PaymentID,
		DeviceNo:      in.DeviceNo,
		CartNo:        strPtrOrNil(in.CartNo),
		CartIndex:     &in.CartIndex,
		SiteNo:        strPtrOrNil(in.SiteNo),
		AmountHalalas: in.AmountHalalas,
		MerchantNo:    s.merchantNo,
	})
	if err != nil {
		return UnlockResult{}, err
	}

	// Replay of an already-settled order: hand it back untouched.
	if !created && order.Status != StatusUnlocking {
		s.logger.InfoContext(ctx, "unlock replayed", "order_id", order.ID, "status", order.Status)
		return UnlockResult{Order: order, Payment: pay, Replayed: true}, nil
	}

	resp, err := s.vendor.Post(ctx, unlockPath, map[string]any{
		"merchantNo": s.merchantNo,
		"deviceNo":   in.DeviceNo,
		"cartNo":     in.CartNo,
		"cartIndex":  in.CartIndex,
	})
	if err != nil {
		// Transport failure: no outcome to record, order stays unlocking.
		return UnlockResult{Order: order, Payment: pay}, err
	}

	order, err = s.ledger.RecordUnlockOutcome(ctx, order.ID, resp.Code, resp.Msg)
	if err != nil {
		return UnlockResult{}, err
	}
	return UnlockResult{Order: order, Payment: pay, VendorResponse: resp, Replayed: !created}, nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
