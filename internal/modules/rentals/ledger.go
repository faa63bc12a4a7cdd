// Package rentals owns the rental-order ledger: the persisted Payment and
// RentalOrder rows and every state transition between them. Nothing else in
// the process mutates these tables, and no in-memory copy of them is
// authoritative.
package rentals

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/maysqunaibi/strollers-backend/internal/modules/payments"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

type Ledger struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewLedger(db *gorm.DB, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{db: db, logger: logger}
}

// UpsertPayment refreshes the local mirror of a gateway payment. Writes are
// keyed by the gateway id; repeated confirmations update the same row.
func (l *Ledger) UpsertPayment(ctx context.Context, rec payments.Record) (payments.Payment, error) {
	now := time.Now()
	p := payments.Payment{
		ID:            rec.ID,
		Status:        rec.Status,
		Mode:          rec.Mode,
		Scheme:        rec.Scheme,
		AmountHalalas: rec.AmountHalalas,
		Currency:      rec.Currency,
		MetadataJSON:  datatypes.JSON(rec.Raw),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "mode", "scheme", "amount_halalas", "currency", "metadata_json", "updated_at",
			}),
		}).
		Create(&p).Error
	if err != nil {
		return payments.Payment{}, err
	}
	return p, nil
}

type OpenOrderParams struct {
	PaymentID     string
	DeviceNo      string
	CartNo        *string
	CartIndex     *int
	SiteNo        *string
	AmountHalalas int
	MerchantNo    string
}

// OpenOrderForPayment returns the one order belonging to a payment, creating
// it in unlocking if none exists. Racing creators converge on a single row by
// relying on the unique index on payment_id: the loser's insert fails with a
// duplicate-key error and is answered with a re-read, never with a second row.
func (l *Ledger) OpenOrderForPayment(ctx context.Context, in OpenOrderParams) (RentalOrder, bool, error) {
	existing, err := l.findByPayment(ctx, in.PaymentID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return RentalOrder{}, false, err
	}

	now := time.Now()
	paymentID := in.PaymentID
	order := RentalOrder{
		ID:                uuid.NewString(),
		Status:            StatusUnlocking,
		SiteNo:            in.SiteNo,
		DeviceNo:          in.DeviceNo,
		CartNo:            in.CartNo,
		CartIndex:         in.CartIndex,
		AmountHalalas:     in.AmountHalalas,
		MerchantNo:        in.MerchantNo,
		PaymentID:         &paymentID,
		UnlockRequestedAt: &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := l.db.WithContext(ctx).Create(&order).Error; err != nil {
		if isDup(err) {
			winner, rerr := l.findByPayment(ctx, in.PaymentID)
			if rerr != nil {
				return RentalOrder{}, false, rerr
			}
			return winner, false, nil
		}
		return RentalOrder{}, false, err
	}

	l.logger.InfoContext(ctx, "order opened", "order_id", order.ID, "payment_id", in.PaymentID, "device_no", in.DeviceNo)
	return order, true, nil
}

// CreatePendingOrder is the minimal creation path: an order opened before any
// payment confirmation, the only state Cancel applies to.
func (l *Ledger) CreatePendingOrder(ctx context.Context, in OpenOrderParams) (RentalOrder, error) {
	now := time.Now()
	order := RentalOrder{
		ID:            uuid.NewString(),
		Status:        StatusPendingPayment,
		SiteNo:        in.SiteNo,
		DeviceNo:      in.DeviceNo,
		CartNo:        in.CartNo,
		CartIndex:     in.CartIndex,
		AmountHalalas: in.AmountHalalas,
		MerchantNo:    in.MerchantNo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.db.WithContext(ctx).Create(&order).Error; err != nil {
		return RentalOrder{}, err
	}
	return order, nil
}

// RecordUnlockOutcome settles an unlocking order from the vendor's reply.
// A failure code is a valid terminal business state, not an error: the order
// stays linked to its payment for audit and refund handling.
func (l *Ledger) RecordUnlockOutcome(ctx context.Context, orderID, vendorCode, vendorMsg string) (RentalOrder, error) {
	order, err := l.Get(ctx, orderID)
	if err != nil {
		return RentalOrder{}, err
	}
	if order.Status != StatusUnlocking {
		return order, nil
	}

	now := time.Now()
	updates := map[string]any{"updated_at": now}
	if vendorCode == trx.CodeSuccess {
		updates["status"] = StatusInUse
		updates["unlock_confirmed_at"] = &now
	} else {
		updates["status"] = StatusUnlockFailed
		updates["notes"] = strings.TrimSpace("vendor " + vendorCode + ": " + vendorMsg)
	}

	if err := l.db.WithContext(ctx).Model(&RentalOrder{}).
		Where("id = ?", order.ID).
		Updates(updates).Error; err != nil {
		return RentalOrder{}, err
	}
	return l.Get(ctx, orderID)
}

type ReturnParams struct {
	MerchantNo string
	DeviceNo   string
	CartNo     string
	CartIndex  *int
	// Electricity arrives as raw JSON: number, numeric string, or absent.
	Electricity any
}

type ReturnOutcome struct {
	Matched bool
	Order   RentalOrder
}

// CloseOrderOnReturn applies a vendor return callback. Match priority:
// (1) this merchant's newest in_use order on the reported cart number;
// (2) failing that, the newest in_use order on device + cart index.
// No match is not an error: the callback is stale, duplicated or unsolicited,
// and the vendor still needs a success acknowledgment to stop retrying.
// Duplicates are naturally idempotent because only in_use orders match.
func (l *Ledger) CloseOrderOnReturn(ctx context.Context, in ReturnParams) (ReturnOutcome, error) {
	var order RentalOrder
	found := false

	if in.CartNo != "" {
		err := l.db.WithContext(ctx).
			Where("merchant_no = ? AND cart_no = ? AND status = ?", in.MerchantNo, in.CartNo, StatusInUse).
			Order("created_at DESC").
			First(&order).Error
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return ReturnOutcome{}, err
		}
	}

	if !found && in.DeviceNo != "" && in.CartIndex != nil {
		err := l.db.WithContext(ctx).
			Where("merchant_no = ? AND device_no = ? AND cart_index = ? AND status = ?",
				in.MerchantNo, in.DeviceNo, *in.CartIndex, StatusInUse).
			Order("created_at DESC").
			First(&order).Error
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return ReturnOutcome{}, err
		}
	}

	if !found {
		l.logger.WarnContext(ctx, "return callback matched no in_use order",
			"merchant_no", in.MerchantNo, "device_no", in.DeviceNo, "cart_no", in.CartNo)
		return ReturnOutcome{Matched: false}, nil
	}

	now := time.Now()
	updates := map[string]any{
		"status":      StatusReturned,
		"returned_at": &now,
		"updated_at":  now,
	}
	if in.DeviceNo != "" {
		updates["return_device_no"] = in.DeviceNo
	}
	// An unreadable battery value must not wipe the stored one.
	if elec, ok := coerceElectricity(in.Electricity); ok {
		updates["electricity"] = elec
	}

	if err := l.db.WithContext(ctx).Model(&RentalOrder{}).
		Where("id = ?", order.ID).
		Updates(updates).Error; err != nil {
		return ReturnOutcome{}, err
	}

	closed, err := l.Get(ctx, order.ID)
	if err != nil {
		return ReturnOutcome{}, err
	}
	l.logger.InfoContext(ctx, "order returned", "order_id", closed.ID, "device_no", in.DeviceNo, "cart_no", in.CartNo)
	return ReturnOutcome{Matched: true, Order: closed}, nil
}

// MarkReturnedManually is the operator override for hardware that never
// reported a return.
func (l *Ledger) MarkReturnedManually(ctx context.Context, orderID, note string) (RentalOrder, error) {
	order, err := l.Get(ctx, orderID)
	if err != nil {
		return RentalOrder{}, err
	}
	if order.Status == StatusReturned || order.Status == StatusCanceled {
		return order, ErrAlreadyClosed
	}

	now := time.Now()
	notes := order.Notes
	if note != "" {
		if notes != "" {
			notes += "; "
		}
		notes += note
	}
	if err := l.db.WithContext(ctx).Model(&RentalOrder{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":      StatusReturned,
			"returned_at": &now,
			"notes":       notes,
			"updated_at":  now,
		}).Error; err != nil {
		return RentalOrder{}, err
	}
	return l.Get(ctx, orderID)
}

// Cancel voids an order that never reached payment confirmation.
func (l *Ledger) Cancel(ctx context.Context, orderID string) (RentalOrder, error) {
	order, err := l.Get(ctx, orderID)
	if err != nil {
		return RentalOrder{}, err
	}
	if order.Status != StatusPendingPayment {
		return order, ErrNotCancellable
	}

	now := time.Now()
	if err := l.db.WithContext(ctx).Model(&RentalOrder{}).
		Where("id = ? AND status = ?", order.ID, StatusPendingPayment).
		Updates(map[string]any{"status": StatusCanceled, "updated_at": now}).Error; err != nil {
		return RentalOrder{}, err
	}
	return l.Get(ctx, orderID)
}

func (l *Ledger) Get(ctx context.Context, orderID string) (RentalOrder, error) {
	var order RentalOrder
	err := l.db.WithContext(ctx).First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RentalOrder{}, ErrOrderNotFound
	}
	return order, err
}

// OpenOrders lists in_use rentals for the operator panel, newest first.
func (l *Ledger) OpenOrders(ctx context.Context) ([]RentalOrder, error) {
	var out []RentalOrder
	err := l.db.WithContext(ctx).
		Preload("Payment").
		Where("status = ?", StatusInUse).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// RecentOrders lists the latest rentals regardless of state.
func (l *Ledger) RecentOrders(ctx context.Context, limit int) ([]RentalOrder, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var out []RentalOrder
	err := l.db.WithContext(ctx).
		Preload("Payment").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (l *Ledger) findByPayment(ctx context.Context, paymentID string) (RentalOrder, error) {
	var order RentalOrder
	err := l.db.WithContext(ctx).First(&order, "payment_id = ?", paymentID).Error
	return order, err
}

func coerceElectricity(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	// sqlite (tests) reports constraint violations by message only.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
