package rentals

import (
	"time"

	"github.com/maysqunaibi/strollers-backend/internal/modules/payments"
)

// Order lifecycle. pending_payment only arises from the legacy creation path
// (an order opened before its payment is confirmed); the payment-confirmation
// path creates orders directly in unlocking. unlock_failed, returned and
// canceled are terminal.
const (
	StatusPendingPayment = "pending_payment"
	StatusUnlocking      = "unlocking"
	StatusInUse          = "in_use"
	StatusUnlockFailed   = "unlock_failed"
	StatusReturned       = "returned"
	StatusCanceled       = "canceled"
)

// RentalOrder is one stroller rental. CartNo can be null because the vendor
// hardware sometimes reports a cart only by its positional index inside the
// device, and PaymentID carries a unique index so a payment can never open
// two orders.
type RentalOrder struct {
	ID             string   `gorm:"type:char(36);primaryKey" json:"id"`
	Status         string   `gorm:"type:varchar(32);not null;index:ix_rental_orders_status" json:"status"`
	SiteNo         *string  `gorm:"type:varchar(64)" json:"siteNo"`
	DeviceNo       string   `gorm:"type:varchar(64);not null;index:ix_rental_orders_device" json:"deviceNo"`
	CartNo         *string  `gorm:"type:varchar(64);index:ix_rental_orders_cart" json:"cartNo"`
	CartIndex      *int     `gorm:"" json:"cartIndex"`
	AmountHalalas  int      `gorm:"not null" json:"amountHalalas"`
	MerchantNo     string   `gorm:"type:varchar(64);not null" json:"merchantNo"`
	Electricity    *float64 `gorm:"" json:"electricity"`
	ReturnDeviceNo *string  `gorm:"type:varchar(64)" json:"returnDeviceNo"`
	Notes          string   `gorm:"type:varchar(512);not null;default:''" json:"notes"`

	PaymentID *string           `gorm:"type:varchar(64);uniqueIndex:ux_rental_orders_payment" json:"paymentId"`
	Payment   *payments.Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`

	UnlockRequestedAt *time.Time `gorm:"precision:3" json:"unlockRequestedAt"`
	UnlockConfirmedAt *time.Time `gorm:"precision:3" json:"unlockConfirmedAt"`
	ReturnedAt        *time.Time `gorm:"precision:3" json:"returnedAt"`
	CreatedAt         time.Time  `gorm:"precision:3;not null;index:ix_rental_orders_created" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"precision:3;not null" json:"updatedAt"`
}

func (RentalOrder) TableName() string { return "rental_orders" }

func (o RentalOrder) Terminal() bool {
	switch o.Status {
	case StatusUnlockFailed, StatusReturned, StatusCanceled:
		return true
	}
	return false
}
