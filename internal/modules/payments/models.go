package payments

import (
	"time"

	"gorm.io/datatypes"
)

// Gateway statuses accepted as proof of payment.
const (
	StatusPaid       = "paid"
	StatusAuthorized = "authorized"
)

// Payment mirrors one gateway payment. The row is keyed by the gateway's own
// id and refreshed on every lookup; MetadataJSON keeps the full gateway
// response for audit and is never interpreted after storage.
type Payment struct {
	ID            string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	Status        string         `gorm:"type:varchar(32);not null" json:"status"`
	Mode          *string        `gorm:"type:varchar(32)" json:"mode"`
	Scheme        *string        `gorm:"type:varchar(32)" json:"scheme"`
	AmountHalalas int            `gorm:"not null" json:"amountHalalas"`
	Currency      string         `gorm:"type:char(3);not null" json:"currency"`
	CustomerRef   *string        `gorm:"type:varchar(128)" json:"customerRef"`
	MetadataJSON  datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt     time.Time      `gorm:"precision:3;not null" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"precision:3;not null" json:"updatedAt"`
}

func (Payment) TableName() string { return "payments" }

func (p Payment) Confirmed() bool {
	return p.Status == StatusPaid || p.Status == StatusAuthorized
}
