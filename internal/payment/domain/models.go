// Package domain contains payment method and payment models. Provider
// integration stays outside; external references are stored opaque.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch PaymentStatus(raw) {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed:
		return PaymentStatus(raw), true
	}
	return "", false
}

// PaymentMethod is a customer's stored instrument. At most one method per
// customer carries IsDefault.
type PaymentMethod struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	Type        string    `gorm:"type:text;not null" json:"type"`
	ExternalRef string    `gorm:"type:text;not null" json:"external_ref"`
	IsDefault   bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

type Payment struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Status      PaymentStatus `gorm:"type:text;not null" json:"status"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Currency    string        `gorm:"type:text;not null" json:"currency"`
	ExternalRef string        `gorm:"type:text" json:"external_ref,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
