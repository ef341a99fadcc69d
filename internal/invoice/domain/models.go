// Package domain contains invoice and line item models plus the billing
// aggregation contract over raw usage.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusOpen  InvoiceStatus = "open"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

func ParseInvoiceStatus(raw string) (InvoiceStatus, bool) {
	switch InvoiceStatus(raw) {
	case InvoiceStatusDraft, InvoiceStatusOpen, InvoiceStatusPaid, InvoiceStatusVoid:
		return InvoiceStatus(raw), true
	}
	return "", false
}

// legalTransitions is the full invoice lifecycle. paid and void are terminal.
var legalTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft: {InvoiceStatusOpen, InvoiceStatusVoid},
	InvoiceStatusOpen:  {InvoiceStatusPaid, InvoiceStatusVoid},
}

func CanTransition(from, to InvoiceStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Invoice aggregates line items for a customer. TotalAmount is always the sum
// of the attached line item amounts; it is recomputed in the same transaction
// that inserts a line item.
type Invoice struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"customer_id"`
	SubscriptionID *uuid.UUID    `gorm:"type:uuid;index" json:"subscription_id,omitempty"`
	Status         InvoiceStatus `gorm:"type:text;not null" json:"status"`
	Currency       string        `gorm:"type:text;not null" json:"currency"`
	TotalAmount    int64         `gorm:"not null;default:0" json:"total_amount"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// LineItem is a billed charge on an invoice. UsageRecordID is unique, so a
// usage record can back at most one line item.
type LineItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID     uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`
	UsageRecordID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"usage_record_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Description   string    `gorm:"type:text" json:"description"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (LineItem) TableName() string { return "line_items" }
