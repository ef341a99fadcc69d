// Package domain contains the subscription lifecycle model and contracts.
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription captures a customer's billing agreement against a plan.
// Version guards status transitions: every transition is a compare-and-swap
// on (id, version), so concurrent transitions cannot interleave.
type Subscription struct {
	ID         uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID uuid.UUID          `gorm:"type:uuid;not null;index" json:"customer_id"`
	PlanID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"plan_id"`
	Status     SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	StartDate  time.Time          `gorm:"not null" json:"start_date"`
	EndDate    *time.Time         `gorm:"" json:"end_date,omitempty"`
	Version    int64              `gorm:"not null;default:1" json:"-"`
	Metadata   datatypes.JSONMap  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Canceled reports whether the subscription reached its terminal state.
func (s Subscription) Canceled() bool {
	return s.Status == SubscriptionStatusCanceled
}

// ParseStatus maps a raw status string onto a known lifecycle state.
func ParseStatus(raw string) (SubscriptionStatus, bool) {
	switch SubscriptionStatus(raw) {
	case SubscriptionStatusActive:
		return SubscriptionStatusActive, true
	case SubscriptionStatusPastDue:
		return SubscriptionStatusPastDue, true
	case SubscriptionStatusCanceled:
		return SubscriptionStatusCanceled, true
	default:
		return "", false
	}
}

// legalTransitions is the explicit transition table. Canceled is terminal;
// re-canceling is handled separately as an idempotent no-op.
var legalTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusActive:   {SubscriptionStatusCanceled, SubscriptionStatusPastDue},
	SubscriptionStatusPastDue:  {SubscriptionStatusActive, SubscriptionStatusCanceled},
	SubscriptionStatusCanceled: {},
}

// CanTransition reports whether from→to is a legal lifecycle transition.
func CanTransition(from, to SubscriptionStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
