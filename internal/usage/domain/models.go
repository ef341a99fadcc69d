// Package domain contains persistence models for raw usage ingestion.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord stores a single unit of metered activity reported against a
// subscription. LineItemID stays nil until a billing aggregator claims the
// record; the claim is a conditional update, so a record is billed at most
// once.
type UsageRecord struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"subscription_id"`
	MetricName     string     `gorm:"type:text;not null" json:"metric_name"`
	Quantity       int64      `gorm:"not null" json:"quantity"`
	Timestamp      time.Time  `gorm:"not null;index" json:"timestamp"`
	LineItemID     *uuid.UUID `gorm:"type:uuid" json:"line_item_id,omitempty"`
	IdempotencyKey *string    `gorm:"type:text;uniqueIndex" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (UsageRecord) TableName() string { return "usage_records" }
