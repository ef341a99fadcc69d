package domain

import (
	"context"
	"errors"
	"time"

	"github.com/tallyhq/tally/pkg/db/pagination"
)

type RecordUsageRequest struct {
	SubscriptionID string
	MetricName     string
	Quantity       int64
	// Timestamp defaults to ingestion time when zero.
	Timestamp time.Time
	// IdempotencyKey is optional; retried requests carrying the same key
	// return the originally stored record instead of double-counting.
	IdempotencyKey string
}

type ListUsageRequest struct {
	SubscriptionID string
	MetricName     string
	PageToken      string
	PageSize       int32
}

type ListUsageResponse struct {
	pagination.PageInfo
	UsageRecords []UsageRecord `json:"usage_records"`
}

type Service interface {
	// Record durably accepts a usage event. The returned record is an
	// acknowledgment that the event will be billed later, not a computed
	// charge.
	Record(context.Context, RecordUsageRequest) (*UsageRecord, error)
	List(context.Context, ListUsageRequest) (ListUsageResponse, error)
}

var (
	ErrInvalidSubscription  = errors.New("invalid_subscription_id")
	ErrInvalidMetric        = errors.New("invalid_metric_name")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrSubscriptionCanceled = errors.New("subscription_canceled")
)
