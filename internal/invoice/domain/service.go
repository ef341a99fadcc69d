package domain

import (
	"context"
	"errors"
	"time"

	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
)

type CreateInvoiceRequest struct {
	CustomerID     string
	SubscriptionID string
	Currency       string
	DueDate        *time.Time
}

type FetchUnbilledUsageRequest struct {
	SubscriptionID string
	From           *time.Time
	To             *time.Time
	PageToken      string
	PageSize       int32
}

type FetchUnbilledUsageResponse struct {
	pagination.PageInfo
	UsageRecords []usagedomain.UsageRecord `json:"usage_records"`
}

type AttachLineItemRequest struct {
	UsageRecordID string
	InvoiceID     string
	Amount        int64
	Description   string
}

type Service interface {
	CreateDraft(context.Context, CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	// Finalize moves a draft invoice to open, freezing it for payment.
	Finalize(ctx context.Context, id string) (Invoice, error)
	MarkPaid(ctx context.Context, id string) (Invoice, error)
	Void(ctx context.Context, id string) (Invoice, error)
	// FetchUnbilledUsage pages through usage records not yet claimed by any
	// line item, oldest first. The cursor is stateless, so an aggregator can
	// resume after a crash.
	FetchUnbilledUsage(context.Context, FetchUnbilledUsageRequest) (FetchUnbilledUsageResponse, error)
	// AttachLineItem bills one usage record onto an invoice exactly once.
	AttachLineItem(context.Context, AttachLineItemRequest) (*LineItem, error)
}

var (
	ErrInvalidID            = errors.New("invalid_invoice_id")
	ErrInvalidCustomer      = errors.New("invalid_customer_id")
	ErrInvalidSubscription  = errors.New("invalid_subscription_id")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidUsageRecord   = errors.New("invalid_usage_record_id")
	ErrInvalidTransition    = errors.New("invalid_invoice_transition")
	ErrNotFound             = errors.New("invoice_not_found")
	ErrCustomerNotFound     = errors.New("customer_not_found")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrUsageNotFound        = errors.New("usage_record_not_found")
	ErrUsageAlreadyBilled   = errors.New("usage_already_billed")
	ErrConcurrentUpdate     = errors.New("concurrent_update")
)
