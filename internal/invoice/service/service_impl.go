package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/clock"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	"github.com/tallyhq/tally/internal/invoice/domain"
	subscriptiondomain "github.com/tallyhq/tally/internal/subscription/domain"
	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	pkgdb "github.com/tallyhq/tally/pkg/db"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	Repo            domain.Repository
	CustomerSvc     customerdomain.Service
	SubscriptionSvc subscriptiondomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	repo            domain.Repository
	customerSvc     customerdomain.Service
	subscriptionSvc subscriptiondomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("invoice.service"),
		clock:           p.Clock,
		repo:            p.Repo,
		customerSvc:     p.CustomerSvc,
		subscriptionSvc: p.SubscriptionSvc,
	}
}

func (s *Service) CreateDraft(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidCustomer
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return domain.Invoice{}, domain.ErrInvalidCurrency
	}

	if _, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{ID: customerID.String()}); err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) {
			return domain.Invoice{}, domain.ErrCustomerNotFound
		}
		return domain.Invoice{}, err
	}

	var subscriptionID *uuid.UUID
	if value := strings.TrimSpace(req.SubscriptionID); value != "" {
		parsed, err := uuid.Parse(value)
		if err != nil {
			return domain.Invoice{}, domain.ErrInvalidSubscription
		}
		if _, err := s.subscriptionSvc.GetByID(ctx, parsed.String()); err != nil {
			if errors.Is(err, subscriptiondomain.ErrNotFound) {
				return domain.Invoice{}, domain.ErrSubscriptionNotFound
			}
			return domain.Invoice{}, err
		}
		subscriptionID = &parsed
	}

	now := s.clock.Now().UTC()
	invoice := domain.Invoice{
		ID:             uuid.New(),
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		Status:         domain.InvoiceStatusDraft,
		Currency:       currency,
		DueDate:        req.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.InsertInvoice(ctx, s.db, &invoice); err != nil {
		return domain.Invoice{}, err
	}

	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Invoice, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	return *invoice, nil
}

func (s *Service) Finalize(ctx context.Context, id string) (domain.Invoice, error) {
	return s.transition(ctx, id, domain.InvoiceStatusOpen)
}

func (s *Service) MarkPaid(ctx context.Context, id string) (domain.Invoice, error) {
	return s.transition(ctx, id, domain.InvoiceStatusPaid)
}

func (s *Service) Void(ctx context.Context, id string) (domain.Invoice, error) {
	return s.transition(ctx, id, domain.InvoiceStatusVoid)
}

func (s *Service) transition(ctx context.Context, rawID string, target domain.InvoiceStatus) (domain.Invoice, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	current, err := s.repo.FindInvoiceByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if current == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	// Repeating a transition is an idempotent no-op; paid_at is never
	// restamped.
	if current.Status == target {
		return *current, nil
	}

	if !domain.CanTransition(current.Status, target) {
		return domain.Invoice{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now().UTC()
	update := domain.InvoiceStatusUpdate{
		ID:         id,
		FromStatus: current.Status,
		Status:     target,
		PaidAt:     current.PaidAt,
		UpdatedAt:  now,
	}
	if target == domain.InvoiceStatusPaid {
		update.PaidAt = &now
	}

	affected, err := s.repo.UpdateInvoiceStatus(ctx, s.db, update)
	if err != nil {
		return domain.Invoice{}, err
	}
	if affected == 0 {
		return domain.Invoice{}, domain.ErrConcurrentUpdate
	}

	updated := *current
	updated.Status = target
	updated.PaidAt = update.PaidAt
	updated.UpdatedAt = now

	return updated, nil
}

func (s *Service) FetchUnbilledUsage(ctx context.Context, req domain.FetchUnbilledUsageRequest) (domain.FetchUnbilledUsageResponse, error) {
	subscriptionID, err := uuid.Parse(strings.TrimSpace(req.SubscriptionID))
	if err != nil {
		return domain.FetchUnbilledUsageResponse{}, domain.ErrInvalidSubscription
	}

	if _, err := s.subscriptionSvc.GetByID(ctx, subscriptionID.String()); err != nil {
		if errors.Is(err, subscriptiondomain.ErrNotFound) {
			return domain.FetchUnbilledUsageResponse{}, domain.ErrSubscriptionNotFound
		}
		return domain.FetchUnbilledUsageResponse{}, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	items, err := s.repo.FindUnbilledUsage(ctx, s.db, domain.UnbilledUsageFilter{
		SubscriptionID: subscriptionID,
		From:           req.From,
		To:             req.To,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.FetchUnbilledUsageResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *usagedomain.UsageRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.Timestamp.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	records := make([]usagedomain.UsageRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := domain.FetchUnbilledUsageResponse{UsageRecords: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) AttachLineItem(ctx context.Context, req domain.AttachLineItemRequest) (*domain.LineItem, error) {
	usageRecordID, err := uuid.Parse(strings.TrimSpace(req.UsageRecordID))
	if err != nil {
		return nil, domain.ErrInvalidUsageRecord
	}
	invoiceID, err := uuid.Parse(strings.TrimSpace(req.InvoiceID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if req.Amount < 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := s.clock.Now().UTC()
	item := domain.LineItem{
		ID:            uuid.New(),
		InvoiceID:     invoiceID,
		UsageRecordID: usageRecordID,
		Amount:        req.Amount,
		Description:   strings.TrimSpace(req.Description),
		CreatedAt:     now,
	}

	// The claim and the line item insert commit together; losing the claim
	// race rolls the whole attach back.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindInvoiceByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		if invoice.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvalidTransition
		}

		record, err := s.repo.FindUsageRecordByID(ctx, tx, usageRecordID)
		if err != nil {
			return err
		}
		if record == nil {
			return domain.ErrUsageNotFound
		}
		if record.LineItemID != nil {
			return domain.ErrUsageAlreadyBilled
		}

		if err := s.repo.InsertLineItem(ctx, tx, &item); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrUsageAlreadyBilled
			}
			return err
		}

		affected, err := s.repo.ClaimUsageRecord(ctx, tx, usageRecordID, item.ID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrUsageAlreadyBilled
		}

		return s.repo.RecomputeInvoiceTotal(ctx, tx, invoiceID, now)
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}
