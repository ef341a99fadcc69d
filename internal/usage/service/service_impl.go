package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/clock"
	"github.com/tallyhq/tally/internal/events"
	subscriptiondomain "github.com/tallyhq/tally/internal/subscription/domain"
	"github.com/tallyhq/tally/internal/usage/domain"
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
	SubscriptionSvc subscriptiondomain.Service
	Outbox          *events.Outbox `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	repo            domain.Repository
	subscriptionSvc subscriptiondomain.Service
	outbox          *events.Outbox
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("usage.service"),
		clock:           p.Clock,
		repo:            p.Repo,
		subscriptionSvc: p.SubscriptionSvc,
		outbox:          p.Outbox,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordUsageRequest) (*domain.UsageRecord, error) {
	subscriptionID, err := uuid.Parse(strings.TrimSpace(req.SubscriptionID))
	if err != nil {
		return nil, domain.ErrInvalidSubscription
	}
	metric := strings.TrimSpace(req.MetricName)
	if metric == "" {
		return nil, domain.ErrInvalidMetric
	}
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	subscription, err := s.subscriptionSvc.GetByID(ctx, subscriptionID.String())
	if err != nil {
		if errors.Is(err, subscriptiondomain.ErrNotFound) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	if subscription.Canceled() {
		return nil, domain.ErrSubscriptionCanceled
	}

	now := s.clock.Now().UTC()
	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}

	record := domain.UsageRecord{
		ID:             uuid.New(),
		SubscriptionID: subscriptionID,
		MetricName:     metric,
		Quantity:       req.Quantity,
		Timestamp:      timestamp.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		record.IdempotencyKey = &key
	}

	inserted, err := s.repo.Insert(ctx, s.db, &record)
	if err != nil {
		return nil, err
	}
	if !inserted && record.IdempotencyKey != nil {
		// The key was already consumed by an earlier request; hand back the
		// record that won.
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, *record.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		return nil, gorm.ErrRecordNotFound
	}

	s.emit(record)

	return &record, nil
}

func (s *Service) List(ctx context.Context, req domain.ListUsageRequest) (domain.ListUsageResponse, error) {
	filter := domain.ListUsageFilter{MetricName: strings.TrimSpace(req.MetricName)}

	if value := strings.TrimSpace(req.SubscriptionID); value != "" {
		subscriptionID, err := uuid.Parse(value)
		if err != nil {
			return domain.ListUsageResponse{}, domain.ErrInvalidSubscription
		}
		filter.SubscriptionID = subscriptionID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListUsageResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.UsageRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	records := make([]domain.UsageRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := domain.ListUsageResponse{UsageRecords: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) emit(record domain.UsageRecord) {
	if s.outbox == nil {
		return
	}
	s.outbox.PublishAsync(events.Event{
		Type: events.EventUsageRecorded,
		Payload: map[string]any{
			"usage_record_id": record.ID.String(),
			"subscription_id": record.SubscriptionID.String(),
			"metric_name":     record.MetricName,
			"quantity":        record.Quantity,
			"timestamp":       record.Timestamp.UTC().Format(time.RFC3339),
		},
		DedupeKey: events.EventUsageRecorded + ":" + record.ID.String(),
	})
}
