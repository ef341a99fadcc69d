// Package events provides a durable outbox for domain events. Delivery to
// external notification collaborators is fire-and-forget: publishing never
// blocks or fails the operation that produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	EventSubscriptionCreated = "subscription.created"
	EventSubscriptionUpdated = "subscription.updated"
	EventUsageRecorded       = "usage.recorded"
)

type Event struct {
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// OutboxEvent is the persisted form of a domain event, kept until an external
// dispatcher consumes it.
type OutboxEvent struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Type      string            `gorm:"type:text;not null"`
	Payload   datatypes.JSONMap `gorm:"not null"`
	DedupeKey string            `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time         `gorm:"not null"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

type Outbox struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewOutbox(db *gorm.DB, log *zap.Logger) *Outbox {
	return &Outbox{
		db:  db,
		log: log.Named("events.outbox"),
	}
}

// Publish durably records the event. Republishing with the same dedupe key is
// a no-op.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	row := OutboxEvent{
		ID:        uuid.New(),
		Type:      event.Type,
		Payload:   datatypes.JSONMap(event.Payload),
		DedupeKey: event.DedupeKey,
		CreatedAt: time.Now().UTC(),
	}
	return o.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

// PublishAsync records the event on a detached goroutine. Failures are logged
// and dropped; the producing operation already committed.
func (o *Outbox) PublishAsync(event Event) {
	go func() {
		if err := o.Publish(context.Background(), event); err != nil {
			o.log.Warn("publish event failed",
				zap.String("type", event.Type),
				zap.String("dedupe_key", event.DedupeKey),
				zap.Error(err),
			)
		}
	}()
}
