// Package domain contains persistence models for plans and their prices.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Plan struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Plan) TableName() string { return "plans" }

// Price is a per-unit amount in minor currency units attached to a plan.
type Price struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID            uuid.UUID `gorm:"type:uuid;not null;index" json:"plan_id"`
	Currency          string    `gorm:"type:text;not null" json:"currency"`
	UnitAmount        int64     `gorm:"not null" json:"unit_amount"`
	RecurringInterval string    `gorm:"type:text" json:"recurring_interval,omitempty"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

func (Price) TableName() string { return "prices" }
