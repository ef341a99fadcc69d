package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Customer struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string            `gorm:"not null" json:"name"`
	Email              string            `gorm:"not null;uniqueIndex" json:"email"`
	ExternalPaymentRef *string           `gorm:"type:text" json:"external_payment_ref,omitempty"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
