package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
)

// Transaction is one payment attempt keyed by ref.
type Transaction struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Ref               string          `gorm:"size:64;not null;uniqueIndex" json:"ref"`
	CartID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"cart_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Status            string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Provider          string          `gorm:"size:20;not null" json:"provider"`
	ProviderPaymentID *string         `gorm:"column:provider_payment_id;size:255;index" json:"provider_payment_id,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CreatedAt         time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"default:now()" json:"updated_at"`

	// Relations
	Cart *Cart `gorm:"foreignKey:CartID" json:"cart,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}
