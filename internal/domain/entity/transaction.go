package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is one payment attempt. Amount and Currency are frozen at
// creation and are the reference every provider confirmation is checked
// against.
type Transaction struct {
	ID                int64             `json:"id"`
	Ref               string            `json:"ref"`
	CartID            uuid.UUID         `json:"cart_id"`
	CartCode          string            `json:"cart_code"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	UserID            uuid.UUID         `json:"user_id"`
	Status            TransactionStatus `json:"status"`
	Provider          string            `json:"provider"`
	ProviderPaymentID *string           `json:"provider_payment_id,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// Customer is the authenticated payer. It comes from the bearer token;
// users are not stored by this service.
type Customer struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
}
