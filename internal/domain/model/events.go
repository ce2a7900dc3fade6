package model

import (
	"time"

	"gorm.io/datatypes"
)

// CallbackEvent audits every callback decision, including rejected ones.
type CallbackEvent struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider          string         `gorm:"size:20;not null;index" json:"provider"`
	Ref               string         `gorm:"size:64;index" json:"ref"`
	ProviderPaymentID string         `gorm:"column:provider_payment_id;size:255" json:"provider_payment_id"`
	Outcome           string         `gorm:"size:40;not null" json:"outcome"`
	Payload           datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	RemoteIP          string         `gorm:"size:45" json:"remote_ip"`
	CreatedAt         time.Time      `gorm:"default:now()" json:"created_at"`
}

func (CallbackEvent) TableName() string {
	return "callback_events"
}

const EventTypeCartPaid = "cart.paid"

// OutboxEvent is written in the settlement transaction and relayed to the
// broker afterwards.
type OutboxEvent struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AggregateID string         `gorm:"column:aggregate_id;size:64;not null;index" json:"aggregate_id"`
	EventType   string         `gorm:"size:64;not null" json:"event_type"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	LastError   *string        `json:"last_error,omitempty"`
	ProcessedAt *time.Time     `gorm:"index" json:"processed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"default:now()" json:"created_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
