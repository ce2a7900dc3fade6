package entity

import "time"

// CallbackEvent is the audit record of one callback decision.
type CallbackEvent struct {
	Provider          string                 `json:"provider"`
	Ref               string                 `json:"ref"`
	ProviderPaymentID string                 `json:"provider_payment_id"`
	Outcome           string                 `json:"outcome"`
	Payload           map[string]interface{} `json:"payload"`
	RemoteIP          string                 `json:"remote_ip"`
	CreatedAt         time.Time              `json:"created_at"`
}
