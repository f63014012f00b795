package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Envelope is the wire format for the lifecycle event stream.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type LineQty struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Status      Status    `json:"status"`
	Lines       []LineQty `json:"lines"`
	TotalCents  int64     `json:"total_cents"`
}

type StatusChangedPayload struct {
	OrderID       string        `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	UserID        string        `json:"user_id"`
	From          Status        `json:"from"`
	To            Status        `json:"to"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Version       int64         `json:"version"`
}
