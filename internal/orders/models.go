package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PayUPI  PaymentMethod = "upi"
	PayCard PaymentMethod = "card"
	PayCOD  PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayUPI, PayCard, PayCOD:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Address is a snapshot captured at order time, never a live reference.
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type OrderLine struct {
	ProductID      string `json:"product_id"`
	Size           string `json:"size,omitempty"` // empty for one-size products
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"` // price snapshot at order time
}

type Order struct {
	ID               string        `json:"id"`
	Number           string        `json:"order_number"`
	ExternalID       string        `json:"external_id,omitempty"` // client idempotency key
	UserID           string        `json:"user_id"`
	Lines            []OrderLine   `json:"lines"`
	ShippingAddress  Address       `json:"shipping_address"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentRef       string        `json:"payment_ref,omitempty"`
	Status           Status        `json:"status"`
	SubtotalCents    int64         `json:"subtotal_cents"`
	DiscountCents    int64         `json:"discount_cents"`
	DeliveryFeeCents int64         `json:"delivery_fee_cents"`
	TotalCents       int64         `json:"total_cents"`
	Version          int64         `json:"version"`
	OrderedAt        time.Time     `json:"ordered_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewOrderNumber builds the human-readable number handed to customers,
// e.g. SO-20260830-1F2A3B4C. The random suffix comes from a v4 uuid.
func NewOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("SO-%s-%s", t.Format("20060102"), suffix)
}
