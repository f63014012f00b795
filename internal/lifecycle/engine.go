package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/stitchkart/orders/internal/inventory"
	kafkax "github.com/stitchkart/orders/internal/kafka"
	"github.com/stitchkart/orders/internal/notify"
	"github.com/stitchkart/orders/internal/orders"
	"github.com/stitchkart/orders/internal/payments"
	"github.com/stitchkart/orders/internal/redisx"
)

// EventSink is where lifecycle envelopes go; satisfied by the kafka
// producer. A nil sink disables streaming (tests, single-binary dev).
type EventSink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// TrackCache is the tracking read cache. Every effective transition
// invalidates the order's entries so polls never see a stale version;
// a nil cache disables that.
type TrackCache interface {
	Invalidate(ctx context.Context, o *orders.Order)
}

// transitionRetries bounds the immediate re-read-and-retry loop on
// version conflicts. Conflicts are human-scale rare; no backoff needed.
const transitionRetries = 3

type LineInput struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Qty       int    `json:"qty"`
}

type CreateRequest struct {
	ExternalID      string               `json:"external_id,omitempty"` // client idempotency key
	Lines           []LineInput          `json:"items"`
	Coupon          string               `json:"coupon,omitempty"`
	ShippingAddress orders.Address       `json:"shipping_address"`
	PaymentMethod   orders.PaymentMethod `json:"payment_method"`
}

// Engine orchestrates cart -> order conversion and the status state
// machine. It is the only component that writes orders or moves stock.
type Engine struct {
	Store       orders.Store
	Ledger      inventory.Ledger
	Gateway     payments.Gateway
	Dispatcher  *notify.Dispatcher
	CreatedSink EventSink
	StatusSink  EventSink
	Tracker     TrackCache    // optional
	Redis       *redis.Client // optional, idempotency fast-path marker
	Pricing     orders.PricingPolicy
	Service     string
	Log         *zap.Logger
}

// Create validates the cart, reserves stock for every line atomically,
// prices the order from ledger snapshots, authorizes payment and persists
// the pending order. Reservations taken for a failed request are rolled
// back before the error returns.
func (e *Engine) Create(ctx context.Context, caller orders.Actor, userID string, req CreateRequest) (*orders.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user", orders.ErrValidation)
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: empty cart", orders.ErrValidation)
	}
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", orders.ErrValidation, req.PaymentMethod)
	}
	for _, l := range req.Lines {
		if l.ProductID == "" || l.Qty <= 0 {
			return nil, fmt.Errorf("%w: each line needs a product and a positive qty", orders.ErrValidation)
		}
	}

	// Duplicate submit with the same key returns the order created first
	// time around. The redis marker is a TTL'd fast path; the store is
	// the source of truth, and its unique (user, external_id) key is
	// what closes the race between two in-flight submits.
	if req.ExternalID != "" {
		if existing, ok := e.idemHit(ctx, userID, req.ExternalID); ok {
			return existing, nil
		}
	}

	now := time.Now().UTC()
	orderID := uuid.NewString()

	// snapshot unit prices
	lines := make([]orders.OrderLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		p, err := e.Ledger.Product(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown product %s", orders.ErrValidation, l.ProductID)
		}
		lines = append(lines, orders.OrderLine{
			ProductID:      l.ProductID,
			Size:           l.Size,
			Qty:            l.Qty,
			UnitPriceCents: p.PriceCents,
		})
	}

	if err := e.Ledger.ReserveOrder(ctx, orderID, reserveLines(lines)); err != nil {
		return nil, err
	}

	q := e.Pricing.Price(lines, req.Coupon)
	payStatus, payRef, err := e.Gateway.Authorize(ctx, orderID, req.PaymentMethod, q.TotalCents)
	if err != nil {
		e.compensate(ctx, orderID)
		return nil, err
	}

	o := &orders.Order{
		ID:               orderID,
		Number:           orders.NewOrderNumber(now),
		ExternalID:       req.ExternalID,
		UserID:           userID,
		Lines:            lines,
		ShippingAddress:  req.ShippingAddress,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    payStatus,
		PaymentRef:       payRef,
		Status:           orders.StatusPending,
		SubtotalCents:    q.SubtotalCents,
		DiscountCents:    q.DiscountCents,
		DeliveryFeeCents: q.DeliveryFeeCents,
		TotalCents:       q.TotalCents,
		Version:          1,
		OrderedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.Store.Create(ctx, o); err != nil {
		e.compensate(ctx, orderID)
		if errors.Is(err, orders.ErrDuplicateExternalID) {
			// lost the race against a submit with the same key
			return e.Store.GetByExternalID(ctx, userID, req.ExternalID)
		}
		return nil, err
	}

	if e.Redis != nil && req.ExternalID != "" {
		key := fmt.Sprintf(redisx.KeyIdemOrderCreate, userID, req.ExternalID)
		if err := e.Redis.Set(ctx, key, orderID, redisx.TTLIdempotency).Err(); err != nil {
			e.Log.Warn("idempotency marker not set", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	e.Dispatcher.OrderCreated(ctx, o)
	e.publishCreated(o)
	e.Log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.String("user_id", o.UserID),
		zap.Int64("total_cents", o.TotalCents))
	return o, nil
}

// idemHit resolves a client idempotency key to the order it created, if
// any. Redis marker first, the store as truth.
func (e *Engine) idemHit(ctx context.Context, userID, externalID string) (*orders.Order, bool) {
	if e.Redis != nil {
		key := fmt.Sprintf(redisx.KeyIdemOrderCreate, userID, externalID)
		if id, err := e.Redis.Get(ctx, key).Result(); err == nil && id != "" {
			if o, err := e.Store.Get(ctx, id); err == nil {
				return o, true
			}
		}
	}
	if o, err := e.Store.GetByExternalID(ctx, userID, externalID); err == nil {
		return o, true
	}
	return nil, false
}

func reserveLines(lines []orders.OrderLine) []inventory.Line {
	out := make([]inventory.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, inventory.Line{ProductID: l.ProductID, Size: l.Size, Qty: l.Qty})
	}
	return out
}

// compensate releases reservations for a create that did not persist.
func (e *Engine) compensate(ctx context.Context, orderID string) {
	if _, err := e.Ledger.ReleaseOrder(ctx, orderID); err != nil {
		e.Log.Error("reservation rollback failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

// SetStatus moves an order through the state machine. The write is a
// compare-and-swap on the version read in the same iteration; conflicts
// re-read and retry a few times before surfacing ErrVersionConflict.
// Requesting the state the order is already in is an idempotent no-op.
func (e *Engine) SetStatus(ctx context.Context, actor orders.Actor, actorUserID, orderID string, to orders.Status) (*orders.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", orders.ErrValidation, to)
	}
	for i := 0; i < transitionRetries; i++ {
		o, err := e.Store.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if actor == orders.ActorUser && o.UserID != actorUserID {
			return nil, orders.ErrNotFound
		}
		if o.Status == to {
			// retried request; make sure a cancelled order's stock is
			// back before reporting success
			if to == orders.StatusCancelled {
				if err := e.releaseStock(ctx, o); err != nil {
					return nil, err
				}
			}
			return o, nil
		}
		if !orders.CanTransition(actor, o.Status, to) {
			return nil, fmt.Errorf("%w: %s may not move %s -> %s", orders.ErrForbiddenTransition, actor, o.Status, to)
		}

		// reinstating a cancelled order takes its stock back before the
		// write; the reservation is idempotent per order id, so retrying
		// after a version conflict never double-decrements
		if o.Status == orders.StatusCancelled && to != orders.StatusReturned {
			if err := e.Ledger.ReserveOrder(ctx, orderID, reserveLines(o.Lines)); err != nil {
				return nil, err
			}
		}

		pay := o.PaymentStatus
		if to == orders.StatusCancelled && pay == orders.PaymentCompleted {
			pay = orders.PaymentRefunded
		}
		from := o.Status
		updated, err := e.Store.ApplyTransition(ctx, orderID, o.Version, to, pay)
		if errors.Is(err, orders.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if to == orders.StatusCancelled {
			if err := e.releaseStock(ctx, updated); err != nil {
				return nil, err
			}
		}
		if e.Tracker != nil {
			e.Tracker.Invalidate(ctx, updated)
		}
		e.Dispatcher.StatusChanged(ctx, updated, from)
		e.publishStatus(updated, from)
		e.Log.Info("order status changed",
			zap.String("order_id", updated.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("actor", string(actor)),
			zap.Int64("version", updated.Version))
		return updated, nil
	}
	return nil, orders.ErrVersionConflict
}

// releaseStock credits reservations back. The ledger keys releases by
// order id, so retried cancellations never double-credit.
func (e *Engine) releaseStock(ctx context.Context, o *orders.Order) error {
	released, err := e.Ledger.ReleaseOrder(ctx, o.ID)
	if err != nil {
		e.Log.Error("stock release failed", zap.String("order_id", o.ID), zap.Error(err))
		return err
	}
	if released {
		e.Log.Info("stock released", zap.String("order_id", o.ID))
	}
	return nil
}

// Cancel is the user-facing cancellation path; admins go through
// SetStatus with their own transition rules.
func (e *Engine) Cancel(ctx context.Context, actor orders.Actor, actorUserID, orderID string) (*orders.Order, error) {
	return e.SetStatus(ctx, actor, actorUserID, orderID, orders.StatusCancelled)
}

func (e *Engine) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	return e.Store.Get(ctx, orderID)
}

func (e *Engine) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return e.Store.ListByUser(ctx, userID)
}

func (e *Engine) publishCreated(o *orders.Order) {
	if e.CreatedSink == nil {
		return
	}
	lines := make([]orders.LineQty, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orders.LineQty{ProductID: l.ProductID, Size: l.Size, Qty: l.Qty})
	}
	e.publish(e.CreatedSink, o.ID, orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Status:      o.Status,
		Lines:       lines,
		TotalCents:  o.TotalCents,
	})
}

func (e *Engine) publishStatus(o *orders.Order, from orders.Status) {
	if e.StatusSink == nil {
		return
	}
	e.publish(e.StatusSink, o.ID, orders.EventOrderStatusChanged, orders.StatusChangedPayload{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		UserID:        o.UserID,
		From:          from,
		To:            o.Status,
		PaymentStatus: o.PaymentStatus,
		Version:       o.Version,
	})
}

func (e *Engine) publish(sink EventSink, orderID, eventType string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	sink.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
