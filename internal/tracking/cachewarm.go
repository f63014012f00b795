package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/stitchkart/orders/internal/orders"
	"github.com/stitchkart/orders/internal/redisx"
)

// CacheWarmer keeps the tracking cache hot by following the lifecycle
// event stream: on every order event it re-reads the committed order and
// re-primes the cache, so polling clients see the latest version without
// hitting the store.
type CacheWarmer struct {
	Store   orders.Store
	Redis   *redis.Client
	Service string
	Log     *zap.Logger
}

// Handle is the consumer handler for both order.created and order.status.
func (w *CacheWarmer) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	switch env.EventType {
	case orders.EventOrderCreated, orders.EventOrderStatusChanged:
	default:
		return nil // ignore
	}

	// dedup by event id; redis is allowed to fail open here, re-priming
	// the cache twice is harmless
	dkey := fmt.Sprintf(redisx.KeyDedup, w.Service, env.EventID)
	if exists, _ := redisx.Exists(ctx, w.Redis, dkey); exists {
		return nil
	}
	_ = w.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	o, err := w.Store.Get(ctx, env.CorrelationID)
	if errors.Is(err, orders.ErrNotFound) {
		w.Log.Warn("event for unknown order", zap.String("order_id", env.CorrelationID))
		return nil
	}
	if err != nil {
		return err
	}
	(&Service{Store: w.Store, Redis: w.Redis}).prime(ctx, o)
	w.Log.Debug("tracking cache primed",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.Int64("version", o.Version))
	return nil
}
