package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stitchkart/orders/internal/orders"
	"github.com/stitchkart/orders/internal/redisx"
)

// Service is the unauthenticated read path for order tracking: the
// identifier (order id or number) is the capability. Side-effect-free and
// safe to poll; a redis cache absorbs the polling load, the store stays
// the source of truth.
type Service struct {
	Store orders.Store
	Redis *redis.Client // optional
}

func (s *Service) GetByIDOrNumber(ctx context.Context, identifier string) (*orders.Order, error) {
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", orders.ErrValidation)
	}

	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyTrack, identifier)
		if raw, err := s.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var o orders.Order
			if err := json.Unmarshal([]byte(raw), &o); err == nil {
				return &o, nil
			}
		}
	}

	o, err := s.Store.Get(ctx, identifier)
	if errors.Is(err, orders.ErrNotFound) {
		o, err = s.Store.GetByNumber(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	s.prime(ctx, o)
	return o, nil
}

// Invalidate drops the cached entries for both identifiers. Called by
// the lifecycle engine after every transition so a follow-up poll reads
// the committed version; the cache warmer re-primes from the stream.
func (s *Service) Invalidate(ctx context.Context, o *orders.Order) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Del(ctx,
		fmt.Sprintf(redisx.KeyTrack, o.ID),
		fmt.Sprintf(redisx.KeyTrack, o.Number)).Err()
}

// prime caches the order under both identifiers, best effort.
func (s *Service) prime(ctx context.Context, o *orders.Order) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return
	}
	_ = s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyTrack, o.ID), raw, redisx.TTLTrackCache).Err()
	_ = s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyTrack, o.Number), raw, redisx.TTLTrackCache).Err()
}
