package redisx

import "time"

const (
	// Idempotent create marker: idem:order:create:{user_id}:{external_id} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Tracking cache: track:{id or order_number} -> order JSON
	KeyTrack = "track:%s"

	// Consumer dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLTrackCache  = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
