package redisx

import "time"

const (
	// Idempotency place order: idem:order:create:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup per delivered effect: dedup:{service}:{event_id}:{effect}
	KeyDedup = "dedup:%s:%s:%s"

	// Full category tree (JSON), invalidated on every category mutation
	KeyCategoryTree = "categories:tree"

	// Upload progress channel: progress:{channel}
	KeyProgress = "progress:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLCategory    = 10 * time.Minute
)
