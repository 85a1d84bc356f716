// Package cache provides byte-oriented TTL caches.
package cache

import (
	"context"
	"time"
)

// Store is a key/value cache with per-entry TTL. A ttl <= 0 never expires.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
