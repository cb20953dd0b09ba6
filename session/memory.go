// Package session provides SessionBridge implementations carrying an
// authentication request across the browser round trip: an in-memory
// store for single-instance hosts and a Redis store for deployments
// where the completion callback may land on a different instance.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/goware/cachestore"
	"github.com/goware/cachestore/cachestorectl"
	"github.com/goware/cachestore/memlru"
	"github.com/midauth/mobileid-bridge/auth"
)

// DefaultTTL bounds how long a pending request survives without the
// browser returning. Expiry is the implicit cancellation of the flow.
const DefaultTTL = 10 * time.Minute

// MemoryBridge keeps pending requests in an in-process LRU with TTL.
type MemoryBridge struct {
	store cachestore.Store[*auth.Request]
	ttl   time.Duration
}

var _ auth.Bridge = (*MemoryBridge)(nil)

func NewMemoryBridge(size int, ttl time.Duration) (*MemoryBridge, error) {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	store, err := cachestorectl.Open[*auth.Request](memlru.Backend(size))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return &MemoryBridge{store: store, ttl: ttl}, nil
}

func (b *MemoryBridge) Save(ctx context.Context, req *auth.Request) (string, error) {
	id := uuid.NewString()
	if err := b.store.SetEx(ctx, id, req, b.ttl); err != nil {
		return "", fmt.Errorf("store authentication request: %w", err)
	}
	return id, nil
}

func (b *MemoryBridge) Consume(ctx context.Context, id string) (*auth.Request, error) {
	req, ok, err := b.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load authentication request: %w", err)
	}
	if !ok || req == nil {
		return nil, auth.ErrNotFound
	}
	if err := b.store.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("consume authentication request: %w", err)
	}
	return req, nil
}
