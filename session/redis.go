package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/midauth/mobileid-bridge/auth"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mobileid:request:"

// RedisBridge keeps pending requests in Redis so that Complete may be
// served by a different host instance than Begin. GetDel makes the
// consume-once contract hold across instances.
type RedisBridge struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ auth.Bridge = (*RedisBridge)(nil)

func NewRedisBridge(client redis.Cmdable, ttl time.Duration) *RedisBridge {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisBridge{client: client, ttl: ttl}
}

func (b *RedisBridge) Save(ctx context.Context, req *auth.Request) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode authentication request: %w", err)
	}
	id := uuid.NewString()
	if err := b.client.Set(ctx, redisKeyPrefix+id, raw, b.ttl).Err(); err != nil {
		return "", fmt.Errorf("store authentication request: %w", err)
	}
	return id, nil
}

func (b *RedisBridge) Consume(ctx context.Context, id string) (*auth.Request, error) {
	raw, err := b.client.GetDel(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("load authentication request: %w", err)
	}
	var req auth.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode authentication request: %w", err)
	}
	return &req, nil
}
