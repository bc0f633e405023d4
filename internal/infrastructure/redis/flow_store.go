// Package redis is the shared flow store used when several gateway
// instances serve the same users.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	flowPrefix     = "storefront:flow:"
	lockPrefix     = "storefront:flow-lock:"
	defaultLockTTL = 30 * time.Second
)

// unlockScript deletes the lock only if this holder still owns it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewClient connects using a redis:// URL and checks the connection.
func NewClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type FlowStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

type Option func(*FlowStore)

// WithLockTTL sets how long a step lock survives a holder that never
// releases it. It must outlive the slowest step.
func WithLockTTL(d time.Duration) Option {
	return func(s *FlowStore) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

func NewFlowStore(client *redis.Client, ttl time.Duration, opts ...Option) *FlowStore {
	s := &FlowStore{client: client, ttl: ttl, lockTTL: defaultLockTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlowStore) Save(ctx context.Context, key string, snapshot []byte) error {
	if err := s.client.Set(ctx, flowPrefix+key, snapshot, s.ttl).Err(); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	return nil
}

func (s *FlowStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, flowPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	return data, nil
}

func (s *FlowStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, flowPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// Lock takes a SETNX lock that expires on its own if the holder dies.
func (s *FlowStore) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, lockPrefix+key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock flow: %w", err)
	}
	if !ok {
		return nil, domain.ErrFlowBusy
	}

	return func() {
		// The request context may already be done; release on a fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(ctx, s.client, []string{lockPrefix + key}, token).Err()
	}, nil
}

func (s *FlowStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
