package cartstore

import (
	"context"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/cartd/internal/cart"
)

const backendRedis = "redis"

type redisStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(clientID string) string
}

// RedisStore keeps the cart under an expiring Redis key.
type RedisStore struct {
	base
	client redisStore
}

// NewRedisStore binds a Redis store to clientID.
func NewRedisStore(clientID string, client redisStore, ttl time.Duration, metrics storeMetrics, listeners ...cart.Listener) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisStore{
		base:   base{clientID: clientID, ttl: ttl, metrics: metrics, listeners: listeners},
		client: client,
	}, nil
}

func (s *RedisStore) Backend() string {
	return backendRedis
}

func (s *RedisStore) Items(ctx context.Context) ([]cart.LineItem, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(s.clientID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			s.observe(backendRedis, "get_items", nil)
			return []cart.LineItem{}, nil
		}
		s.observe(backendRedis, "get_items", err)
		return nil, err
	}
	s.observe(backendRedis, "get_items", nil)
	return decode(s.base, backendRedis, []byte(raw)), nil
}

func (s *RedisStore) SetItems(ctx context.Context, items []cart.LineItem, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	raw, err := cart.EncodeItems(items)
	if err != nil {
		return err
	}
	err = s.client.Set(ctx, s.client.CartKey(s.clientID), string(raw), ttl)
	s.observe(backendRedis, "set_items", err)
	return err
}

func (s *RedisStore) Forget(ctx context.Context) error {
	err := s.client.Del(ctx, s.client.CartKey(s.clientID))
	s.observe(backendRedis, "forget", err)
	return err
}

func (s *RedisStore) MakeCart(ctx context.Context) (*cart.Cart, error) {
	return s.makeCart(ctx, s)
}
