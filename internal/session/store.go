package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/angelmondragon/cartd/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

type stateStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type stateKeyer interface {
	SessionKey(clientID string) string
}

// Store loads and saves session state in Redis, keyed per visitor.
type Store struct {
	store stateStore
	keyer stateKeyer
	ttl   time.Duration
}

// NewStore constructs a session store backed by Redis.
func NewStore(client *redisclient.Client, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Store{store: client, keyer: client, ttl: ttl}, nil
}

// Load returns the visitor's state. Missing or unreadable state loads as empty.
func (s *Store) Load(ctx context.Context, clientID string) (*State, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("client id is required")
	}
	raw, err := s.store.Get(ctx, s.keyer.SessionKey(clientID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return &State{}, nil
		}
		return nil, err
	}

	state := &State{}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return &State{}, nil
	}
	return state, nil
}

// Save persists state when it changed, refreshing the TTL.
func (s *Store) Save(ctx context.Context, clientID string, state *State) error {
	if !state.Dirty() {
		return nil
	}
	if strings.TrimSpace(clientID) == "" {
		return fmt.Errorf("client id is required")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	if err := s.store.Set(ctx, s.keyer.SessionKey(clientID), string(payload), s.ttl); err != nil {
		return err
	}
	state.dirty = false
	return nil
}

// Forget deletes the visitor's state.
func (s *Store) Forget(ctx context.Context, clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return fmt.Errorf("client id is required")
	}
	return s.store.Del(ctx, s.keyer.SessionKey(clientID))
}
