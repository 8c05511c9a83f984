// Package cartstore persists whole carts per owner key in a cookie, Redis or the
// database, and moves carts between them when a visitor signs in or out.
package cartstore

import (
	"context"
	"time"

	"github.com/angelmondragon/cartd/internal/cart"
)

// Store is one backend holding the serialized lines of a single owner.
type Store interface {
	// ClientID is the namespaced owner key.
	ClientID() string
	// Items returns the stored lines. Missing or unreadable records are empty.
	Items(ctx context.Context) ([]cart.LineItem, error)
	// SetItems overwrites the record with items for ttl.
	SetItems(ctx context.Context, items []cart.LineItem, ttl time.Duration) error
	// Forget deletes the record.
	Forget(ctx context.Context) error
	// MakeCart builds a cart bound to this store from its current items.
	MakeCart(ctx context.Context) (*cart.Cart, error)
	// Backend names the driver, e.g. "redis".
	Backend() string
}

type storeMetrics interface {
	ObserveStoreOp(backend, op string, err error)
	IncDecodeFailure(backend string)
}

// base carries what every backend shares.
type base struct {
	clientID  string
	ttl       time.Duration
	metrics   storeMetrics
	listeners []cart.Listener
}

func (b base) ClientID() string {
	return b.clientID
}

func (b base) observe(backend, op string, err error) {
	if b.metrics != nil {
		b.metrics.ObserveStoreOp(backend, op, err)
	}
}

func (b base) decodeFailed(backend string) {
	if b.metrics != nil {
		b.metrics.IncDecodeFailure(backend)
	}
}

func (b base) makeCart(ctx context.Context, s Store) (*cart.Cart, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	return cart.New(s.ClientID(), items, cart.WithSaver(s, b.ttl), cart.WithListeners(b.listeners...)), nil
}

func decode(b base, backend string, raw []byte) []cart.LineItem {
	items, err := cart.DecodeItems(raw)
	if err != nil {
		b.decodeFailed(backend)
		return []cart.LineItem{}
	}
	return items
}
