package cartstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/identity"
	"github.com/angelmondragon/cartd/pkg/config"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
)

// Mode names which store is authoritative for a request.
type Mode string

const (
	ModeDefault Mode = "default"
	ModeAuthed  Mode = "authed"
)

// ParseMode validates a mode name.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeDefault:
		return ModeDefault, nil
	case ModeAuthed:
		return ModeAuthed, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown cart store %q", value))
	}
}

// Factory builds stores for a driver name from process-wide dependencies.
type Factory struct {
	cfg       config.CartConfig
	redis     redisStore
	db        *gorm.DB
	metrics   storeMetrics
	listeners []cart.Listener
}

// NewFactory captures the shared backends. redis and db may be nil when no mode uses them.
func NewFactory(cfg config.CartConfig, redis redisStore, db *gorm.DB, metrics storeMetrics, listeners ...cart.Listener) *Factory {
	return &Factory{cfg: cfg, redis: redis, db: db, metrics: metrics, listeners: listeners}
}

// Driver is the configured driver for mode.
func (f *Factory) Driver(mode Mode) string {
	if mode == ModeAuthed {
		return strings.ToLower(strings.TrimSpace(f.cfg.AuthedStoreDriver))
	}
	return strings.ToLower(strings.TrimSpace(f.cfg.DefaultStoreDriver))
}

// TTL is the record lifetime applied on save.
func (f *Factory) TTL() time.Duration {
	return f.cfg.TTL()
}

// Build returns a store of the given driver for clientID.
func (f *Factory) Build(driver, clientID string, jar *CookieJar) (Store, error) {
	ttl := f.cfg.TTL()
	switch driver {
	case config.StoreDriverCookie:
		return NewCookieStore(clientID, jar, f.cfg.CookieSecret, f.cfg.CookieSecure, ttl, f.metrics, f.listeners...)
	case config.StoreDriverRedis:
		if f.redis == nil {
			return nil, fmt.Errorf("redis store requested without a redis client")
		}
		return NewRedisStore(clientID, f.redis, ttl, f.metrics, f.listeners...)
	case config.StoreDriverDatabase:
		return NewDatabaseStore(clientID, f.db, ttl, f.metrics, f.listeners...)
	default:
		return nil, fmt.Errorf("unsupported cart store driver %q", driver)
	}
}

// Manager resolves the current store for one request and reconciles carts when
// the current mode changes.
type Manager struct {
	factory    *Factory
	reconciler *Reconciler
	identity   identity.Identity
	jar        *CookieJar
	current    Mode
	stores     map[Mode]Store
}

// NewManager starts in the authed mode for signed-in identities and in the default mode otherwise.
func NewManager(factory *Factory, reconciler *Reconciler, id identity.Identity, jar *CookieJar) *Manager {
	current := ModeFor(id)
	return &Manager{
		factory:    factory,
		reconciler: reconciler,
		identity:   id,
		jar:        jar,
		current:    current,
		stores:     map[Mode]Store{},
	}
}

// ModeFor is the mode id's cart lives in.
func ModeFor(id identity.Identity) Mode {
	if id.IsAuthenticated() {
		return ModeAuthed
	}
	return ModeDefault
}

// Current is the active mode.
func (m *Manager) Current() Mode {
	return m.current
}

// SetIdentity swaps the identity. Stores already resolved keep their owner key so a
// later ChangeCurrentStore can still read the outgoing cart.
func (m *Manager) SetIdentity(id identity.Identity) {
	m.identity = id
}

// Store is the store of the current mode.
func (m *Manager) Store() (Store, error) {
	return m.StoreFor(m.current)
}

// Cart loads the current store's cart.
func (m *Manager) Cart(ctx context.Context) (*cart.Cart, error) {
	store, err := m.Store()
	if err != nil {
		return nil, err
	}
	return store.MakeCart(ctx)
}

// StoreFor resolves the store serving mode under the current identity.
func (m *Manager) StoreFor(mode Mode) (Store, error) {
	key := m.keyFor(mode)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart owner unknown")
	}
	if store, ok := m.stores[mode]; ok && store.ClientID() == key {
		return store, nil
	}
	store, err := m.factory.Build(m.factory.Driver(mode), key, m.jar)
	if err != nil {
		return nil, err
	}
	m.stores[mode] = store
	return store, nil
}

// ChangeCurrentStore switches to mode, first merging the outgoing store into the
// incoming one. When the merge fails the current mode stays as it was. The mode
// must match the identity: customers stay on the authed store and guests on the
// default one.
func (m *Manager) ChangeCurrentStore(ctx context.Context, mode Mode) error {
	if mode == m.current {
		return nil
	}
	if want := ModeFor(m.identity); mode != want {
		if mode == ModeAuthed {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to use the customer cart")
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "signed-in customers keep their cart in the authed store")
	}
	if m.current != "" {
		outgoing, err := m.StoreFor(m.current)
		if err != nil {
			return err
		}
		incoming, err := m.StoreFor(mode)
		if err != nil {
			return err
		}
		if err := m.reconciler.Reconcile(ctx, outgoing, incoming); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile cart")
		}
	}
	m.current = mode
	return nil
}

func (m *Manager) keyFor(mode Mode) string {
	if mode == ModeAuthed {
		if !m.identity.IsAuthenticated() {
			return ""
		}
		return identity.CustomerKey(m.identity.CustomerID())
	}
	if m.identity.ClientID() == "" {
		return ""
	}
	return identity.AnonymousKey(m.identity.ClientID())
}

// Managers hands out per-request managers sharing one factory and reconciler.
type Managers struct {
	factory    *Factory
	reconciler *Reconciler
}

// NewManagers builds the per-request manager source.
func NewManagers(factory *Factory, reconciler *Reconciler) *Managers {
	return &Managers{factory: factory, reconciler: reconciler}
}

// For builds a manager for id whose cookie stores read and write jar.
func (m *Managers) For(id identity.Identity, jar *CookieJar) *Manager {
	return NewManager(m.factory, m.reconciler, id, jar)
}
