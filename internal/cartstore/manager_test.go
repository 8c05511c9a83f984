package cartstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cartd/internal/identity"
	"github.com/angelmondragon/cartd/pkg/config"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
)

func testFactory(client *mockRedis) *Factory {
	cfg := config.CartConfig{
		TTLMinutes:         60,
		DefaultStoreDriver: config.StoreDriverCookie,
		AuthedStoreDriver:  config.StoreDriverRedis,
		CookieSecret:       "secret",
	}
	return NewFactory(cfg, client, nil, nil)
}

func TestManagerInitialMode(t *testing.T) {
	f := testFactory(newMockRedis())
	guest := NewManager(f, NewReconciler(nil, nil, nil), identity.New("", "c1"), NewCookieJar(nil))
	require.Equal(t, ModeDefault, guest.Current())
	store, err := guest.Store()
	require.NoError(t, err)
	require.Equal(t, backendCookie, store.Backend())
	require.Equal(t, "cart:client:c1", store.ClientID())

	authed := NewManager(f, NewReconciler(nil, nil, nil), identity.New("u1", "c1"), NewCookieJar(nil))
	require.Equal(t, ModeAuthed, authed.Current())
	store, err = authed.Store()
	require.NoError(t, err)
	require.Equal(t, backendRedis, store.Backend())
	require.Equal(t, "cart:customer:u1", store.ClientID())
}

func TestManagerChangeCurrentStoreReconcilesOnLogin(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	jar := NewCookieJar(nil)
	m := NewManager(testFactory(client), NewReconciler(NewLocalLocker(), nil, nil), identity.New("", "c1"), jar)

	guestCart, err := m.Cart(ctx)
	require.NoError(t, err)
	guestCart.Add(ctx, line("A", 1), 2)
	require.NoError(t, guestCart.Save(ctx))

	client.data["pf:cart:customer:u1"] = `[{"sku_id":"A","price":"10","quantity":1,"weight":"1","discount":"0"},{"sku_id":"B","price":"10","quantity":3,"weight":"1","discount":"0"}]`

	m.SetIdentity(identity.New("u1", "c1"))
	require.NoError(t, m.ChangeCurrentStore(ctx, ModeAuthed))
	require.Equal(t, ModeAuthed, m.Current())

	current, err := m.Cart(ctx)
	require.NoError(t, err)
	lines := current.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, "A", lines[0].SkuID)
	require.Equal(t, 3, lines[0].Quantity)
	require.Equal(t, "B", lines[1].SkuID)
	require.Equal(t, 3, lines[1].Quantity)

	_, ok := jar.Get(CookieName("cart:client:c1"))
	require.False(t, ok)
}

func TestManagerChangeToSameModeIsNoop(t *testing.T) {
	m := NewManager(testFactory(newMockRedis()), NewReconciler(nil, nil, nil), identity.New("", "c1"), NewCookieJar(nil))
	require.NoError(t, m.ChangeCurrentStore(context.Background(), ModeDefault))
	require.Equal(t, ModeDefault, m.Current())
}

func TestManagerKeepsModeWhenReconcileFails(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	m := NewManager(testFactory(client), NewReconciler(nil, nil, nil), identity.New("", "c1"), NewCookieJar(nil))
	guestCart, err := m.Cart(ctx)
	require.NoError(t, err)
	guestCart.Add(ctx, line("A", 1), 1)
	require.NoError(t, guestCart.Save(ctx))

	client.err = context.DeadlineExceeded
	m.SetIdentity(identity.New("u1", "c1"))
	err = m.ChangeCurrentStore(ctx, ModeAuthed)
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	require.Equal(t, ModeDefault, m.Current())
}

func TestManagerRejectsModeThatDoesNotMatchIdentity(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	jar := NewCookieJar(nil)
	m := NewManager(testFactory(client), NewReconciler(NewLocalLocker(), nil, nil), identity.New("u1", "c1"), jar)

	authedCart, err := m.Cart(ctx)
	require.NoError(t, err)
	authedCart.Add(ctx, line("A", 1), 2)
	require.NoError(t, authedCart.Save(ctx))

	err = m.ChangeCurrentStore(ctx, ModeDefault)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	require.Equal(t, ModeAuthed, m.Current())

	// Nothing moved into the guest cookie.
	_, ok := jar.Get(CookieName("cart:client:c1"))
	require.False(t, ok)
	current, err := m.Cart(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"A": 2}, quantities(current.Lines()))

	guest := NewManager(testFactory(client), NewReconciler(nil, nil, nil), identity.New("", "c2"), NewCookieJar(nil))
	err = guest.ChangeCurrentStore(ctx, ModeAuthed)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	require.Equal(t, ModeDefault, guest.Current())
}

func TestModeFor(t *testing.T) {
	require.Equal(t, ModeDefault, ModeFor(identity.New("", "c1")))
	require.Equal(t, ModeAuthed, ModeFor(identity.New("u1", "c1")))
}

func TestManagerAuthedStoreNeedsCustomer(t *testing.T) {
	m := NewManager(testFactory(newMockRedis()), NewReconciler(nil, nil, nil), identity.New("", "c1"), NewCookieJar(nil))
	_, err := m.StoreFor(ModeAuthed)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Authed ")
	require.NoError(t, err)
	require.Equal(t, ModeAuthed, mode)

	_, err = ParseMode("vip")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestFactoryRejectsUnknownDriver(t *testing.T) {
	_, err := testFactory(newMockRedis()).Build("memcached", "k", NewCookieJar(nil))
	require.Error(t, err)
}
