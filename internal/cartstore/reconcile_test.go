package cartstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cartd/internal/cart"
)

type failingStore struct {
	Store
	setErr error
}

func (f failingStore) MakeCart(ctx context.Context) (*cart.Cart, error) {
	items, err := f.Items(ctx)
	if err != nil {
		return nil, err
	}
	return cart.New(f.ClientID(), items, cart.WithSaver(f, time.Hour)), nil
}

func (f failingStore) SetItems(context.Context, []cart.LineItem, time.Duration) error {
	return f.setErr
}

type forgetFailingStore struct {
	Store
	forgetErr error
}

func (f forgetFailingStore) Forget(context.Context) error {
	return f.forgetErr
}

func TestReconcileMergesAndForgetsOutgoing(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	metrics := newRecordingMetrics()

	outgoing, err := NewCookieStore("cart:client:c1", NewCookieJar(nil), "secret", false, time.Hour, nil)
	require.NoError(t, err)
	incoming, err := NewRedisStore("cart:customer:u1", client, time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, outgoing.SetItems(ctx, []cart.LineItem{line("A", 2)}, 0))
	require.NoError(t, incoming.SetItems(ctx, []cart.LineItem{line("A", 1), line("B", 3)}, 0))

	r := NewReconciler(NewLocalLocker(), metrics, nil)
	require.NoError(t, r.Reconcile(ctx, outgoing, incoming))

	got, err := incoming.Items(ctx)
	require.NoError(t, err)
	require.Equal(t, "A", got[0].SkuID)
	require.Equal(t, 3, got[0].Quantity)
	require.Equal(t, "B", got[1].SkuID)
	require.Equal(t, 3, got[1].Quantity)

	left, err := outgoing.Items(ctx)
	require.NoError(t, err)
	require.Empty(t, left)
	require.Len(t, metrics.reconciles, 1)
	require.NoError(t, metrics.reconciles[0])

	// A second run has nothing left to merge.
	require.NoError(t, r.Reconcile(ctx, outgoing, incoming))
	got, err = incoming.Items(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"A": 3, "B": 3}, quantities(got))
}

func TestReconcileIntoEmptyStore(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	outgoing, err := NewRedisStore("cart:client:c1", client, time.Hour, nil)
	require.NoError(t, err)
	incoming, err := NewDatabaseStore("cart:customer:u1", newTestDB(t), time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, outgoing.SetItems(ctx, []cart.LineItem{line("A", 2), line("B", 1)}, 0))
	require.NoError(t, NewReconciler(nil, nil, nil).Reconcile(ctx, outgoing, incoming))

	got, err := incoming.Items(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"A": 2, "B": 1}, quantities(got))
	_, ok := client.data["pf:cart:client:c1"]
	require.False(t, ok)
}

func TestReconcileSaveFailureKeepsOutgoing(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	metrics := newRecordingMetrics()
	outgoing, err := NewRedisStore("cart:client:c1", client, time.Hour, nil)
	require.NoError(t, err)
	target, err := NewRedisStore("cart:customer:u1", client, time.Hour, nil)
	require.NoError(t, err)
	incoming := failingStore{Store: target, setErr: errors.New("write failed")}

	require.NoError(t, outgoing.SetItems(ctx, []cart.LineItem{line("A", 2)}, 0))
	err = NewReconciler(NewLocalLocker(), metrics, nil).Reconcile(ctx, outgoing, incoming)
	require.Error(t, err)
	require.Error(t, metrics.reconciles[0])

	left, err := outgoing.Items(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"A": 2}, quantities(left))
	merged, err := target.Items(ctx)
	require.NoError(t, err)
	require.Empty(t, merged)
}

func TestReconcileForgetFailureMergesNothing(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	outgoing, err := NewRedisStore("cart:client:c1", client, time.Hour, nil)
	require.NoError(t, err)
	incoming, err := NewRedisStore("cart:customer:u1", client, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, outgoing.SetItems(ctx, []cart.LineItem{line("A", 2)}, 0))

	r := NewReconciler(NewLocalLocker(), nil, nil)
	stuck := forgetFailingStore{Store: outgoing, forgetErr: errors.New("delete failed")}
	require.ErrorContains(t, r.Reconcile(ctx, stuck, incoming), "forget redis cart")

	got, err := incoming.Items(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	// The retry merges the lines exactly once.
	require.NoError(t, r.Reconcile(ctx, outgoing, incoming))
	got, err = incoming.Items(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"A": 2}, quantities(got))
	left, err := outgoing.Items(ctx)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestReconcileReleasesRedisLocks(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	locker, err := NewRedisLocker(client, time.Second)
	require.NoError(t, err)

	outgoing, err := NewRedisStore("cart:client:c1", client, time.Hour, nil)
	require.NoError(t, err)
	incoming, err := NewRedisStore("cart:customer:u1", client, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, outgoing.SetItems(ctx, []cart.LineItem{line("A", 1)}, 0))

	require.NoError(t, NewReconciler(locker, nil, nil).Reconcile(ctx, outgoing, incoming))
	for key := range client.data {
		require.NotContains(t, key, "pf:lock:")
	}
}

func TestLockKeysAreSorted(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, lockKeys("b", "a"))
	require.Equal(t, []string{"a"}, lockKeys("a", "a"))
}
