package cartstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/pkg/logger"
)

type reconcileMetrics interface {
	ObserveReconcile(duration time.Duration, err error)
}

// Reconciler moves the lines of an outgoing store into an incoming one.
type Reconciler struct {
	locker  Locker
	metrics reconcileMetrics
	logg    *logger.Logger
}

// NewReconciler builds a reconciler. A nil locker falls back to an in-process one.
func NewReconciler(locker Locker, metrics reconcileMetrics, logg *logger.Logger) *Reconciler {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Reconciler{locker: locker, metrics: metrics, logg: logg}
}

// Reconcile forgets from, then merges its lines into to's cart and saves it. If the
// merge fails the lines are written back to from. Both owner keys are locked in
// sorted order for the whole sequence, so a merge runs at most once per record.
func (r *Reconciler) Reconcile(ctx context.Context, from, to Store) (err error) {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.ObserveReconcile(time.Since(start), err)
		}
	}()

	if from.ClientID() == to.ClientID() && from.Backend() == to.Backend() {
		return nil
	}

	unlocks := make([]Unlock, 0, 2)
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(unlocks) - 1; i >= 0; i-- {
			err = multierr.Append(err, unlocks[i](releaseCtx))
		}
	}()
	for _, key := range lockKeys(from.ClientID(), to.ClientID()) {
		unlock, lerr := r.locker.Lock(ctx, key)
		if lerr != nil {
			return fmt.Errorf("lock cart %s: %w", key, lerr)
		}
		unlocks = append(unlocks, unlock)
	}

	items, err := from.Items(ctx)
	if err != nil {
		return fmt.Errorf("read %s cart: %w", from.Backend(), err)
	}

	// from is cleared before the merge so a retry after a partial failure can
	// never add the same lines twice.
	if err := from.Forget(ctx); err != nil {
		return fmt.Errorf("forget %s cart: %w", from.Backend(), err)
	}
	if len(items) > 0 {
		if merr := r.merge(ctx, to, items); merr != nil {
			if rerr := from.SetItems(ctx, items, 0); rerr != nil {
				merr = multierr.Append(merr, fmt.Errorf("restore %s cart: %w", from.Backend(), rerr))
			}
			return merr
		}
	}

	if r.logg != nil {
		r.logg.Info(r.logg.WithFields(r.logg.WithCartOwner(ctx, to.ClientID()), map[string]any{
			"from_owner":   from.ClientID(),
			"from_backend": from.Backend(),
			"to_backend":   to.Backend(),
			"lines":        len(items),
		}), "cart.reconciled")
	}
	return nil
}

func (r *Reconciler) merge(ctx context.Context, to Store, items []cart.LineItem) error {
	incoming, err := to.MakeCart(ctx)
	if err != nil {
		return fmt.Errorf("load %s cart: %w", to.Backend(), err)
	}
	if err := incoming.AddAll(items).Save(ctx); err != nil {
		return fmt.Errorf("save %s cart: %w", to.Backend(), err)
	}
	return nil
}

func lockKeys(a, b string) []string {
	if a == b {
		return []string{a}
	}
	keys := []string{a, b}
	sort.Strings(keys)
	return keys
}
