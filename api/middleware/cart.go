package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cartd/api/responses"
	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/cartstore"
	"github.com/angelmondragon/cartd/internal/identity"
	"github.com/angelmondragon/cartd/internal/session"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/logger"
)

type contextKey string

const ctxManager contextKey = "cart_manager"

// SessionStore loads and saves the visitor's session memo.
type SessionStore interface {
	Load(ctx context.Context, clientID string) (*session.State, error)
	Save(ctx context.Context, clientID string, state *session.State) error
}

// CartSession loads the visitor's session state and a store manager for the
// request. The state is saved once, before the response header is written.
func CartSession(sessions SessionStore, managers *cartstore.Managers, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := identity.FromContext(ctx)
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity missing"))
				return
			}

			state, err := sessions.Load(ctx, id.ClientID())
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart session"))
				return
			}
			ctx = session.WithState(ctx, state)
			if managers != nil {
				ctx = context.WithValue(ctx, ctxManager, managers.For(id, cartstore.CookieJarFromContext(ctx)))
			}

			hw := &hookWriter{ResponseWriter: w}
			hw.before = func() {
				if err := sessions.Save(context.WithoutCancel(ctx), id.ClientID(), state); err != nil && logg != nil {
					logg.Error(ctx, "cart.session_save_failed", err)
				}
			}

			next.ServeHTTP(hw, r.WithContext(ctx))
			hw.fire()
		})
	}
}

// ScopeFromContext returns the service scope of the request.
func ScopeFromContext(ctx context.Context) (cart.Scope, bool) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return cart.Scope{}, false
	}
	return cart.Scope{Identity: id, Session: session.FromContext(ctx)}, true
}

// ManagerFromContext returns the request's store manager, or nil.
func ManagerFromContext(ctx context.Context) *cartstore.Manager {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(ctxManager).(*cartstore.Manager)
	return m
}

// WithManager injects a store manager into the context.
func WithManager(ctx context.Context, m *cartstore.Manager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxManager, m)
}
