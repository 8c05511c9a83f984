package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/cartd/api/middleware"
	"github.com/angelmondragon/cartd/api/responses"
	"github.com/angelmondragon/cartd/api/validators"
	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/cartstore"
	"github.com/angelmondragon/cartd/internal/identity"
	pkgAuth "github.com/angelmondragon/cartd/pkg/auth"
	"github.com/angelmondragon/cartd/pkg/config"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/logger"
)

// CartAccountService is the slice of the cart service the login flow needs.
type CartAccountService interface {
	SyncCustomerClientID(ctx context.Context, scope cart.Scope, customerID, clientID string) (cart.SyncReport, error)
	ClearCustomerClientID(ctx context.Context, customerID string) error
}

type devTokenRequest struct {
	CustomerID string `json:"customer_id" validate:"required,max=64"`
	Email      string `json:"email" validate:"omitempty,email"`
}

type loginResponse struct {
	Mode cartstore.Mode  `json:"mode"`
	Sync cart.SyncReport `json:"sync"`
}

// DevToken mints a customer access token. Only mounted outside production.
func DevToken(cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body devTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
			CustomerID: validators.SanitizeString(body.CustomerID, 64),
			Email:      body.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"access_token": token})
	}
}

// CartLogin hands the visitor's guest cart over to the signed-in customer: the guest
// store is merged into the customer store and the guest rows are re-owned.
func CartLogin(managers *cartstore.Managers, svc CartAccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if managers == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart login unavailable"))
			return
		}
		id, ok := identity.FromContext(ctx)
		if !ok || !id.IsAuthenticated() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		scope, _ := middleware.ScopeFromContext(ctx)

		m := managers.For(id.Guest(), cartstore.CookieJarFromContext(ctx))
		m.SetIdentity(id)
		if err := m.ChangeCurrentStore(ctx, cartstore.ModeAuthed); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := svc.SyncCustomerClientID(ctx, scope, id.CustomerID(), "")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"moved":  report.Moved,
				"merged": report.Merged,
				"failed": report.Failed,
			}), "cart.login_synced")
		}
		responses.WriteSuccess(w, loginResponse{Mode: m.Current(), Sync: report})
	}
}

// CartLogout detaches the visitor id from the customer's rows so the guest cart
// starts empty. The customer's stored cart is kept for the next sign-in.
func CartLogout(svc CartAccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart logout unavailable"))
			return
		}
		id, ok := identity.FromContext(ctx)
		if !ok || !id.IsAuthenticated() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		if err := svc.ClearCustomerClientID(ctx, id.CustomerID()); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out", "mode": string(cartstore.ModeDefault)})
	}
}
