package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cartd/api/responses"
	"github.com/angelmondragon/cartd/internal/cartstore"
	"github.com/angelmondragon/cartd/internal/identity"
	pkgAuth "github.com/angelmondragon/cartd/pkg/auth"
	"github.com/angelmondragon/cartd/pkg/config"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/logger"
)

const clientCookieMaxAge = 365 * 24 * time.Hour

// Identity resolves who the request acts for. The anonymous visitor id comes from
// the client cookie and is minted when missing; a bearer token, when present, must
// be valid and adds the customer id.
func Identity(jwtCfg config.JWTConfig, cartCfg config.CartConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			jar := cartstore.CookieJarFromContext(ctx)
			if jar == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cookie jar missing"))
				return
			}

			clientID, ok := jar.Get(cartCfg.ClientCookieName)
			if _, err := uuid.Parse(clientID); !ok || err != nil {
				clientID = uuid.NewString()
				jar.Queue(&http.Cookie{
					Name:     cartCfg.ClientCookieName,
					Value:    clientID,
					Path:     "/",
					MaxAge:   int(clientCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cartCfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			customerID := ""
			if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				claims, err := pkgAuth.ParseAccessToken(jwtCfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				customerID = claims.CustomerID
			}

			id := identity.New(customerID, clientID)
			ctx = identity.WithIdentity(ctx, id)
			if logg != nil {
				ctx = logg.WithClientID(ctx, clientID)
				if customerID != "" {
					ctx = logg.WithCustomerID(ctx, customerID)
				}
				ctx = logg.WithCartOwner(ctx, id.StoreKey())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCustomer rejects anonymous requests.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			if !ok || !id.IsAuthenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
