package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cartd/api/controllers"
	basketcontrollers "github.com/angelmondragon/cartd/api/controllers/basket"
	cartcontrollers "github.com/angelmondragon/cartd/api/controllers/cart"
	"github.com/angelmondragon/cartd/api/middleware"
	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/cartstore"
	"github.com/angelmondragon/cartd/pkg/config"
	"github.com/angelmondragon/cartd/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	gatherer prometheus.Gatherer,
	sessions middleware.SessionStore,
	managers *cartstore.Managers,
	cartService cart.Service,
	catalogReader basketcontrollers.CatalogReader,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if !cfg.App.IsProd() {
		r.Post("/api/dev/token", controllers.DevToken(cfg.JWT, logg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Cookies(),
			middleware.Identity(cfg.JWT, cfg.Cart, logg),
			middleware.CartSession(sessions, managers, logg),
		)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Get("/quantity", cartcontrollers.CartQuantity(cartService, logg))
			r.Get("/statistics", cartcontrollers.CartStatistics(cartService, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
			r.Delete("/items", cartcontrollers.CartDeleteItems(cartService, logg))
			r.Get("/items/{cartId}", cartcontrollers.CartGetItem(cartService, logg))
			r.Delete("/items/{cartId}", cartcontrollers.CartRemoveItem(cartService, logg))
			r.Patch("/items/{cartId}/quantity", cartcontrollers.CartSetQuantity(cartService, logg))
			r.Patch("/items/{cartId}/attributes", cartcontrollers.CartUpdateAttributes(cartService, logg))
			r.Put("/coupon", cartcontrollers.CartApplyCoupon(cartService, logg))
			r.Delete("/coupon", cartcontrollers.CartRemoveCoupon(cartService, logg))
			r.Put("/shipping", cartcontrollers.CartSetShipping(cartService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCustomer(logg))
				r.Post("/login", controllers.CartLogin(managers, cartService, logg))
				r.Post("/logout", controllers.CartLogout(cartService, logg))
			})
		})

		r.Route("/basket", func(r chi.Router) {
			r.Get("/", basketcontrollers.BasketFetch(logg))
			r.Delete("/", basketcontrollers.BasketClear(logg))
			r.Post("/items", basketcontrollers.BasketAddLine(catalogReader, logg))
			r.Put("/items/{skuId}", basketcontrollers.BasketPutLine(catalogReader, logg))
			r.Delete("/items/{skuId}", basketcontrollers.BasketRemoveLine(logg))
			r.Put("/store", basketcontrollers.BasketChangeStore(logg))
		})
	})

	return r
}
