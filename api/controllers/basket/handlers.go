// Package basket serves the whole-cart endpoints backed by the configured cart stores.
package basket

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/cartd/api/middleware"
	"github.com/angelmondragon/cartd/api/responses"
	"github.com/angelmondragon/cartd/api/validators"
	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/cartstore"
	"github.com/angelmondragon/cartd/internal/catalog"
	dbtypes "github.com/angelmondragon/cartd/pkg/db/types"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/logger"
)

// CatalogReader prices skus for new lines.
type CatalogReader interface {
	FindSkuByAttributes(ctx context.Context, productID string, attrs map[string]string) (string, bool, error)
	PriceSnapshot(ctx context.Context, productID, skuID string) (catalog.PriceSnapshot, bool, error)
}

// BasketFetch returns the current store's cart.
func BasketFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, c, ok := currentCart(w, r, logg)
		if !ok {
			return
		}
		writeBasket(w, r, m, c, logg)
	}
}

// BasketAddLine adds a catalog sku to the current cart and saves it.
func BasketAddLine(reader CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := catalogLine(r.Context(), reader,
			validators.SanitizeString(payload.ProductID, 64),
			validators.SanitizeString(payload.SkuID, 64),
			validators.SanitizeAttributes(payload.Attributes, 128))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		m, c, ok := currentCart(w, r, logg)
		if !ok {
			return
		}
		c.Add(r.Context(), item, payload.Quantity)
		if err := c.Save(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, saveFailed(err))
			return
		}
		writeBasket(w, r, m, c, logg)
	}
}

// BasketPutLine sets a line's quantity; zero removes it.
func BasketPutLine(reader CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload putLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		skuID := validators.SanitizeString(chi.URLParam(r, "skuId"), 64)

		m, c, ok := currentCart(w, r, logg)
		if !ok {
			return
		}

		item, exists := c.Line(skuID)
		if !exists && payload.Quantity > 0 {
			var err error
			item, err = catalogLine(r.Context(), reader, validators.SanitizeString(payload.ProductID, 64), skuID, nil)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		if !exists && payload.Quantity <= 0 {
			writeBasket(w, r, m, c, logg)
			return
		}

		c.Put(r.Context(), item, payload.Quantity)
		if err := c.Save(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, saveFailed(err))
			return
		}
		writeBasket(w, r, m, c, logg)
	}
}

// BasketRemoveLine drops a line from the current cart.
func BasketRemoveLine(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, c, ok := currentCart(w, r, logg)
		if !ok {
			return
		}

		skuID := validators.SanitizeString(chi.URLParam(r, "skuId"), 64)
		if c.Remove(r.Context(), cart.LineItem{SkuID: skuID}) {
			if err := c.Save(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, saveFailed(err))
				return
			}
		}
		writeBasket(w, r, m, c, logg)
	}
}

// BasketClear empties the current cart.
func BasketClear(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, c, ok := currentCart(w, r, logg)
		if !ok {
			return
		}
		if !c.IsEmpty() {
			c.Clear()
			if err := c.Save(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, saveFailed(err))
				return
			}
		}
		writeBasket(w, r, m, c, logg)
	}
}

// BasketChangeStore switches the current store, merging the outgoing cart into the incoming one.
func BasketChangeStore(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := middleware.ManagerFromContext(r.Context())
		if m == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store manager unavailable"))
			return
		}

		var payload changeStoreRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := cartstore.ParseMode(payload.Mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := m.ChangeCurrentStore(r.Context(), mode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := m.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeBasket(w, r, m, c, logg)
	}
}

func currentCart(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*cartstore.Manager, *cart.Cart, bool) {
	m := middleware.ManagerFromContext(r.Context())
	if m == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store manager unavailable"))
		return nil, nil, false
	}
	c, err := m.Cart(r.Context())
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		responses.WriteError(r.Context(), logg, w, err)
		return nil, nil, false
	}
	return m, c, true
}

// saveFailed keeps a typed store error, such as a cart too large for its cookie, and
// reports anything else as an unreachable backend.
func saveFailed(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
}

func writeBasket(w http.ResponseWriter, r *http.Request, m *cartstore.Manager, c *cart.Cart, logg *logger.Logger) {
	store, err := m.Store()
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, newBasketResponse(m.Current(), store.Backend(), c))
}

func catalogLine(ctx context.Context, reader CatalogReader, productID, skuID string, attrs map[string]string) (cart.LineItem, error) {
	if reader == nil {
		return cart.LineItem{}, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable")
	}
	if skuID == "" {
		found, ok, err := reader.FindSkuByAttributes(ctx, productID, attrs)
		if err != nil {
			return cart.LineItem{}, err
		}
		if !ok {
			return cart.LineItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "no sku matches the selected options")
		}
		skuID = found
	}

	snap, ok, err := reader.PriceSnapshot(ctx, productID, skuID)
	if err != nil {
		return cart.LineItem{}, err
	}
	if !ok {
		return cart.LineItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found")
	}
	return cart.LineItem{
		SkuID:     snap.SkuID,
		ProductID: snap.ProductID,
		Price:     snap.Price,
		Weight:    snap.Weight,
		Discount:  snap.Discount,
		Options:   options(snap.Attributes),
	}, nil
}

func options(attrs dbtypes.Attributes) []cart.Option {
	keys := attrs.Keys()
	if len(keys) == 0 {
		return nil
	}
	out := make([]cart.Option, 0, len(keys))
	for _, k := range keys {
		out = append(out, cart.Option{Name: k, Value: attrs[k]})
	}
	return out
}
