package cart

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/angelmondragon/cartd/api/controllers/cart/dto"
	"github.com/angelmondragon/cartd/api/middleware"
	"github.com/angelmondragon/cartd/api/responses"
	"github.com/angelmondragon/cartd/api/validators"
	cartsvc "github.com/angelmondragon/cartd/internal/cart"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/logger"
)

// CartFetch lists the owner's rows with their totals.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}

		items, err := svc.GetItems(r.Context(), scope, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewCart(items))
	}
}

// CartQuantity returns the total item count.
func CartQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}

		qty, err := svc.GetQuantity(r.Context(), scope, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"quantity": qty})
	}
}

// CartStatistics returns the pricing summary.
func CartStatistics(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}

		stats, err := svc.GetStatistics(r.Context(), scope, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// CartAddItem adds a product to the cart, merging into an existing row for the same sku.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Add(r.Context(), scope,
			validators.SanitizeString(payload.ProductID, 64),
			validators.SanitizeString(payload.SkuID, 64),
			payload.Quantity, validators.SanitizeAttributes(payload.Attributes, 128))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeResult(w, result)
	}
}

// CartRemoveItem deletes one of the owner's rows.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}
		cartID, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := svc.Remove(r.Context(), scope, cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome := cartsvc.OutcomeRemoved
		if removed == 0 {
			outcome = cartsvc.OutcomeUnchanged
		}
		responses.WriteSuccess(w, cartdto.MutationResult{Outcome: outcome, Quantity: removed})
	}
}

// CartGetItem returns one of the owner's rows priced against the catalog.
func CartGetItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}
		cartID, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, found, err := svc.GetItem(r.Context(), scope, cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
			return
		}
		responses.WriteSuccess(w, cartdto.NewItemView(view))
	}
}

// CartDeleteItems removes a batch of the owner's rows.
func CartDeleteItems(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}

		var payload cartdto.DeleteItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := svc.DeleteAll(r.Context(), scope, payload.IDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"removed": removed})
	}
}

// CartSetQuantity overwrites a row's quantity.
func CartSetQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}
		cartID, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.SetQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetItemQuantity(r.Context(), scope, cartID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeResult(w, result)
	}
}

// CartUpdateAttributes switches a row to the sku matching new attributes.
func CartUpdateAttributes(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}
		cartID, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.UpdateAttributesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateItemAttributes(r.Context(), scope, cartID, validators.SanitizeAttributes(payload.Attributes, 128))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeResult(w, result)
	}
}

// CartApplyCoupon prices a coupon code against the cart. An empty code clears it.
func CartApplyCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}

		var payload cartdto.CouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetCoupon(r.Context(), scope, payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeStatistics(w, r, svc, scope, logg)
	}
}

// CartRemoveCoupon clears the coupon.
func CartRemoveCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}
		if err := svc.SetCoupon(r.Context(), scope, ""); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeStatistics(w, r, svc, scope, logg)
	}
}

// CartSetShipping records the shipping amount quoted for the cart.
func CartSetShipping(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}

		var payload cartdto.ShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Amount.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "shipping amount must not be negative"))
			return
		}

		if err := svc.SetShippingAmount(r.Context(), scope, payload.Amount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeStatistics(w, r, svc, scope, logg)
	}
}

// CartClear removes every row of the owner.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requestScope(w, r, svc, logg)
		if !ok {
			return
		}

		removed, err := svc.Clear(r.Context(), scope, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"removed": removed})
	}
}

func requestScope(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger) (cartsvc.Scope, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return cartsvc.Scope{}, false
	}
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart owner unknown"))
		return cartsvc.Scope{}, false
	}
	return scope, true
}

func cartIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "cartId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart id")
	}
	return id, nil
}

func writeResult(w http.ResponseWriter, result cartsvc.Result) {
	status := http.StatusOK
	if result.Outcome == cartsvc.OutcomeCreated {
		status = http.StatusCreated
	}
	responses.WriteSuccessStatus(w, status, cartdto.NewMutationResult(result))
}

func writeStatistics(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, scope cartsvc.Scope, logg *logger.Logger) {
	stats, err := svc.GetStatistics(r.Context(), scope, "")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, stats)
}
