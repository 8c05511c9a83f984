// Package session keeps the short-lived per-visitor cart memo: the cached
// quantity, the active coupon and the quoted shipping amount.
package session

import (
	"context"

	"github.com/shopspring/decimal"
)

// State is the memo for one visitor. Mutate it through its methods so Save
// can skip untouched state.
type State struct {
	Quantity       *int            `json:"quantity,omitempty"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`

	dirty bool
}

// CachedQuantity returns the memoized quantity if one is set.
func (s *State) CachedQuantity() (int, bool) {
	if s == nil || s.Quantity == nil {
		return 0, false
	}
	return *s.Quantity, true
}

// RememberQuantity memoizes the cart quantity.
func (s *State) RememberQuantity(qty int) {
	if s == nil {
		return
	}
	s.Quantity = &qty
	s.dirty = true
}

// ForgetQuantity drops the memoized quantity.
func (s *State) ForgetQuantity() {
	if s == nil || s.Quantity == nil {
		return
	}
	s.Quantity = nil
	s.dirty = true
}

// Coupon returns the active coupon code and its discount.
func (s *State) Coupon() (string, decimal.Decimal) {
	if s == nil || s.CouponCode == "" {
		return "", decimal.Zero
	}
	return s.CouponCode, s.CouponDiscount
}

// SetCoupon records code with its discount amount.
func (s *State) SetCoupon(code string, discount decimal.Decimal) {
	if s == nil {
		return
	}
	if code == "" {
		s.ClearCoupon()
		return
	}
	s.CouponCode = code
	s.CouponDiscount = discount
	s.dirty = true
}

// ClearCoupon removes the coupon and zeroes its discount.
func (s *State) ClearCoupon() {
	if s == nil || (s.CouponCode == "" && s.CouponDiscount.IsZero()) {
		return
	}
	s.CouponCode = ""
	s.CouponDiscount = decimal.Zero
	s.dirty = true
}

// Shipping returns the quoted shipping amount.
func (s *State) Shipping() decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return s.ShippingAmount
}

// SetShipping records the quoted shipping amount.
func (s *State) SetShipping(amount decimal.Decimal) {
	if s == nil || s.ShippingAmount.Equal(amount) {
		return
	}
	s.ShippingAmount = amount
	s.dirty = true
}

// Dirty reports whether the state changed since it was loaded.
func (s *State) Dirty() bool {
	return s != nil && s.dirty
}

type contextKey struct{}

// WithState stores the request's session state on the context.
func WithState(ctx context.Context, state *State) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, state)
}

// FromContext returns the session state stored on ctx, or nil.
func FromContext(ctx context.Context) *State {
	if ctx == nil {
		return nil
	}
	state, _ := ctx.Value(contextKey{}).(*State)
	return state
}
