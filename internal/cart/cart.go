// Package cart holds the cart aggregate, its line-merge rules and the
// row-backed cart service.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var errNoStore = errors.New("cart is not bound to a store")

// Saver persists a cart's lines for its owner.
type Saver interface {
	SetItems(ctx context.Context, items []LineItem, ttl time.Duration) error
}

// Cart is an ordered set of lines, one per sku, plus coupon and shipping state.
// Totals are folded from the lines on every call.
type Cart struct {
	clientID       string
	lines          []LineItem
	couponCode     string
	discountAmount decimal.Decimal
	shippingAmount decimal.Decimal

	saver     Saver
	ttl       time.Duration
	listeners []Listener
}

// CartOption configures a cart.
type CartOption func(*Cart)

// WithSaver binds the cart to the store it is saved to.
func WithSaver(saver Saver, ttl time.Duration) CartOption {
	return func(c *Cart) {
		c.saver = saver
		c.ttl = ttl
	}
}

// WithListeners registers event listeners.
func WithListeners(listeners ...Listener) CartOption {
	return func(c *Cart) {
		c.listeners = append(c.listeners, listeners...)
	}
}

// New builds a cart for clientID seeded with items. Duplicate skus in items are merged.
func New(clientID string, items []LineItem, opts ...CartOption) *Cart {
	c := &Cart{
		clientID:       clientID,
		discountAmount: decimal.Zero,
		shippingAmount: decimal.Zero,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.AddAll(items)
	return c
}

// ClientID is the owner key of the cart.
func (c *Cart) ClientID() string {
	return c.clientID
}

// Lines returns a copy of the lines in display order.
func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	for i, line := range c.lines {
		out[i] = line.clone()
	}
	return out
}

// Line returns the line for skuID.
func (c *Cart) Line(skuID string) (LineItem, bool) {
	if idx := c.indexOf(LineItem{SkuID: skuID}); idx >= 0 {
		return c.lines[idx].clone(), true
	}
	return LineItem{}, false
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Add merges qty of item into the matching line or appends a new line, and returns
// the line's quantity. Non-positive quantities are ignored.
func (c *Cart) Add(ctx context.Context, item LineItem, qty int) int {
	if item.SkuID == "" {
		return 0
	}
	if qty <= 0 {
		if idx := c.indexOf(item); idx >= 0 {
			return c.lines[idx].Quantity
		}
		return 0
	}

	if idx := c.indexOf(item); idx >= 0 {
		total, _ := c.lines[idx].Plus(item, qty, false)
		c.notify(ctx, EventItemUpdated, item.SkuID, total)
		return total
	}

	line := item.clone()
	line.Quantity = qty
	c.lines = append(c.lines, line)
	c.notify(ctx, EventItemAdded, item.SkuID, qty)
	return qty
}

// Put sets the quantity of item, inserting it when missing. A quantity of zero or
// less removes the line.
func (c *Cart) Put(ctx context.Context, item LineItem, qty int) int {
	if item.SkuID == "" {
		return 0
	}
	if qty <= 0 {
		c.Remove(ctx, item)
		return 0
	}

	if idx := c.indexOf(item); idx >= 0 {
		total, _ := c.lines[idx].Plus(item, qty, true)
		c.notify(ctx, EventItemUpdated, item.SkuID, total)
		return total
	}

	line := item.clone()
	line.Quantity = qty
	c.lines = append(c.lines, line)
	c.notify(ctx, EventItemAdded, item.SkuID, qty)
	return qty
}

// Remove drops the line matching item. It reports whether a line was removed.
func (c *Cart) Remove(ctx context.Context, item LineItem) bool {
	idx := c.indexOf(item)
	if idx < 0 {
		return false
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	c.notify(ctx, EventItemRemoved, item.SkuID, 0)
	return true
}

// AddAll merges items into the cart. Each incoming item is added to its matching
// line; items that match nothing are appended once, in order. Merging the same
// list twice doubles the quantities.
func (c *Cart) AddAll(items []LineItem) *Cart {
	for _, item := range items {
		if item.SkuID == "" || item.Quantity <= 0 {
			continue
		}
		if idx := c.indexOf(item); idx >= 0 {
			c.lines[idx].Plus(item, item.Quantity, false)
			continue
		}
		c.lines = append(c.lines, item.clone())
	}
	return c
}

// Clear removes every line and the coupon.
func (c *Cart) Clear() {
	c.lines = nil
	c.SetCoupon("", decimal.Zero)
}

// Save overwrites the bound store record with the cart's lines.
func (c *Cart) Save(ctx context.Context) error {
	if c.saver == nil {
		return errNoStore
	}
	return c.saver.SetItems(ctx, c.Lines(), c.ttl)
}

// SetCoupon applies code with its discount amount. An empty code clears the discount.
func (c *Cart) SetCoupon(code string, amount decimal.Decimal) {
	if code == "" {
		c.couponCode = ""
		c.discountAmount = decimal.Zero
		return
	}
	c.couponCode = code
	c.discountAmount = amount
}

// CouponCode is the applied coupon, if any.
func (c *Cart) CouponCode() string {
	return c.couponCode
}

// SetShippingAmount records the shipping charge.
func (c *Cart) SetShippingAmount(amount decimal.Decimal) {
	c.shippingAmount = amount
}

// Quantity is the sum of line quantities.
func (c *Cart) Quantity() int {
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// Subtotal is the sum of line subtotals.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// TotalWeight is the sum of line weights.
func (c *Cart) TotalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.TotalWeight())
	}
	return total
}

// DiscountAmount is the coupon discount, zero without a coupon.
func (c *Cart) DiscountAmount() decimal.Decimal {
	if c.couponCode == "" {
		return decimal.Zero
	}
	return c.discountAmount
}

// ShippingAmount is the shipping charge.
func (c *Cart) ShippingAmount() decimal.Decimal {
	return c.shippingAmount
}

// GrandTotal is subtotal minus discount plus shipping.
func (c *Cart) GrandTotal() decimal.Decimal {
	return grandTotal(c.Subtotal(), c.DiscountAmount(), c.ShippingAmount())
}

// Statistics summarizes the cart totals.
func (c *Cart) Statistics() Statistics {
	return Statistics{
		Quantity:       c.Quantity(),
		Subtotal:       c.Subtotal(),
		GrandTotal:     c.GrandTotal(),
		DiscountAmount: c.DiscountAmount(),
		ShippingAmount: c.ShippingAmount(),
	}
}

func (c *Cart) indexOf(item LineItem) int {
	for i := range c.lines {
		if c.lines[i].Equals(item) {
			return i
		}
	}
	return -1
}

func (c *Cart) notify(ctx context.Context, name EventName, skuID string, qty int) {
	dispatch(ctx, c.listeners, Event{Name: name, ClientID: c.clientID, SkuID: skuID, Quantity: qty})
}

// Statistics is the totals payload exposed to callers.
type Statistics struct {
	Quantity       int             `json:"quantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
}

func grandTotal(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(shipping)
}
