package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartd/pkg/db/models"
)

// Collection is the row-backed view of a cart returned by the service.
type Collection struct {
	rows           []models.CartItem
	couponCode     string
	discountAmount decimal.Decimal
	shippingAmount decimal.Decimal
}

// NewCollection wraps rows in display order.
func NewCollection(rows []models.CartItem) *Collection {
	return &Collection{
		rows:           rows,
		discountAmount: decimal.Zero,
		shippingAmount: decimal.Zero,
	}
}

// Items returns the rows.
func (c *Collection) Items() []models.CartItem {
	return c.rows
}

// Len is the number of rows.
func (c *Collection) Len() int {
	return len(c.rows)
}

// SetCoupon applies code with its discount amount. An empty code clears the discount.
func (c *Collection) SetCoupon(code string, amount decimal.Decimal) {
	if code == "" {
		c.couponCode = ""
		c.discountAmount = decimal.Zero
		return
	}
	c.couponCode = code
	c.discountAmount = amount
}

// CouponCode is the applied coupon, if any.
func (c *Collection) CouponCode() string {
	return c.couponCode
}

// SetShippingAmount records the shipping charge.
func (c *Collection) SetShippingAmount(amount decimal.Decimal) {
	c.shippingAmount = amount
}

func (c *Collection) Quantity() int {
	total := 0
	for _, row := range c.rows {
		total += row.Quantity
	}
	return total
}

func (c *Collection) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, row := range c.rows {
		total = total.Add(row.Subtotal())
	}
	return total
}

func (c *Collection) TotalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, row := range c.rows {
		total = total.Add(row.GrossWeight())
	}
	return total
}

func (c *Collection) DiscountAmount() decimal.Decimal {
	if c.couponCode == "" {
		return decimal.Zero
	}
	return c.discountAmount
}

func (c *Collection) ShippingAmount() decimal.Decimal {
	return c.shippingAmount
}

func (c *Collection) GrandTotal() decimal.Decimal {
	return grandTotal(c.Subtotal(), c.DiscountAmount(), c.ShippingAmount())
}

// Statistics summarizes the collection totals.
func (c *Collection) Statistics() Statistics {
	return Statistics{
		Quantity:       c.Quantity(),
		Subtotal:       c.Subtotal(),
		GrandTotal:     c.GrandTotal(),
		DiscountAmount: c.DiscountAmount(),
		ShippingAmount: c.ShippingAmount(),
	}
}
