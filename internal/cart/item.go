package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartd/pkg/money"
)

// Option is one selected attribute of a line, e.g. color=red.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LineItem is a sku with the price, weight and discount captured when it was added.
// Discount is a percentage off the price.
type LineItem struct {
	SkuID     string          `json:"sku_id"`
	ProductID string          `json:"product_id,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Weight    decimal.Decimal `json:"weight"`
	Discount  decimal.Decimal `json:"discount"`
	Options   []Option        `json:"options,omitempty"`
}

// Equals reports whether both lines are the same sku.
func (i LineItem) Equals(other LineItem) bool {
	return i.SkuID != "" && i.SkuID == other.SkuID
}

// Plus merges qty into the line when other is the same sku. With absolute set the
// quantity is replaced instead of added to. The bool is false when the skus differ.
func (i *LineItem) Plus(other LineItem, qty int, absolute bool) (int, bool) {
	if !i.Equals(other) {
		return 0, false
	}
	if absolute {
		i.Quantity = qty
	} else {
		i.Quantity += qty
	}
	if i.Quantity < 0 {
		i.Quantity = 0
	}
	return i.Quantity, true
}

// UnitPrice is the price after the line's discount.
func (i LineItem) UnitPrice() decimal.Decimal {
	return money.Discount(i.Price, i.Discount)
}

// Subtotal is the discounted price times quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return money.Times(i.UnitPrice(), i.Quantity)
}

// TotalWeight is the unit weight times quantity.
func (i LineItem) TotalWeight() decimal.Decimal {
	return i.Weight.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i LineItem) clone() LineItem {
	out := i
	if i.Options != nil {
		out.Options = append([]Option(nil), i.Options...)
	}
	return out
}
