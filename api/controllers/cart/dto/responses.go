package cartdto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/pkg/db/models"
)

type CartItem struct {
	ID          uint64            `json:"id"`
	ProductID   string            `json:"product_id"`
	SkuID       string            `json:"sku_id"`
	CategoryID  string            `json:"category_id,omitempty"`
	Price       decimal.Decimal   `json:"price"`
	CartPrice   decimal.Decimal   `json:"cart_price"`
	MarketPrice decimal.Decimal   `json:"market_price"`
	Weight      decimal.Decimal   `json:"weight"`
	Quantity    int               `json:"quantity"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type ItemView struct {
	CartItem
	UnitPrice   decimal.Decimal `json:"unit_price"`
	GrossWeight decimal.Decimal `json:"gross_weight"`
}

type Cart struct {
	Items       []CartItem      `json:"items"`
	CouponCode  string          `json:"coupon_code,omitempty"`
	TotalWeight decimal.Decimal `json:"total_weight"`
	Statistics  cart.Statistics `json:"statistics"`
}

type MutationResult struct {
	Outcome  cart.Outcome `json:"outcome"`
	Quantity int          `json:"quantity"`
	Item     *CartItem    `json:"item,omitempty"`
}

func NewCartItem(row models.CartItem) CartItem {
	return CartItem{
		ID:          row.ID,
		ProductID:   row.ProductID,
		SkuID:       row.SkuID,
		CategoryID:  row.CategoryID,
		Price:       row.Price,
		CartPrice:   row.CartPrice,
		MarketPrice: row.MarketPrice,
		Weight:      row.Weight,
		Quantity:    row.Quantity,
		Subtotal:    row.Subtotal(),
		Attributes:  row.Attributes,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// NewItemView reports the live catalog price next to the captured row.
func NewItemView(view cart.ItemView) ItemView {
	item := NewCartItem(view.Item)
	item.Subtotal = view.Subtotal
	item.Weight = view.Weight
	item.Attributes = view.Attributes
	return ItemView{CartItem: item, UnitPrice: view.UnitPrice, GrossWeight: view.GrossWeight}
}

func NewCart(items *cart.Collection) Cart {
	rows := items.Items()
	out := Cart{
		Items:       make([]CartItem, 0, len(rows)),
		CouponCode:  items.CouponCode(),
		TotalWeight: items.TotalWeight(),
		Statistics:  items.Statistics(),
	}
	for _, row := range rows {
		out.Items = append(out.Items, NewCartItem(row))
	}
	return out
}

func NewMutationResult(result cart.Result) MutationResult {
	out := MutationResult{Outcome: result.Outcome, Quantity: result.Quantity}
	if result.Item != nil {
		item := NewCartItem(*result.Item)
		out.Item = &item
	}
	return out
}
