package basket

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/cartstore"
)

type basketResponse struct {
	Mode        cartstore.Mode  `json:"mode"`
	Backend     string          `json:"backend"`
	Lines       []lineResponse  `json:"lines"`
	TotalWeight decimal.Decimal `json:"total_weight"`
	Statistics  cart.Statistics `json:"statistics"`
}

type lineResponse struct {
	cart.LineItem
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func newBasketResponse(mode cartstore.Mode, backend string, c *cart.Cart) basketResponse {
	lines := c.Lines()
	out := basketResponse{
		Mode:        mode,
		Backend:     backend,
		Lines:       make([]lineResponse, 0, len(lines)),
		TotalWeight: c.TotalWeight(),
		Statistics:  c.Statistics(),
	}
	for _, line := range lines {
		out.Lines = append(out.Lines, lineResponse{LineItem: line, UnitPrice: line.UnitPrice(), Subtotal: line.Subtotal()})
	}
	return out
}
