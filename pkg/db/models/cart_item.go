package models

import (
	"time"

	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/cartd/pkg/db/types"
)

// CartItem is one persisted cart line owned by a customer and/or an anonymous client.
type CartItem struct {
	ID          uint64             `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID   string             `gorm:"column:product_id;not null;index"`
	SkuID       string             `gorm:"column:sku_id;not null"`
	CategoryID  string             `gorm:"column:category_id;not null;default:''"`
	CustomerID  string             `gorm:"column:customer_id;not null;default:'';index"`
	ClientID    string             `gorm:"column:client_id;not null;default:'';index"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	CartPrice   decimal.Decimal    `gorm:"column:cart_price;type:numeric(12,2);not null"`
	MarketPrice decimal.Decimal    `gorm:"column:market_price;type:numeric(12,2);not null;default:0"`
	Weight      decimal.Decimal    `gorm:"column:weight;type:numeric(12,3);not null;default:0"`
	Quantity    int                `gorm:"column:quantity;not null"`
	Attributes  dbtypes.Attributes `gorm:"column:attributes;type:text"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartItem) TableName() string { return "cart_items" }

// Subtotal is the captured cart price times quantity.
func (c CartItem) Subtotal() decimal.Decimal {
	return c.CartPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// GrossWeight is the unit weight times quantity.
func (c CartItem) GrossWeight() decimal.Decimal {
	return c.Weight.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
