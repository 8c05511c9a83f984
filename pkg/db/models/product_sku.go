package models

import (
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/cartd/pkg/db/types"
)

// ProductSku is a purchasable variant owned by the catalog. The cart only reads it.
type ProductSku struct {
	ID          string             `gorm:"column:id;primaryKey"`
	ProductID   string             `gorm:"column:product_id;not null;index"`
	CategoryID  string             `gorm:"column:category_id;not null;default:''"`
	Code        string             `gorm:"column:code;not null"`
	Attributes  dbtypes.Attributes `gorm:"column:attributes;type:text"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	MarketPrice decimal.Decimal    `gorm:"column:market_price;type:numeric(12,2);not null;default:0"`
	Discount    decimal.Decimal    `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	Weight      decimal.Decimal    `gorm:"column:weight;type:numeric(12,3);not null;default:0"`
	IsActive    bool               `gorm:"column:is_active;not null;default:true"`
}

func (ProductSku) TableName() string { return "product_skus" }
