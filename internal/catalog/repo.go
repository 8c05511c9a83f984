// Package catalog reads sku pricing from the catalog-owned product_skus table.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartd/pkg/db/models"
	dbtypes "github.com/angelmondragon/cartd/pkg/db/types"
	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/angelmondragon/cartd/pkg/money"
)

// PriceSnapshot is the sku pricing captured when a cart line is written.
type PriceSnapshot struct {
	ProductID   string
	SkuID       string
	CategoryID  string
	Price       decimal.Decimal
	MarketPrice decimal.Decimal
	Discount    decimal.Decimal
	Weight      decimal.Decimal
	Attributes  dbtypes.Attributes
}

// UnitPrice is the list price after the sku's percent discount.
func (p PriceSnapshot) UnitPrice() decimal.Decimal {
	return money.Discount(p.Price, p.Discount)
}

// Repository is a read-only view over product skus.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindSkuByAttributes returns the active sku of productID whose attributes equal attrs.
// A product with a single active sku matches empty attrs.
func (r *Repository) FindSkuByAttributes(ctx context.Context, productID string, attrs map[string]string) (string, bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return "", false, nil
	}

	var skus []models.ProductSku
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("id ASC").
		Find(&skus).Error
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product skus")
	}

	wanted := dbtypes.Attributes(attrs).Normalize()
	if len(wanted) == 0 && len(skus) == 1 {
		return skus[0].ID, true, nil
	}
	for _, sku := range skus {
		if sku.Attributes.Normalize().Equal(wanted) {
			return sku.ID, true, nil
		}
	}
	return "", false, nil
}

// PriceSnapshot returns the pricing of skuID under productID. The bool is false when
// the sku does not exist, is inactive, or belongs to another product.
func (r *Repository) PriceSnapshot(ctx context.Context, productID, skuID string) (PriceSnapshot, bool, error) {
	var sku models.ProductSku
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", skuID, true).
		First(&sku).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PriceSnapshot{}, false, nil
		}
		return PriceSnapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product sku")
	}
	if productID != "" && sku.ProductID != productID {
		return PriceSnapshot{}, false, nil
	}

	return PriceSnapshot{
		ProductID:   sku.ProductID,
		SkuID:       sku.ID,
		CategoryID:  sku.CategoryID,
		Price:       sku.Price,
		MarketPrice: sku.MarketPrice,
		Discount:    sku.Discount,
		Weight:      sku.Weight,
		Attributes:  sku.Attributes,
	}, true, nil
}
