package cart

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/cartd/pkg/db/models"
)

// ItemRepository persists cart rows.
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository binds the repository to the provided GORM handle.
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *ItemRepository) WithTx(tx *gorm.DB) *ItemRepository {
	if tx == nil {
		return r
	}
	return &ItemRepository{db: tx}
}

func (r *ItemRepository) scoped(ctx context.Context, owner Owner) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.CartItem{})
	if owner.CustomerID != "" {
		return q.Where("customer_id = ?", owner.CustomerID)
	}
	q = q.Where("client_id = ?", owner.ClientID)
	if owner.Guest {
		q = q.Where("customer_id = ?", "")
	}
	return q
}

// FindByID returns the row or nil when it does not exist.
func (r *ItemRepository) FindByID(ctx context.Context, id uint64) (*models.CartItem, error) {
	var row models.CartItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindOwnedBySku returns the owner's row for skuID or nil.
func (r *ItemRepository) FindOwnedBySku(ctx context.Context, owner Owner, skuID string) (*models.CartItem, error) {
	var row models.CartItem
	err := r.scoped(ctx, owner).Where("sku_id = ?", skuID).Order("id ASC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByOwner returns the owner's rows newest first.
func (r *ItemRepository) ListByOwner(ctx context.Context, owner Owner) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.scoped(ctx, owner).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOwnedByIDs returns the owner's rows among ids.
func (r *ItemRepository) ListOwnedByIDs(ctx context.Context, owner Owner, ids []uint64) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.scoped(ctx, owner).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAnonymous returns the rows tagged with clientID that no customer owns yet.
func (r *ItemRepository) ListAnonymous(ctx context.Context, clientID string) ([]models.CartItem, error) {
	return r.ListByOwner(ctx, Owner{ClientID: clientID, Guest: true})
}

// Create inserts row.
func (r *ItemRepository) Create(ctx context.Context, row *models.CartItem) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Save writes every column of row.
func (r *ItemRepository) Save(ctx context.Context, row *models.CartItem) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// UpdateQuantity sets the quantity of row id.
func (r *ItemRepository) UpdateQuantity(ctx context.Context, id uint64, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Update("quantity", qty).Error
}

// Delete removes row id.
func (r *ItemRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CartItem{}).Error
}

// DeleteByOwner removes every row of owner and returns the rows removed.
func (r *ItemRepository) DeleteByOwner(ctx context.Context, owner Owner) (int64, error) {
	res := r.scoped(ctx, owner).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DeleteOwned removes the owner's rows among ids. Rows of other owners are left alone.
func (r *ItemRepository) DeleteOwned(ctx context.Context, owner Owner, ids []uint64) (int64, error) {
	res := r.scoped(ctx, owner).Where("id IN ?", ids).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// ClearClientIDForCustomer detaches the customer's rows from any visitor id.
func (r *ItemRepository) ClearClientIDForCustomer(ctx context.Context, customerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("customer_id = ?", customerID).
		Update("client_id", "")
	return res.RowsAffected, res.Error
}

// DeleteAnonymousBefore deletes unclaimed guest rows not touched since cutoff.
func (r *ItemRepository) DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("customer_id = ? AND updated_at < ?", "", cutoff).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
