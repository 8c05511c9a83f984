package cartstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/pkg/db/models"
)

const backendDatabase = "database"

// DatabaseStore keeps the cart in one cart_snapshots row per owner.
type DatabaseStore struct {
	base
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore binds a database store to clientID.
func NewDatabaseStore(clientID string, db *gorm.DB, ttl time.Duration, metrics storeMetrics, listeners ...cart.Listener) (*DatabaseStore, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	return &DatabaseStore{
		base: base{clientID: clientID, ttl: ttl, metrics: metrics, listeners: listeners},
		db:   db,
		now:  time.Now,
	}, nil
}

func (s *DatabaseStore) Backend() string {
	return backendDatabase
}

func (s *DatabaseStore) Items(ctx context.Context) ([]cart.LineItem, error) {
	var row models.CartSnapshot
	err := s.db.WithContext(ctx).Where("client_id = ?", s.clientID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.observe(backendDatabase, "get_items", nil)
			return []cart.LineItem{}, nil
		}
		s.observe(backendDatabase, "get_items", err)
		return nil, err
	}
	s.observe(backendDatabase, "get_items", nil)
	if !row.ExpiresAt.After(s.now()) {
		return []cart.LineItem{}, nil
	}
	return decode(s.base, backendDatabase, []byte(row.Items)), nil
}

func (s *DatabaseStore) SetItems(ctx context.Context, items []cart.LineItem, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	raw, err := cart.EncodeItems(items)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	row := models.CartSnapshot{
		ClientID:  s.clientID,
		Items:     string(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "expires_at", "updated_at"}),
	}).Create(&row).Error
	s.observe(backendDatabase, "set_items", err)
	return err
}

func (s *DatabaseStore) Forget(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("client_id = ?", s.clientID).Delete(&models.CartSnapshot{}).Error
	s.observe(backendDatabase, "forget", err)
	return err
}

func (s *DatabaseStore) MakeCart(ctx context.Context) (*cart.Cart, error) {
	return s.makeCart(ctx, s)
}

// PurgeExpired deletes snapshot rows whose TTL has passed.
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.CartSnapshot{})
	return res.RowsAffected, res.Error
}
