package models

import "time"

// CartSnapshot holds the serialized line items of one client's cart.
type CartSnapshot struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID  string    `gorm:"column:client_id;size:191;not null;uniqueIndex"`
	Items     string    `gorm:"column:items;type:text;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartSnapshot) TableName() string { return "cart_snapshots" }
