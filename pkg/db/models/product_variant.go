package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is the sellable unit. StockAvailable and StockReserved are
// denormalized projections over the variant's inventory items; the ledger rows
// in inventory_items remain the source of truth.
type ProductVariant struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SKU            string     `gorm:"column:sku;not null;uniqueIndex:product_variants_sku_uniq"`
	Title          string     `gorm:"column:title;not null"`
	ExternalKey    *string    `gorm:"column:external_key;uniqueIndex:product_variants_external_key_uniq"`
	StockAvailable int        `gorm:"column:stock_available;not null;default:0"`
	StockReserved  int        `gorm:"column:stock_reserved;not null;default:0"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	SyncedAt       *time.Time `gorm:"column:synced_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
