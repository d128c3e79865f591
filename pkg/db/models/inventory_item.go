package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is the per-variant per-warehouse stock ledger row. All
// reserve/commit/release writes serialize on this row's lock.
type InventoryItem struct {
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;primaryKey"`
	WarehouseID uuid.UUID `gorm:"column:warehouse_id;type:uuid;primaryKey"`
	OnHand      int       `gorm:"column:on_hand;not null;default:0"`
	Reserved    int       `gorm:"column:reserved;not null;default:0"`
	SafetyStock int       `gorm:"column:safety_stock;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Sellable returns the quantity a new reservation may still claim. Safety
// stock is held back from customer-facing availability.
func (i InventoryItem) Sellable() int {
	return i.OnHand - i.Reserved - i.SafetyStock
}
