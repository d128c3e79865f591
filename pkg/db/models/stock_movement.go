package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborwell/stockroom-backend/pkg/enums"
)

// StockMovement is the append-only audit trail of on-hand changes. Quantity
// is always positive; the direction of the change is carried by Type.
type StockMovement struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	VariantID   uuid.UUID                 `gorm:"column:variant_id;type:uuid;not null;index:stock_movements_item_idx"`
	WarehouseID uuid.UUID                 `gorm:"column:warehouse_id;type:uuid;not null;index:stock_movements_item_idx"`
	Type        enums.StockMovementType   `gorm:"column:type;type:stock_movement_type_enum;not null"`
	Reason      enums.StockMovementReason `gorm:"column:reason;type:stock_movement_reason_enum;not null"`
	Quantity    int                       `gorm:"column:quantity;not null"`
	OrderID     *uuid.UUID                `gorm:"column:order_id;type:uuid;index:stock_movements_order_idx"`
	Reference   *string                   `gorm:"column:reference"`
	Note        *string                   `gorm:"column:note"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
