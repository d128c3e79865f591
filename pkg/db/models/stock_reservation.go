package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborwell/stockroom-backend/pkg/enums"
)

// StockReservation is a temporary hold against an inventory item. A hold
// starts on a cart line; checkout stamps the order line onto it without
// touching the quantity. At most one active hold exists per cart line.
type StockReservation struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	VariantID   uuid.UUID               `gorm:"column:variant_id;type:uuid;not null;index:stock_reservations_item_idx"`
	WarehouseID uuid.UUID               `gorm:"column:warehouse_id;type:uuid;not null;index:stock_reservations_item_idx"`
	Quantity    int                     `gorm:"column:quantity;not null"`
	Status      enums.ReservationStatus `gorm:"column:status;type:reservation_status_enum;not null;default:'active'"`
	CartLineID  *uuid.UUID              `gorm:"column:cart_line_id;type:uuid;uniqueIndex:stock_reservations_cart_line_uniq,where:status = 'active'"`
	OrderLineID *uuid.UUID              `gorm:"column:order_line_id;type:uuid;uniqueIndex:stock_reservations_order_line_uniq"`
	OrderID     *uuid.UUID              `gorm:"column:order_id;type:uuid;index:stock_reservations_order_idx"`
	ExpiresAt   *time.Time              `gorm:"column:expires_at;index:stock_reservations_expires_idx"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// HoldsStock reports whether the reservation still counts against reserved.
func (r StockReservation) HoldsStock() bool {
	return r.Status == enums.ReservationActive
}
