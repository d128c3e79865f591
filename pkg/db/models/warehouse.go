package models

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is a physical fulfillment location stock is tracked against.
type Warehouse struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code      string    `gorm:"column:code;not null;uniqueIndex:warehouses_code_uniq"`
	Name      string    `gorm:"column:name;not null"`
	Region    *string   `gorm:"column:region"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
