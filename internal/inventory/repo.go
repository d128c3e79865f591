package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborwell/stockroom-backend/pkg/db/models"
	"github.com/harborwell/stockroom-backend/pkg/pagination"
)

// MovementFilter narrows the audit trail listing.
type MovementFilter struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	OrderID     uuid.UUID
}

// Repository manages the per-warehouse stock ledger rows. The mutating
// operations are guarded single-statement updates so concurrent writers
// serialize on the row without an explicit SELECT FOR UPDATE; a false return
// means the guard did not hold.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetItem(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.InventoryItem, error)
	ListItemsByVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryItem, error)
	UpsertItem(ctx context.Context, item *models.InventoryItem) error
	ReserveStock(ctx context.Context, variantID, warehouseID uuid.UUID, qty int) (bool, error)
	ReleaseStock(ctx context.Context, variantID, warehouseID uuid.UUID, qty int) (bool, error)
	CommitStock(ctx context.Context, variantID, warehouseID uuid.UUID, qty int) (bool, error)
	AdjustOnHand(ctx context.Context, variantID, warehouseID uuid.UUID, delta int) (bool, error)
	AddMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, filter MovementFilter, limit int, cursor *pagination.Cursor) ([]models.StockMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetItem(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND warehouse_id = ?", variantID, warehouseID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItemsByVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("warehouse_id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) UpsertItem(ctx context.Context, item *models.InventoryItem) error {
	existing, err := r.GetItem(ctx, item.VariantID, item.WarehouseID)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.db.WithContext(ctx).Create(item).Error
	}
	return r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("variant_id = ? AND warehouse_id = ?", item.VariantID, item.WarehouseID).
		Updates(map[string]any{
			"on_hand":      item.OnHand,
			"reserved":     item.Reserved,
			"safety_stock": item.SafetyStock,
		}).Error
}

// ReserveStock claims qty units when the sellable pool (on hand minus reserved
// minus safety stock) covers it.
func (r *repository) ReserveStock(ctx context.Context, variantID, warehouseID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET reserved = reserved + ?, updated_at = ?
		WHERE variant_id = ? AND warehouse_id = ?
		  AND on_hand - reserved - safety_stock >= ?`,
		qty, time.Now(), variantID, warehouseID, qty)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseStock returns qty previously reserved units to the sellable pool.
func (r *repository) ReleaseStock(ctx context.Context, variantID, warehouseID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET reserved = reserved - ?, updated_at = ?
		WHERE variant_id = ? AND warehouse_id = ?
		  AND reserved >= ?`,
		qty, time.Now(), variantID, warehouseID, qty)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CommitStock burns qty reserved units out of on hand at fulfillment.
func (r *repository) CommitStock(ctx context.Context, variantID, warehouseID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET on_hand = on_hand - ?, reserved = reserved - ?, updated_at = ?
		WHERE variant_id = ? AND warehouse_id = ?
		  AND reserved >= ? AND on_hand >= ?`,
		qty, qty, time.Now(), variantID, warehouseID, qty, qty)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AdjustOnHand applies a manual delta while keeping reserved <= on_hand.
func (r *repository) AdjustOnHand(ctx context.Context, variantID, warehouseID uuid.UUID, delta int) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET on_hand = on_hand + ?, updated_at = ?
		WHERE variant_id = ? AND warehouse_id = ?
		  AND on_hand + ? >= reserved AND on_hand + ? >= 0`,
		delta, time.Now(), variantID, warehouseID, delta, delta)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AddMovement(ctx context.Context, movement *models.StockMovement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, filter MovementFilter, limit int, cursor *pagination.Cursor) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovement{})
	if filter.VariantID != uuid.Nil {
		query = query.Where("variant_id = ?", filter.VariantID)
	}
	if filter.WarehouseID != uuid.Nil {
		query = query.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.OrderID != uuid.Nil {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.StockMovement
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
