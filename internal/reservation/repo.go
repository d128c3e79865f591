package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborwell/stockroom-backend/pkg/db/models"
	"github.com/harborwell/stockroom-backend/pkg/enums"
)

// Repository manages reservation rows. Status transitions are guarded updates
// keyed on the current status, so a concurrent sweep and an explicit release
// cannot both win the same hold.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.StockReservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	FindByCartLineID(ctx context.Context, cartLineID uuid.UUID) (*models.StockReservation, error)
	FindByOrderLineID(ctx context.Context, orderLineID uuid.UUID) (*models.StockReservation, error)
	ListActiveByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error)
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]models.StockReservation, error)
	TransitionFromActive(ctx context.Context, id uuid.UUID, status enums.ReservationStatus) (bool, error)
	UpdateQuantityIfActive(ctx context.Context, id uuid.UUID, quantity int) (bool, error)
	RepointToOrderLine(ctx context.Context, id, orderLineID, orderID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reservation *models.StockReservation) error {
	if reservation.ID == uuid.Nil {
		reservation.ID = uuid.New()
	}
	if reservation.Status == "" {
		reservation.Status = enums.ReservationActive
	}
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByCartLineID returns the active hold for a cart line. Terminal holds
// are skipped so a line whose hold was released or swept can reserve again.
func (r *repository) FindByCartLineID(ctx context.Context, cartLineID uuid.UUID) (*models.StockReservation, error) {
	return r.findOne(ctx, "cart_line_id = ? AND status = ?", cartLineID, enums.ReservationActive)
}

func (r *repository) FindByOrderLineID(ctx context.Context, orderLineID uuid.UUID) (*models.StockReservation, error) {
	return r.findOne(ctx, "order_line_id = ?", orderLineID)
}

func (r *repository) findOne(ctx context.Context, query string, args ...any) (*models.StockReservation, error) {
	var reservation models.StockReservation
	err := r.db.WithContext(ctx).Where(query, args...).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) ListActiveByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error) {
	var reservations []models.StockReservation
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.ReservationActive).
		Order("created_at ASC").
		Find(&reservations).Error
	return reservations, err
}

func (r *repository) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]models.StockReservation, error) {
	var reservations []models.StockReservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", enums.ReservationActive, asOf).
		Order("expires_at ASC").
		Limit(limit).
		Find(&reservations).Error
	return reservations, err
}

// TransitionFromActive flips an active reservation into a terminal status.
// Returns false when the reservation was not active anymore.
func (r *repository) TransitionFromActive(ctx context.Context, id uuid.UUID, status enums.ReservationStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("id = ? AND status = ?", id, enums.ReservationActive).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateQuantityIfActive(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("id = ? AND status = ?", id, enums.ReservationActive).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RepointToOrderLine moves an active cart hold onto an order line. The hold
// keeps its quantity and stops expiring; only unpointed active holds qualify.
func (r *repository) RepointToOrderLine(ctx context.Context, id, orderLineID, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("id = ? AND status = ? AND order_line_id IS NULL", id, enums.ReservationActive).
		Updates(map[string]any{
			"order_line_id": orderLineID,
			"order_id":      orderID,
			"expires_at":    nil,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
