package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/harborwell/stockroom-backend/internal/inventory"
	"github.com/harborwell/stockroom-backend/internal/projection"
	"github.com/harborwell/stockroom-backend/pkg/db/models"
	"github.com/harborwell/stockroom-backend/pkg/enums"
	pkgerrors "github.com/harborwell/stockroom-backend/pkg/errors"
	"github.com/harborwell/stockroom-backend/pkg/logger"
	"github.com/harborwell/stockroom-backend/pkg/metrics"
	"github.com/harborwell/stockroom-backend/pkg/outbox"
	"github.com/harborwell/stockroom-backend/pkg/outbox/payloads"
)

// Release triggers, recorded on the outbox event and the release metric.
const (
	TriggerAbandoned = "abandoned"
	TriggerExpired   = "expired"
	TriggerManual    = "manual"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReserveInput places a hold for a cart line.
type ReserveInput struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	CartLineID  uuid.UUID
	Quantity    int
}

// ReleaseInput returns a hold to the sellable pool. Exactly one of
// ReservationID or CartLineID identifies the hold.
type ReleaseInput struct {
	ReservationID uuid.UUID
	CartLineID    uuid.UUID
	Trigger       string
}

// RepointInput moves a cart hold onto an order line at checkout.
type RepointInput struct {
	CartLineID  uuid.UUID
	OrderLineID uuid.UUID
	OrderID     uuid.UUID
}

// Service owns the reservation lifecycle: placing holds on add-to-cart,
// releasing them on abandonment or expiry, and repointing them at checkout.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*models.StockReservation, error)
	Release(ctx context.Context, input ReleaseInput) (*models.StockReservation, error)
	Repoint(ctx context.Context, input RepointInput) (*models.StockReservation, error)
	ReleaseExpired(ctx context.Context, batchSize int) (int, error)
}

type service struct {
	repo      Repository
	items     inventory.Repository
	runner    txRunner
	projector projection.Service
	events    *outbox.Service
	ledger    *metrics.LedgerMetrics
	logg      *logger.Logger
	holdTTL   time.Duration
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo      Repository
	Items     inventory.Repository
	TxRunner  txRunner
	Projector projection.Service
	Events    *outbox.Service
	Metrics   *metrics.LedgerMetrics
	Logger    *logger.Logger
	HoldTTL   time.Duration
}

// NewService wires a reservation service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Projector == nil {
		return nil, fmt.Errorf("projection service required")
	}
	if params.HoldTTL <= 0 {
		return nil, fmt.Errorf("hold ttl must be positive")
	}
	return &service{
		repo:      params.Repo,
		items:     params.Items,
		runner:    params.TxRunner,
		projector: params.Projector,
		events:    params.Events,
		ledger:    params.Metrics,
		logg:      params.Logger,
		holdTTL:   params.HoldTTL,
	}, nil
}

// Reserve places or resizes the hold for a cart line. Calling it again with
// the same cart line and quantity is a no-op; a different quantity moves the
// hold by the delta under the same stock guard.
func (s *service) Reserve(ctx context.Context, input ReserveInput) (*models.StockReservation, error) {
	if input.VariantID == uuid.Nil || input.WarehouseID == uuid.Nil || input.CartLineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant, warehouse and cart line ids are required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var reservation *models.StockReservation
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items := s.items.WithTx(tx)

		existing, err := repo.FindByCartLineID(ctx, input.CartLineID)
		if err != nil {
			return err
		}
		if existing != nil {
			return s.resizeHold(ctx, repo, items, tx, existing, input)
		}

		claimed, err := items.ReserveStock(ctx, input.VariantID, input.WarehouseID, input.Quantity)
		if err != nil {
			return err
		}
		if !claimed {
			return s.insufficientStock(ctx, items, input.VariantID, input.WarehouseID, input.Quantity)
		}

		expiresAt := time.Now().Add(s.holdTTL)
		reservation = &models.StockReservation{
			VariantID:   input.VariantID,
			WarehouseID: input.WarehouseID,
			Quantity:    input.Quantity,
			Status:      enums.ReservationActive,
			CartLineID:  &input.CartLineID,
			ExpiresAt:   &expiresAt,
		}
		if err := repo.Create(ctx, reservation); err != nil {
			return err
		}

		_, err = s.projector.Recompute(ctx, tx, input.VariantID)
		return err
	})
	if err != nil {
		s.ledger.IncReserveAttempt("failure")
		return nil, err
	}

	if reservation == nil {
		// resize path loads the final row outside the closure variable
		reservation, err = s.repo.FindByCartLineID(ctx, input.CartLineID)
		if err != nil {
			return nil, err
		}
	}
	s.ledger.IncReserveAttempt("success")
	s.logReservation(ctx, reservation, "stock reserved")
	return reservation, nil
}

func (s *service) resizeHold(ctx context.Context, repo Repository, items inventory.Repository, tx *gorm.DB, existing *models.StockReservation, input ReserveInput) error {
	if existing.VariantID != input.VariantID || existing.WarehouseID != input.WarehouseID {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart line already holds a different variant")
	}

	delta := input.Quantity - existing.Quantity
	if delta == 0 {
		return nil
	}

	var moved bool
	var err error
	if delta > 0 {
		moved, err = items.ReserveStock(ctx, input.VariantID, input.WarehouseID, delta)
	} else {
		moved, err = items.ReleaseStock(ctx, input.VariantID, input.WarehouseID, -delta)
	}
	if err != nil {
		return err
	}
	if !moved {
		if delta > 0 {
			return s.insufficientStock(ctx, items, input.VariantID, input.WarehouseID, delta)
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved pool out of sync with hold")
	}

	updated, err := repo.UpdateQuantityIfActive(ctx, existing.ID, input.Quantity)
	if err != nil {
		return err
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation changed concurrently")
	}

	_, err = s.projector.Recompute(ctx, tx, input.VariantID)
	return err
}

func (s *service) insufficientStock(ctx context.Context, items inventory.Repository, variantID, warehouseID uuid.UUID, qty int) error {
	s.ledger.IncInsufficientStock(warehouseID.String())

	item, err := items.GetItem(ctx, variantID, warehouseID)
	if err != nil {
		return err
	}
	if item == nil {
		return pkgerrors.New(pkgerrors.CodeInventoryMissing, "no ledger row for variant/warehouse")
	}
	available := item.Sellable()
	if available < 0 {
		available = 0
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough sellable stock").
		WithDetails(map[string]any{
			"requested": qty,
			"available": available,
		})
}

// Release returns an active hold to the sellable pool. A hold that is missing
// or already terminal is a no-op returning nil, so retries, double releases
// and races with the sweep are all safe for callers.
func (s *service) Release(ctx context.Context, input ReleaseInput) (*models.StockReservation, error) {
	if input.ReservationID == uuid.Nil && input.CartLineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id or cart line id is required")
	}
	trigger := input.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}

	var reservation *models.StockReservation
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		if input.ReservationID != uuid.Nil {
			reservation, err = repo.GetByID(ctx, input.ReservationID)
		} else {
			reservation, err = repo.FindByCartLineID(ctx, input.CartLineID)
		}
		if err != nil {
			return err
		}
		if reservation == nil || reservation.Status != enums.ReservationActive {
			return nil
		}

		return s.releaseInTx(ctx, tx, reservation, trigger, enums.ReservationReleased)
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// releaseInTx performs the guarded transition plus the stock return. The
// caller decides the terminal status (released vs expired).
func (s *service) releaseInTx(ctx context.Context, tx *gorm.DB, reservation *models.StockReservation, trigger string, status enums.ReservationStatus) error {
	repo := s.repo.WithTx(tx)
	items := s.items.WithTx(tx)

	flipped, err := repo.TransitionFromActive(ctx, reservation.ID, status)
	if err != nil {
		return err
	}
	if !flipped {
		// another writer won the transition; nothing left to release
		return nil
	}

	returned, err := items.ReleaseStock(ctx, reservation.VariantID, reservation.WarehouseID, reservation.Quantity)
	if err != nil {
		return err
	}
	if !returned {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved pool out of sync with hold")
	}

	if s.events != nil {
		event := outbox.DomainEvent{
			EventType:     enums.EventReservationReleased,
			AggregateType: enums.AggregateReservation,
			AggregateID:   reservation.ID,
			Version:       1,
			Data: payloads.ReservationReleasedEvent{
				ReservationID: reservation.ID,
				VariantID:     reservation.VariantID,
				WarehouseID:   reservation.WarehouseID,
				Quantity:      reservation.Quantity,
				Trigger:       trigger,
				ReleasedAt:    time.Now().UTC(),
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return err
		}
	}

	if _, err := s.projector.Recompute(ctx, tx, reservation.VariantID); err != nil {
		return err
	}

	reservation.Status = status
	s.ledger.IncReleasedHold(trigger)
	return nil
}

// Repoint moves a cart hold onto an order line at checkout. The hold keeps
// its quantity and stops expiring. Retries that find the hold already on the
// requested order line, or find no active hold at all, succeed without
// touching anything.
func (s *service) Repoint(ctx context.Context, input RepointInput) (*models.StockReservation, error) {
	if input.CartLineID == uuid.Nil || input.OrderLineID == uuid.Nil || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line, order line and order ids are required")
	}

	var reservation *models.StockReservation
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		reservation, err = repo.FindByCartLineID(ctx, input.CartLineID)
		if err != nil {
			return err
		}
		if reservation == nil {
			// hold already gone or committed; retries stay safe
			return nil
		}
		if reservation.OrderLineID != nil {
			if *reservation.OrderLineID == input.OrderLineID {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "reservation already points at another order line")
		}

		moved, err := repo.RepointToOrderLine(ctx, reservation.ID, input.OrderLineID, input.OrderID)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation changed concurrently")
		}

		reservation, err = repo.GetByID(ctx, reservation.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logReservation(ctx, reservation, "reservation repointed")
	return reservation, nil
}

// ReleaseExpired sweeps a batch of active holds whose expiry passed, marking
// them expired and returning their stock. Returns the number released.
func (s *service) ReleaseExpired(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	expired, err := s.repo.ListExpired(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	var errs []error
	for i := range expired {
		reservation := expired[i]
		err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			return s.releaseInTx(ctx, tx, &reservation, TriggerExpired, enums.ReservationExpired)
		})
		if err != nil {
			// keep sweeping; the next run retries this hold
			if s.logg != nil {
				s.logg.Error(ctx, "releasing expired reservation", err)
			}
			errs = append(errs, fmt.Errorf("reservation %s: %w", reservation.ID, err))
			continue
		}
		if reservation.Status == enums.ReservationExpired {
			released++
		}
	}
	return released, multierr.Combine(errs...)
}

func (s *service) logReservation(ctx context.Context, reservation *models.StockReservation, msg string) {
	if s.logg == nil || reservation == nil {
		return
	}
	logCtx := s.logg.WithVariantID(ctx, reservation.VariantID.String())
	logCtx = s.logg.WithWarehouseID(logCtx, reservation.WarehouseID.String())
	logCtx = s.logg.WithField(logCtx, "reservation_id", reservation.ID.String())
	s.logg.Info(logCtx, msg)
}
