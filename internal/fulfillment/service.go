package fulfillment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborwell/stockroom-backend/internal/inventory"
	"github.com/harborwell/stockroom-backend/internal/projection"
	"github.com/harborwell/stockroom-backend/internal/reservation"
	"github.com/harborwell/stockroom-backend/pkg/db/models"
	"github.com/harborwell/stockroom-backend/pkg/enums"
	pkgerrors "github.com/harborwell/stockroom-backend/pkg/errors"
	"github.com/harborwell/stockroom-backend/pkg/logger"
	"github.com/harborwell/stockroom-backend/pkg/metrics"
	"github.com/harborwell/stockroom-backend/pkg/outbox"
	"github.com/harborwell/stockroom-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CommitResult summarizes an order commit.
type CommitResult struct {
	OrderID        uuid.UUID
	Lines          []payloads.StockCommittedLine
	CommittedUnits int
	AlreadyDone    bool
}

// Service burns reserved stock into fulfilled units when an order confirms.
type Service interface {
	Commit(ctx context.Context, orderID uuid.UUID) (*CommitResult, error)
}

type service struct {
	reservations reservation.Repository
	items        inventory.Repository
	runner       txRunner
	projector    projection.Service
	events       *outbox.Service
	ledger       *metrics.LedgerMetrics
	logg         *logger.Logger
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Reservations reservation.Repository
	Items        inventory.Repository
	TxRunner     txRunner
	Projector    projection.Service
	Events       *outbox.Service
	Metrics      *metrics.LedgerMetrics
	Logger       *logger.Logger
}

// NewService wires a fulfillment service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Reservations == nil {
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
	return &service{
		reservations: params.Reservations,
		items:        params.Items,
		runner:       params.TxRunner,
		projector:    params.Projector,
		events:       params.Events,
		ledger:       params.Metrics,
		logg:         params.Logger,
	}, nil
}

// Commit converts every active reservation on the order into a fulfilled
// movement: reserved and on-hand both drop by the held quantity. The whole
// order commits or none of it does. Re-running a commit that already went
// through returns the prior result instead of failing.
func (s *service) Commit(ctx context.Context, orderID uuid.UUID) (*CommitResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	result := &CommitResult{OrderID: orderID}
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		reservations := s.reservations.WithTx(tx)
		items := s.items.WithTx(tx)

		active, err := reservations.ListActiveByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return s.resolveEmptyCommit(ctx, tx, orderID, result)
		}

		variants := make(map[uuid.UUID]struct{}, len(active))
		for i := range active {
			hold := active[i]

			burned, err := items.CommitStock(ctx, hold.VariantID, hold.WarehouseID, hold.Quantity)
			if err != nil {
				return err
			}
			if !burned {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved pool out of sync with hold").
					WithDetails(map[string]any{
						"reservation_id": hold.ID,
						"quantity":       hold.Quantity,
					})
			}

			flipped, err := reservations.TransitionFromActive(ctx, hold.ID, enums.ReservationCommitted)
			if err != nil {
				return err
			}
			if !flipped {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation changed concurrently")
			}

			movement := &models.StockMovement{
				VariantID:   hold.VariantID,
				WarehouseID: hold.WarehouseID,
				Type:        enums.StockMovementOut,
				Reason:      enums.MovementReasonOrderCommit,
				Quantity:    hold.Quantity,
				OrderID:     &orderID,
			}
			if err := items.AddMovement(ctx, movement); err != nil {
				return err
			}

			line := payloads.StockCommittedLine{
				ReservationID: hold.ID,
				VariantID:     hold.VariantID,
				WarehouseID:   hold.WarehouseID,
				Quantity:      hold.Quantity,
			}
			if hold.OrderLineID != nil {
				line.OrderLineID = *hold.OrderLineID
			}
			result.Lines = append(result.Lines, line)
			result.CommittedUnits += hold.Quantity
			variants[hold.VariantID] = struct{}{}

			s.ledger.AddCommittedUnits(hold.WarehouseID.String(), hold.Quantity)
		}

		for variantID := range variants {
			if _, err := s.projector.Recompute(ctx, tx, variantID); err != nil {
				return err
			}
		}

		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventStockCommitted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Version:       1,
				Data: payloads.StockCommittedEvent{
					OrderID: orderID,
					Lines:   result.Lines,
				},
			}
			// the partial unique index keeps this at one event per order
			if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && !result.AlreadyDone {
		logCtx := s.logg.WithOrderID(ctx, orderID.String())
		logCtx = s.logg.WithField(logCtx, "committed_units", result.CommittedUnits)
		s.logg.Info(logCtx, "order stock committed")
	}
	return result, nil
}

// resolveEmptyCommit distinguishes a retried commit from an order that never
// had holds. A fully committed order replays its prior result.
func (s *service) resolveEmptyCommit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, result *CommitResult) error {
	var prior []models.StockReservation
	err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&prior).Error
	if err != nil {
		return err
	}
	if len(prior) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no reservations for order")
	}

	for i := range prior {
		hold := prior[i]
		if hold.Status != enums.ReservationCommitted {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("reservation %s is %s", hold.ID, hold.Status))
		}
		line := payloads.StockCommittedLine{
			ReservationID: hold.ID,
			VariantID:     hold.VariantID,
			WarehouseID:   hold.WarehouseID,
			Quantity:      hold.Quantity,
		}
		if hold.OrderLineID != nil {
			line.OrderLineID = *hold.OrderLineID
		}
		result.Lines = append(result.Lines, line)
		result.CommittedUnits += hold.Quantity
	}
	result.AlreadyDone = true
	return nil
}
