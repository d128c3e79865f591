package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborwell/stockroom-backend/internal/projection"
	"github.com/harborwell/stockroom-backend/pkg/db/models"
	"github.com/harborwell/stockroom-backend/pkg/enums"
	pkgerrors "github.com/harborwell/stockroom-backend/pkg/errors"
	"github.com/harborwell/stockroom-backend/pkg/logger"
	"github.com/harborwell/stockroom-backend/pkg/metrics"
	"github.com/harborwell/stockroom-backend/pkg/outbox"
	"github.com/harborwell/stockroom-backend/pkg/outbox/payloads"
	"github.com/harborwell/stockroom-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AdjustInput describes a manual on-hand change.
type AdjustInput struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	Delta       int
	Reason      enums.StockMovementReason
	Reference   string
	Note        string
	OperatorID  string
}

// Availability is the storefront view of a variant plus its warehouse breakdown.
type Availability struct {
	VariantID uuid.UUID
	Available int
	Reserved  int
	Items     []models.InventoryItem
}

// Service exposes the inventory ledger operations that are not tied to a
// reservation lifecycle: manual adjustments, availability reads and the
// movement audit trail.
type Service interface {
	Adjust(ctx context.Context, input AdjustInput) (*models.InventoryItem, error)
	GetAvailability(ctx context.Context, variantID uuid.UUID) (*Availability, error)
	ListMovements(ctx context.Context, filter MovementFilter, params pagination.Params) ([]models.StockMovement, string, error)
}

type service struct {
	repo      Repository
	runner    txRunner
	projector projection.Service
	events    *outbox.Service
	ledger    *metrics.LedgerMetrics
	logg      *logger.Logger
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo      Repository
	TxRunner  txRunner
	Projector projection.Service
	Events    *outbox.Service
	Metrics   *metrics.LedgerMetrics
	Logger    *logger.Logger
}

// NewService wires an inventory service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Projector == nil {
		return nil, fmt.Errorf("projection service required")
	}
	return &service{
		repo:      params.Repo,
		runner:    params.TxRunner,
		projector: params.Projector,
		events:    params.Events,
		ledger:    params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.InventoryItem, error) {
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if input.WarehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id is required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta must be non-zero")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement reason %q", input.Reason))
	}

	var updated *models.InventoryItem
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		applied, err := repo.AdjustOnHand(ctx, input.VariantID, input.WarehouseID, input.Delta)
		if err != nil {
			return err
		}
		if !applied {
			item, err := repo.GetItem(ctx, input.VariantID, input.WarehouseID)
			if err != nil {
				return err
			}
			if item == nil {
				return pkgerrors.New(pkgerrors.CodeInventoryMissing, "no ledger row for variant/warehouse")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("adjustment of %d would break on-hand/reserved invariant", input.Delta)).
				WithDetails(map[string]any{
					"on_hand":  item.OnHand,
					"reserved": item.Reserved,
				})
		}

		// movements carry positive magnitudes; direction lives in the type
		quantity := input.Delta
		if quantity < 0 {
			quantity = -quantity
		}
		movement := &models.StockMovement{
			VariantID:   input.VariantID,
			WarehouseID: input.WarehouseID,
			Type:        movementType(input.Delta),
			Reason:      input.Reason,
			Quantity:    quantity,
		}
		if input.Reference != "" {
			movement.Reference = &input.Reference
		}
		if input.Note != "" {
			movement.Note = &input.Note
		}
		if err := repo.AddMovement(ctx, movement); err != nil {
			return err
		}

		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventStockAdjusted,
				AggregateType: enums.AggregateInventoryItem,
				AggregateID:   input.VariantID,
				Version:       1,
				Data: payloads.StockAdjustedEvent{
					VariantID:   input.VariantID,
					WarehouseID: input.WarehouseID,
					Delta:       input.Delta,
					Reason:      input.Reason,
					Reference:   input.Reference,
				},
			}
			if input.OperatorID != "" {
				event.Actor = &outbox.ActorRef{OperatorID: input.OperatorID, Source: "manual"}
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		if _, err := s.projector.Recompute(ctx, tx, input.VariantID); err != nil {
			return err
		}

		updated, err = repo.GetItem(ctx, input.VariantID, input.WarehouseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithVariantID(ctx, input.VariantID.String())
		logCtx = s.logg.WithWarehouseID(logCtx, input.WarehouseID.String())
		logCtx = s.logg.WithField(logCtx, "delta", input.Delta)
		s.logg.Info(logCtx, "stock adjusted")
	}
	return updated, nil
}

func (s *service) GetAvailability(ctx context.Context, variantID uuid.UUID) (*Availability, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}

	items, err := s.repo.ListItemsByVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant has no inventory")
	}

	// sum across warehouses first, clamp the total once
	availability := &Availability{VariantID: variantID, Items: items}
	for _, item := range items {
		availability.Available += item.Sellable()
		availability.Reserved += item.Reserved
	}
	if availability.Available < 0 {
		availability.Available = 0
	}
	return availability, nil
}

func (s *service) ListMovements(ctx context.Context, filter MovementFilter, params pagination.Params) ([]models.StockMovement, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListMovements(ctx, filter, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func movementType(delta int) enums.StockMovementType {
	if delta > 0 {
		return enums.StockMovementIn
	}
	return enums.StockMovementOut
}
