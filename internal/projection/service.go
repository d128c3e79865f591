package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborwell/stockroom-backend/pkg/db/models"
	"github.com/harborwell/stockroom-backend/pkg/enums"
	pkgerrors "github.com/harborwell/stockroom-backend/pkg/errors"
	"github.com/harborwell/stockroom-backend/pkg/outbox"
	"github.com/harborwell/stockroom-backend/pkg/outbox/payloads"
)

// Snapshot is the storefront availability derived from the ledger rows.
type Snapshot struct {
	VariantID uuid.UUID
	Available int
	Reserved  int
}

// Service recomputes the denormalized variant availability from the
// inventory_items ledger. Rows are summed across warehouses first and the
// total is clamped at zero once, so a deficit in one location offsets
// surplus elsewhere instead of being hidden.
type Service interface {
	Recompute(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (*Snapshot, error)
}

type service struct {
	events *outbox.Service
}

// NewService wires the projection service. The outbox service is optional;
// without it recomputes still update the snapshot but emit no events.
func NewService(events *outbox.Service) (Service, error) {
	return &service{events: events}, nil
}

func (s *service) Recompute(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (*Snapshot, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}

	var variant models.ProductVariant
	if err := tx.WithContext(ctx).First(&variant, "id = ?", variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, err
	}

	var agg struct {
		OnHand   int
		Reserved int
		Safety   int
	}
	err := tx.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(on_hand), 0) AS on_hand,
			COALESCE(SUM(reserved), 0) AS reserved,
			COALESCE(SUM(safety_stock), 0) AS safety
		FROM inventory_items
		WHERE variant_id = ?`, variantID).Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating availability: %w", err)
	}

	available := agg.OnHand - agg.Reserved - agg.Safety
	if available < 0 {
		available = 0
	}

	if err := tx.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Updates(map[string]any{
			"stock_available": available,
			"stock_reserved":  agg.Reserved,
		}).Error; err != nil {
		return nil, fmt.Errorf("updating variant snapshot: %w", err)
	}

	snapshot := &Snapshot{
		VariantID: variantID,
		Available: available,
		Reserved:  agg.Reserved,
	}

	if s.events != nil {
		externalKey := ""
		if variant.ExternalKey != nil {
			externalKey = *variant.ExternalKey
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventAvailabilityProjected,
			AggregateType: enums.AggregateVariant,
			AggregateID:   variantID,
			Version:       1,
			Data: payloads.AvailabilityProjectedEvent{
				VariantID:   variantID,
				ExternalKey: externalKey,
				Available:   snapshot.Available,
				Reserved:    snapshot.Reserved,
				ProjectedAt: time.Now().UTC(),
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("emitting availability event: %w", err)
		}
	}

	return snapshot, nil
}
