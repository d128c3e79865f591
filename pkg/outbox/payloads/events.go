package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborwell/stockroom-backend/pkg/enums"
)

// StockCommittedEvent is emitted once per order when reserved stock is burned
// down into fulfilled units.
type StockCommittedEvent struct {
	OrderID uuid.UUID            `json:"order_id"`
	Lines   []StockCommittedLine `json:"lines"`
}

// StockCommittedLine details a single committed reservation.
type StockCommittedLine struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	OrderLineID   uuid.UUID `json:"order_line_id"`
	VariantID     uuid.UUID `json:"variant_id"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	Quantity      int       `json:"quantity"`
}

// StockAdjustedEvent is emitted when an operator changes on-hand directly.
type StockAdjustedEvent struct {
	VariantID   uuid.UUID                 `json:"variant_id"`
	WarehouseID uuid.UUID                 `json:"warehouse_id"`
	Delta       int                       `json:"delta"`
	Reason      enums.StockMovementReason `json:"reason"`
	Reference   string                    `json:"reference,omitempty"`
}

// ReservationReleasedEvent records a hold returning to the sellable pool.
type ReservationReleasedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	VariantID     uuid.UUID `json:"variant_id"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	Quantity      int       `json:"quantity"`
	Trigger       string    `json:"trigger"`
	ReleasedAt    time.Time `json:"released_at"`
}

// AvailabilityProjectedEvent carries the recomputed storefront availability
// for a variant. The sync worker mirrors it into the CMS.
type AvailabilityProjectedEvent struct {
	VariantID   uuid.UUID `json:"variant_id"`
	ExternalKey string    `json:"external_key,omitempty"`
	Available   int       `json:"available"`
	Reserved    int       `json:"reserved"`
	ProjectedAt time.Time `json:"projected_at"`
}
