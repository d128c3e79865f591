package enums

import "fmt"

// StockMovementType maps to the stock_movement_type_enum enum in Postgres.
type StockMovementType string

const (
	StockMovementIn         StockMovementType = "IN"
	StockMovementOut        StockMovementType = "OUT"
	StockMovementAdjustment StockMovementType = "ADJUSTMENT"
)

var validStockMovementTypes = []StockMovementType{
	StockMovementIn,
	StockMovementOut,
	StockMovementAdjustment,
}

// IsValid reports whether the value matches the canonical movement type enum.
func (t StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStockMovementType converts raw input into StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}

// StockMovementReason maps to the stock_movement_reason_enum enum in Postgres.
type StockMovementReason string

const (
	MovementReasonOrderCommit      StockMovementReason = "ORDER_COMMIT"
	MovementReasonManualAdjustment StockMovementReason = "MANUAL_ADJUSTMENT"
	MovementReasonRestock          StockMovementReason = "RESTOCK"
	MovementReasonInitialImport    StockMovementReason = "INITIAL_IMPORT"
	MovementReasonCycleCount       StockMovementReason = "CYCLE_COUNT"
)

var validStockMovementReasons = []StockMovementReason{
	MovementReasonOrderCommit,
	MovementReasonManualAdjustment,
	MovementReasonRestock,
	MovementReasonInitialImport,
	MovementReasonCycleCount,
}

// IsValid reports whether the value matches the canonical movement reason enum.
func (r StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStockMovementReason converts raw input into StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
