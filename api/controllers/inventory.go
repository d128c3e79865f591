package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborwell/stockroom-backend/api/responses"
	"github.com/harborwell/stockroom-backend/api/validators"
	"github.com/harborwell/stockroom-backend/internal/inventory"
	"github.com/harborwell/stockroom-backend/pkg/db/models"
	"github.com/harborwell/stockroom-backend/pkg/enums"
	pkgerrors "github.com/harborwell/stockroom-backend/pkg/errors"
	"github.com/harborwell/stockroom-backend/pkg/logger"
	"github.com/harborwell/stockroom-backend/pkg/pagination"
)

type adjustRequest struct {
	VariantID   uuid.UUID `json:"variant_id" validate:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	Delta       int       `json:"delta" validate:"required"`
	Reason      string    `json:"reason" validate:"required"`
	Reference   string    `json:"reference"`
	Note        string    `json:"note"`
	OperatorID  string    `json:"operator_id"`
}

type inventoryItemResponse struct {
	WarehouseID uuid.UUID `json:"warehouse_id"`
	OnHand      int       `json:"on_hand"`
	Reserved    int       `json:"reserved"`
	SafetyStock int       `json:"safety_stock"`
}

type availabilityResponse struct {
	VariantID uuid.UUID               `json:"variant_id"`
	Available int                     `json:"available"`
	Reserved  int                     `json:"reserved"`
	Items     []inventoryItemResponse `json:"items"`
}

type movementResponse struct {
	ID          uuid.UUID  `json:"id"`
	VariantID   uuid.UUID  `json:"variant_id"`
	WarehouseID uuid.UUID  `json:"warehouse_id"`
	Type        string     `json:"type"`
	Reason      string     `json:"reason"`
	Quantity    int        `json:"quantity"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Reference   *string    `json:"reference,omitempty"`
	Note        *string    `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type movementListResponse struct {
	Movements  []movementResponse `json:"movements"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// Adjust applies an operator on-hand change.
func Adjust(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason, err := enums.ParseStockMovementReason(req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown adjustment reason").
					WithDetails(map[string]any{"reason": req.Reason}))
			return
		}

		item, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			VariantID:   req.VariantID,
			WarehouseID: req.WarehouseID,
			Delta:       req.Delta,
			Reason:      reason,
			Reference:   validators.SanitizeString(req.Reference, 255),
			Note:        validators.SanitizeString(req.Note, 1024),
			OperatorID:  validators.SanitizeString(req.OperatorID, 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventoryItemResponse{
			WarehouseID: item.WarehouseID,
			OnHand:      item.OnHand,
			Reserved:    item.Reserved,
			SafetyStock: item.SafetyStock,
		})
	}
}

// Availability returns the storefront view of a variant's stock.
func Availability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := parseUUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		availability, err := svc.GetAvailability(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := availabilityResponse{
			VariantID: availability.VariantID,
			Available: availability.Available,
			Reserved:  availability.Reserved,
		}
		for _, item := range availability.Items {
			resp.Items = append(resp.Items, inventoryItemResponse{
				WarehouseID: item.WarehouseID,
				OnHand:      item.OnHand,
				Reserved:    item.Reserved,
				SafetyStock: item.SafetyStock,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

// Movements pages through the stock audit trail, optionally filtered.
func Movements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := buildMovementFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.ListMovements(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := movementListResponse{NextCursor: next, Movements: make([]movementResponse, 0, len(rows))}
		for i := range rows {
			resp.Movements = append(resp.Movements, toMovementResponse(rows[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

func toMovementResponse(m models.StockMovement) movementResponse {
	return movementResponse{
		ID:          m.ID,
		VariantID:   m.VariantID,
		WarehouseID: m.WarehouseID,
		Type:        string(m.Type),
		Reason:      string(m.Reason),
		Quantity:    m.Quantity,
		OrderID:     m.OrderID,
		Reference:   m.Reference,
		Note:        m.Note,
		CreatedAt:   m.CreatedAt,
	}
}

func buildMovementFilter(r *http.Request) (inventory.MovementFilter, error) {
	var filter inventory.MovementFilter
	for _, q := range []struct {
		key    string
		target *uuid.UUID
	}{
		{"variant_id", &filter.VariantID},
		{"warehouse_id", &filter.WarehouseID},
		{"order_id", &filter.OrderID},
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(q.key))
		if raw == "" {
			continue
		}
		value, err := uuid.Parse(raw)
		if err != nil {
			return inventory.MovementFilter{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+q.key).
				WithDetails(map[string]any{"value": raw})
		}
		*q.target = value
	}
	return filter, nil
}
