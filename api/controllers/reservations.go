package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborwell/stockroom-backend/api/responses"
	"github.com/harborwell/stockroom-backend/api/validators"
	"github.com/harborwell/stockroom-backend/internal/reservation"
	"github.com/harborwell/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/harborwell/stockroom-backend/pkg/errors"
	"github.com/harborwell/stockroom-backend/pkg/logger"
)

type reserveRequest struct {
	VariantID   uuid.UUID `json:"variant_id" validate:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	CartLineID  uuid.UUID `json:"cart_line_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
}

type releaseRequest struct {
	CartLineID uuid.UUID `json:"cart_line_id"`
}

type repointRequest struct {
	CartLineID  uuid.UUID `json:"cart_line_id" validate:"required"`
	OrderLineID uuid.UUID `json:"order_line_id" validate:"required"`
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
}

type reservationResponse struct {
	ID          uuid.UUID  `json:"id"`
	VariantID   uuid.UUID  `json:"variant_id"`
	WarehouseID uuid.UUID  `json:"warehouse_id"`
	Quantity    int        `json:"quantity"`
	Status      string     `json:"status"`
	CartLineID  *uuid.UUID `json:"cart_line_id,omitempty"`
	OrderLineID *uuid.UUID `json:"order_line_id,omitempty"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toReservationResponse(r *models.StockReservation) reservationResponse {
	return reservationResponse{
		ID:          r.ID,
		VariantID:   r.VariantID,
		WarehouseID: r.WarehouseID,
		Quantity:    r.Quantity,
		Status:      string(r.Status),
		CartLineID:  r.CartLineID,
		OrderLineID: r.OrderLineID,
		OrderID:     r.OrderID,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}
}

// Reserve places or resizes a cart line hold.
func Reserve(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		held, err := svc.Reserve(r.Context(), reservation.ReserveInput{
			VariantID:   req.VariantID,
			WarehouseID: req.WarehouseID,
			CartLineID:  req.CartLineID,
			Quantity:    req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toReservationResponse(held))
	}
}

// Release returns a hold to the sellable pool, addressed by reservation id.
func Release(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, err := parseUUIDParam(r, "reservationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		released, err := svc.Release(r.Context(), reservation.ReleaseInput{
			ReservationID: reservationID,
			Trigger:       reservation.TriggerAbandoned,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if released == nil {
			// nothing held anymore; releasing stays idempotent
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, toReservationResponse(released))
	}
}

// ReleaseByCartLine covers storefronts that only know the cart line.
func ReleaseByCartLine(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req releaseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.CartLineID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "cart_line_id is required"))
			return
		}

		released, err := svc.Release(r.Context(), reservation.ReleaseInput{
			CartLineID: req.CartLineID,
			Trigger:    reservation.TriggerAbandoned,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if released == nil {
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, toReservationResponse(released))
	}
}

// Repoint moves a cart hold onto an order line at checkout.
func Repoint(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req repointRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		repointed, err := svc.Repoint(r.Context(), reservation.RepointInput{
			CartLineID:  req.CartLineID,
			OrderLineID: req.OrderLineID,
			OrderID:     req.OrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if repointed == nil {
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, toReservationResponse(repointed))
	}
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	value, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).
			WithDetails(map[string]any{"value": raw})
	}
	return value, nil
}
