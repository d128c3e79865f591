package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/harborwell/stockroom-backend/api/responses"
	"github.com/harborwell/stockroom-backend/internal/fulfillment"
	"github.com/harborwell/stockroom-backend/pkg/logger"
	"github.com/harborwell/stockroom-backend/pkg/outbox/payloads"
)

type commitResponse struct {
	OrderID        uuid.UUID                     `json:"order_id"`
	Lines          []payloads.StockCommittedLine `json:"lines"`
	CommittedUnits int                           `json:"committed_units"`
	AlreadyDone    bool                          `json:"already_done"`
}

// CommitOrder burns the order's reserved stock into fulfilled units.
func CommitOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Commit(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commitResponse{
			OrderID:        result.OrderID,
			Lines:          result.Lines,
			CommittedUnits: result.CommittedUnits,
			AlreadyDone:    result.AlreadyDone,
		})
	}
}
