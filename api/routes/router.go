package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborwell/stockroom-backend/api/controllers"
	"github.com/harborwell/stockroom-backend/api/middleware"
	"github.com/harborwell/stockroom-backend/internal/fulfillment"
	"github.com/harborwell/stockroom-backend/internal/inventory"
	"github.com/harborwell/stockroom-backend/internal/reservation"
	"github.com/harborwell/stockroom-backend/pkg/config"
	"github.com/harborwell/stockroom-backend/pkg/logger"
	pkgredis "github.com/harborwell/stockroom-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Readiness pingers
// are optional; a nil entry is skipped by the probe.
type Dependencies struct {
	Config       *config.Config
	Logger       *logger.Logger
	Idempotency  pkgredis.IdempotencyStore
	Reservations reservation.Service
	Inventory    inventory.Service
	Fulfillment  fulfillment.Service
	Readiness    map[string]controllers.Pinger
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.Reserve(deps.Reservations, logg))
			r.Post("/release", controllers.ReleaseByCartLine(deps.Reservations, logg))
			r.Post("/repoint", controllers.Repoint(deps.Reservations, logg))
			r.Post("/{reservationID}/release", controllers.Release(deps.Reservations, logg))
		})

		r.Post("/orders/{orderID}/commit", controllers.CommitOrder(deps.Fulfillment, logg))

		r.Post("/adjustments", controllers.Adjust(deps.Inventory, logg))
		r.Get("/variants/{variantID}/availability", controllers.Availability(deps.Inventory, logg))
		r.Get("/movements", controllers.Movements(deps.Inventory, logg))
	})

	return r
}
