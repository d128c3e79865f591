package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics tracks reservation and fulfillment outcomes.
type LedgerMetrics struct {
	reserveAttempts   *prometheus.CounterVec
	insufficientStock *prometheus.CounterVec
	committedUnits    *prometheus.CounterVec
	releasedHolds     *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	reserveAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_attempts_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})
	insufficientStock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_insufficient_stock_total",
		Help: "Reservations rejected because sellable stock ran out.",
	}, []string{"warehouse"})
	committedUnits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_committed_units_total",
		Help: "Units decremented from on-hand at order commit.",
	}, []string{"warehouse"})
	releasedHolds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_released_total",
		Help: "Reservations released by trigger.",
	}, []string{"trigger"})
	reg.MustRegister(reserveAttempts, insufficientStock, committedUnits, releasedHolds)
	return &LedgerMetrics{
		reserveAttempts:   reserveAttempts,
		insufficientStock: insufficientStock,
		committedUnits:    committedUnits,
		releasedHolds:     releasedHolds,
	}
}

// IncReserveAttempt records a reservation attempt with its outcome label.
func (m *LedgerMetrics) IncReserveAttempt(outcome string) {
	if m == nil || m.reserveAttempts == nil {
		return
	}
	m.reserveAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncInsufficientStock records a stockout rejection for the warehouse.
func (m *LedgerMetrics) IncInsufficientStock(warehouse string) {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.WithLabelValues(normalizeLabel(warehouse)).Inc()
}

// AddCommittedUnits records units removed from on-hand at commit.
func (m *LedgerMetrics) AddCommittedUnits(warehouse string, units int) {
	if m == nil || m.committedUnits == nil || units <= 0 {
		return
	}
	m.committedUnits.WithLabelValues(normalizeLabel(warehouse)).Add(float64(units))
}

// IncReleasedHold records a released reservation by trigger (manual, expiry).
func (m *LedgerMetrics) IncReleasedHold(trigger string) {
	if m == nil || m.releasedHolds == nil {
		return
	}
	m.releasedHolds.WithLabelValues(normalizeLabel(trigger)).Inc()
}
