package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics records ledger activity.
type InventoryMetrics struct {
	units    *prometheus.CounterVec
	batches  *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewInventoryMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repairdesk",
		Name:      "inventory_units_total",
		Help:      "Stock units moved by the inventory ledger.",
	}, []string{"direction"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repairdesk",
		Name:      "inventory_batches_total",
		Help:      "Ledger batches applied.",
	}, []string{"outcome"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repairdesk",
		Name:      "inventory_shortages_total",
		Help:      "Reservation lines rejected for insufficient stock.",
	}, []string{"product_id"})
	reg.MustRegister(units, batches, rejected)
	return &InventoryMetrics{
		units:    units,
		batches:  batches,
		rejected: rejected,
	}
}

// AddReserved counts units taken out of stock.
func (m *InventoryMetrics) AddReserved(units int) {
	if m == nil || m.units == nil || units <= 0 {
		return
	}
	m.units.WithLabelValues("reserve").Add(float64(units))
}

// AddReleased counts units returned to stock.
func (m *InventoryMetrics) AddReleased(units int) {
	if m == nil || m.units == nil || units <= 0 {
		return
	}
	m.units.WithLabelValues("release").Add(float64(units))
}

// IncBatch counts an applied or rejected batch.
func (m *InventoryMetrics) IncBatch(ok bool) {
	if m == nil || m.batches == nil {
		return
	}
	outcome := "applied"
	if !ok {
		outcome = "rejected"
	}
	m.batches.WithLabelValues(outcome).Inc()
}

// IncShortage counts a rejected reservation line.
func (m *InventoryMetrics) IncShortage(productID int64) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(strconv.FormatInt(productID, 10)).Inc()
}
