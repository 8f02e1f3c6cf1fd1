package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineCollector exposes scheduling-engine Prometheus metrics. It satisfies
// the booking package's Recorder interface.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	RecomputeDuration  *prometheus.HistogramVec
	SlotsCreatedTotal  prometheus.Counter
	SlotsRetiredTotal  prometheus.Counter
	AvailabilitySlots  prometheus.Gauge
	CompatibilityPairs prometheus.Gauge
}

// NewEngineCollector registers engine metrics against the provided registerer.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	recompute := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_recompute_duration_seconds",
		Help:    "Duration of availability recomputations, labeled by ground station.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"groundstation"})
	recompute, err := registerHistogramVec(reg, recompute, "engine_recompute_duration_seconds")
	if err != nil {
		return nil, err
	}

	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_operational_slots_created_total",
		Help: "Cumulative number of operational slots created from simulated passes.",
	})
	created, err = registerCounter(reg, created, "engine_operational_slots_created_total")
	if err != nil {
		return nil, err
	}

	retired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_operational_slots_retired_total",
		Help: "Cumulative number of operational slots forced to REMOVED.",
	})
	retired, err = registerCounter(reg, retired, "engine_operational_slots_retired_total")
	if err != nil {
		return nil, err
	}

	availability := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_availability_slots",
		Help: "Current number of availability slots in storage.",
	})
	availability, err = registerGauge(reg, availability, "engine_availability_slots")
	if err != nil {
		return nil, err
	}

	pairs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_compatibility_pairs",
		Help: "Current number of compatible channel pairs in storage.",
	})
	pairs, err = registerGauge(reg, pairs, "engine_compatibility_pairs")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:           gatherer,
		RecomputeDuration:  recompute,
		SlotsCreatedTotal:  created,
		SlotsRetiredTotal:  retired,
		AvailabilitySlots:  availability,
		CompatibilityPairs: pairs,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RecomputeObserved records one availability recomputation duration.
func (c *EngineCollector) RecomputeObserved(groundStationID string, d time.Duration) {
	if c == nil || c.RecomputeDuration == nil {
		return
	}
	c.RecomputeDuration.WithLabelValues(groundStationID).Observe(d.Seconds())
}

// SlotsCreated adds to the creation counter.
func (c *EngineCollector) SlotsCreated(n int) {
	if c == nil || c.SlotsCreatedTotal == nil || n <= 0 {
		return
	}
	c.SlotsCreatedTotal.Add(float64(n))
}

// SlotsRetired adds to the retirement counter.
func (c *EngineCollector) SlotsRetired(n int) {
	if c == nil || c.SlotsRetiredTotal == nil || n <= 0 {
		return
	}
	c.SlotsRetiredTotal.Add(float64(n))
}

// SetInventory updates the availability and pair gauges.
func (c *EngineCollector) SetInventory(availabilitySlots, compatibilityPairs int) {
	if c == nil {
		return
	}
	if c.AvailabilitySlots != nil {
		c.AvailabilitySlots.Set(float64(availabilitySlots))
	}
	if c.CompatibilityPairs != nil {
		c.CompatibilityPairs.Set(float64(compatibilityPairs))
	}
}
