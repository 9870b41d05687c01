package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

// SnapshotSource is satisfied by the spot allocator
type SnapshotSource interface {
	Snapshot() []domain.PoolStatus
}

// OccupancyCollector exposes the allocator's live pool state to Prometheus.
// Values are read at scrape time, so they never drift from the allocator.
type OccupancyCollector struct {
	source    SnapshotSource
	total     *prometheus.Desc
	available *prometheus.Desc
}

// NewOccupancyCollector creates a collector over source
func NewOccupancyCollector(source SnapshotSource) *OccupancyCollector {
	return &OccupancyCollector{
		source: source,
		total: prometheus.NewDesc(
			"parking_spots_total",
			"Configured spots per vehicle category",
			[]string{"vehicle_type"}, nil,
		),
		available: prometheus.NewDesc(
			"parking_spots_available",
			"Free spots per vehicle category",
			[]string{"vehicle_type"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.available
}

// Collect implements prometheus.Collector
func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	for _, p := range c.source.Snapshot() {
		cat := p.Category.String()
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(p.Total), cat)
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(p.Available), cat)
	}
}
