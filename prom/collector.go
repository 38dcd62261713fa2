package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/everyday-items/worksteal"
)

const namespace = "worksteal"

// Collector exposes a fleet's counters as Prometheus metrics. It reads
// the fleet's atomic counters at scrape time; registering it adds no
// overhead to the scheduling hot path.
type Collector struct {
	fleet *worksteal.Fleet

	submitted   *prometheus.Desc
	spawned     *prometheus.Desc
	executed    *prometheus.Desc
	stolen      *prometheus.Desc
	stealMisses *prometheus.Desc
	waits       *prometheus.Desc
	panics      *prometheus.Desc
	workers     *prometheus.Desc
}

// NewCollector creates a collector for the given fleet. All series carry
// a fleet_id label so multiple fleets can share one registry.
func NewCollector(f *worksteal.Fleet) *Collector {
	labels := prometheus.Labels{"fleet_id": f.ID()}
	return &Collector{
		fleet: f,
		submitted: prometheus.NewDesc(
			namespace+"_tasks_submitted_total",
			"Root tasks placed on deques",
			nil, labels,
		),
		spawned: prometheus.NewDesc(
			namespace+"_tasks_spawned_total",
			"Child tasks linked and published",
			nil, labels,
		),
		executed: prometheus.NewDesc(
			namespace+"_tasks_executed_total",
			"Payloads run to completion, including panics",
			nil, labels,
		),
		stolen: prometheus.NewDesc(
			namespace+"_steals_total",
			"Successful steals from another worker",
			nil, labels,
		),
		stealMisses: prometheus.NewDesc(
			namespace+"_steal_misses_total",
			"Steal attempts that found nothing or lost the CAS",
			nil, labels,
		),
		waits: prometheus.NewDesc(
			namespace+"_waits_total",
			"Cooperative waits that had to spin",
			nil, labels,
		),
		panics: prometheus.NewDesc(
			namespace+"_panics_total",
			"Payloads that panicked",
			nil, labels,
		),
		workers: prometheus.NewDesc(
			namespace+"_workers",
			"Number of workers in the fleet",
			nil, labels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submitted
	ch <- c.spawned
	ch <- c.executed
	ch <- c.stolen
	ch <- c.stealMisses
	ch <- c.waits
	ch <- c.panics
	ch <- c.workers
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.fleet.Metrics()
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(s.Submitted))
	ch <- prometheus.MustNewConstMetric(c.spawned, prometheus.CounterValue, float64(s.Spawned))
	ch <- prometheus.MustNewConstMetric(c.executed, prometheus.CounterValue, float64(s.Executed))
	ch <- prometheus.MustNewConstMetric(c.stolen, prometheus.CounterValue, float64(s.Stolen))
	ch <- prometheus.MustNewConstMetric(c.stealMisses, prometheus.CounterValue, float64(s.StealMisses))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(s.Waits))
	ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(s.Panics))
	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(c.fleet.Size()))
}
