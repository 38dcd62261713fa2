// Package prom exports fleet metrics to Prometheus.
//
// Usage:
//
//	fleet, _ := worksteal.Start(4)
//	prometheus.MustRegister(prom.NewCollector(fleet))
//	http.Handle("/metrics", promhttp.Handler())
package prom
