// Package monitor runs a periodic probe loop against the deployed inference
// server and exposes its findings over HTTP.
package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llamactl_probe_total",
			Help: "Total number of endpoint probes",
		},
		[]string{"outcome"},
	)

	probeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llamactl_probe_duration_seconds",
			Help:    "Endpoint probe duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	endpointUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "llamactl_endpoint_up",
			Help: "Whether the inference endpoint answered its last health probe",
		},
	)

	readyReplicas = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "llamactl_deployment_ready_replicas",
			Help: "Ready replicas per managed deployment",
		},
		[]string{"deployment"},
	)

	pvcBound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "llamactl_pvc_bound",
			Help: "Whether the model storage claim is bound",
		},
	)
)

// recordProbe updates the probe metrics for a single probe outcome.
func recordProbe(healthy bool, duration time.Duration) {
	outcome := "success"
	up := 1.0
	if !healthy {
		outcome = "failure"
		up = 0.0
	}
	probeTotal.WithLabelValues(outcome).Inc()
	probeDuration.Observe(duration.Seconds())
	endpointUp.Set(up)
}

// recordClusterState updates the gauges derived from cluster status.
func recordClusterState(pvcPhase string, replicas map[string]int32) {
	bound := 0.0
	if pvcPhase == "Bound" {
		bound = 1.0
	}
	pvcBound.Set(bound)

	for deployment, ready := range replicas {
		readyReplicas.WithLabelValues(deployment).Set(float64(ready))
	}
}
