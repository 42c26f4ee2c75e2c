package monitor

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ocp-llama/llamactl/pkg/kubernetes"
	"github.com/ocp-llama/llamactl/pkg/smoketest"
)

// DefaultProbeInterval is how often the endpoint and cluster are probed.
const DefaultProbeInterval = 30 * time.Second

// StatusReader reads back the state of the managed cluster resources.
type StatusReader interface {
	Status(ctx context.Context) (*kubernetes.ClusterStatus, error)
}

// probeState is the last observation, served on /status.
type probeState struct {
	Healthy     bool                      `json:"healthy"`
	LastProbe   time.Time                 `json:"last_probe"`
	LastError   string                    `json:"last_error,omitempty"`
	ProbeTimeMS int64                     `json:"probe_time_ms"`
	Cluster     *kubernetes.ClusterStatus `json:"cluster,omitempty"`
}

// Monitor probes the inference endpoint and the cluster on a fixed interval
// and serves /healthz, /status and /metrics.
type Monitor struct {
	client   *smoketest.Client
	status   StatusReader
	interval time.Duration
	port     string

	mu   sync.RWMutex
	last probeState
}

// New creates a Monitor. status may be nil when running endpoint-only.
func New(client *smoketest.Client, status StatusReader, interval time.Duration, port string) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Monitor{
		client:   client,
		status:   status,
		interval: interval,
		port:     port,
	}
}

// Start runs the probe loop and blocks serving HTTP until the listener fails
// or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	go m.runProbeLoop(ctx)

	router := m.buildRouter()
	server := &http.Server{
		Addr:    ":" + m.port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Monitor listening on :%s (probe interval %s)", m.port, m.interval)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (m *Monitor) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", m.statusHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// statusHandler serves the last probe observation.
func (m *Monitor) statusHandler(c *gin.Context) {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()

	code := http.StatusOK
	if !last.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, last)
}

func (m *Monitor) runProbeLoop(ctx context.Context) {
	// Probe once up front so /status has data before the first tick.
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Stopping probe loop")
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// probe performs one health probe plus a cluster status read.
func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	start := time.Now()
	err := m.client.Health(probeCtx)
	duration := time.Since(start)

	state := probeState{
		Healthy:     err == nil,
		LastProbe:   start,
		ProbeTimeMS: duration.Milliseconds(),
	}
	if err != nil {
		state.LastError = err.Error()
		log.Printf("Endpoint probe failed: %v", err)
	}
	recordProbe(err == nil, duration)

	if m.status != nil {
		cluster, statusErr := m.status.Status(probeCtx)
		if statusErr != nil {
			log.Printf("Cluster status read failed: %v", statusErr)
		} else {
			state.Cluster = cluster
			replicas := make(map[string]int32, len(cluster.Variants))
			for _, v := range cluster.Variants {
				replicas[v.Name] = v.ReadyReplicas
			}
			recordClusterState(cluster.PVCPhase, replicas)
		}
	}

	m.mu.Lock()
	m.last = state
	m.mu.Unlock()
}
