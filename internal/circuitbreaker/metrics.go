package circuitbreaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skateai_circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name", "service"},
	)

	breakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skateai_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "service", "state", "result"},
	)

	breakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skateai_circuit_breaker_state_changes_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "service", "from_state", "to_state"},
	)
)

// Collector tracks registered breakers and exports their state.
type Collector struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	services map[string]string
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		breakers: make(map[string]*Breaker),
		services: make(map[string]string),
	}
}

// Register adds a breaker to the collector and hooks its state transitions.
func (c *Collector) Register(name, service string, b *Breaker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.breakers[name] = b
	c.services[name] = service

	prev := b.config.OnStateChange
	b.config.OnStateChange = func(n string, from, to State) {
		if prev != nil {
			prev(n, from, to)
		}
		breakerStateChanges.WithLabelValues(name, service, from.String(), to.String()).Inc()
		breakerState.WithLabelValues(name, service).Set(float64(to))
	}
}

// RecordRequest records one admitted or rejected request.
func (c *Collector) RecordRequest(name, service string, state State, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	breakerRequests.WithLabelValues(name, service, state.String(), result).Inc()
}

// sync exports the current state of every registered breaker.
func (c *Collector) sync() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, b := range c.breakers {
		breakerState.WithLabelValues(name, c.services[name]).Set(float64(b.State()))
	}
}

// DefaultCollector is the process-wide collector used by the wrappers.
var DefaultCollector = NewCollector()

// StartMetricsCollection periodically exports breaker state gauges.
func StartMetricsCollection() {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			DefaultCollector.sync()
		}
	}()
}
