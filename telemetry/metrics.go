// Package telemetry provides the carrier core's metrics ambient stack:
// counters, gauges, and averagers registered against a caller-supplied
// prometheus.Registerer, with a no-op fallback when none is supplied. No
// package in this module reads or writes a global registry.
package telemetry

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter is a monotonically increasing instrument.
type Counter interface{ Add(float64) }

// Gauge is a point-in-time instrument.
type Gauge interface{ Set(float64) }

// Averager tracks a running mean, matching the teacher's metrics.Averager.
type Averager interface {
	Observe(value float64)
	Read() float64
}

type noCounter struct{}

func (noCounter) Add(float64) {}

type noGauge struct{}

func (noGauge) Set(float64) {}

type noAverager struct{}

func (noAverager) Observe(float64) {}
func (noAverager) Read() float64   { return 0 }

// Registry wraps a prometheus.Registerer (nil-safe) and names every
// instrument with a "sterling_" prefix, the way the teacher's metrics
// package names averagers from a caller-supplied name/help pair.
type Registry struct {
	reg prometheus.Registerer
}

// New wraps reg. A nil reg yields an all-no-op Registry.
func New(reg prometheus.Registerer) *Registry {
	return &Registry{reg: reg}
}

// Counter registers (or returns a no-op for) a named counter.
func (r *Registry) Counter(name, help string) Counter {
	if r == nil || r.reg == nil {
		return noCounter{}
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sterling_" + name,
		Help: help,
	})
	if err := r.reg.Register(c); err != nil {
		return noCounter{}
	}
	return c
}

// Gauge registers (or returns a no-op for) a named gauge.
func (r *Registry) Gauge(name, help string) Gauge {
	if r == nil || r.reg == nil {
		return noGauge{}
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sterling_" + name,
		Help: help,
	})
	if err := r.reg.Register(g); err != nil {
		return noGauge{}
	}
	return g
}

// Averager registers a count+sum pair and returns an Averager view over
// them, mirroring the teacher's metrics.NewAverager (two prometheus
// instruments behind one read/observe API).
func (r *Registry) Averager(name, help string) Averager {
	if r == nil || r.reg == nil {
		return noAverager{}
	}
	a := &averager{
		promCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("sterling_%s_count", name),
			Help: "Total # of observations of " + help,
		}),
		promSum: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("sterling_%s_sum", name),
			Help: "Sum of " + help,
		}),
	}
	if err := r.reg.Register(a.promCount); err != nil {
		return noAverager{}
	}
	if err := r.reg.Register(a.promSum); err != nil {
		return noAverager{}
	}
	return a
}

type averager struct {
	mu        sync.Mutex
	sum       float64
	count     float64
	promCount prometheus.Counter
	promSum   prometheus.Gauge
}

func (a *averager) Observe(value float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sum += value
	a.count++
	a.promCount.Inc()
	a.promSum.Set(a.sum)
}

func (a *averager) Read() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / a.count
}
