// Package metrics exposes reconciliation counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notegraph"

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	Polls             *prometheus.CounterVec
	RebuildDuration   prometheus.Histogram
	DeltaOperations   *prometheus.CounterVec
	TransportFailures *prometheus.CounterVec
	GraphNodes        prometheus.Gauge
	UndoDepth         prometheus.Gauge
	RedoDepth         prometheus.Gauge
}

// NewCollector creates a collector with its own registry, so tests and multiple
// sessions never collide on registration.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by outcome",
		}, []string{"outcome"}),
		RebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Time spent rebuilding the graph from a listing",
			Buckets:   prometheus.DefBuckets,
		}),
		DeltaOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delta_operations_total",
			Help:      "Delta operations dispatched to subscribers",
		}, []string{"kind", "source"}),
		TransportFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_failures_total",
			Help:      "Failed vault reads and writes",
		}, []string{"op"}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the current graph",
		}),
		UndoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "undo_depth",
			Help:      "Snapshots on the undo stack",
		}),
		RedoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redo_depth",
			Help:      "Snapshots on the redo stack",
		}),
	}

	c.registry.MustRegister(
		c.Polls,
		c.RebuildDuration,
		c.DeltaOperations,
		c.TransportFailures,
		c.GraphNodes,
		c.UndoDepth,
		c.RedoDepth,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordPoll(outcome string) {
	if c == nil {
		return
	}
	c.Polls.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveRebuild(d time.Duration) {
	if c == nil {
		return
	}
	c.RebuildDuration.Observe(d.Seconds())
}

// RecordDelta counts dispatched operations. source names what produced them,
// e.g. "poll", "local", "undo".
func (c *Collector) RecordDelta(source string, upserts, deletes int) {
	if c == nil {
		return
	}
	if upserts > 0 {
		c.DeltaOperations.WithLabelValues("upsert", source).Add(float64(upserts))
	}
	if deletes > 0 {
		c.DeltaOperations.WithLabelValues("delete", source).Add(float64(deletes))
	}
}

func (c *Collector) RecordTransportFailure(op string) {
	if c == nil {
		return
	}
	c.TransportFailures.WithLabelValues(op).Inc()
}

// SetState records the graph size and history depths after a transition
func (c *Collector) SetState(nodes, undo, redo int) {
	if c == nil {
		return
	}
	c.GraphNodes.Set(float64(nodes))
	c.UndoDepth.Set(float64(undo))
	c.RedoDepth.Set(float64(redo))
}
