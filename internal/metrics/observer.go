// Package metrics exports driver events as Prometheus metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/koustreak/priam/internal/database/cassandra"
	"github.com/koustreak/priam/internal/errs"
)

const namespace = "priam"

// Observer implements cassandra.Emitter on top of a Prometheus registry.
type Observer struct {
	poolEvents    *prometheus.CounterVec
	openPools     prometheus.Gauge
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	clientLogs    *prometheus.CounterVec

	mu   sync.Mutex
	open map[string]struct{}
}

var _ cassandra.Emitter = (*Observer)(nil)

// NewObserver registers the driver metrics with reg. A nil reg uses the
// default registry.
func NewObserver(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Observer{
		poolEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pool_events_total",
				Help:      "Connection pool lifecycle events",
			},
			[]string{"keyspace", "event"},
		),
		openPools: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_pools",
			Help:      "Connection pools currently ready",
		}),
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Executed statements by outcome",
			},
			[]string{"keyspace", "outcome"},
		),
		queryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Statement execution latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"keyspace"},
		),
		clientLogs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_log_messages_total",
				Help:      "Log lines reported by the cluster client",
			},
			[]string{"level"},
		),
		open: make(map[string]struct{}),
	}
}

// Emit records e.
func (o *Observer) Emit(e cassandra.Event) {
	switch e.Name {
	case cassandra.EventConnectionOpening, cassandra.EventConnectionFailed:
		o.poolEvents.WithLabelValues(e.Keyspace, string(e.Name)).Inc()
	case cassandra.EventConnectionOpened:
		o.poolEvents.WithLabelValues(e.Keyspace, string(e.Name)).Inc()
		o.mu.Lock()
		if _, ok := o.open[e.RequestID]; !ok {
			o.open[e.RequestID] = struct{}{}
			o.openPools.Inc()
		}
		o.mu.Unlock()
	case cassandra.EventConnectionClosed:
		o.poolEvents.WithLabelValues(e.Keyspace, string(e.Name)).Inc()
		o.mu.Lock()
		if _, ok := o.open[e.RequestID]; ok {
			delete(o.open, e.RequestID)
			o.openPools.Dec()
		}
		o.mu.Unlock()
	case cassandra.EventConnectionLogged:
		o.clientLogs.WithLabelValues(e.Level).Inc()
	case cassandra.EventQueryExecuted:
		outcome := "ok"
		if e.Err != nil {
			outcome = errs.Name(e.Err)
		}
		o.queries.WithLabelValues(e.Keyspace, outcome).Inc()
		o.queryDuration.WithLabelValues(e.Keyspace).Observe(e.Duration.Seconds())
	}
}
