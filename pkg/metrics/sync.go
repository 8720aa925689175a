package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics tracks channel-manager push outcomes and queue depth.
type SyncMetrics struct {
	attempts *prometheus.CounterVec
	failures *prometheus.CounterVec
	backlog  prometheus.Gauge
}

// NewSyncMetrics registers sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allotment_sync_attempts",
		Help: "Channel sync push attempts by kind.",
	}, []string{"kind"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allotment_sync_failures",
		Help: "Channel sync push failures by kind.",
	}, []string{"kind"})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allotment_sync_backlog",
		Help: "Pending rows in the sync attempt queue.",
	})
	reg.MustRegister(attempts, failures, backlog)
	return &SyncMetrics{
		attempts: attempts,
		failures: failures,
		backlog:  backlog,
	}
}

// IncAttempt counts one push attempt for the given sync kind.
func (s *SyncMetrics) IncAttempt(kind string) {
	if s == nil || s.attempts == nil {
		return
	}
	s.attempts.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailure counts one failed push for the given sync kind.
func (s *SyncMetrics) IncFailure(kind string) {
	if s == nil || s.failures == nil {
		return
	}
	s.failures.WithLabelValues(normalizeLabel(kind)).Inc()
}

// SetBacklog records the current pending queue depth.
func (s *SyncMetrics) SetBacklog(n int) {
	if s == nil || s.backlog == nil {
		return
	}
	s.backlog.Set(float64(n))
}
