// Package profile exposes per-node forward timing as Prometheus metrics.
package profile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ForwardProfiler records the duration of each node's forward computation
// in a histogram labeled by node name and operator type.
type ForwardProfiler struct {
	forward *prometheus.HistogramVec
}

// NewForwardProfiler builds a profiler and registers its collectors with
// reg. Pass prometheus.DefaultRegisterer for the usual global registry.
func NewForwardProfiler(reg prometheus.Registerer) (*ForwardProfiler, error) {
	p := &ForwardProfiler{
		forward: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lattice",
			Name:      "forward_duration_seconds",
			Help:      "Wall time of one node's forward computation.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"node", "type"}),
	}
	if err := reg.Register(p.forward); err != nil {
		return nil, err
	}
	return p, nil
}

// ObserveForward records one node forward duration.
func (p *ForwardProfiler) ObserveForward(node, typeTag string, d time.Duration) {
	p.forward.WithLabelValues(node, typeTag).Observe(d.Seconds())
}
