package solr

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records Solr round trips. A nil *Metrics records nothing.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	siblingQueries  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg, if given
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solr_request_duration_seconds",
			Help:    "Duration of Solr HTTP requests by servlet and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"servlet", "outcome"}),
		siblingQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solr_sibling_queries_total",
			Help: "Number of extra Solr queries issued to compute sibling facets.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.requestDuration, m.siblingQueries)
	}

	return m
}

func (m *Metrics) observeRequest(servlet, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.requestDuration.WithLabelValues(servlet, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) countSiblingQuery() {
	if m == nil {
		return
	}

	m.siblingQueries.Inc()
}
