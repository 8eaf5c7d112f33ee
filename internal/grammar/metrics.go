package grammar

import "github.com/prometheus/client_golang/prometheus"

// Metrics records grammar discovery and loading activity.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	loads     *prometheus.CounterVec
	discovery *prometheus.CounterVec
	custom    prometheus.Gauge
}

// NewMetrics builds Metrics and registers them with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsyntax",
			Subsystem: "grammar",
			Name:      "requests_total",
			Help:      "Grammar requests by how they were answered.",
		}, []string{"result"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsyntax",
			Subsystem: "grammar",
			Name:      "loads_total",
			Help:      "Grammar fetch attempts by tier and outcome.",
		}, []string{"tier", "outcome"}),
		discovery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsyntax",
			Subsystem: "grammar",
			Name:      "discovery_total",
			Help:      "Custom grammar discovery runs by the method that succeeded.",
		}, []string{"method"}),
		custom: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docsyntax",
			Subsystem: "grammar",
			Name:      "custom_grammars",
			Help:      "Number of custom grammars found by discovery.",
		}),
	}
	reg.MustRegister(m.requests, m.loads, m.discovery, m.custom)
	return m
}

// Values for the "result" label of requests_total.
const (
	requestLoaded  = "loaded"  // already loaded
	requestBuiltin = "builtin" // engine had the grammar
	requestFailed  = "failed"  // earlier failure reused
	requestLoad    = "load"    // started or joined a load
)

func (m *Metrics) request(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}

func (m *Metrics) load(tier Tier, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.loads.WithLabelValues(tier.String(), outcome).Inc()
}

func (m *Metrics) discovered(method string, n int) {
	if m == nil {
		return
	}
	m.discovery.WithLabelValues(method).Inc()
	m.custom.Set(float64(n))
}
