package stats

// collector.go
import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "csp"

// Collector отдаёт Snapshot в Prometheus; значения читаются в момент скрапа.
type Collector struct {
	stats *Stats

	requests     *prometheus.Desc
	violations   *prometheus.Desc
	latencySum   *prometheus.Desc
	nonces       *prometheus.Desc
	cacheLookups *prometheus.Desc
	policyUpdate *prometheus.Desc
	uptime       *prometheus.Desc
}

func NewCollector(s *Stats) *Collector {
	return &Collector{
		stats: s,
		requests: prometheus.NewDesc(namespace+"_requests_total",
			"Requests that passed through the CSP middleware.", nil, nil),
		violations: prometheus.NewDesc(namespace+"_violations_total",
			"Accepted CSP violation reports.", nil, nil),
		latencySum: prometheus.NewDesc(namespace+"_request_latency_seconds_total",
			"Cumulative request latency.", nil, nil),
		nonces: prometheus.NewDesc(namespace+"_nonces_generated_total",
			"Nonces drawn from the secure random source.", nil, nil),
		cacheLookups: prometheus.NewDesc(namespace+"_nonce_cache_lookups_total",
			"Nonce cache lookups by result.", []string{"result"}, nil),
		policyUpdate: prometheus.NewDesc(namespace+"_policy_updates_total",
			"Policy replacements applied at runtime.", nil, nil),
		uptime: prometheus.NewDesc(namespace+"_uptime_seconds",
			"Seconds since the counters were started or reset.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.violations
	ch <- c.latencySum
	ch <- c.nonces
	ch <- c.cacheLookups
	ch <- c.policyUpdate
	ch <- c.uptime
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(s.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.violations, prometheus.CounterValue, float64(s.TotalViolations))
	ch <- prometheus.MustNewConstMetric(c.latencySum, prometheus.CounterValue, s.CumulativeLatency.Seconds())
	ch <- prometheus.MustNewConstMetric(c.nonces, prometheus.CounterValue, float64(s.NoncesGenerated))
	ch <- prometheus.MustNewConstMetric(c.cacheLookups, prometheus.CounterValue, float64(s.CacheHits), "hit")
	ch <- prometheus.MustNewConstMetric(c.cacheLookups, prometheus.CounterValue, float64(s.CacheMisses), "miss")
	ch <- prometheus.MustNewConstMetric(c.policyUpdate, prometheus.CounterValue, float64(s.PolicyUpdates))
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, s.Uptime.Seconds())
}
