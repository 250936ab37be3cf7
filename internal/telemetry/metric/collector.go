package metric

import "github.com/prometheus/client_golang/prometheus"

// StoreStats is the view of the key-value store read at scrape time.
type StoreStats interface {
	Len() int
	Expiring() int
}

// Collector reports store sizes on every scrape.
type Collector struct {
	stats    StoreStats
	keys     *prometheus.Desc
	expiring *prometheus.Desc
}

// NewCollector creates a collector over stats.
func NewCollector(stats StoreStats) *Collector {
	return &Collector{
		stats: stats,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "keys"),
			"Number of stored keys, including expired keys not yet reaped.",
			nil, nil,
		),
		expiring: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "keys_expiring"),
			"Number of stored keys that carry an expiration.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expiring
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(c.stats.Len()))
	ch <- prometheus.MustNewConstMetric(c.expiring, prometheus.GaugeValue, float64(c.stats.Expiring()))
}
