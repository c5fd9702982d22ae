package lockstat

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	acquisitionsDesc = prometheus.NewDesc(
		"lockit_mutex_acquisitions_total",
		"Lifetime count of lock sessions (recursion depth 0->1 transitions).",
		[]string{"name"}, nil,
	)
	contentionsDesc = prometheus.NewDesc(
		"lockit_mutex_contentions_total",
		"Lifetime count of Lock calls that had to block.",
		[]string{"name"}, nil,
	)
	recursionUsedDesc = prometheus.NewDesc(
		"lockit_mutex_recursion_used",
		"1 once the mutex has been held recursively, 0 before.",
		[]string{"name"}, nil,
	)
)

// Collector exports the diagnostic counters of every mutex in a registry.
// It implements prometheus.Collector.
type Collector struct {
	reg *Registry
}

// NewCollector returns a collector over reg. A nil reg means the package
// default registry.
func NewCollector(reg *Registry) *Collector {
	if reg == nil {
		reg = defaultRegistry
	}
	return &Collector{reg: reg}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- acquisitionsDesc
	ch <- contentionsDesc
	ch <- recursionUsedDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, nl := range c.reg.snapshot() {
		ch <- prometheus.MustNewConstMetric(
			acquisitionsDesc, prometheus.CounterValue,
			float64(nl.m.AcquisitionCount()), nl.name)
		ch <- prometheus.MustNewConstMetric(
			contentionsDesc, prometheus.CounterValue,
			float64(nl.m.ContentionCount()), nl.name)
		used := 0.0
		if nl.m.RecursionUsed() {
			used = 1
		}
		ch <- prometheus.MustNewConstMetric(
			recursionUsedDesc, prometheus.GaugeValue, used, nl.name)
	}
}
