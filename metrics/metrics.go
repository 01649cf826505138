// Package metrics exports delay queue counters to Prometheus.
//
// A Collector reads Stats from each registered queue at scrape time, so the
// queue itself never touches Prometheus types:
//
//	q, _ := delayqueue.New[Job](64, delayqueue.WithName("jobs"))
//	registry := prometheus.NewRegistry()
//	registry.MustRegister(metrics.NewCollector(q))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xyhelper/delayqueue"
)

// Source is anything that can report queue stats. *delayqueue.Queue[T]
// satisfies it for every T.
type Source interface {
	Stats() delayqueue.Stats
}

// Collector is a prometheus.Collector over one or more queues.
type Collector struct {
	sources  []Source
	items    *prometheus.Desc
	due      *prometheus.Desc
	capacity *prometheus.Desc
	pushed   *prometheus.Desc
	popped   *prometheus.Desc
	canceled *prometheus.Desc
	released *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reporting on the given queues, labelled by
// queue name. Panics if a source is nil.
func NewCollector(sources ...Source) *Collector {
	for _, s := range sources {
		if s == nil {
			panic("metrics: nil source")
		}
	}
	labels := []string{"queue"}
	return &Collector{
		sources:  sources,
		items:    prometheus.NewDesc("delayqueue_items", "Number of items currently queued, due or not", labels, nil),
		due:      prometheus.NewDesc("delayqueue_items_due", "Number of queued items whose delay has elapsed", labels, nil),
		capacity: prometheus.NewDesc("delayqueue_capacity", "Fixed capacity of the queue", labels, nil),
		pushed:   prometheus.NewDesc("delayqueue_pushed_total", "Items appended", labels, nil),
		popped:   prometheus.NewDesc("delayqueue_popped_total", "Items delivered", labels, nil),
		canceled: prometheus.NewDesc("delayqueue_pop_cancelled_total", "Pop waits abandoned through their context", labels, nil),
		released: prometheus.NewDesc("delayqueue_reservations_released_total", "Reservations handed back by abandoned pop waits", labels, nil),
	}
}

// Describe sends metric descriptors to the channel
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.items
	ch <- c.due
	ch <- c.capacity
	ch <- c.pushed
	ch <- c.popped
	ch <- c.canceled
	ch <- c.released
}

// Collect snapshots every queue and sends its metrics to the channel
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.sources {
		st := s.Stats()
		ch <- prometheus.MustNewConstMetric(c.items, prometheus.GaugeValue, float64(st.Len), st.Name)
		ch <- prometheus.MustNewConstMetric(c.due, prometheus.GaugeValue, float64(st.Due), st.Name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(st.Cap), st.Name)
		ch <- prometheus.MustNewConstMetric(c.pushed, prometheus.CounterValue, float64(st.Pushed), st.Name)
		ch <- prometheus.MustNewConstMetric(c.popped, prometheus.CounterValue, float64(st.Popped), st.Name)
		ch <- prometheus.MustNewConstMetric(c.canceled, prometheus.CounterValue, float64(st.Canceled), st.Name)
		ch <- prometheus.MustNewConstMetric(c.released, prometheus.CounterValue, float64(st.Released), st.Name)
	}
}
