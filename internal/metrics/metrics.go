// Package metrics exposes gallery scans, status polls and HTTP traffic to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several servers can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	scansTotal      *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	skippedSidecars prometheus.Counter
	artworks        prometheus.Gauge

	pollsTotal   *prometheus.CounterVec
	pollDuration prometheus.Histogram

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Collector{
		registry: reg,
		scansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gallery_scans_total",
			Help:      "Gallery directory scans by result",
		}, []string{"result"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gallery_scan_duration_seconds",
			Help:      "Time spent scanning the gallery tree",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		skippedSidecars: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gallery_skipped_sidecars_total",
			Help:      "Sidecar files skipped because they could not be read or parsed",
		}),
		artworks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gallery_artworks",
			Help:      "Artworks found by the last successful scan",
		}),
		pollsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_polls_total",
			Help:      "Status document fetches by result",
		}, []string{"result"}),
		pollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_poll_duration_seconds",
			Help:      "Status document fetch latency",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ScanFinished implements gallery.Observer.
func (c *Collector) ScanFinished(records, skipped int, took time.Duration, err error) {
	c.scanDuration.Observe(took.Seconds())
	if err != nil {
		c.scansTotal.WithLabelValues("error").Inc()
		return
	}
	c.scansTotal.WithLabelValues("ok").Inc()
	c.skippedSidecars.Add(float64(skipped))
	c.artworks.Set(float64(records))
}

// PollFinished implements status.Observer.
func (c *Collector) PollFinished(took time.Duration, err error) {
	c.pollDuration.Observe(took.Seconds())
	if err != nil {
		c.pollsTotal.WithLabelValues("error").Inc()
		return
	}
	c.pollsTotal.WithLabelValues("ok").Inc()
}

// RecordHTTPRequest records one served request. route is the matched pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, status int, took time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }
