package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	duration        prometheus.Histogram
	rateLimited     prometheus.Counter
	aggregations    *prometheus.CounterVec
	aggregatedLines prometheus.Counter
	cacheLookups    *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hrperf_http_requests_total",
				Help: "HTTP requests by status code",
			},
			[]string{"code"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hrperf_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hrperf_http_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		aggregations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hrperf_aggregations_total",
				Help: "Evaluation aggregations by outcome",
			},
			[]string{"outcome"},
		),
		aggregatedLines: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hrperf_aggregated_lines_total",
				Help: "Evaluation lines overridden by aggregation",
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hrperf_dashboard_cache_lookups_total",
				Help: "Dashboard cache lookups by result",
			},
			[]string{"result"},
		),
	}
	c.registry.MustRegister(
		c.requests,
		c.duration,
		c.rateLimited,
		c.aggregations,
		c.aggregatedLines,
		c.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	c.duration.Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) RecordAggregation(aggregated bool, lines int) {
	outcome := "skipped"
	if aggregated {
		outcome = "aggregated"
	}
	c.aggregations.WithLabelValues(outcome).Inc()
	c.aggregatedLines.Add(float64(lines))
}

func (c *Collector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
