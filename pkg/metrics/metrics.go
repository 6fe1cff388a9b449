// Package metrics counts requests, retries and fetch progress on a private
// Prometheus registry. Runs are short lived, so the registry is flushed to a
// node-exporter textfile instead of being scraped.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "threadscraper"

// Collector owns the registry and every metric the fetcher records
type Collector struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	retries          *prometheus.CounterVec
	chunks           *prometheus.CounterVec
	commentsRecorded *prometheus.CounterVec
	checkpoints      prometheus.Counter
	queueDepth       prometheus.Gauge
	threads          *prometheus.CounterVec
}

// New creates a collector registered on a fresh registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by endpoint and status class",
		}, []string{"endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "retries_total",
			Help:      "Retried requests by endpoint and error type",
		}, []string{"endpoint", "error_type"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "chunks_total",
			Help:      "Continuation chunks by thread and outcome",
		}, []string{"label", "outcome"}),
		commentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "comments_recorded_total",
			Help:      "New comments added to the accumulator",
		}, []string{"label"}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "checkpoints_saved_total",
			Help:      "Checkpoint snapshots written",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "queue_depth",
			Help:      "Pending expansion batches",
		}),
		threads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "threads_total",
			Help:      "Threads handled by the batch runner by outcome",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(
		c.requests,
		c.requestDuration,
		c.retries,
		c.chunks,
		c.commentsRecorded,
		c.checkpoints,
		c.queueDepth,
		c.threads,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRequest records one HTTP attempt. Status 0 means a transport failure.
func (c *Collector) ObserveRequest(endpoint string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(endpoint, StatusClass(statusCode)).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveRetry records a retry decision
func (c *Collector) ObserveRetry(endpoint string, errorType string) {
	c.retries.WithLabelValues(endpoint, errorType).Inc()
}

// ChunkProcessed counts a successful continuation chunk
func (c *Collector) ChunkProcessed(label string) {
	c.chunks.WithLabelValues(label, "ok").Inc()
}

// ChunkFailed counts a continuation chunk that yielded no data
func (c *Collector) ChunkFailed(label string) {
	c.chunks.WithLabelValues(label, "failed").Inc()
}

// CommentsRecorded adds n new comments for label
func (c *Collector) CommentsRecorded(label string, n int) {
	if n > 0 {
		c.commentsRecorded.WithLabelValues(label).Add(float64(n))
	}
}

// CheckpointSaved counts a checkpoint write
func (c *Collector) CheckpointSaved() {
	c.checkpoints.Inc()
}

// SetQueueDepth reports the number of pending batches
func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}

// ThreadFinished counts a runner outcome: done, failed or skipped
func (c *Collector) ThreadFinished(outcome string) {
	c.threads.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the registry in text exposition format. The parent
// directory is created when missing.
func (c *Collector) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// StatusClass buckets a status code as "2xx", "4xx" and so on
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}
