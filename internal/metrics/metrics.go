package metrics

/*
iocx — fast tool in Go for extracting network indicators from text artifacts
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	registry          = prometheus.NewRegistry()
	defaultRegisterer = promauto.With(registry)
	serverMu          sync.Mutex
	metricsServer     *http.Server
	metricsAddr       string
)

// Metrics contains all the Prometheus metrics for the application
type Metrics struct {
	// Scan metrics
	FilesScanned        *prometheus.CounterVec
	FileErrors          *prometheus.CounterVec
	BytesRead           prometheus.Counter
	IndicatorsExtracted *prometheus.CounterVec
	CandidatesRejected  *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec

	// Worker metrics
	WorkerBusy           *prometheus.GaugeVec
	WorkerProcessed      *prometheus.CounterVec
	WorkerPanics         *prometheus.CounterVec
	QueueBackpressureHit *prometheus.CounterVec
	SubmitRateLimitDelay prometheus.Histogram
}

// Global instance of metrics
var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// Registry exposes the registry the metrics are registered with.
func Registry() *prometheus.Registry { return registry }

func newMetrics() *Metrics {
	buckets := []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

	return &Metrics{
		FilesScanned: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iocx_files_scanned_total",
				Help: "Files processed, by outcome",
			},
			[]string{"status"},
		),
		FileErrors: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iocx_file_errors_total",
				Help: "Per-file failures, by error kind",
			},
			[]string{"error_type"},
		),
		BytesRead: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "iocx_bytes_read_total",
				Help: "Bytes of text content scanned",
			},
		),
		IndicatorsExtracted: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iocx_indicators_extracted_total",
				Help: "Unique indicators reported, summed over files",
			},
			[]string{"kind"},
		),
		CandidatesRejected: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iocx_host_candidates_rejected_total",
				Help: "Host candidates dropped by suffix resolution, by reason",
			},
			[]string{"reason"},
		),
		StageDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iocx_stage_duration_seconds",
				Help:    "Time spent per file in each processing stage",
				Buckets: buckets,
			},
			[]string{"stage"},
		),

		WorkerBusy: defaultRegisterer.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "iocx_worker_busy",
				Help: "Whether a worker is currently busy (1) or idle (0)",
			},
			[]string{"worker_id"},
		),
		WorkerProcessed: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iocx_worker_processed_total",
				Help: "Total number of files processed by a worker",
			},
			[]string{"worker_id"},
		),
		WorkerPanics: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iocx_worker_panics_total",
				Help: "Total number of panics recovered by a worker",
			},
			[]string{"worker_id"},
		),
		QueueBackpressureHit: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iocx_queue_backpressure_hits_total",
				Help: "Number of times a submission found the worker queue full",
			},
			[]string{"worker_id"},
		),
		SubmitRateLimitDelay: defaultRegisterer.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "iocx_submit_rate_limit_delay_seconds",
				Help:    "Time spent waiting on the submission rate limiter",
				Buckets: buckets,
			},
		),
	}
}

// WorkerLabel formats a worker id for use as a label value.
func WorkerLabel(id int) string { return strconv.Itoa(id) }

// StartMetricsServer exposes /metrics on addr. An empty addr is a no-op.
// The listener is bound synchronously so a bad address is reported to the caller.
func StartMetricsServer(addr string, logger zerolog.Logger) error {
	if addr == "" {
		return nil
	}
	GetMetrics()

	serverMu.Lock()
	defer serverMu.Unlock()
	if metricsServer != nil {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsAddr = ln.Addr().String()

	srv := metricsServer
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("Starting metrics server")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// ServerAddr returns the bound address of the running metrics server, or "".
func ServerAddr() string {
	serverMu.Lock()
	defer serverMu.Unlock()
	return metricsAddr
}

// ShutdownMetricsServer gracefully shuts down the metrics server
func ShutdownMetricsServer(ctx context.Context) error {
	serverMu.Lock()
	srv := metricsServer
	metricsServer = nil
	metricsAddr = ""
	serverMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// MeasureDuration starts a timer and returns the function that records it.
func MeasureDuration(histogram *prometheus.HistogramVec, labels prometheus.Labels) func() {
	start := time.Now()
	return func() {
		histogram.With(labels).Observe(time.Since(start).Seconds())
	}
}
