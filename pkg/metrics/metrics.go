// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wattledger",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wattledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wattledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	readings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wattledger",
			Subsystem: "ledger",
			Name:      "readings_total",
			Help:      "Total number of verified readings submitted.",
		},
		[]string{"status"},
	)

	rewardMints = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wattledger",
			Subsystem: "ledger",
			Name:      "reward_mints_total",
			Help:      "Total number of readings that crossed the mint threshold.",
		},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wattledger",
			Subsystem: "market",
			Name:      "settlements_total",
			Help:      "Total number of attempted marketplace settlements.",
		},
		[]string{"method", "status"},
	)

	journalFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wattledger",
			Subsystem: "journal",
			Name:      "write_failures_total",
			Help:      "Total number of journal writes that failed after commit.",
		},
	)

	ingestMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wattledger",
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Total number of queue messages processed by the ingest consumer.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		readings,
		rewardMints,
		settlements,
		journalFailures,
		ingestMessages,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordReading counts a submitted reading and whether it minted a reward.
func RecordReading(err error, minted bool) {
	status := "applied"
	if err != nil {
		status = "rejected"
	}
	readings.WithLabelValues(status).Inc()
	if err == nil && minted {
		rewardMints.Inc()
	}
}

// RecordSettlement counts an attempted settlement by method.
func RecordSettlement(method string, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	settlements.WithLabelValues(method, status).Inc()
}

// RecordJournalFailure counts a journal write that failed after the
// ledger state committed.
func RecordJournalFailure() {
	journalFailures.Inc()
}

// RecordIngestMessage counts a processed queue message by outcome.
func RecordIngestMessage(status string) {
	ingestMessages.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack keeps websocket upgrades working behind the instrumentation.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// canonicalPath collapses identifiers so label cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "v1" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/v1"
	}
	switch parts[1] {
	case "devices":
		if len(parts) > 2 {
			return "/v1/devices/:id"
		}
		return "/v1/devices"
	case "wallets":
		if len(parts) > 3 {
			return "/v1/wallets/:addr/" + parts[3]
		}
		if len(parts) > 2 {
			return "/v1/wallets/:addr"
		}
		return "/v1/wallets"
	case "market":
		if len(parts) < 3 {
			return "/v1/market"
		}
		resource := "/v1/market/" + parts[2]
		if len(parts) > 4 {
			return resource + "/:id/" + parts[4]
		}
		if len(parts) > 3 {
			return resource + "/:id"
		}
		return resource
	default:
		if len(parts) > 2 {
			return "/v1/" + parts[1] + "/" + parts[2]
		}
		return "/v1/" + parts[1]
	}
}
