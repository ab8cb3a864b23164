package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestedItems counts catalog rows actually written.
	IngestedItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinevault_catalog_items_ingested_total",
		Help: "Number of new catalog items written by the ingestion pipeline",
	})

	// DuplicateEvents counts redelivered media events skipped by dedup.
	DuplicateEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinevault_ingest_duplicates_total",
		Help: "Number of ingestion events skipped because the content key was already known",
	})

	// Deliveries counts forward attempts by outcome.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinevault_deliveries_total",
		Help: "Number of file delivery attempts",
	}, []string{"outcome"})

	// Retractions counts sweeper delete attempts by outcome.
	Retractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinevault_retractions_total",
		Help: "Number of scheduled retraction attempts",
	}, []string{"outcome"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinevault_http_requests_total",
		Help: "Total HTTP requests served",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinevault_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Middleware records request counts and latencies. The chi route pattern is
// used as the path label so slugs do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
