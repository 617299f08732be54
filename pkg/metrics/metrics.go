package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var SharesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "burnshare_shares_created_total",
	Help: "Shares created, by content type",
}, []string{"content_type"})

var SharesRetrieved = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "burnshare_shares_retrieved_total",
	Help: "Successful single-shot retrievals, by credential kind",
}, []string{"via"})

var RetrievalMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "burnshare_retrieval_misses_total",
	Help: "Retrievals answered with not found, used or expired",
})

var CredentialConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "burnshare_credential_conflicts_total",
	Help: "Passcode or slug collisions retried at creation",
})

var SweepRemoved = promauto.NewCounter(prometheus.CounterOpts{
	Name: "burnshare_sweep_removed_total",
	Help: "Expired shares removed by the sweep",
})

var OrphanedBlobs = promauto.NewCounter(prometheus.CounterOpts{
	Name: "burnshare_orphaned_blobs_total",
	Help: "Blobs left behind because their delete failed",
})

var latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "burnshare_http_latency_seconds",
	Help:    "Request latency",
	Buckets: prometheus.ExponentialBucketsRange(.005, 30, 20),
}, []string{"route", "status_code"})

var responseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "burnshare_http_bytes_returned",
	Help:    "Bytes returned",
	Buckets: prometheus.ExponentialBucketsRange(100, 400_000_000, 20),
}, []string{"route"})

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		latency.WithLabelValues(route, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
		responseSize.WithLabelValues(route).Observe(float64(ww.BytesWritten()))
	})
}
