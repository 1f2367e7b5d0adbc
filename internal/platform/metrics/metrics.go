// Package metrics provides Prometheus instrumentation for the ledger engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportedRecords counts aggregator records by import outcome
	// (accepted, duplicate, settled, failed).
	ImportedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_import_records_total",
		Help: "Aggregator records processed by the importer, by outcome",
	}, []string{"outcome"})

	// AccountSyncs counts per-account sync runs by result.
	AccountSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_account_syncs_total",
		Help: "Linked account syncs, by result",
	}, []string{"result"})

	// SyncDuration tracks how long one account sync takes end to end.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "finledger_account_sync_duration_seconds",
		Help:    "Duration of a single account sync in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// PriceLookups counts price oracle calls by source and result.
	PriceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_price_lookups_total",
		Help: "Price feed lookups, by source and result",
	}, []string{"source", "result"})

	// PriceFallbacks counts trades valued at the trade price because no quote was available.
	PriceFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finledger_price_fallbacks_total",
		Help: "Trades valued at their own price after a failed quote lookup",
	})

	// TradesTotal counts recorded trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_trades_total",
		Help: "Total number of trades recorded",
	}, []string{"side"})

	// PositionsRefreshed counts positions revalued by the refresher.
	PositionsRefreshed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finledger_positions_refreshed_total",
		Help: "Positions revalued with a fresh quote",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finledger_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics. The route template is used as the path
// label to keep cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
