package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kulunbot", Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kulunbot", Name: "handler_errors_total", Help: "Handler errors",
	})
	SyncRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kulunbot", Name: "mirror_sync_rows_total", Help: "Rows written during mirror sync",
	}, []string{"table"})
	SyncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kulunbot", Name: "mirror_sync_seconds", Help: "Mirror sync duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kulunbot", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, SyncRows, SyncDuration, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveSync(op string, d time.Duration) { SyncDuration.WithLabelValues(op).Observe(d.Seconds()) }
