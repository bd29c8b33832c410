// Package metrics provides Prometheus metrics for the radar pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "p2pradar_cycles_total",
		Help: "Completed poll cycles.",
	})
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "p2pradar_cycle_duration_seconds",
		Help:    "Wall time of one poll cycle.",
		Buckets: prometheus.DefBuckets,
	})
	SourceAds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "p2pradar_source_ads",
		Help: "Ads returned by a source in the latest cycle.",
	}, []string{"venue", "side"})
	SourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "p2pradar_source_errors_total",
		Help: "Source fetches degraded to an empty contribution.",
	}, []string{"venue", "side"})
	AdsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "p2pradar_ads_dropped_total",
		Help: "Malformed listing entries dropped during normalization.",
	})
	TradesInferred = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "p2pradar_trades_inferred_total",
		Help: "Trade events synthesized from inventory deltas.",
	}, []string{"venue", "direction"})
	TradeVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "p2pradar_trade_volume_total",
		Help: "Total inferred trade volume in asset units.",
	}, []string{"venue", "direction"})
	MedianPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "p2pradar_median_price",
		Help: "Latest aggregated median price in quote units per asset.",
	})
	SampleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "p2pradar_price_samples",
		Help: "Prices inside the sanity band in the latest cycle.",
	})
	Premium = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "p2pradar_premium_percent",
		Help: "Median premium over the official reference rate.",
	})
	LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "p2pradar_ledger_events",
		Help: "Trade events currently retained in the ledger.",
	})
)

// StartMetricsServer exposes /metrics on addr.
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
