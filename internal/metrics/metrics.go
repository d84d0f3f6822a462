// Package metrics exposes Prometheus instrumentation for the trading loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sagebot_cycles_total", Help: "Completed trading cycles"},
	)
	BuysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sagebot_buys_total", Help: "Successful buy orders"},
		[]string{"symbol"},
	)
	SellsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sagebot_sells_total", Help: "Successful sell orders"},
		[]string{"symbol", "outcome"},
	)
	OrderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sagebot_order_failures_total", Help: "Failed or refused orders"},
		[]string{"side"},
	)
	ScanErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sagebot_scan_errors_total", Help: "Failed market snapshot fetches"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "sagebot_open_positions", Help: "Currently open positions"},
	)
	WalletBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "sagebot_wallet_balance", Help: "Simulated wallet balance in quote currency"},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		BuysTotal,
		SellsTotal,
		OrderFailuresTotal,
		ScanErrorsTotal,
		OpenPositions,
		WalletBalance,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
