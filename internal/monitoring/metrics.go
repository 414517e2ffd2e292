package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertrader_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"coin", "side", "reason"},
	)

	tradeValue = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powertrader_trade_value_usd",
			Help:    "Distribution of trade values in USD",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"coin"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "powertrader_current_price",
			Help: "Latest observed price per coin",
		},
		[]string{"coin"},
	)

	// Signal metrics
	signalLevel = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "powertrader_signal_level",
			Help: "Signal level per coin and side (0-7)",
		},
		[]string{"coin", "side"},
	)

	profitMargin = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "powertrader_profit_margin_pct",
			Help: "Aggregated profit margin hint per coin and side",
		},
		[]string{"coin", "side"},
	)

	// Account metrics
	accountValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "powertrader_account_value_usd",
			Help: "Total account value in USD",
		},
	)

	// Exchange call latency
	venueLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powertrader_venue_call_seconds",
			Help:    "Latency of exchange API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue", "call"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertrader_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeValue)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(signalLevel)
	prometheus.MustRegister(profitMargin)
	prometheus.MustRegister(accountValue)
	prometheus.MustRegister(venueLatency)
	prometheus.MustRegister(errorsTotal)
}

// RecordTrade records an executed trade.
func RecordTrade(coin, side, reason string, valueUSD float64) {
	tradesTotal.WithLabelValues(coin, side, reason).Inc()
	tradeValue.WithLabelValues(coin).Observe(valueUSD)
}

// UpdatePrice updates the latest price gauge.
func UpdatePrice(coin string, price float64) {
	currentPrice.WithLabelValues(coin).Set(price)
}

// UpdateSignal updates the signal level and margin gauges for a coin.
func UpdateSignal(coin string, longLevel, shortLevel int, longPM, shortPM float64) {
	signalLevel.WithLabelValues(coin, "long").Set(float64(longLevel))
	signalLevel.WithLabelValues(coin, "short").Set(float64(shortLevel))
	profitMargin.WithLabelValues(coin, "long").Set(longPM)
	profitMargin.WithLabelValues(coin, "short").Set(shortPM)
}

// UpdateAccountValue updates the account value gauge.
func UpdateAccountValue(valueUSD float64) {
	accountValue.Set(valueUSD)
}

// ObserveVenueCall records the latency of one exchange API call.
func ObserveVenueCall(venue, call string, seconds float64) {
	venueLatency.WithLabelValues(venue, call).Observe(seconds)
}

// RecordError records an error by type.
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

// Serve exposes /metrics and /health on addr in a background
// goroutine. An empty addr disables the listener.
func Serve(addr string, health *HealthChecker) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if health != nil {
		mux.Handle("/health", health)
	}
	go http.ListenAndServe(addr, mux)
}
