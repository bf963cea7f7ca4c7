// Package metrics exposes Prometheus instrumentation for the trading engine.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mtPilotBot/internal/ports"
)

// Recorder records engine activity as Prometheus metrics.
type Recorder struct {
	ticksTotal      *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	ordersTotal     *prometheus.CounterVec
	closesTotal     *prometheus.CounterVec
	balance         *prometheus.GaugeVec
	openPositions   *prometheus.GaugeVec
	lastConfidence  *prometheus.GaugeVec
	scanDuration    *prometheus.HistogramVec
}

// New creates a Recorder registered on the default registry.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpilotbot_scan_ticks_total",
				Help: "Total number of scan ticks processed",
			},
			[]string{"symbol"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpilotbot_signals_total",
				Help: "Total number of scored signals by action",
			},
			[]string{"symbol", "action"},
		),
		rejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpilotbot_risk_rejections_total",
				Help: "Total number of signals rejected by the risk sizer",
			},
			[]string{"symbol", "reason"},
		),
		ordersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpilotbot_orders_submitted_total",
				Help: "Total number of orders submitted to the broker",
			},
			[]string{"symbol", "action"},
		),
		closesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpilotbot_positions_closed_total",
				Help: "Total number of positions closed by reason",
			},
			[]string{"symbol", "reason"},
		),
		balance: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mtpilotbot_account_balance",
				Help: "Last observed account balance",
			},
			[]string{"symbol"},
		),
		openPositions: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mtpilotbot_open_positions",
				Help: "Number of currently open positions",
			},
			[]string{"symbol"},
		),
		lastConfidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mtpilotbot_last_signal_confidence",
				Help: "Confidence of the most recent non-hold signal",
			},
			[]string{"symbol"},
		),
		scanDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mtpilotbot_scan_duration_seconds",
				Help:    "Duration of a full scan tick in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
	}
}

// RecordTick records one scan loop iteration and its duration.
func (r *Recorder) RecordTick(symbol string, elapsed time.Duration) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
	r.scanDuration.WithLabelValues(symbol).Observe(elapsed.Seconds())
}

// RecordSignal records a scored signal.
func (r *Recorder) RecordSignal(symbol, action string, confidence float64) {
	r.signalsTotal.WithLabelValues(symbol, action).Inc()
	if action != "HOLD" {
		r.lastConfidence.WithLabelValues(symbol).Set(confidence)
	}
}

// RecordRejection records a risk-sizer rejection.
func (r *Recorder) RecordRejection(symbol, reason string) {
	r.rejectionsTotal.WithLabelValues(symbol, reason).Inc()
}

// RecordOrder records a submitted order.
func (r *Recorder) RecordOrder(symbol, action string) {
	r.ordersTotal.WithLabelValues(symbol, action).Inc()
}

// RecordClose records a closed position.
func (r *Recorder) RecordClose(symbol, reason string) {
	r.closesTotal.WithLabelValues(symbol, reason).Inc()
}

// RecordBalance records the current account balance.
func (r *Recorder) RecordBalance(symbol string, balance float64) {
	r.balance.WithLabelValues(symbol).Set(balance)
}

// RecordOpenPositions records the current open position count.
func (r *Recorder) RecordOpenPositions(symbol string, count int) {
	r.openPositions.WithLabelValues(symbol).Set(float64(count))
}

// Serve exposes /metrics on addr until ctx is canceled. It blocks.
func Serve(ctx context.Context, addr string, logger ports.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(context.Background(), "Metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	logger.Info(ctx, "Metrics server listening", map[string]interface{}{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
