package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "strikebot_cycles_total", Help: "Trade cycles run, by resulting action"},
		[]string{"action"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "strikebot_orders_total", Help: "Orders submitted to the venue"},
		[]string{"side", "mode"},
	)
	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "strikebot_exits_total", Help: "Position exits, by reason"},
		[]string{"reason"},
	)
	LearningRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "strikebot_learning_runs_total", Help: "Learning recomputations triggered by closed trades"},
	)
	DailyPnLCents = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "strikebot_daily_pnl_cents", Help: "Realized P&L for the current UTC day in cents"},
	)
	OpenPosition = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "strikebot_open_position", Help: "1 when a position is open, 0 otherwise"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, OrdersTotal, ExitsTotal, LearningRunsTotal, DailyPnLCents, OpenPosition)
}
