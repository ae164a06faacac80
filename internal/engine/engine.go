// Package engine is the idempotent position-lifecycle manager. One RunCycle
// invocation reconciles persisted state against venue truth, advances the
// Idle → PendingOrder → Open state machine, and only when idle runs the
// signal → pricing → sizing entry flow. The engine never self-schedules;
// an external trigger drives it, one invocation at a time per series.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"strikebot/internal/config"
	"strikebot/internal/learn"
	"strikebot/internal/metrics"
	"strikebot/internal/model"
	"strikebot/internal/signal"
	"strikebot/internal/store"
	"strikebot/internal/venue"
)

// Cycle actions reported to the trigger.
const (
	ActionDisabled         = "disabled"
	ActionDataError        = "data_error"
	ActionNoData           = "no_data"
	ActionDailyLimit       = "daily_limit"
	ActionPendingOrder     = "pending_order"
	ActionCooldown         = "cooldown"
	ActionNoSignal         = "no_signal"
	ActionNoMarkets        = "no_markets"
	ActionNoEdge           = "no_edge"
	ActionInsufficientEdge = "insufficient_edge"
	ActionDepthGate        = "depth_gate"
	ActionVolumeGate       = "volume_gate"
	ActionATRGate          = "atr_gate"
	ActionPaperBuy         = "paper_buy"
	ActionOrderPlaced      = "order_placed"
	ActionHolding          = "holding"
	ActionTakeProfit       = "take_profit"
	ActionStopLoss         = "stop_loss"
	ActionTrailingStop     = "trailing_stop"
)

// Exit reasons recorded on closed trades.
const (
	reasonTakeProfit = "TAKE_PROFIT"
	reasonLockIn     = "LOCK_IN"
	reasonTrailing   = "TRAILING_STOP"
	reasonCollapse   = "COLLAPSE"
	reasonSettled    = "SETTLED"
	reasonExternal   = "EXTERNAL_CLOSE"
)

// historyLimit bounds the shared closed-trade history.
const historyLimit = 100

// CycleResult is what one trigger invocation returns.
type CycleResult struct {
	Action string   `json:"action"`
	Ticker string   `json:"ticker,omitempty"`
	Logs   []string `json:"log"`
}

// MarketData is the candle and depth source boundary.
type MarketData interface {
	Candles(ctx context.Context, granularity string, limit int) ([]model.Candle, error)
	OrderBookRatio(ctx context.Context, levels int) (model.OrderBookSnapshot, error)
}

// Journal receives every closed trade for offline analysis.
type Journal interface {
	Record(model.ClosedTrade)
}

// Notifier pushes trade events to an external channel.
type Notifier interface {
	OrderPlaced(ticker string, side model.Side, priceCents, count int)
	TradeClosed(trade model.ClosedTrade)
}

// Engine wires the collaborators together. All state lives in the store;
// the struct itself holds only dependencies and is safe to reuse across
// cycles as long as invocations do not overlap.
type Engine struct {
	cfg      config.Trading
	mdCfg    config.MarketData
	md       MarketData
	venue    venue.API
	store    store.Store
	sigCfg   signal.Config
	baseline learn.Baseline
	journal  Journal
	notifier Notifier
	log      zerolog.Logger

	now       func() time.Time
	spot      func() (float64, bool)
	flow      func() int
	newID     func() string
	bookDepth int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithSpotSource plugs in the live trade stream's last price.
func WithSpotSource(spot func() (float64, bool)) Option {
	return func(e *Engine) { e.spot = spot }
}

// WithFlowSource plugs in the order-flow bias used by bracket pricing.
func WithFlowSource(flow func() int) Option { return func(e *Engine) { e.flow = flow } }

// WithJournal attaches a closed-trade journal.
func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

// WithNotifier attaches a trade notifier.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithSignalConfig overrides indicator thresholds.
func WithSignalConfig(cfg signal.Config) Option { return func(e *Engine) { e.sigCfg = cfg } }

// WithBookDepth sets how many contract book levels to request.
func WithBookDepth(depth int) Option { return func(e *Engine) { e.bookDepth = depth } }

// New builds an engine for one series.
func New(cfg config.Trading, mdCfg config.MarketData, md MarketData, v venue.API, st store.Store, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		mdCfg:    mdCfg,
		md:       md,
		venue:    v,
		store:    st,
		sigCfg:   signal.DefaultConfig(),
		baseline: learn.DefaultBaseline(),
		log:      log.With().Str("series", cfg.Series).Logger(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },

		bookDepth: 10,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logf(res *CycleResult, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	res.Logs = append(res.Logs, msg)
	e.log.Info().Msg(msg)
}

// RunCycle executes one full cycle. It is idempotent: state is loaded once
// at the start, venue truth is re-derived rather than assumed, and the
// whole state document set is written back once at the end. Fatal errors
// (store unavailable) propagate; data fetch failures degrade to a graceful
// abort with no state mutated beyond what reconciliation established.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	res := CycleResult{Logs: []string{}}
	if !e.cfg.Enabled {
		res.Action = ActionDisabled
		metrics.CyclesTotal.WithLabelValues(res.Action).Inc()
		return res, nil
	}

	st, err := e.loadState(ctx)
	if err != nil {
		return res, fmt.Errorf("load state: %w", err)
	}
	e.rollover(&st, &res)

	if e.cfg.Simulated {
		e.settleSimulated(ctx, &st, &res)
	} else {
		e.reconcile(ctx, &st, &res)
	}

	switch {
	case st.PendingOrder != nil:
		res.Action = e.handlePending(ctx, &st, &res)
	case st.Position != nil:
		res.Action = e.manageOpen(ctx, &st, &res)
	default:
		res.Action = e.tryEnter(ctx, &st, &res)
	}

	if st.Position != nil {
		res.Ticker = st.Position.Ticker
		metrics.OpenPosition.Set(1)
	} else {
		metrics.OpenPosition.Set(0)
		if st.PendingOrder != nil {
			res.Ticker = st.PendingOrder.Ticker
		}
	}
	metrics.DailyPnLCents.Set(float64(st.Daily.PnLCents))
	metrics.CyclesTotal.WithLabelValues(res.Action).Inc()

	if err := e.saveState(ctx, st); err != nil {
		return res, fmt.Errorf("save state: %w", err)
	}
	return res, nil
}

// rollover resets daily stats at the UTC date boundary.
func (e *Engine) rollover(st *model.EngineState, res *CycleResult) {
	today := e.now().UTC().Format("2006-01-02")
	if st.Daily.Date == today {
		return
	}
	if st.Daily.Date != "" {
		e.logf(res, "new trading day; yesterday: %d trades, %d wins, %d losses, pnl %d cents",
			st.Daily.Trades, st.Daily.Wins, st.Daily.Losses, st.Daily.PnLCents)
	}
	st.Daily = model.DailyStats{Date: today}
}

// closeTrade records a finished trade: history, daily stats, learning,
// journal, notification. The caller clears or shrinks the position.
func (e *Engine) closeTrade(st *model.EngineState, res *CycleResult, pos model.Position, exitCents, count int, result model.TradeResult, reason string) {
	pnl := (exitCents - pos.EntryCents) * count
	trade := model.ClosedTrade{
		Ticker:     pos.Ticker,
		Side:       pos.Side,
		EntryCents: pos.EntryCents,
		ExitCents:  exitCents,
		Count:      count,
		Result:     result,
		Reason:     reason,
		PnLCents:   pnl,
		Signal:     pos.Signal,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   e.now().UTC(),
	}

	st.History = append(st.History, trade)
	if len(st.History) > historyLimit {
		st.History = st.History[len(st.History)-historyLimit:]
	}

	st.Daily.PnLCents += pnl
	switch result {
	case model.ResultWin:
		st.Daily.Wins++
	case model.ResultTakeProf:
		st.Daily.TakeProfits++
	default:
		st.Daily.Losses++
	}

	st.Learned = learn.Recompute(st.History, e.baseline)
	metrics.LearningRunsTotal.Inc()
	metrics.ExitsTotal.WithLabelValues(reason).Inc()

	if e.journal != nil {
		e.journal.Record(trade)
	}
	if e.notifier != nil {
		e.notifier.TradeClosed(trade)
	}
	e.logf(res, "closed %s %s: %s (%s), entry %d exit %d x%d, pnl %d cents",
		pos.Ticker, pos.Side, result, reason, pos.EntryCents, exitCents, count, pnl)
}
