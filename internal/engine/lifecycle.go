package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"strikebot/internal/metrics"
	"strikebot/internal/model"
	"strikebot/internal/pricing"
	"strikebot/internal/venue"
)

// reconcile aligns tracked state with venue truth before any decision runs.
// The venue position list is authoritative for existence and count; the
// fills history is authoritative for recovered entry prices. Fetch failures
// skip reconciliation rather than guessing.
func (e *Engine) reconcile(ctx context.Context, st *model.EngineState, res *CycleResult) {
	positions, err := e.venue.OpenPositions(ctx)
	if err != nil {
		e.logf(res, "reconcile skipped, positions unavailable: %v", err)
		return
	}
	byTicker := make(map[string]venue.Position, len(positions))
	for _, p := range positions {
		byTicker[p.Ticker] = p
	}

	if st.Position != nil {
		vp, held := byTicker[st.Position.Ticker]
		if !held {
			e.settleTracked(ctx, st, res)
			return
		}
		if (st.Position.Side == model.SideYes) != (vp.NetCount > 0) {
			e.logf(res, "venue net holding on %s sits on the opposite side, closing tracked position", vp.Ticker)
			e.closeFlipped(ctx, st, res)
			return
		}
		count := vp.NetCount
		if count < 0 {
			count = -count
		}
		if count != st.Position.Count {
			e.logf(res, "venue reports %d contracts on %s, adjusting from %d",
				count, st.Position.Ticker, st.Position.Count)
			st.Position.Count = count
		}
		return
	}
	if st.PendingOrder != nil {
		return
	}

	for _, vp := range positions {
		if !strings.HasPrefix(vp.Ticker, e.cfg.Series) {
			continue
		}
		if e.adoptOrphan(ctx, st, res, vp) {
			return
		}
	}
}

// settleTracked closes a tracked position the venue no longer holds. The
// settlements feed decides win or loss; until it reports, the position is
// kept and retried.
func (e *Engine) settleTracked(ctx context.Context, st *model.EngineState, res *CycleResult) {
	pos := *st.Position
	settlements, err := e.venue.Settlements(ctx, 100)
	if err != nil {
		e.logf(res, "position %s gone at venue, settlements unavailable, keeping: %v", pos.Ticker, err)
		return
	}
	result := ""
	for _, s := range settlements {
		if s.Ticker == pos.Ticker {
			result = s.Result
			break
		}
	}
	if result == "" {
		e.logf(res, "position %s gone at venue but not settled yet, keeping", pos.Ticker)
		return
	}

	exitCents := 0
	outcome := model.ResultLoss
	if result == string(pos.Side) {
		exitCents = 100
		outcome = model.ResultWin
	}
	e.closeTrade(st, res, pos, exitCents, pos.Count, outcome, reasonSettled)
	st.Position = nil
}

// closeFlipped resolves a tracked position whose venue net holding moved to
// the opposite side, meaning the tracked contracts were sold outside this
// process. The sell fills recover the exit price; without them the position
// is kept and retried. The flipped holding itself is adopted as an orphan on
// a later cycle.
func (e *Engine) closeFlipped(ctx context.Context, st *model.EngineState, res *CycleResult) {
	pos := *st.Position
	fills, err := e.venue.Fills(ctx, pos.Ticker)
	if err != nil {
		e.logf(res, "position %s flipped at venue, fills unavailable, keeping: %v", pos.Ticker, err)
		return
	}
	var proceeds, sold int
	for _, f := range fills {
		if f.Action == venue.ActionSell && f.Side == pos.Side && f.Count > 0 {
			proceeds += f.PriceCents * f.Count
			sold += f.Count
		}
	}
	if sold == 0 {
		e.logf(res, "position %s flipped at venue with no sell fills, keeping", pos.Ticker)
		return
	}
	exit := proceeds / sold

	outcome := model.ResultLoss
	if exit >= pos.EntryCents {
		outcome = model.ResultWin
	}
	e.closeTrade(st, res, pos, exit, pos.Count, outcome, reasonExternal)
	st.Position = nil
}

// adoptOrphan takes over a venue position nothing tracks, so exits and
// settlement handling keep working after a crash between placement and
// persistence. Entry price averages the buy fills; without fills the
// position stays unadopted and is retried next cycle.
func (e *Engine) adoptOrphan(ctx context.Context, st *model.EngineState, res *CycleResult, vp venue.Position) bool {
	side := model.SideYes
	count := vp.NetCount
	if count < 0 {
		side = model.SideNo
		count = -count
	}

	fills, err := e.venue.Fills(ctx, vp.Ticker)
	if err != nil {
		e.logf(res, "untracked position %s, fills unavailable: %v", vp.Ticker, err)
		return false
	}
	var cost, bought int
	for _, f := range fills {
		if f.Action == venue.ActionBuy && f.Side == side && f.Count > 0 {
			cost += f.PriceCents * f.Count
			bought += f.Count
		}
	}
	if bought == 0 {
		e.logf(res, "untracked position %s has no buy fills, cannot recover entry", vp.Ticker)
		return false
	}
	entry := cost / bought

	var closeTime time.Time
	if m, err := e.venue.MarketSnapshot(ctx, vp.Ticker); err == nil {
		closeTime = m.CloseTime
	}
	st.Position = &model.Position{
		Ticker:       vp.Ticker,
		Side:         side,
		EntryCents:   entry,
		Count:        count,
		OpenedAt:     e.now().UTC(),
		CloseTime:    closeTime,
		PeakBidCents: entry,
		Recovered:    true,
		Signal:       model.Signal{Direction: model.DirectionNeutral},
	}
	e.logf(res, "adopted untracked position %s %s x%d at avg %d cents", vp.Ticker, side, count, entry)
	return true
}

// settleSimulated resolves a paper position once its market has closed,
// comparing spot against the parsed strike. Binary contracts without a
// strike fall back to the last quoted bid.
func (e *Engine) settleSimulated(ctx context.Context, st *model.EngineState, res *CycleResult) {
	pos := st.Position
	if pos == nil || pos.CloseTime.IsZero() || e.now().Before(pos.CloseTime) {
		return
	}

	won, resolved := false, false
	if strike, err := pricing.ParseStrike(pos.Ticker); err == nil {
		if spot, ok := e.spotPrice(ctx); ok {
			won = (pos.Side == model.SideYes) == (spot >= strike)
			resolved = true
		}
	}
	if !resolved {
		if m, err := e.venue.MarketSnapshot(ctx, pos.Ticker); err == nil {
			won = m.BidFor(pos.Side) >= 50
			resolved = true
		}
	}
	if !resolved {
		e.logf(res, "paper position %s past close, settlement unresolved, keeping", pos.Ticker)
		return
	}

	exitCents := 0
	outcome := model.ResultLoss
	if won {
		exitCents = 100
		outcome = model.ResultWin
	}
	e.closeTrade(st, res, *pos, exitCents, pos.Count, outcome, reasonSettled)
	st.Position = nil
}

// handlePending polls the resting entry order. Fills promote to a position;
// a timeout cancels, then trusts the final status so a cancel racing a fill
// never loses contracts.
func (e *Engine) handlePending(ctx context.Context, st *model.EngineState, res *CycleResult) string {
	po := st.PendingOrder

	state, err := e.venue.OrderStatus(ctx, po.OrderID)
	if err != nil {
		e.logf(res, "pending order %s status unavailable, retrying next cycle: %v", po.OrderID, err)
		return ActionPendingOrder
	}

	switch {
	case state.FillCount > 0 && (state.Status == venue.StatusExecuted || state.FillCount >= po.Count):
		e.promotePending(st, res, state.FillCount)
		return ActionHolding
	case state.Status == venue.StatusCanceled:
		e.logf(res, "pending order %s canceled at venue", po.OrderID)
		st.PendingOrder = nil
		return ActionPendingOrder
	}

	if e.now().Sub(po.PlacedAt) >= e.cfg.PendingTimeout {
		if err := e.venue.CancelOrder(ctx, po.OrderID); err != nil {
			e.logf(res, "pending order %s cancel failed, keeping: %v", po.OrderID, err)
			return ActionPendingOrder
		}
		final, err := e.venue.OrderStatus(ctx, po.OrderID)
		if err == nil && final.FillCount > 0 {
			e.promotePending(st, res, final.FillCount)
			return ActionHolding
		}
		e.logf(res, "pending order %s timed out after %s, canceled", po.OrderID, e.cfg.PendingTimeout)
		st.PendingOrder = nil
		return ActionPendingOrder
	}

	e.logf(res, "pending order %s resting at %d cents x%d", po.OrderID, po.LimitCents, po.Count)
	return ActionPendingOrder
}

// promotePending converts a filled entry order into the open position.
func (e *Engine) promotePending(st *model.EngineState, res *CycleResult, fillCount int) {
	po := st.PendingOrder
	count := fillCount
	if count <= 0 || count > po.Count {
		count = po.Count
	}
	st.Position = &model.Position{
		Ticker:       po.Ticker,
		Side:         po.Side,
		EntryCents:   po.LimitCents,
		Count:        count,
		OpenedAt:     e.now().UTC(),
		CloseTime:    po.CloseTime,
		PeakBidCents: po.LimitCents,
		Signal:       po.Signal,
	}
	st.PendingOrder = nil
	e.logf(res, "entry filled: %s %s x%d at %d cents", po.Ticker, po.Side, count, po.LimitCents)
}

// manageOpen re-evaluates the exit rules against the live bid. When no rule
// fires the position is simply held; no rule ever re-enters.
func (e *Engine) manageOpen(ctx context.Context, st *model.EngineState, res *CycleResult) string {
	pos := st.Position

	bid, ok := e.positionBid(ctx, res, pos)
	if !ok {
		return ActionHolding
	}
	if bid > pos.PeakBidCents {
		pos.PeakBidCents = bid
	}

	minsLeft := math.Inf(1)
	if !pos.CloseTime.IsZero() {
		minsLeft = pos.CloseTime.Sub(e.now()).Minutes()
	}

	reason, outcome, action := e.exitDecision(pos, bid, minsLeft)
	if reason == "" {
		e.logf(res, "holding %s %s: bid %d, entry %d, peak %d",
			pos.Ticker, pos.Side, bid, pos.EntryCents, pos.PeakBidCents)
		return ActionHolding
	}
	return e.exitPosition(ctx, st, res, bid, reason, outcome, action)
}

// exitDecision applies the exit rules in priority order: hard take-profit,
// pre-close lock-in, trailing stop while still profitable, bid collapse,
// then the time-tiered loss gate.
func (e *Engine) exitDecision(pos *model.Position, bid int, minsLeft float64) (string, model.TradeResult, string) {
	profit := bid - pos.EntryCents

	if bid >= e.cfg.TakeProfitBidCents || profit >= e.cfg.TakeProfitGainCents {
		return reasonTakeProfit, model.ResultTakeProf, ActionTakeProfit
	}
	if minsLeft <= float64(e.cfg.LockInMinutes) && profit >= e.cfg.LockInGainCents {
		return reasonLockIn, model.ResultTakeProf, ActionTakeProfit
	}
	if profit > 0 && pos.PeakBidCents-bid >= e.cfg.TrailingStopCents {
		return reasonTrailing, model.ResultTakeProf, ActionTrailingStop
	}
	if bid <= e.cfg.CollapseBidCents {
		return reasonCollapse, model.ResultLoss, ActionStopLoss
	}
	if profit < 0 && pos.EntryCents > 0 {
		gate := lossGate(minsLeft)
		lossRatio := float64(-profit) / float64(pos.EntryCents)
		if lossRatio >= gate {
			return fmt.Sprintf("LOSS_GATE_%d", int(math.Round(gate*100))), model.ResultLoss, ActionStopLoss
		}
	}
	return "", "", ""
}

// lossGate widens as the close approaches: early losses get room to mean-
// revert, late losses do not.
func lossGate(minsLeft float64) float64 {
	switch {
	case minsLeft >= 30:
		return 0.65
	case minsLeft >= 15:
		return 0.55
	default:
		return 0.50
	}
}

// positionBid resolves the sellable bid for the held side, preferring the
// contract book and falling back to the market snapshot.
func (e *Engine) positionBid(ctx context.Context, res *CycleResult, pos *model.Position) (int, bool) {
	book, err := e.venue.OrderBook(ctx, pos.Ticker, e.bookDepth)
	if err == nil {
		if bid, _, ok := book.BestBid(pos.Side); ok && bid > 0 {
			return bid, true
		}
	} else {
		e.logf(res, "order book unavailable for %s: %v", pos.Ticker, err)
	}

	m, err := e.venue.MarketSnapshot(ctx, pos.Ticker)
	if err != nil {
		e.logf(res, "market snapshot unavailable for %s, holding blind: %v", pos.Ticker, err)
		return 0, false
	}
	bid := m.BidFor(pos.Side)
	if bid <= 0 {
		e.logf(res, "no resting bid for %s %s, cannot exit", pos.Ticker, pos.Side)
		return 0, false
	}
	return bid, true
}

// exitPosition sells at the observed bid. Live exits go out immediate-or-
// cancel so an unfilled exit leaves nothing resting; partial fills shrink
// the position and record the filled portion.
func (e *Engine) exitPosition(ctx context.Context, st *model.EngineState, res *CycleResult, bid int, reason string, outcome model.TradeResult, action string) string {
	pos := *st.Position

	if e.cfg.Simulated {
		metrics.OrdersTotal.WithLabelValues(string(pos.Side), "simulated").Inc()
		e.closeTrade(st, res, pos, bid, pos.Count, outcome, reason)
		st.Position = nil
		return action
	}

	out, err := e.venue.PlaceOrder(ctx, venue.OrderRequest{
		Ticker:        pos.Ticker,
		Action:        venue.ActionSell,
		Side:          pos.Side,
		Count:         pos.Count,
		PriceCents:    bid,
		TimeInForce:   venue.TifIOC,
		ClientOrderID: e.newID(),
	})
	if err != nil {
		e.logf(res, "exit %s failed, retrying next cycle: %v", pos.Ticker, err)
		return ActionHolding
	}
	metrics.OrdersTotal.WithLabelValues(string(pos.Side), "live").Inc()

	switch {
	case out.FillCount <= 0:
		e.logf(res, "exit %s unfilled at %d cents, holding", pos.Ticker, bid)
		return ActionHolding
	case out.FillCount < pos.Count:
		e.closeTrade(st, res, pos, bid, out.FillCount, outcome, reason)
		st.Position.Count = pos.Count - out.FillCount
		e.logf(res, "partial exit on %s: %d of %d filled", pos.Ticker, out.FillCount, pos.Count)
		return action
	default:
		e.closeTrade(st, res, pos, bid, pos.Count, outcome, reason)
		st.Position = nil
		return action
	}
}

// spotPrice prefers the live trade stream and falls back to the latest
// candle close.
func (e *Engine) spotPrice(ctx context.Context) (float64, bool) {
	if e.spot != nil {
		if p, ok := e.spot(); ok {
			return p, true
		}
	}
	candles, err := e.md.Candles(ctx, e.mdCfg.Granularity, 2)
	if err != nil || len(candles) == 0 {
		return 0, false
	}
	return candles[len(candles)-1].Close, true
}
