package engine

import (
	"context"
	"time"

	"strikebot/internal/metrics"
	"strikebot/internal/model"
	"strikebot/internal/pricing"
	"strikebot/internal/risk"
	"strikebot/internal/signal"
	"strikebot/internal/venue"
)

// tryEnter runs the full entry pipeline from an idle state: risk gates,
// market data, signal, contract selection, liquidity check, sizing, then
// order placement. Every early return names why no trade happened.
func (e *Engine) tryEnter(ctx context.Context, st *model.EngineState, res *CycleResult) string {
	if reason, ok := risk.CheckEntryGates(risk.GateInputs{
		Daily:             st.Daily,
		Learned:           st.Learned,
		LastTradeAt:       lastTradeTime(st),
		Now:               e.now(),
		BaseCooldown:      e.cfg.BaseCooldown,
		DailyMaxLossCents: e.cfg.DailyMaxLossCents,
		MaxTradesPerDay:   e.cfg.MaxTradesPerDay,
	}); !ok {
		switch reason {
		case risk.GateDailyLimit:
			e.logf(res, "daily limit reached: pnl %d cents, %d trades", st.Daily.PnLCents, st.Daily.Trades)
			return ActionDailyLimit
		case risk.GateCooldown:
			e.logf(res, "cooling down after last trade (loss streak %d)", st.Learned.LossStreak)
			return ActionCooldown
		default:
			e.logf(res, "hour %d vetoed by historical results", e.now().UTC().Hour())
			return ActionNoSignal
		}
	}

	candles, err := e.md.Candles(ctx, e.mdCfg.Granularity, e.mdCfg.CandleLimit)
	if err != nil {
		e.logf(res, "candles unavailable: %v", err)
		return ActionDataError
	}
	if len(candles) == 0 {
		e.logf(res, "no candles returned")
		return ActionNoData
	}
	confirm, err := e.md.Candles(ctx, e.mdCfg.ConfirmGranularity, e.mdCfg.CandleLimit)
	if err != nil {
		e.logf(res, "confirm candles unavailable, continuing without: %v", err)
		confirm = nil
	}

	in := signal.Inputs{Candles: candles, ConfirmCandles: confirm, Learned: st.Learned}
	if book, err := e.md.OrderBookRatio(ctx, e.mdCfg.DepthLevels); err != nil {
		e.logf(res, "spot depth unavailable, continuing without: %v", err)
	} else {
		in.Book = book
		in.HasBook = true
	}

	sigRes := signal.Evaluate(in, e.sigCfg)
	switch sigRes.Gate {
	case signal.GateVolume:
		e.logf(res, "volume gate: flat tape, standing aside")
		return ActionVolumeGate
	case signal.GateATR:
		e.logf(res, "volatility gate: regime outside tradable band")
		return ActionATRGate
	}
	sig := sigRes.Signal

	markets, err := e.venue.OpenMarkets(ctx, e.cfg.Series)
	if err != nil {
		e.logf(res, "venue markets unavailable: %v", err)
		return ActionDataError
	}
	if len(markets) == 0 {
		e.logf(res, "no open contracts for %s", e.cfg.Series)
		return ActionNoMarkets
	}

	// Strike contracts are priceable without a directional view; binaries
	// are not.
	hasStrike := false
	for _, m := range markets {
		if _, err := pricing.ParseStrike(m.Ticker); err == nil {
			hasStrike = true
			break
		}
	}
	if sig.Direction == model.DirectionNeutral && !hasStrike {
		e.logf(res, "no directional signal (score %.2f)", sig.Score)
		return ActionNoSignal
	}

	spot := candles[len(candles)-1].Close
	if e.spot != nil {
		if p, ok := e.spot(); ok {
			spot = p
		}
	}
	sigma, _ := pricing.RealizedVol(candles)
	flowBias := 0
	if e.flow != nil {
		flowBias = e.flow()
	}

	band := pricing.Band{MinAskCents: e.cfg.MinAskCents, MaxAskCents: e.cfg.MaxAskCents}.
		Intersect(st.Learned.PriceAdvice)
	cand, outcome := pricing.Select(markets, pricing.Inputs{
		Signal:         sig,
		Spot:           spot,
		Sigma:          sigma,
		Now:            e.now(),
		FlowBias:       flowBias,
		FlowNudgeCents: e.cfg.FlowNudgeCents,
		Band:           band,
		MinEdgeCents:   e.cfg.MinEdgeCents,
	})
	switch outcome {
	case pricing.OutcomeNone:
		if sig.Direction == model.DirectionNeutral {
			e.logf(res, "no directional signal and no priceable strike contract")
			return ActionNoSignal
		}
		e.logf(res, "no contract priceable inside %d-%d cents", band.MinAskCents, band.MaxAskCents)
		return ActionNoEdge
	case pricing.OutcomeInsufficientEdge:
		e.logf(res, "best edge %.1f cents on %s %s below minimum %.1f",
			cand.EdgeCents, cand.Ticker, cand.Side, e.cfg.MinEdgeCents)
		return ActionInsufficientEdge
	}

	if book, err := e.venue.OrderBook(ctx, cand.Ticker, e.bookDepth); err != nil {
		e.logf(res, "contract book unavailable for %s, skipping depth check: %v", cand.Ticker, err)
	} else if ratio := book.DepthRatio(cand.Side); ratio < e.cfg.MinDepthRatio {
		e.logf(res, "depth gate: %s %s resting ratio %.2f below %.2f",
			cand.Ticker, cand.Side, ratio, e.cfg.MinDepthRatio)
		return ActionDepthGate
	}

	limit := cand.AskCents - e.cfg.MakerOffsetCents
	if limit < 1 {
		limit = 1
	}
	count := risk.ContractCount(risk.SizeInputs{
		Confidence:             sig.Confidence,
		PriceCents:             limit,
		WinRate:                st.Learned.WinRatePct / 100,
		MaxPerTradeBudgetCents: e.cfg.MaxPerTradeBudgetCents,
		MaxContracts:           e.cfg.MaxContracts,
	})
	if count == 0 {
		e.logf(res, "sizing rejected %s at %d cents", cand.Ticker, limit)
		return ActionNoEdge
	}

	if !e.cfg.Simulated {
		if bal, err := e.venue.BalanceCents(ctx); err != nil {
			e.logf(res, "balance unavailable, proceeding: %v", err)
		} else if int64(limit*count) > bal {
			afford := int(bal) / limit
			if afford < 1 {
				e.logf(res, "balance %d cents cannot fund one contract at %d", bal, limit)
				return ActionNoEdge
			}
			e.logf(res, "balance %d cents trims size %d to %d", bal, count, afford)
			count = afford
		}
	}

	var closeTime time.Time
	for _, m := range markets {
		if m.Ticker == cand.Ticker {
			closeTime = m.CloseTime
			break
		}
	}

	now := e.now().UTC()
	if e.cfg.Simulated {
		st.Position = &model.Position{
			Ticker:       cand.Ticker,
			Side:         cand.Side,
			EntryCents:   limit,
			Count:        count,
			OpenedAt:     now,
			CloseTime:    closeTime,
			PeakBidCents: limit,
			Signal:       sig,
		}
		st.Daily.Trades++
		st.LastTradeAt = now.Unix()
		metrics.OrdersTotal.WithLabelValues(string(cand.Side), "simulated").Inc()
		if e.notifier != nil {
			e.notifier.OrderPlaced(cand.Ticker, cand.Side, limit, count)
		}
		e.logf(res, "paper entry %s %s x%d at %d cents (fair %.1f, edge %.1f)",
			cand.Ticker, cand.Side, count, limit, cand.FairCents, cand.EdgeCents)
		return ActionPaperBuy
	}

	out, err := e.venue.PlaceOrder(ctx, venue.OrderRequest{
		Ticker:        cand.Ticker,
		Action:        venue.ActionBuy,
		Side:          cand.Side,
		Count:         count,
		PriceCents:    limit,
		TimeInForce:   venue.TifGTC,
		ClientOrderID: e.newID(),
	})
	if err != nil {
		// A network failure here is ambiguous; the order may exist. Orphan
		// adoption next cycle recovers any fill.
		e.logf(res, "order placement failed: %v", err)
		return ActionDataError
	}
	st.Daily.Trades++
	st.LastTradeAt = now.Unix()
	metrics.OrdersTotal.WithLabelValues(string(cand.Side), "live").Inc()
	if e.notifier != nil {
		e.notifier.OrderPlaced(cand.Ticker, cand.Side, limit, count)
	}

	if out.Status == venue.StatusExecuted && out.FillCount > 0 {
		st.Position = &model.Position{
			Ticker:       cand.Ticker,
			Side:         cand.Side,
			EntryCents:   limit,
			Count:        out.FillCount,
			OpenedAt:     now,
			CloseTime:    closeTime,
			PeakBidCents: limit,
			Signal:       sig,
		}
		e.logf(res, "order %s filled immediately: %s %s x%d at %d cents",
			out.OrderID, cand.Ticker, cand.Side, out.FillCount, limit)
		return ActionOrderPlaced
	}

	st.PendingOrder = &model.PendingOrder{
		OrderID:    out.OrderID,
		Ticker:     cand.Ticker,
		Side:       cand.Side,
		LimitCents: limit,
		Count:      count,
		PlacedAt:   now,
		CloseTime:  closeTime,
		Signal:     sig,
	}
	e.logf(res, "order %s placed: %s %s x%d at %d cents (fair %.1f, edge %.1f)",
		out.OrderID, cand.Ticker, cand.Side, count, limit, cand.FairCents, cand.EdgeCents)
	return ActionOrderPlaced
}
