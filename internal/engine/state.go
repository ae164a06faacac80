package engine

import (
	"context"
	"fmt"
	"time"

	"strikebot/internal/learn"
	"strikebot/internal/model"
	"strikebot/internal/store"
)

// loadState assembles the persisted state documents for this series. A key
// that has never been written is not an error; learned state falls back to
// its baseline defaults.
func (e *Engine) loadState(ctx context.Context) (model.EngineState, error) {
	var st model.EngineState
	series := e.cfg.Series

	var pos model.Position
	ok, err := e.store.GetJSON(ctx, store.PositionKey(series), &pos)
	if err != nil {
		return st, fmt.Errorf("position: %w", err)
	}
	if ok {
		st.Position = &pos
	}

	var po model.PendingOrder
	ok, err = e.store.GetJSON(ctx, store.PendingOrderKey(series), &po)
	if err != nil {
		return st, fmt.Errorf("pending order: %w", err)
	}
	if ok {
		st.PendingOrder = &po
	}

	if _, err := e.store.GetJSON(ctx, store.DailyStatsKey(series), &st.Daily); err != nil {
		return st, fmt.Errorf("daily stats: %w", err)
	}

	ok, err = e.store.GetJSON(ctx, store.LearnedKey(series), &st.Learned)
	if err != nil {
		return st, fmt.Errorf("learned state: %w", err)
	}
	if !ok {
		st.Learned = learn.Defaults(e.baseline)
	}

	if _, err := e.store.GetJSON(ctx, store.LastTradeKey(series), &st.LastTradeAt); err != nil {
		return st, fmt.Errorf("last trade ts: %w", err)
	}

	if _, err := e.store.GetJSON(ctx, store.TradeHistoryKey, &st.History); err != nil {
		return st, fmt.Errorf("trade history: %w", err)
	}
	return st, nil
}

// saveState writes every state document back. Cleared position and pending
// keys are deleted so a crashed process never resurrects a stale entity.
func (e *Engine) saveState(ctx context.Context, st model.EngineState) error {
	series := e.cfg.Series

	if st.Position != nil {
		if err := e.store.SetJSON(ctx, store.PositionKey(series), st.Position); err != nil {
			return fmt.Errorf("position: %w", err)
		}
	} else if err := e.store.Delete(ctx, store.PositionKey(series)); err != nil {
		return fmt.Errorf("position: %w", err)
	}

	if st.PendingOrder != nil {
		if err := e.store.SetJSON(ctx, store.PendingOrderKey(series), st.PendingOrder); err != nil {
			return fmt.Errorf("pending order: %w", err)
		}
	} else if err := e.store.Delete(ctx, store.PendingOrderKey(series)); err != nil {
		return fmt.Errorf("pending order: %w", err)
	}

	if err := e.store.SetJSON(ctx, store.DailyStatsKey(series), st.Daily); err != nil {
		return fmt.Errorf("daily stats: %w", err)
	}
	if err := e.store.SetJSON(ctx, store.LearnedKey(series), st.Learned); err != nil {
		return fmt.Errorf("learned state: %w", err)
	}
	if err := e.store.SetJSON(ctx, store.LastTradeKey(series), st.LastTradeAt); err != nil {
		return fmt.Errorf("last trade ts: %w", err)
	}
	if err := e.store.SetJSON(ctx, store.TradeHistoryKey, st.History); err != nil {
		return fmt.Errorf("trade history: %w", err)
	}
	return nil
}

// lastTradeTime converts the stored unix timestamp; zero means never traded.
func lastTradeTime(st *model.EngineState) time.Time {
	if st.LastTradeAt <= 0 {
		return time.Time{}
	}
	return time.Unix(st.LastTradeAt, 0).UTC()
}
