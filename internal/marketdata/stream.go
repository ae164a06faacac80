package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Stream consumes the exchange's public trade websocket and maintains two
// rolling views: the latest traded price, and an aggressor-flow bias used
// to nudge bracket fair values.
type Stream struct {
	wsBaseURL string
	symbol    string
	window    time.Duration
	log       zerolog.Logger

	mu        sync.RWMutex
	lastPrice float64
	lastAt    time.Time
	trades    []streamTrade
}

type streamTrade struct {
	notional float64
	buy      bool
	ts       time.Time
}

// NewStream builds a stream for one symbol; window bounds the flow lookback.
func NewStream(wsBaseURL, symbol string, window time.Duration, log zerolog.Logger) *Stream {
	if window <= 0 {
		window = time.Minute
	}
	return &Stream{wsBaseURL: wsBaseURL, symbol: symbol, window: window, log: log}
}

// LastPrice returns the most recent traded price, if one has been seen
// within the last two minutes.
func (s *Stream) LastPrice() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastPrice <= 0 || time.Since(s.lastAt) > 2*time.Minute {
		return 0, false
	}
	return s.lastPrice, true
}

// FlowBias condenses recent aggressor flow into -1, 0, or +1.
func (s *Stream) FlowBias() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-s.window)
	var buyVol, sellVol float64
	for _, t := range s.trades {
		if t.ts.Before(cutoff) {
			continue
		}
		if t.buy {
			buyVol += t.notional
		} else {
			sellVol += t.notional
		}
	}
	total := buyVol + sellVol
	if total == 0 {
		return 0
	}
	ratio := buyVol / total
	switch {
	case ratio >= 0.60:
		return 1
	case ratio <= 0.40:
		return -1
	default:
		return 0
	}
}

// Run consumes the stream until the context is canceled, reconnecting with
// exponential backoff.
func (s *Stream) Run(ctx context.Context) error {
	url := fmt.Sprintf("%s/ws/%s@trade", s.wsBaseURL, strings.ToLower(s.symbol))
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("trade stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

type tradeEvent struct {
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

func (s *Stream) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Str("symbol", s.symbol).Msg("connected trade stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev tradeEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode trade event")
			continue
		}
		px, err := strconv.ParseFloat(ev.Price, 64)
		if err != nil || px <= 0 {
			continue
		}
		qty, err := strconv.ParseFloat(ev.Quantity, 64)
		if err != nil {
			continue
		}
		s.record(px, qty, !ev.IsBuyerMaker, time.UnixMilli(ev.TradeTime))
	}
}

func (s *Stream) record(price, qty float64, aggressorBuy bool, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastPrice = price
	s.lastAt = time.Now()
	s.trades = append(s.trades, streamTrade{notional: price * qty, buy: aggressorBuy, ts: ts})

	cutoff := time.Now().Add(-s.window)
	idx := 0
	for i, t := range s.trades {
		if t.ts.After(cutoff) {
			idx = i
			break
		}
		idx = i + 1
	}
	if idx > 0 && idx <= len(s.trades) {
		s.trades = s.trades[idx:]
	}
}
