package signal

import (
	"testing"
	"time"

	"strikebot/internal/model"
)

// declining builds n one-minute candles stepping down 5 ticks per bar around
// 100, with constant volume. The shape leaves RSI pinned low and the close
// under VWAP, a mean-reversion long setup.
func declining(n int) []model.Candle {
	out := make([]model.Candle, n)
	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	price := 100 + float64(n)*0.05
	for i := range out {
		price -= 0.05
		out[i] = model.Candle{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   price + 0.05,
			High:   price + 0.08,
			Low:    price - 0.03,
			Close:  price,
			Volume: 10,
		}
	}
	return out
}

func TestEvaluateUnanimousAgreementHitsProbabilityCap(t *testing.T) {
	in := Inputs{
		Candles: declining(40),
		Book:    model.OrderBookSnapshot{BidDepth: 70, AskDepth: 30, Ratio: 0.7},
		HasBook: true,
		Learned: model.LearnedState{
			Weights: map[string]float64{
				IndRSI:       2,
				IndVWAP:      2,
				IndOrderBook: 2,
				IndMACD:      0,
				IndBollinger: 0,
			},
			MinScoreThreshold: 3,
		},
	}
	res := Evaluate(in, DefaultConfig())

	if res.Gate != "" {
		t.Fatalf("unexpected gate %q", res.Gate)
	}
	sig := res.Signal
	if sig.Direction != model.DirectionUp {
		t.Fatalf("direction = %s, want up", sig.Direction)
	}
	if sig.Score != 6 {
		t.Fatalf("score = %v, want 6", sig.Score)
	}
	if sig.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1", sig.Confidence)
	}
	if sig.PredictedProbabilityCents != 80 {
		t.Fatalf("probability = %d, want 80", sig.PredictedProbabilityCents)
	}
	if sig.Votes[IndRSI] != 1 || sig.Votes[IndVWAP] != 1 || sig.Votes[IndOrderBook] != 1 {
		t.Fatalf("unexpected votes %v", sig.Votes)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	in := Inputs{
		Candles: declining(40),
		Book:    model.OrderBookSnapshot{Ratio: 0.7},
		HasBook: true,
	}
	cfg := DefaultConfig()
	a := Evaluate(in, cfg)
	b := Evaluate(in, cfg)
	if a.Signal.Score != b.Signal.Score || a.Signal.Direction != b.Signal.Direction {
		t.Fatalf("same inputs diverged: %+v vs %+v", a.Signal, b.Signal)
	}
}

func TestEvaluateInsufficientHistoryIsNeutral(t *testing.T) {
	res := Evaluate(Inputs{Candles: declining(3)}, DefaultConfig())
	if res.Signal.Direction != model.DirectionNeutral {
		t.Fatalf("direction = %s, want neutral", res.Signal.Direction)
	}
	if res.Signal.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", res.Signal.Confidence)
	}
	if res.Gate != "" {
		t.Fatalf("gate = %q, want none", res.Gate)
	}
}

func TestEvaluateVolumeGate(t *testing.T) {
	candles := declining(40)
	for i := len(candles) - 5; i < len(candles); i++ {
		candles[i].Volume = 1
	}
	res := Evaluate(Inputs{Candles: candles}, DefaultConfig())
	if res.Gate != GateVolume {
		t.Fatalf("gate = %q, want %q", res.Gate, GateVolume)
	}
	if res.Signal.Direction != model.DirectionNeutral {
		t.Fatalf("gated signal must be neutral, got %s", res.Signal.Direction)
	}
}

func TestEvaluateVolatilityGate(t *testing.T) {
	candles := declining(40)
	for i := range candles {
		candles[i].High = candles[i].Close + 5
		candles[i].Low = candles[i].Close - 5
	}
	res := Evaluate(Inputs{Candles: candles}, DefaultConfig())
	if res.Gate != GateATR {
		t.Fatalf("gate = %q, want %q", res.Gate, GateATR)
	}
}

func TestEvaluateBelowThresholdKeepsScore(t *testing.T) {
	in := Inputs{
		Candles: declining(40),
		Book:    model.OrderBookSnapshot{Ratio: 0.7},
		HasBook: true,
		Learned: model.LearnedState{MinScoreThreshold: 10},
	}
	res := Evaluate(in, DefaultConfig())
	if res.Signal.Direction != model.DirectionNeutral {
		t.Fatalf("direction = %s, want neutral below threshold", res.Signal.Direction)
	}
	if res.Signal.Score == 0 {
		t.Fatal("score should be retained for observability")
	}
}

func TestRSIExtremes(t *testing.T) {
	rising := declining(20)
	for i := range rising {
		rising[i].Close = 100 + float64(i)
	}
	rsi, ok := RSI(rising, 7)
	if !ok || rsi != 100 {
		t.Fatalf("all-gain rsi = %v ok=%v, want 100", rsi, ok)
	}
	if _, ok := RSI(rising[:5], 7); ok {
		t.Fatal("short window should not produce an RSI")
	}
}

func TestVolumeRatio(t *testing.T) {
	candles := declining(20)
	for i := len(candles) - 5; i < len(candles); i++ {
		candles[i].Volume = 30
	}
	ratio, ok := VolumeRatio(candles, 5, 20)
	if !ok {
		t.Fatal("expected a ratio")
	}
	if ratio <= 1 {
		t.Fatalf("ratio = %v, want > 1 after volume spike", ratio)
	}
}

func TestEMACrossTracksTrend(t *testing.T) {
	rising := declining(40)
	for i := range rising {
		rising[i].Close = 100 + float64(i)
	}
	diff, ok := EMACrossDiff(rising, 9, 21)
	if !ok || diff <= 0 {
		t.Fatalf("uptrend diff = %v ok=%v, want positive", diff, ok)
	}
	diff, ok = EMACrossDiff(declining(40), 9, 21)
	if !ok || diff >= 0 {
		t.Fatalf("downtrend diff = %v ok=%v, want negative", diff, ok)
	}
}
