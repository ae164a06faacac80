package signal

import (
	"math"
	"sort"

	"strikebot/internal/model"
	"strikebot/internal/util"
)

// Indicator names used in votes, learned weights, and combo statistics.
const (
	IndRSI       = "rsi"
	IndVWAP      = "vwap"
	IndMACD      = "macd"
	IndBollinger = "bollinger"
	IndOrderBook = "orderbook"
)

// Indicators lists every voting indicator in a stable order.
var Indicators = []string{IndRSI, IndVWAP, IndMACD, IndBollinger, IndOrderBook}

// Gate reasons returned when a filter suppresses the signal outright.
const (
	GateVolume = "volume_gate"
	GateATR    = "atr_gate"
)

// Config holds the fixed thresholds each indicator votes against.
type Config struct {
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64

	VWAPWindow    int
	VWAPThreshold float64

	EMAFast int
	EMASlow int

	BollWindow int
	BollBand   float64

	OBBullRatio float64
	OBBearRatio float64

	VolumeShort   int
	VolumeLong    int
	VolumeGateLow float64
	VolumeBoost   float64

	ATRPeriod int
	NATRMin   float64
	NATRMax   float64

	BaselineWeight float64
	BaseThreshold  float64
	MaxProbCents   int
}

// DefaultConfig returns the thresholds the engine ships with.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:     7,
		RSIOversold:   30,
		RSIOverbought: 70,
		VWAPWindow:    20,
		VWAPThreshold: 0.002,
		EMAFast:       9,
		EMASlow:       21,
		BollWindow:    20,
		BollBand:      2.0,
		OBBullRatio:   0.60,
		OBBearRatio:   0.40,
		VolumeShort:   5,
		VolumeLong:    20,
		VolumeGateLow: 0.5,
		VolumeBoost:   1.5,
		ATRPeriod:     14,
		NATRMin:       0.0002,
		NATRMax:       0.015,
		BaselineWeight: 2.0,
		BaseThreshold:  3.0,
		MaxProbCents:   80,
	}
}

// Inputs is everything one evaluation reads. HasBook marks whether an
// order-book snapshot was available this cycle.
type Inputs struct {
	Candles        []model.Candle
	ConfirmCandles []model.Candle
	Book           model.OrderBookSnapshot
	HasBook        bool
	Learned        model.LearnedState
}

// Result carries the signal plus the gate reason when a filter fired.
type Result struct {
	Signal   model.Signal
	Gate     string
	MaxScore float64
}

func neutral(votes map[string]int) model.Signal {
	return model.Signal{Direction: model.DirectionNeutral, Confidence: 0, Votes: votes}
}

// Evaluate scores the inputs into a directional signal. It is deterministic:
// identical inputs always produce identical output, and insufficient history
// degrades to a neutral signal rather than an error.
func Evaluate(in Inputs, cfg Config) Result {
	votes := make(map[string]int, len(Indicators))
	var score, maxScore float64

	weight := func(name string) float64 {
		return in.Learned.Weight(name, cfg.BaselineWeight)
	}
	cast := func(name string, vote int) {
		votes[name] = vote
		w := weight(name)
		maxScore += math.Abs(w)
		score += float64(vote) * w
	}

	if rsi, ok := RSI(in.Candles, cfg.RSIPeriod); ok {
		switch {
		case rsi <= cfg.RSIOversold:
			cast(IndRSI, 1)
		case rsi >= cfg.RSIOverbought:
			cast(IndRSI, -1)
		default:
			cast(IndRSI, 0)
		}
	}
	if dev, ok := VWAPDeviation(in.Candles, cfg.VWAPWindow); ok {
		switch {
		case dev <= -cfg.VWAPThreshold:
			cast(IndVWAP, 1)
		case dev >= cfg.VWAPThreshold:
			cast(IndVWAP, -1)
		default:
			cast(IndVWAP, 0)
		}
	}
	if diff, ok := EMACrossDiff(in.Candles, cfg.EMAFast, cfg.EMASlow); ok {
		switch {
		case diff > 0:
			cast(IndMACD, 1)
		case diff < 0:
			cast(IndMACD, -1)
		default:
			cast(IndMACD, 0)
		}
	}
	if z, ok := BollingerZ(in.Candles, cfg.BollWindow); ok {
		switch {
		case z <= -cfg.BollBand:
			cast(IndBollinger, 1)
		case z >= cfg.BollBand:
			cast(IndBollinger, -1)
		default:
			cast(IndBollinger, 0)
		}
	}
	if in.HasBook {
		switch {
		case in.Book.Ratio >= cfg.OBBullRatio:
			cast(IndOrderBook, 1)
		case in.Book.Ratio <= cfg.OBBearRatio:
			cast(IndOrderBook, -1)
		default:
			cast(IndOrderBook, 0)
		}
	}

	if maxScore == 0 {
		return Result{Signal: neutral(votes)}
	}

	// Flat volume means no follow-through; a spike earns a boost below.
	volRatio, volOK := VolumeRatio(in.Candles, cfg.VolumeShort, cfg.VolumeLong)
	if volOK && volRatio < cfg.VolumeGateLow {
		return Result{Signal: neutral(votes), Gate: GateVolume, MaxScore: maxScore}
	}

	// Too little volatility and nothing moves; too much and mean reversion
	// stops holding.
	if atr, ok := ATR(in.Candles, cfg.ATRPeriod); ok {
		last := in.Candles[len(in.Candles)-1].Close
		if last > 0 {
			natr := atr / last
			if natr < cfg.NATRMin || natr > cfg.NATRMax {
				return Result{Signal: neutral(votes), Gate: GateATR, MaxScore: maxScore}
			}
		}
	}

	sign := 0.0
	if score > 0 {
		sign = 1
	} else if score < 0 {
		sign = -1
	}

	if sign != 0 {
		score += comboBonus(votes, in.Learned, sign)
		if diff, ok := EMACrossDiff(in.ConfirmCandles, cfg.EMAFast, cfg.EMASlow); ok {
			if diff*sign > 0 {
				score += 0.5 * sign
			}
		}
		if volOK && volRatio > cfg.VolumeBoost {
			score += 0.5 * sign
		}
	}

	threshold := in.Learned.MinScoreThreshold
	if threshold <= 0 {
		threshold = cfg.BaseThreshold
	}
	if math.Abs(score) < threshold {
		sig := neutral(votes)
		sig.Score = score
		return Result{Signal: sig, MaxScore: maxScore}
	}

	direction := model.DirectionUp
	if score < 0 {
		direction = model.DirectionDown
	}
	confidence := util.Clamp(math.Abs(score)/maxScore, 0, 1)
	prob := 50 + int(math.Round(confidence*30))
	if prob > cfg.MaxProbCents {
		prob = cfg.MaxProbCents
	}

	return Result{
		Signal: model.Signal{
			Direction:                 direction,
			Score:                     score,
			Confidence:                confidence,
			PredictedProbabilityCents: prob,
			Votes:                     votes,
		},
		MaxScore: maxScore,
	}
}

// comboBonus rewards indicator pairs that historically win when they agree.
func comboBonus(votes map[string]int, learned model.LearnedState, sign float64) float64 {
	if len(learned.ComboStats) == 0 {
		return 0
	}
	var agreed []string
	for name, v := range votes {
		if float64(v)*sign > 0 {
			agreed = append(agreed, name)
		}
	}
	sort.Strings(agreed)

	var bonus float64
	for i := 0; i < len(agreed); i++ {
		for j := i + 1; j < len(agreed); j++ {
			stat := learned.ComboStats[model.ComboKey(agreed[i], agreed[j])]
			if stat.Total >= 5 && stat.Rate() >= 0.60 {
				bonus += 0.25 * sign
			}
		}
	}
	return bonus
}
