// Package learn recomputes the adaptive state from closed-trade history.
// Recompute is a pure function: it never mutates the history it reads and
// falls back to baseline values when samples are thin.
package learn

import (
	"strikebot/internal/model"
	"strikebot/internal/signal"
	"strikebot/internal/util"
)

// Baseline carries the hand-set starting points learning adjusts around.
type Baseline struct {
	Weight            float64
	MinScoreThreshold float64
}

// DefaultBaseline matches the signal engine's shipped defaults.
func DefaultBaseline() Baseline {
	cfg := signal.DefaultConfig()
	return Baseline{Weight: cfg.BaselineWeight, MinScoreThreshold: cfg.BaseThreshold}
}

// minimum samples before a statistic is trusted
const (
	minWeightSamples = 3
	minModeTrades    = 5
	minBucketSamples = 8
	losingBucketRate = 0.35
)

// Defaults returns the state used before any trade has closed.
func Defaults(base Baseline) model.LearnedState {
	weights := make(map[string]float64, len(signal.Indicators))
	for _, name := range signal.Indicators {
		weights[name] = base.Weight
	}
	return model.LearnedState{
		Weights:           weights,
		MinScoreThreshold: base.MinScoreThreshold,
		Mode:              model.ModeNormal,
		PriceAdvice:       model.PriceAdvice{MinAskCents: 1, MaxAskCents: 99},
	}
}

// Recompute derives a fresh LearnedState from the most recent closed trades.
func Recompute(history []model.ClosedTrade, base Baseline) model.LearnedState {
	out := Defaults(base)
	out.SampleCount = len(history)
	if len(history) == 0 {
		return out
	}

	wins := 0
	for _, t := range history {
		if t.Won() {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(history))
	out.WinRatePct = winRate * 100

	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Won() {
			break
		}
		out.LossStreak++
	}

	out.Weights = indicatorWeights(history, base)
	out.ComboStats = comboStats(history)
	out.HourlyStats = hourlyStats(history)
	out.PriceBuckets = priceBuckets(history)
	out.PriceAdvice = adviseBand(out.PriceBuckets)

	switch {
	case out.LossStreak >= 3:
		out.Mode = model.ModeRecovery
		out.MinScoreThreshold = base.MinScoreThreshold + 0.5*float64(min(out.LossStreak, 4))
	case winRate >= 0.65 && len(history) >= minModeTrades:
		out.Mode = model.ModeAggressive
		if t := base.MinScoreThreshold - 0.5; t >= 1 {
			out.MinScoreThreshold = t
		}
	default:
		out.Mode = model.ModeNormal
	}

	return out
}

// tradeDirection maps the side taken to the directional call it implies.
func tradeDirection(t model.ClosedTrade) int {
	if t.Side == model.SideYes {
		return 1
	}
	return -1
}

// indicatorWeights scores each indicator by how often its vote matched the
// outcome: agreeing with the trade direction on a win counts as correct, so
// does disagreeing on a loss. Neutral votes carry no information.
func indicatorWeights(history []model.ClosedTrade, base Baseline) map[string]float64 {
	correct := make(map[string]int)
	wrong := make(map[string]int)
	for _, t := range history {
		dir := tradeDirection(t)
		for name, vote := range t.Signal.Votes {
			if vote == 0 {
				continue
			}
			agreed := vote*dir > 0
			if agreed == t.Won() {
				correct[name]++
			} else {
				wrong[name]++
			}
		}
	}

	weights := make(map[string]float64, len(signal.Indicators))
	for _, name := range signal.Indicators {
		samples := correct[name] + wrong[name]
		if samples < minWeightSamples {
			weights[name] = base.Weight
			continue
		}
		accuracy := float64(correct[name]) / float64(samples)
		weights[name] = base.Weight * util.Clamp(accuracy*2, 0.25, 3.0)
	}
	return weights
}

// comboStats tallies win rates for indicator pairs that voted the same
// nonzero direction on the same trade.
func comboStats(history []model.ClosedTrade) map[string]model.PairStat {
	stats := make(map[string]model.PairStat)
	for _, t := range history {
		names := signal.Indicators
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				vi, vj := t.Signal.Votes[names[i]], t.Signal.Votes[names[j]]
				if vi == 0 || vi != vj {
					continue
				}
				key := model.ComboKey(names[i], names[j])
				s := stats[key]
				s.Total++
				if t.Won() {
					s.Wins++
				}
				stats[key] = s
			}
		}
	}
	return stats
}

func hourlyStats(history []model.ClosedTrade) map[int]model.PairStat {
	stats := make(map[int]model.PairStat)
	for _, t := range history {
		hour := t.OpenedAt.UTC().Hour()
		s := stats[hour]
		s.Total++
		if t.Won() {
			s.Wins++
		}
		stats[hour] = s
	}
	return stats
}

func priceBuckets(history []model.ClosedTrade) map[int]model.PairStat {
	stats := make(map[int]model.PairStat)
	for _, t := range history {
		bucket := t.EntryCents / 10
		s := stats[bucket]
		s.Total++
		if t.Won() {
			s.Wins++
		}
		stats[bucket] = s
	}
	return stats
}

// adviseBand trims the tradable price band away from losing entry-price
// buckets: a losing bucket below 50¢ raises the floor past it, one at or
// above 50¢ lowers the ceiling below it.
func adviseBand(buckets map[int]model.PairStat) model.PriceAdvice {
	advice := model.PriceAdvice{MinAskCents: 1, MaxAskCents: 99}
	for bucket, s := range buckets {
		if s.Total < minBucketSamples || s.Rate() >= losingBucketRate {
			continue
		}
		lo, hi := bucket*10, bucket*10+9
		if hi < 50 {
			if lo+10 > advice.MinAskCents {
				advice.MinAskCents = lo + 10
			}
		} else if lo >= 50 {
			if lo-1 < advice.MaxAskCents {
				advice.MaxAskCents = lo - 1
			}
		}
	}
	if advice.MinAskCents > advice.MaxAskCents {
		// Contradictory advice collapses back to the full band.
		return model.PriceAdvice{MinAskCents: 1, MaxAskCents: 99}
	}
	return advice
}
