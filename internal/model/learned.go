package model

// Mode is the engine's current behavior regime, derived from recent results.
type Mode string

const (
	ModeNormal     Mode = "normal"
	ModeAggressive Mode = "aggressive"
	ModeRecovery   Mode = "recovery"
)

// PairStat is a win/total tally used for indicator-pair, hourly, and
// price-bucket statistics.
type PairStat struct {
	Wins  int `json:"wins"`
	Total int `json:"total"`
}

// Rate returns the win rate, or -1 when no samples exist.
func (p PairStat) Rate() float64 {
	if p.Total == 0 {
		return -1
	}
	return float64(p.Wins) / float64(p.Total)
}

// PriceAdvice narrows the tradable entry price band away from historically
// losing price buckets.
type PriceAdvice struct {
	MinAskCents int `json:"min_ask_cents"`
	MaxAskCents int `json:"max_ask_cents"`
}

// LearnedState is recomputed from closed-trade history by the learning
// module and read by the signal engine and risk gates. It is never edited
// by hand.
type LearnedState struct {
	Weights           map[string]float64  `json:"weights"`
	MinScoreThreshold float64             `json:"min_score_threshold"`
	WinRatePct        float64             `json:"win_rate_pct"`
	LossStreak        int                 `json:"loss_streak"`
	Mode              Mode                `json:"mode"`
	ComboStats        map[string]PairStat `json:"combo_stats,omitempty"`
	HourlyStats       map[int]PairStat    `json:"hourly_stats,omitempty"`
	PriceBuckets      map[int]PairStat    `json:"price_buckets,omitempty"`
	PriceAdvice       PriceAdvice         `json:"price_advice"`
	SampleCount       int                 `json:"sample_count"`
}

// Weight returns the learned weight for an indicator, falling back to the
// provided baseline when none has been computed yet.
func (l LearnedState) Weight(indicator string, baseline float64) float64 {
	if w, ok := l.Weights[indicator]; ok {
		return w
	}
	return baseline
}

// EngineState is the whole persisted state for one series, loaded once at
// cycle start and written back once at cycle end.
type EngineState struct {
	Position     *Position     `json:"position,omitempty"`
	PendingOrder *PendingOrder `json:"pending_order,omitempty"`
	Daily        DailyStats    `json:"daily"`
	Learned      LearnedState  `json:"learned"`
	LastTradeAt  int64         `json:"last_trade_ts"` // unix seconds, zero when never traded
	History      []ClosedTrade `json:"history,omitempty"`
}
