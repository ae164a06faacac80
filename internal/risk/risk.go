// Package risk sizes orders under the half-Kelly rule and enforces the
// pre-entry gates.
package risk

import (
	"math"
	"time"

	"strikebot/internal/model"
	"strikebot/internal/util"
)

// Gate reasons returned when an entry is blocked.
const (
	GateDailyLimit = "daily_limit"
	GateCooldown   = "cooldown"
	GateHourVeto   = "hour_veto"
)

// SizeInputs feeds ContractCount.
type SizeInputs struct {
	Confidence             float64
	PriceCents             int
	WinRate                float64 // 0..1 from learned state
	MaxPerTradeBudgetCents int
	MaxContracts           int
}

// ContractCount converts confidence and price into a contract count:
// a confidence-scaled budget shaded by half-Kelly, floored at one contract
// and capped at MaxContracts. Returns 0 only on invalid input.
func ContractCount(in SizeInputs) int {
	if in.PriceCents < 1 || in.PriceCents > 99 || in.MaxPerTradeBudgetCents <= 0 || in.MaxContracts < 1 {
		return 0
	}

	budget := float64(in.MaxPerTradeBudgetCents) * util.Clamp(in.Confidence, 0.2, 1.0)

	price := float64(in.PriceCents)
	b := (100 - price) / price
	p := util.Clamp(in.WinRate, 0.3, 0.8)
	q := 1 - p
	kelly := math.Max(0, (b*p-q)/b)
	scale := util.Clamp(0.5*kelly+0.5, 0.5, 1.0)

	count := int(math.Floor(budget * scale / price))
	return util.ClampInt(count, 1, in.MaxContracts)
}

// GateInputs feeds CheckEntryGates.
type GateInputs struct {
	Daily             model.DailyStats
	Learned           model.LearnedState
	LastTradeAt       time.Time
	Now               time.Time
	BaseCooldown      time.Duration
	DailyMaxLossCents int
	MaxTradesPerDay   int
}

// Cooldown returns the effective wait between entries; consecutive losses
// stretch it up to 2x the base.
func Cooldown(base time.Duration, lossStreak int) time.Duration {
	mult := math.Min(2, 1+0.25*float64(lossStreak))
	return time.Duration(float64(base) * mult)
}

// CheckEntryGates runs the pre-entry gates in their fixed order: daily loss
// halt, daily trade cap, cooldown, learned hour veto. It returns the gate
// reason when blocked.
func CheckEntryGates(in GateInputs) (string, bool) {
	if in.Daily.PnLCents <= -in.DailyMaxLossCents {
		return GateDailyLimit, false
	}
	if in.Daily.Trades >= in.MaxTradesPerDay {
		return GateDailyLimit, false
	}
	if !in.LastTradeAt.IsZero() {
		if in.Now.Sub(in.LastTradeAt) < Cooldown(in.BaseCooldown, in.Learned.LossStreak) {
			return GateCooldown, false
		}
	}
	if stat, ok := in.Learned.HourlyStats[in.Now.UTC().Hour()]; ok {
		if stat.Total >= 30 && stat.Rate() < 0.30 {
			return GateHourVeto, false
		}
	}
	return "", true
}
