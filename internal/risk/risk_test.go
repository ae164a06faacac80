package risk

import (
	"testing"
	"time"

	"strikebot/internal/model"
)

func TestContractCountRespectsBudget(t *testing.T) {
	in := SizeInputs{
		Confidence:             1.0,
		PriceCents:             40,
		WinRate:                0.5,
		MaxPerTradeBudgetCents: 2500,
		MaxContracts:           50,
	}
	count := ContractCount(in)
	if count < 1 {
		t.Fatalf("count = %d, want at least 1", count)
	}
	if count*in.PriceCents > in.MaxPerTradeBudgetCents {
		t.Fatalf("count %d at %d cents exceeds budget %d", count, in.PriceCents, in.MaxPerTradeBudgetCents)
	}
}

func TestContractCountFloorsAtOne(t *testing.T) {
	in := SizeInputs{
		Confidence:             0.01, // clamps to 0.2
		PriceCents:             95,
		WinRate:                0.3,
		MaxPerTradeBudgetCents: 100,
		MaxContracts:           50,
	}
	if count := ContractCount(in); count != 1 {
		t.Fatalf("count = %d, want floor of 1", count)
	}
}

func TestContractCountCapped(t *testing.T) {
	in := SizeInputs{
		Confidence:             1.0,
		PriceCents:             2,
		WinRate:                0.8,
		MaxPerTradeBudgetCents: 100000,
		MaxContracts:           50,
	}
	if count := ContractCount(in); count != 50 {
		t.Fatalf("count = %d, want cap of 50", count)
	}
}

func TestContractCountInvalidInput(t *testing.T) {
	if count := ContractCount(SizeInputs{PriceCents: 0, MaxPerTradeBudgetCents: 100, MaxContracts: 10}); count != 0 {
		t.Fatalf("count = %d for zero price, want 0", count)
	}
	if count := ContractCount(SizeInputs{PriceCents: 100, MaxPerTradeBudgetCents: 100, MaxContracts: 10}); count != 0 {
		t.Fatalf("count = %d for out-of-range price, want 0", count)
	}
}

func TestHigherConfidenceNeverShrinksSize(t *testing.T) {
	base := SizeInputs{
		PriceCents:             40,
		WinRate:                0.5,
		MaxPerTradeBudgetCents: 2500,
		MaxContracts:           50,
	}
	prev := 0
	for _, conf := range []float64{0.2, 0.4, 0.6, 0.8, 1.0} {
		in := base
		in.Confidence = conf
		count := ContractCount(in)
		if count < prev {
			t.Fatalf("count dropped from %d to %d at confidence %v", prev, count, conf)
		}
		prev = count
	}
}

func TestCooldownStretchesWithLossStreak(t *testing.T) {
	base := 5 * time.Minute
	if got := Cooldown(base, 0); got != base {
		t.Fatalf("no streak cooldown = %v, want %v", got, base)
	}
	if got := Cooldown(base, 2); got != 7*time.Minute+30*time.Second {
		t.Fatalf("streak 2 cooldown = %v, want 7m30s", got)
	}
	if got := Cooldown(base, 5); got != 10*time.Minute {
		t.Fatalf("streak 5 cooldown = %v, want capped 2x", got)
	}
	if got := Cooldown(base, 100); got != 10*time.Minute {
		t.Fatalf("streak 100 cooldown = %v, want capped 2x", got)
	}
}

func gateBase() GateInputs {
	now := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)
	return GateInputs{
		Daily:             model.DailyStats{Date: "2026-08-29"},
		Now:               now,
		BaseCooldown:      5 * time.Minute,
		DailyMaxLossCents: 5000,
		MaxTradesPerDay:   12,
	}
}

func TestGatesPassWhenClear(t *testing.T) {
	if reason, ok := CheckEntryGates(gateBase()); !ok {
		t.Fatalf("gates blocked with %q, want pass", reason)
	}
}

func TestDailyLossHalts(t *testing.T) {
	in := gateBase()
	in.Daily.PnLCents = -5000
	if reason, ok := CheckEntryGates(in); ok || reason != GateDailyLimit {
		t.Fatalf("reason = %q ok=%v, want daily_limit", reason, ok)
	}
}

func TestDailyTradeCapHalts(t *testing.T) {
	in := gateBase()
	in.Daily.Trades = 12
	if reason, ok := CheckEntryGates(in); ok || reason != GateDailyLimit {
		t.Fatalf("reason = %q ok=%v, want daily_limit", reason, ok)
	}
}

func TestCooldownBlocks(t *testing.T) {
	in := gateBase()
	in.LastTradeAt = in.Now.Add(-2 * time.Minute)
	if reason, ok := CheckEntryGates(in); ok || reason != GateCooldown {
		t.Fatalf("reason = %q ok=%v, want cooldown", reason, ok)
	}
	in.LastTradeAt = in.Now.Add(-6 * time.Minute)
	if _, ok := CheckEntryGates(in); !ok {
		t.Fatal("elapsed cooldown should pass")
	}
}

func TestDailyLossOutranksCooldown(t *testing.T) {
	in := gateBase()
	in.Daily.PnLCents = -9000
	in.LastTradeAt = in.Now.Add(-time.Minute)
	if reason, _ := CheckEntryGates(in); reason != GateDailyLimit {
		t.Fatalf("reason = %q, want daily_limit first", reason)
	}
}

func TestLearnedHourVeto(t *testing.T) {
	in := gateBase()
	in.Learned.HourlyStats = map[int]model.PairStat{
		in.Now.UTC().Hour(): {Wins: 5, Total: 30},
	}
	if reason, ok := CheckEntryGates(in); ok || reason != GateHourVeto {
		t.Fatalf("reason = %q ok=%v, want hour_veto", reason, ok)
	}

	// Thin samples never veto.
	in.Learned.HourlyStats = map[int]model.PairStat{
		in.Now.UTC().Hour(): {Wins: 0, Total: 10},
	}
	if _, ok := CheckEntryGates(in); !ok {
		t.Fatal("thin hourly stats must not veto")
	}
}
