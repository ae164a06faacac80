package model

import "testing"

func TestComboKeyIsOrderIndependent(t *testing.T) {
	if ComboKey("rsi", "vwap") != ComboKey("vwap", "rsi") {
		t.Fatal("combo key depends on argument order")
	}
	if ComboKey("rsi", "vwap") != "rsi+vwap" {
		t.Fatalf("key = %s, want rsi+vwap", ComboKey("rsi", "vwap"))
	}
}

func TestClosedTradeWon(t *testing.T) {
	if !(ClosedTrade{Result: ResultWin}).Won() {
		t.Fatal("settlement win should count as won")
	}
	if !(ClosedTrade{Result: ResultTakeProf}).Won() {
		t.Fatal("take-profit exit should count as won")
	}
	if (ClosedTrade{Result: ResultLoss}).Won() {
		t.Fatal("loss counted as won")
	}
}

func TestPairStatRate(t *testing.T) {
	if got := (PairStat{}).Rate(); got != -1 {
		t.Fatalf("empty rate = %v, want -1 sentinel", got)
	}
	if got := (PairStat{Wins: 3, Total: 4}).Rate(); got != 0.75 {
		t.Fatalf("rate = %v, want 0.75", got)
	}
}

func TestMarketSideAccessors(t *testing.T) {
	m := Market{YesBidCents: 38, YesAskCents: 40, NoBidCents: 58, NoAskCents: 62}
	if m.AskFor(SideYes) != 40 || m.AskFor(SideNo) != 62 {
		t.Fatalf("asks = %d/%d", m.AskFor(SideYes), m.AskFor(SideNo))
	}
	if m.BidFor(SideYes) != 38 || m.BidFor(SideNo) != 58 {
		t.Fatalf("bids = %d/%d", m.BidFor(SideYes), m.BidFor(SideNo))
	}
}

func TestLearnedWeightFallback(t *testing.T) {
	l := LearnedState{Weights: map[string]float64{"rsi": 3.5}}
	if l.Weight("rsi", 2) != 3.5 {
		t.Fatal("stored weight ignored")
	}
	if l.Weight("vwap", 2) != 2 {
		t.Fatal("missing weight should fall back to baseline")
	}
}
