package pricing

import (
	"testing"
	"time"

	"strikebot/internal/model"
)

var selectNow = time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)

func upSignal(probCents int) model.Signal {
	return model.Signal{
		Direction:                 model.DirectionUp,
		Confidence:                0.8,
		PredictedProbabilityCents: probCents,
	}
}

func fullBand() Band { return Band{MinAskCents: 1, MaxAskCents: 99} }

func TestSelectBinaryTakesSignalSide(t *testing.T) {
	markets := []model.Market{{
		Ticker:      "KXBTCUP-26AUG2914",
		YesAskCents: 60,
		NoAskCents:  45,
		CloseTime:   selectNow.Add(time.Hour),
	}}
	cand, outcome := Select(markets, Inputs{
		Signal:       upSignal(80),
		Now:          selectNow,
		Band:         fullBand(),
		MinEdgeCents: 5,
	})
	if outcome != OutcomeSelected {
		t.Fatalf("outcome = %v, want selected", outcome)
	}
	if cand.Side != model.SideYes {
		t.Fatalf("side = %s, want yes for an up signal", cand.Side)
	}
	if cand.EdgeCents != 20 {
		t.Fatalf("edge = %v, want 20", cand.EdgeCents)
	}
}

func TestSelectNeutralSignalSkipsBinaries(t *testing.T) {
	markets := []model.Market{{
		Ticker:      "KXBTCUP-26AUG2914",
		YesAskCents: 20,
		CloseTime:   selectNow.Add(time.Hour),
	}}
	_, outcome := Select(markets, Inputs{
		Signal: model.Signal{Direction: model.DirectionNeutral},
		Now:    selectNow,
		Band:   fullBand(),
	})
	if outcome != OutcomeNone {
		t.Fatalf("outcome = %v, want none", outcome)
	}
}

func TestSelectInsufficientEdge(t *testing.T) {
	markets := []model.Market{{
		Ticker:      "KXBTCUP-26AUG2914",
		YesAskCents: 78,
		CloseTime:   selectNow.Add(time.Hour),
	}}
	cand, outcome := Select(markets, Inputs{
		Signal:       upSignal(80),
		Now:          selectNow,
		Band:         fullBand(),
		MinEdgeCents: 5,
	})
	if outcome != OutcomeInsufficientEdge {
		t.Fatalf("outcome = %v, want insufficient edge", outcome)
	}
	if cand.EdgeCents != 2 {
		t.Fatalf("best edge = %v, want 2", cand.EdgeCents)
	}
}

func TestSelectBandExcludesAsk(t *testing.T) {
	markets := []model.Market{{
		Ticker:      "KXBTCUP-26AUG2914",
		YesAskCents: 90,
		CloseTime:   selectNow.Add(time.Hour),
	}}
	_, outcome := Select(markets, Inputs{
		Signal:       upSignal(95),
		Now:          selectNow,
		Band:         Band{MinAskCents: 15, MaxAskCents: 85},
		MinEdgeCents: 1,
	})
	if outcome != OutcomeNone {
		t.Fatalf("outcome = %v, want none when the ask leaves the band", outcome)
	}
}

func TestSelectBracketPricesBothSides(t *testing.T) {
	// Spot far above the strike makes YES nearly certain; the cheap NO ask
	// still loses to the underpriced YES.
	markets := []model.Market{{
		Ticker:      "KXBTCD-26AUG2917-T100000",
		YesAskCents: 70,
		NoAskCents:  20,
		CloseTime:   selectNow.Add(time.Hour),
	}}
	cand, outcome := Select(markets, Inputs{
		Signal:       model.Signal{Direction: model.DirectionNeutral},
		Spot:         110000,
		Sigma:        0.4,
		Now:          selectNow,
		Band:         fullBand(),
		MinEdgeCents: 5,
	})
	if outcome != OutcomeSelected {
		t.Fatalf("outcome = %v, want selected", outcome)
	}
	if cand.Side != model.SideYes {
		t.Fatalf("side = %s, want yes with spot far above strike", cand.Side)
	}
	if cand.FairCents < 95 {
		t.Fatalf("fair = %v, want near certainty", cand.FairCents)
	}
}

func TestSelectBracketNeedsVolInputs(t *testing.T) {
	markets := []model.Market{{
		Ticker:      "KXBTCD-26AUG2917-T100000",
		YesAskCents: 50,
		CloseTime:   selectNow.Add(time.Hour),
	}}
	_, outcome := Select(markets, Inputs{
		Signal: model.Signal{Direction: model.DirectionNeutral},
		Spot:   0,
		Sigma:  0,
		Now:    selectNow,
		Band:   fullBand(),
	})
	if outcome != OutcomeNone {
		t.Fatalf("outcome = %v, want none without spot and sigma", outcome)
	}
}

func TestSelectFlowNudgeShiftsFairValue(t *testing.T) {
	markets := []model.Market{{
		Ticker:      "KXBTCD-26AUG2917-T100000",
		YesAskCents: 50,
		CloseTime:   selectNow.Add(time.Hour),
	}}
	base := Inputs{
		Signal: model.Signal{Direction: model.DirectionNeutral},
		Spot:   100000,
		Sigma:  0.4,
		Now:    selectNow,
		Band:   fullBand(),
	}
	neutral, _ := Select(markets, base)

	nudged := base
	nudged.FlowBias = 1
	nudged.FlowNudgeCents = 3
	up, _ := Select(markets, nudged)

	if up.FairCents-neutral.FairCents < 2.9 {
		t.Fatalf("flow nudge moved fair by %v, want ~3", up.FairCents-neutral.FairCents)
	}
}

func TestSelectPicksLargestEdge(t *testing.T) {
	markets := []model.Market{
		{Ticker: "KXBTCUP-A", YesAskCents: 70, CloseTime: selectNow.Add(time.Hour)},
		{Ticker: "KXBTCUP-B", YesAskCents: 55, CloseTime: selectNow.Add(time.Hour)},
	}
	cand, outcome := Select(markets, Inputs{
		Signal:       upSignal(80),
		Now:          selectNow,
		Band:         fullBand(),
		MinEdgeCents: 5,
	})
	if outcome != OutcomeSelected || cand.Ticker != "KXBTCUP-B" {
		t.Fatalf("picked %s (%v), want KXBTCUP-B", cand.Ticker, outcome)
	}
}

func TestBandIntersect(t *testing.T) {
	band := Band{MinAskCents: 15, MaxAskCents: 85}
	got := band.Intersect(model.PriceAdvice{MinAskCents: 30, MaxAskCents: 99})
	if got.MinAskCents != 30 || got.MaxAskCents != 85 {
		t.Fatalf("intersect = %+v, want {30 85}", got)
	}
	got = band.Intersect(model.PriceAdvice{})
	if got != band {
		t.Fatalf("zero advice changed the band: %+v", got)
	}
}
