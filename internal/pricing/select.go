package pricing

import (
	"time"

	"strikebot/internal/model"
)

const yearSeconds = 365.25 * 24 * 3600

// Band is the tradable ask range in cents, after learned price advice has
// been intersected with the configured band.
type Band struct {
	MinAskCents int
	MaxAskCents int
}

// Contains reports whether an ask sits inside the band and is a real quote.
func (b Band) Contains(ask int) bool {
	return ask >= 1 && ask <= 99 && ask >= b.MinAskCents && ask <= b.MaxAskCents
}

// Intersect narrows the band by a learned price advice. A zero advice leaves
// the band unchanged.
func (b Band) Intersect(advice model.PriceAdvice) Band {
	out := b
	if advice.MinAskCents > out.MinAskCents {
		out.MinAskCents = advice.MinAskCents
	}
	if advice.MaxAskCents > 0 && advice.MaxAskCents < out.MaxAskCents {
		out.MaxAskCents = advice.MaxAskCents
	}
	return out
}

// Candidate is one priceable (ticker, side) with its theoretical value.
type Candidate struct {
	Ticker    string
	Side      model.Side
	AskCents  int
	FairCents float64
	EdgeCents float64
}

// Outcome classifies a selection pass.
type Outcome int

const (
	// OutcomeNone means no contract produced a priceable side in band.
	OutcomeNone Outcome = iota
	// OutcomeInsufficientEdge means candidates existed but the best edge
	// fell short of the minimum.
	OutcomeInsufficientEdge
	// OutcomeSelected means Best is tradable.
	OutcomeSelected
)

// Inputs for one selection pass over the open contracts of a series.
type Inputs struct {
	Signal         model.Signal
	Spot           float64
	Sigma          float64
	Now            time.Time
	FlowBias       int // -1, 0, +1 from the order-flow stream
	FlowNudgeCents float64
	Band           Band
	MinEdgeCents   float64
}

// Select computes the edge for every open contract (both sides for strike
// contracts, the signal-direction side for binaries) and returns the single
// best candidate. Ties break toward larger edge; first seen wins an exact
// tie.
func Select(markets []model.Market, in Inputs) (Candidate, Outcome) {
	var best Candidate
	haveCandidate := false
	haveBest := false

	consider := func(c Candidate) {
		haveCandidate = true
		if !haveBest || c.EdgeCents > best.EdgeCents {
			best = c
			haveBest = true
		}
	}

	for _, m := range markets {
		strike, err := ParseStrike(m.Ticker)
		if err != nil {
			if in.Signal.Direction == model.DirectionNeutral {
				continue
			}
			side := model.SideYes
			if in.Signal.Direction == model.DirectionDown {
				side = model.SideNo
			}
			ask := m.AskFor(side)
			if !in.Band.Contains(ask) {
				continue
			}
			fair := float64(in.Signal.PredictedProbabilityCents)
			consider(Candidate{
				Ticker:    m.Ticker,
				Side:      side,
				AskCents:  ask,
				FairCents: fair,
				EdgeCents: fair - float64(ask),
			})
			continue
		}

		if in.Spot <= 0 || in.Sigma <= 0 {
			continue
		}
		tau := m.CloseTime.Sub(in.Now).Seconds() / yearSeconds
		fairYes := FairValueAbove(in.Spot, strike, in.Sigma, tau)*100 +
			float64(in.FlowBias)*in.FlowNudgeCents
		if fairYes < 0 {
			fairYes = 0
		}
		if fairYes > 100 {
			fairYes = 100
		}

		if ask := m.YesAskCents; in.Band.Contains(ask) {
			consider(Candidate{
				Ticker:    m.Ticker,
				Side:      model.SideYes,
				AskCents:  ask,
				FairCents: fairYes,
				EdgeCents: fairYes - float64(ask),
			})
		}
		if ask := m.NoAskCents; in.Band.Contains(ask) {
			consider(Candidate{
				Ticker:    m.Ticker,
				Side:      model.SideNo,
				AskCents:  ask,
				FairCents: 100 - fairYes,
				EdgeCents: (100 - fairYes) - float64(ask),
			})
		}
	}

	switch {
	case !haveCandidate:
		return Candidate{}, OutcomeNone
	case best.EdgeCents < in.MinEdgeCents:
		return best, OutcomeInsufficientEdge
	default:
		return best, OutcomeSelected
	}
}
