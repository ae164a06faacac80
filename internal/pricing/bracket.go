// Package pricing converts signals and a volatility model into theoretical
// contract prices and picks the single best entry candidate.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"strikebot/internal/model"
)

// ErrNoStrike marks a ticker without an encoded strike; such contracts are
// priced with the binary model instead.
var ErrNoStrike = errors.New("ticker carries no strike")

// NormCDF is the standard normal CDF via the Zelen–Severo rational
// approximation (Abramowitz & Stegun 26.2.17), accurate to ~7.5e-8.
func NormCDF(x float64) float64 {
	if x < 0 {
		return 1 - NormCDF(-x)
	}
	t := 1 / (1 + 0.2316419*x)
	poly := t * (0.319381530 + t*(-0.356563782+t*(1.781477937+t*(-1.821255978+t*1.330274429))))
	pdf := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	return 1 - pdf*poly
}

// RealizedVol computes the annualized volatility of trailing log returns.
// The candle spacing is inferred from the window itself.
func RealizedVol(c []model.Candle) (float64, error) {
	if len(c) < 12 {
		return 0, fmt.Errorf("realized vol: need at least 12 candles, have %d", len(c))
	}
	dt := c[1].Time.Sub(c[0].Time).Seconds()
	if dt <= 0 {
		return 0, errors.New("realized vol: candles not ascending")
	}

	returns := make([]float64, 0, len(c)-1)
	for i := 1; i < len(c); i++ {
		if c[i-1].Close <= 0 || c[i].Close <= 0 {
			return 0, errors.New("realized vol: non-positive close")
		}
		returns = append(returns, math.Log(c[i].Close/c[i-1].Close))
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var varSum float64
	for _, r := range returns {
		d := r - mean
		varSum += d * d
	}
	variance := varSum / float64(len(returns)-1)

	periodsPerYear := 365.25 * 24 * 3600 / dt
	return math.Sqrt(variance * periodsPerYear), nil
}

// FairValueAbove returns the probability that spot settles at or above the
// strike after tauYears, under lognormal dynamics with volatility sigma:
// Φ(d2) with d2 = [ln(S/K) − σ²τ/2] / (σ√τ). As τ→0 it degenerates to a
// step function at S vs K.
func FairValueAbove(spot, strike, sigma, tauYears float64) float64 {
	if spot <= 0 || strike <= 0 {
		return 0
	}
	if tauYears <= 0 || sigma <= 0 {
		switch {
		case spot > strike:
			return 1
		case spot < strike:
			return 0
		default:
			return 0.5
		}
	}
	d2 := (math.Log(spot/strike) - sigma*sigma*tauYears/2) / (sigma * math.Sqrt(tauYears))
	return NormCDF(d2)
}

// ParseStrike extracts the strike encoded in a contract ticker. The last
// hyphen segment carries it: a "T" prefix means the contract settles YES
// when the underlying is at or above the strike (e.g. KXBTCD-25AUG2917-
// T112249.99). Tickers without a strike segment return ErrNoStrike.
func ParseStrike(ticker string) (float64, error) {
	idx := strings.LastIndex(ticker, "-")
	if idx < 0 || idx == len(ticker)-1 {
		return 0, ErrNoStrike
	}
	seg := ticker[idx+1:]
	if seg[0] != 'T' {
		return 0, ErrNoStrike
	}
	strike, err := strconv.ParseFloat(seg[1:], 64)
	if err != nil || strike <= 0 {
		return 0, fmt.Errorf("parse strike %q: invalid value", seg)
	}
	return strike, nil
}
