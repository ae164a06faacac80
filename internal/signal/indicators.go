// Package signal turns candle windows and order-book depth into a scored
// directional signal. Evaluation is a pure function of its inputs.
package signal

import (
	"math"

	"strikebot/internal/model"
)

// RSI returns the n-period Relative Strength Index of the closes using
// Wilder's smoothing. ok is false when the window is too short.
func RSI(c []model.Candle, n int) (float64, bool) {
	if n <= 0 || len(c) < n+1 {
		return 0, false
	}
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := c[i].Close - c[i-1].Close
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(n)
	avgLoss := loss / float64(n)
	for i := n + 1; i < len(c); i++ {
		d := c[i].Close - c[i-1].Close
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		avgGain = (avgGain*float64(n-1) + up) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + down) / float64(n)
	}
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// VWAPDeviation returns (close - vwap) / vwap over the trailing n candles,
// using the typical price (H+L+C)/3 weighted by volume.
func VWAPDeviation(c []model.Candle, n int) (float64, bool) {
	if n <= 0 || len(c) < n {
		return 0, false
	}
	var pv, vol float64
	for _, k := range c[len(c)-n:] {
		typical := (k.High + k.Low + k.Close) / 3
		pv += typical * k.Volume
		vol += k.Volume
	}
	if vol == 0 {
		return 0, false
	}
	vwap := pv / vol
	if vwap == 0 {
		return 0, false
	}
	return (c[len(c)-1].Close - vwap) / vwap, true
}

// EMA returns the exponential moving average of the closes with period n.
func EMA(c []model.Candle, n int) (float64, bool) {
	if n <= 0 || len(c) < n {
		return 0, false
	}
	k := 2.0 / (float64(n) + 1)
	ema := c[0].Close
	for _, candle := range c[1:] {
		ema = candle.Close*k + ema*(1-k)
	}
	return ema, true
}

// EMACrossDiff returns fastEMA - slowEMA, the MACD-style momentum measure.
func EMACrossDiff(c []model.Candle, fast, slow int) (float64, bool) {
	if fast >= slow {
		return 0, false
	}
	f, ok := EMA(c, fast)
	if !ok {
		return 0, false
	}
	s, ok := EMA(c, slow)
	if !ok {
		return 0, false
	}
	return f - s, true
}

// BollingerZ returns how many standard deviations the last close sits from
// the n-period mean.
func BollingerZ(c []model.Candle, n int) (float64, bool) {
	if n <= 1 || len(c) < n {
		return 0, false
	}
	window := c[len(c)-n:]
	var sum float64
	for _, k := range window {
		sum += k.Close
	}
	mean := sum / float64(n)
	var varSum float64
	for _, k := range window {
		d := k.Close - mean
		varSum += d * d
	}
	std := math.Sqrt(varSum / float64(n))
	if std == 0 {
		return 0, false
	}
	return (c[len(c)-1].Close - mean) / std, true
}

// ATR returns the n-period average true range (simple mean of true ranges).
func ATR(c []model.Candle, n int) (float64, bool) {
	if n <= 0 || len(c) < n+1 {
		return 0, false
	}
	var sum float64
	for i := len(c) - n; i < len(c); i++ {
		tr := c[i].High - c[i].Low
		if d := math.Abs(c[i].High - c[i-1].Close); d > tr {
			tr = d
		}
		if d := math.Abs(c[i].Low - c[i-1].Close); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / float64(n), true
}

// VolumeRatio returns trailing-short / trailing-long average volume.
func VolumeRatio(c []model.Candle, short, long int) (float64, bool) {
	if short <= 0 || long <= short || len(c) < long {
		return 0, false
	}
	avg := func(window []model.Candle) float64 {
		var sum float64
		for _, k := range window {
			sum += k.Volume
		}
		return sum / float64(len(window))
	}
	longAvg := avg(c[len(c)-long:])
	if longAvg == 0 {
		return 0, false
	}
	return avg(c[len(c)-short:]) / longAvg, true
}
