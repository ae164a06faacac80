package pricing

import (
	"errors"
	"math"
	"testing"
	"time"

	"strikebot/internal/model"
)

func TestNormCDF(t *testing.T) {
	cases := []struct {
		x, want float64
	}{
		{0, 0.5},
		{1.96, 0.975},
		{-1.96, 0.025},
		{3, 0.99865},
	}
	for _, tc := range cases {
		if got := NormCDF(tc.x); math.Abs(got-tc.want) > 1e-3 {
			t.Errorf("NormCDF(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
	for _, x := range []float64{0.3, 1.1, 2.7} {
		if s := NormCDF(x) + NormCDF(-x); math.Abs(s-1) > 1e-9 {
			t.Errorf("symmetry broken at %v: sum %v", x, s)
		}
	}
}

func TestFairValueAboveDegeneratesAtExpiry(t *testing.T) {
	if got := FairValueAbove(110, 100, 0.5, 0); got != 1 {
		t.Fatalf("spot above strike at expiry = %v, want 1", got)
	}
	if got := FairValueAbove(90, 100, 0.5, 0); got != 0 {
		t.Fatalf("spot below strike at expiry = %v, want 0", got)
	}
	if got := FairValueAbove(100, 100, 0.5, 0); got != 0.5 {
		t.Fatalf("spot at strike at expiry = %v, want 0.5", got)
	}
}

func TestFairValueAboveMonotonic(t *testing.T) {
	const sigma, tau = 0.5, 1.0 / 365
	prev := -1.0
	for spot := 90.0; spot <= 110; spot += 2 {
		v := FairValueAbove(spot, 100, sigma, tau)
		if v <= prev {
			t.Fatalf("not increasing in spot at %v: %v <= %v", spot, v, prev)
		}
		if v < 0 || v > 1 {
			t.Fatalf("value %v outside [0,1]", v)
		}
		prev = v
	}
	prev = 2.0
	for strike := 90.0; strike <= 110; strike += 2 {
		v := FairValueAbove(100, strike, sigma, tau)
		if v >= prev {
			t.Fatalf("not decreasing in strike at %v: %v >= %v", strike, v, prev)
		}
		prev = v
	}
}

func TestRealizedVol(t *testing.T) {
	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	flat := make([]model.Candle, 20)
	for i := range flat {
		flat[i] = model.Candle{Time: start.Add(time.Duration(i) * time.Minute), Close: 100}
	}
	vol, err := RealizedVol(flat)
	if err != nil {
		t.Fatalf("RealizedVol: %v", err)
	}
	if vol != 0 {
		t.Fatalf("flat closes vol = %v, want 0", vol)
	}

	if _, err := RealizedVol(flat[:5]); err == nil {
		t.Fatal("expected error for short window")
	}

	noisy := make([]model.Candle, 20)
	for i := range noisy {
		px := 100.0
		if i%2 == 0 {
			px = 101
		}
		noisy[i] = model.Candle{Time: start.Add(time.Duration(i) * time.Minute), Close: px}
	}
	vol, err = RealizedVol(noisy)
	if err != nil {
		t.Fatalf("RealizedVol: %v", err)
	}
	if vol <= 0 {
		t.Fatalf("noisy closes vol = %v, want positive", vol)
	}
}

func TestParseStrike(t *testing.T) {
	strike, err := ParseStrike("KXBTCD-26AUG2917-T112249.99")
	if err != nil {
		t.Fatalf("ParseStrike: %v", err)
	}
	if strike != 112249.99 {
		t.Fatalf("strike = %v, want 112249.99", strike)
	}

	if _, err := ParseStrike("KXBTCUP-26AUG2914"); !errors.Is(err, ErrNoStrike) {
		t.Fatalf("binary ticker error = %v, want ErrNoStrike", err)
	}
	if _, err := ParseStrike("nostrike"); !errors.Is(err, ErrNoStrike) {
		t.Fatalf("plain ticker error = %v, want ErrNoStrike", err)
	}
	if _, err := ParseStrike("KXBTCD-26AUG2917-Tjunk"); err == nil || errors.Is(err, ErrNoStrike) {
		t.Fatalf("malformed strike error = %v, want parse failure", err)
	}
}
