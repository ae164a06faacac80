package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"strikebot/internal/config"
	"strikebot/internal/engine"
	"strikebot/internal/model"
	"strikebot/internal/store"
	"strikebot/internal/venue"
)

type stubVenue struct {
	balance int64
	status  venue.ExchangeStatus
}

func (stubVenue) OpenMarkets(context.Context, string) ([]model.Market, error) { return nil, nil }
func (stubVenue) MarketSnapshot(context.Context, string) (model.Market, error) {
	return model.Market{}, nil
}
func (stubVenue) OrderBook(context.Context, string, int) (venue.Book, error) {
	return venue.Book{}, nil
}
func (stubVenue) PlaceOrder(context.Context, venue.OrderRequest) (venue.OrderResult, error) {
	return venue.OrderResult{}, nil
}
func (stubVenue) CancelOrder(context.Context, string) error { return nil }
func (stubVenue) OrderStatus(context.Context, string) (venue.OrderState, error) {
	return venue.OrderState{}, nil
}
func (stubVenue) OpenPositions(context.Context) ([]venue.Position, error)      { return nil, nil }
func (stubVenue) Settlements(context.Context, int) ([]venue.Settlement, error) { return nil, nil }
func (stubVenue) Fills(context.Context, string) ([]venue.Fill, error)          { return nil, nil }
func (s stubVenue) BalanceCents(context.Context) (int64, error) { return s.balance, nil }
func (s stubVenue) ExchangeStatus(context.Context) (venue.ExchangeStatus, error) {
	return s.status, nil
}

type stubMD struct{}

func (stubMD) Candles(context.Context, string, int) ([]model.Candle, error) { return nil, nil }
func (stubMD) OrderBookRatio(context.Context, int) (model.OrderBookSnapshot, error) {
	return model.OrderBookSnapshot{}, nil
}

func newTestServer(st store.Store, opts ...Option) *Server {
	cfg := config.Trading{Series: "KXBTCUP", Enabled: false, Simulated: true}
	eng := engine.New(cfg, config.MarketData{}, stubMD{}, stubVenue{}, st, zerolog.Nop())
	return NewServer(eng, st, "KXBTCUP", zerolog.Nop(), opts...)
}

func TestCycleEndpointReturnsAction(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore())
	req := httptest.NewRequest(http.MethodPost, "/api/cycle", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var res engine.CycleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Action != engine.ActionDisabled {
		t.Fatalf("action = %s, want disabled", res.Action)
	}
}

func TestCycleEndpointSingleFlight(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore())
	srv.cycleMu.Lock()
	defer srv.cycleMu.Unlock()

	req := httptest.NewRequest(http.MethodPost, "/api/cycle", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 while a cycle runs", rec.Code)
	}
}

func TestStatusEndpointReportsState(t *testing.T) {
	st := store.NewMemoryStore()
	pos := model.Position{
		Ticker:     "KXBTCUP-26AUG2914",
		Side:       model.SideYes,
		EntryCents: 40,
		Count:      10,
		OpenedAt:   time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC),
	}
	if err := st.SetJSON(context.Background(), store.PositionKey("KXBTCUP"), pos); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var out statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Position == nil || out.Position.Ticker != pos.Ticker {
		t.Fatalf("position = %+v, want seeded ticker", out.Position)
	}
	if out.Series != "KXBTCUP" {
		t.Fatalf("series = %s", out.Series)
	}
}

func TestStatusEndpointSurfacesVenueHealth(t *testing.T) {
	v := stubVenue{
		balance: 125_000,
		status:  venue.ExchangeStatus{ExchangeActive: true, TradingActive: false},
	}
	srv := newTestServer(store.NewMemoryStore(), WithVenue(v))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	var out statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.BalanceCents != 125_000 {
		t.Fatalf("balance = %d, want 125000", out.BalanceCents)
	}
	if out.Exchange == nil {
		t.Fatal("exchange status missing from the payload")
	}
	if !out.Exchange.ExchangeActive || out.Exchange.TradingActive {
		t.Fatalf("exchange = %+v, want online with trading paused", out.Exchange)
	}
}

func TestHistoryEndpointEmptyIsArray(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body[0] != '[' {
		t.Fatalf("body = %s, want a JSON array", body)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
