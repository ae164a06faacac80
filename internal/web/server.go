// Package web exposes the trigger and inspection API. The engine never
// self-schedules; an external scheduler POSTs /api/cycle and cycles are
// single-flight per process.
package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"strikebot/internal/engine"
	"strikebot/internal/model"
	"strikebot/internal/store"
	"strikebot/internal/venue"
)

// Server wraps the HTTP surface around one engine.
type Server struct {
	engine *engine.Engine
	store  store.Store
	series string
	log    zerolog.Logger
	echo   *echo.Echo
	spot   func() (float64, bool)
	venue  venue.API

	cycleMu sync.Mutex
}

// Option customizes the server.
type Option func(*Server)

// WithSpot surfaces the live spot price on the status endpoint.
func WithSpot(fn func() (float64, bool)) Option {
	return func(s *Server) { s.spot = fn }
}

// WithVenue surfaces the venue balance on the status endpoint.
func WithVenue(v venue.API) Option {
	return func(s *Server) { s.venue = v }
}

// NewServer wires the routes.
func NewServer(eng *engine.Engine, st store.Store, series string, log zerolog.Logger, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{engine: eng, store: st, series: series, log: log, echo: e}
	for _, opt := range opts {
		opt(s)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	e.POST("/api/cycle", s.handleCycle)
	e.GET("/api/status", s.handleStatus)
	e.GET("/api/history", s.handleHistory)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start(addr string) error { return s.echo.Start(addr) }

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }

// handleCycle runs one trade cycle. A cycle already in flight answers 409
// rather than queueing; overlapping cycles would race the state documents.
func (s *Server) handleCycle(c echo.Context) error {
	if !s.cycleMu.TryLock() {
		return c.JSON(http.StatusConflict, map[string]string{"error": "cycle already running"})
	}
	defer s.cycleMu.Unlock()

	res, err := s.engine.RunCycle(c.Request().Context())
	if err != nil {
		s.log.Error().Err(err).Msg("cycle failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

type statusResponse struct {
	Series       string                `json:"series"`
	Position     *model.Position       `json:"position,omitempty"`
	PendingOrder *model.PendingOrder   `json:"pending_order,omitempty"`
	Daily        model.DailyStats      `json:"daily"`
	Learned      model.LearnedState    `json:"learned"`
	SpotPrice    float64               `json:"spot_price,omitempty"`
	BalanceCents int64                 `json:"balance_cents,omitempty"`
	Exchange     *venue.ExchangeStatus `json:"exchange,omitempty"`
}

// handleStatus reports the persisted state without running a cycle.
func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	out := statusResponse{Series: s.series}

	var pos model.Position
	ok, err := s.store.GetJSON(ctx, store.PositionKey(s.series), &pos)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if ok {
		out.Position = &pos
	}

	var po model.PendingOrder
	ok, err = s.store.GetJSON(ctx, store.PendingOrderKey(s.series), &po)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if ok {
		out.PendingOrder = &po
	}

	if _, err := s.store.GetJSON(ctx, store.DailyStatsKey(s.series), &out.Daily); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if _, err := s.store.GetJSON(ctx, store.LearnedKey(s.series), &out.Learned); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if s.spot != nil {
		if p, ok := s.spot(); ok {
			out.SpotPrice = p
		}
	}
	if s.venue != nil {
		if b, err := s.venue.BalanceCents(ctx); err == nil {
			out.BalanceCents = b
		} else {
			s.log.Warn().Err(err).Msg("balance lookup failed")
		}
		if es, err := s.venue.ExchangeStatus(ctx); err == nil {
			out.Exchange = &es
		} else {
			s.log.Warn().Err(err).Msg("exchange status lookup failed")
		}
	}
	return c.JSON(http.StatusOK, out)
}

// handleHistory returns the bounded closed-trade history, newest last.
func (s *Server) handleHistory(c echo.Context) error {
	var history []model.ClosedTrade
	if _, err := s.store.GetJSON(c.Request().Context(), store.TradeHistoryKey, &history); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if history == nil {
		history = []model.ClosedTrade{}
	}
	return c.JSON(http.StatusOK, history)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
