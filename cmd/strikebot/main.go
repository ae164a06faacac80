// Command strikebot runs the trading daemon: it connects the market-data
// stream, the venue client, and the state store, then serves the trigger
// API until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strikebot/internal/config"
	"strikebot/internal/engine"
	"strikebot/internal/marketdata"
	"strikebot/internal/notify"
	"strikebot/internal/store"
	"strikebot/internal/util"
	"strikebot/internal/venue"
	"strikebot/internal/web"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := util.NewLogger(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	if err != nil {
		log.Fatal().Err(err).Msg("connect state store")
	}
	defer st.Close()

	var signer venue.Signer = venue.NoopSigner{}
	if !cfg.Trading.Simulated {
		rsa, err := venue.NewRSASigner(cfg.Venue.APIKey, cfg.Venue.PrivateKeyPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load venue credentials")
		}
		signer = rsa
	}
	vc := venue.NewClient(cfg.Venue.BaseURL, signer, log)
	md := marketdata.NewClient(cfg.MarketData.RESTBaseURL, cfg.MarketData.Symbol)

	opts := []engine.Option{engine.WithBookDepth(cfg.Venue.OrderBookDepth)}
	var webOpts []web.Option
	if !cfg.Trading.Simulated {
		webOpts = append(webOpts, web.WithVenue(vc))
	}

	if cfg.MarketData.StreamEnabled {
		stream := marketdata.NewStream(cfg.MarketData.WSBaseURL, cfg.MarketData.Symbol, time.Minute, log)
		go func() {
			if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("trade stream stopped")
			}
		}()
		opts = append(opts,
			engine.WithSpotSource(stream.LastPrice),
			engine.WithFlowSource(stream.FlowBias),
		)
		webOpts = append(webOpts, web.WithSpot(stream.LastPrice))
	}
	if cfg.Trading.TradeJournalPath != "" {
		journal, err := store.NewTradeJournal(cfg.Trading.TradeJournalPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open trade journal")
		}
		defer journal.Close()
		opts = append(opts, engine.WithJournal(journal))
	}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect telegram")
		}
		opts = append(opts, engine.WithNotifier(tg))
	}

	eng := engine.New(cfg.Trading, cfg.MarketData, md, vc, st, log, opts...)
	srv := web.NewServer(eng, st, cfg.Trading.Series, log, webOpts...)

	go func() {
		if err := srv.Start(cfg.App.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()
	log.Info().
		Str("addr", cfg.App.ListenAddr).
		Str("series", cfg.Trading.Series).
		Bool("simulated", cfg.Trading.Simulated).
		Msg("strikebot up")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
