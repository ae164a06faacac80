// Command cycle runs exactly one trade cycle and prints the result as JSON,
// for cron-style scheduling against the same state store as the daemon.
// Running it while the daemon serves the same series races the state
// documents; use one trigger or the other.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"strikebot/internal/config"
	"strikebot/internal/engine"
	"strikebot/internal/marketdata"
	"strikebot/internal/notify"
	"strikebot/internal/store"
	"strikebot/internal/util"
	"strikebot/internal/venue"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	series := flag.String("series", "", "override the configured contract series")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *series != "" {
		cfg.Trading.Series = *series
	}
	log := util.NewLogger(cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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

	// One-shot runs have no time to warm a websocket; spot falls back to
	// the latest candle close.
	opts := []engine.Option{engine.WithBookDepth(cfg.Venue.OrderBookDepth)}
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

	res, err := eng.RunCycle(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("cycle failed")
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}
