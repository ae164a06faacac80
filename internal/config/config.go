// Package config exposes strongly typed application configuration loaded
// from YAML, with credentials pulled from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name       string `yaml:"name" default:"strikebot"`
	ListenAddr string `yaml:"listen_addr" default:":8080" validate:"required"`
	LogLevel   string `yaml:"log_level" default:"info" validate:"oneof=trace debug info warn error"`
}

// Trading groups every knob of the signal, pricing, risk, and lifecycle
// layers for one contract series.
type Trading struct {
	Series    string `yaml:"series" validate:"required"`
	Enabled   bool   `yaml:"enabled" default:"true"`
	Simulated bool   `yaml:"simulated" default:"true"`

	MinEdgeCents    float64 `yaml:"min_edge_cents" default:"5"`
	MinAskCents     int     `yaml:"min_ask_cents" default:"15" validate:"min=1,max=99"`
	MaxAskCents     int     `yaml:"max_ask_cents" default:"85" validate:"min=1,max=99"`
	MakerOffsetCents int    `yaml:"maker_offset_cents" default:"1" validate:"min=0"`
	MinDepthRatio   float64 `yaml:"min_depth_ratio" default:"0.35"`
	FlowNudgeCents  float64 `yaml:"flow_nudge_cents" default:"3"`

	MaxPerTradeBudgetCents int `yaml:"max_per_trade_budget_cents" default:"2500" validate:"min=1"`
	MaxContracts           int `yaml:"max_contracts" default:"50" validate:"min=1"`
	DailyMaxLossCents      int `yaml:"daily_max_loss_cents" default:"5000" validate:"min=1"`
	MaxTradesPerDay        int `yaml:"max_trades_per_day" default:"12" validate:"min=1"`

	BaseCooldown   time.Duration `yaml:"base_cooldown" default:"5m"`
	PendingTimeout time.Duration `yaml:"pending_timeout" default:"2m30s"`

	TakeProfitBidCents    int `yaml:"take_profit_bid_cents" default:"97" validate:"min=1,max=99"`
	TakeProfitGainCents   int `yaml:"take_profit_gain_cents" default:"25" validate:"min=1"`
	LockInMinutes         int `yaml:"lock_in_minutes" default:"5" validate:"min=1"`
	LockInGainCents       int `yaml:"lock_in_gain_cents" default:"10" validate:"min=1"`
	TrailingStopCents     int `yaml:"trailing_stop_cents" default:"12" validate:"min=1"`
	CollapseBidCents      int `yaml:"collapse_bid_cents" default:"5" validate:"min=1"`
	TradeJournalPath      string `yaml:"trade_journal_path"`
}

// MarketData configures the spot candle and depth source.
type MarketData struct {
	RESTBaseURL  string `yaml:"rest_base_url" default:"https://api.binance.com" validate:"required,url"`
	WSBaseURL    string `yaml:"ws_base_url" default:"wss://stream.binance.com:9443"`
	Symbol       string `yaml:"symbol" default:"BTCUSDT" validate:"required"`
	Granularity  string `yaml:"granularity" default:"1m"`
	ConfirmGranularity string `yaml:"confirm_granularity" default:"5m"`
	CandleLimit  int    `yaml:"candle_limit" default:"60" validate:"min=30"`
	DepthLevels  int    `yaml:"depth_levels" default:"10" validate:"min=1"`
	StreamEnabled bool  `yaml:"stream_enabled" default:"true"`
}

// Venue configures the prediction-market venue client. Credentials come
// from the environment, never from YAML.
type Venue struct {
	BaseURL        string `yaml:"base_url" default:"https://demo-api.kalshi.co/trade-api/v2" validate:"required,url"`
	APIKeyEnv      string `yaml:"api_key_env" default:"VENUE_API_KEY"`
	PrivateKeyEnv  string `yaml:"private_key_path_env" default:"VENUE_PRIVATE_KEY_PATH"`
	OrderBookDepth int    `yaml:"order_book_depth" default:"10" validate:"min=1"`

	// Resolved from the environment by Load.
	APIKey         string `yaml:"-"`
	PrivateKeyPath string `yaml:"-"`
}

// Redis configures the per-series state store.
type Redis struct {
	Addr   string `yaml:"addr" default:"localhost:6379" validate:"required"`
	DB     int    `yaml:"db" default:"0"`
	Prefix string `yaml:"prefix" default:"strikebot"`
	Password string `yaml:"-"`
}

// Telegram configures optional trade notifications.
type Telegram struct {
	Enabled  bool   `yaml:"enabled" default:"false"`
	TokenEnv string `yaml:"token_env" default:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `yaml:"chat_id"`
	Token    string `yaml:"-"`
}

// Config collects every configuration leaf.
type Config struct {
	App        App        `yaml:"app"`
	Trading    Trading    `yaml:"trading"`
	MarketData MarketData `yaml:"market_data"`
	Venue      Venue      `yaml:"venue"`
	Redis      Redis      `yaml:"redis"`
	Telegram   Telegram   `yaml:"telegram"`
}

// Load reads a YAML file, applies defaults, resolves credentials from the
// environment (.env is honored when present), and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	cfg.Venue.APIKey = os.Getenv(cfg.Venue.APIKeyEnv)
	cfg.Venue.PrivateKeyPath = os.Getenv(cfg.Venue.PrivateKeyEnv)
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Telegram.Token = os.Getenv(cfg.Telegram.TokenEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces structural validity plus the cross-field rules that
// tags cannot express. Missing venue credentials outside simulated mode are
// a fatal configuration error.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if c.Trading.MinAskCents >= c.Trading.MaxAskCents {
		return fmt.Errorf("validate config: min_ask_cents %d must be below max_ask_cents %d",
			c.Trading.MinAskCents, c.Trading.MaxAskCents)
	}
	if !c.Trading.Simulated {
		if c.Venue.APIKey == "" {
			return fmt.Errorf("validate config: %s is required for live trading", c.Venue.APIKeyEnv)
		}
		if c.Venue.PrivateKeyPath == "" {
			return fmt.Errorf("validate config: %s is required for live trading", c.Venue.PrivateKeyEnv)
		}
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("validate config: %s is required when telegram is enabled", c.Telegram.TokenEnv)
	}
	return nil
}
