// Package notify pushes trade events to Telegram. Delivery is best effort;
// a failed send is logged and never blocks the trading cycle.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"strikebot/internal/model"
)

// Telegram sends one-line trade summaries to a chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// NewTelegram authenticates the bot token with Telegram.
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

func (t *Telegram) send(text string) {
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		t.log.Warn().Err(err).Msg("telegram send failed")
	}
}

// OrderPlaced announces a new entry order.
func (t *Telegram) OrderPlaced(ticker string, side model.Side, priceCents, count int) {
	t.send(fmt.Sprintf("entry %s %s x%d at %dc", ticker, side, count, priceCents))
}

// TradeClosed announces a finished trade with its result and P&L.
func (t *Telegram) TradeClosed(trade model.ClosedTrade) {
	t.send(fmt.Sprintf("closed %s %s: %s (%s), pnl %+dc",
		trade.Ticker, trade.Side, trade.Result, trade.Reason, trade.PnLCents))
}
