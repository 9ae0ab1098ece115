package telegram

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"
)

// BotCaller executes Bot API methods through the bot's transport. It is the
// terminal Caller that client adaptors stack on top of.
type BotCaller struct {
	bot *tele.Bot
}

// NewBotCaller wraps a bot.
func NewBotCaller(bot *tele.Bot) *BotCaller {
	return &BotCaller{bot: bot}
}

// Call performs a raw Bot API request and returns the response body.
func (c *BotCaller) Call(ctx context.Context, method string, payload any) ([]byte, error) {
	if c.bot == nil {
		return nil, errors.New("telegram: caller has no bot")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.bot.Raw(method, payload)
}
