package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// messenger is the part of the Bot API the handlers talk to.
// *tgbotapi.BotAPI satisfies it; tests use a recording fake.
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	// Request is used for calls whose result is not a message,
	// such as acknowledging a callback query.
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ messenger = (*tgbotapi.BotAPI)(nil)
