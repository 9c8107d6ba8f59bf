package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	resetCmd      = "reset_ctx"
	resetLabel    = "Zresetuj rozmowę"
	resetDoneText = "Rozmowa została zresetowana."
	startGreeting = "Cześć"
)

// Chatter is the orchestrator surface the bot needs.
type Chatter interface {
	Reply(ctx context.Context, userID, prompt string) string
	Reset(userID string)
}

// Bot relays Telegram messages to the same conversations as the HTTP API.
// Every update is handled on its own goroutine so a slow turn for one
// user never delays another.
type Bot struct {
	api    *tgbotapi.BotAPI
	out    messenger
	chat   Chatter
	logger *slog.Logger
	wg     sync.WaitGroup
}

func New(botToken string, chat Chatter, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{api: api, out: api, chat: chat, logger: logger}, nil
}

// Start long-polls updates until ctx is cancelled, then waits for in-flight turns.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("telegram bot started", "username", b.api.Self.UserName)
	defer b.api.StopReceivingUpdates()

	b.serve(ctx, updates)
	b.logger.Info("telegram bot stopped")
}

func (b *Bot) serve(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleIncomingMessage(ctx, update.Message)
		}()
	case update.CallbackQuery != nil:
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleCallback(update.CallbackQuery)
		}()
	}
}

func conversationID(telegramID int64) string {
	return fmt.Sprintf("tg:%d", telegramID)
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}
	userID := conversationID(msg.From.ID)
	prompt := msg.Text
	if msg.IsCommand() {
		if msg.Command() != "start" {
			return
		}
		b.chat.Reset(userID)
		prompt = startGreeting
	}

	b.logger.Debug("telegram message", "user_id", userID, "username", msg.From.UserName)
	reply := b.chat.Reply(ctx, userID, prompt)

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(resetLabel, resetCmd),
		),
	)
	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ReplyMarkup = kb
	if _, err := b.out.Send(out); err != nil {
		b.logger.Error("failed to send message", "user_id", userID, "error", err)
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	// stop the client's loading spinner whatever the button was
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", "error", err)
	}
	if cb.Data != resetCmd || cb.From == nil || cb.Message == nil {
		return
	}
	b.chat.Reset(conversationID(cb.From.ID))
	b.sendMessage(cb.Message.Chat.ID, resetDoneText)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.out.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}
