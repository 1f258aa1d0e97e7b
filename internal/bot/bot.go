// Package bot is the Telegram surface of the catalogue: commands, inline
// queries, and the per-requester conversations that rate, update, and
// delete records.
package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tdhoang/gramlist/internal/enrich"
	"github.com/tdhoang/gramlist/internal/store"
)

// API is the slice of the Telegram client the bot uses; *tgbotapi.BotAPI
// satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot routes Telegram updates. A single goroutine drives HandleUpdate, so
// conversation handling itself never blocks on scraping; the enrichment
// runner rejoins only by sending its report message.
type Bot struct {
	api      API
	store    store.Store
	runner   *enrich.Runner
	sessions *Sessions
	allowed  map[int64]bool
}

// New wires the bot. allowed may be empty, which admits everyone.
func New(api API, st store.Store, runner *enrich.Runner, allowed []int64) *Bot {
	allowedSet := make(map[int64]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}
	return &Bot{
		api:      api,
		store:    st,
		runner:   runner,
		sessions: NewSessions(),
		allowed:  allowedSet,
	}
}

// Run consumes updates until the channel closes or ctx is done.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one Telegram update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		if !b.admitted(update.Message.From) {
			return
		}
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		if !b.admitted(update.CallbackQuery.From) {
			return
		}
		b.handleCallback(ctx, update.CallbackQuery)
	case update.InlineQuery != nil:
		if !b.admitted(update.InlineQuery.From) {
			return
		}
		b.handleInline(ctx, update.InlineQuery)
	}
}

func (b *Bot) admitted(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if len(b.allowed) == 0 {
		return true
	}
	if !b.allowed[from.ID] {
		slog.Warn("update from requester outside allow-list", "requester", from.ID)
		return false
	}
	return true
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.ambientAnswer(ctx, msg)
}

// reply sends an HTML-formatted message, logging rather than failing on
// transport errors.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("send message", "chat", chatID, "err", err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("send message", "chat", chatID, "err", err)
	}
}
