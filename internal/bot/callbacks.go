package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tdhoang/gramlist/internal/store"
)

// Callback data prefixes. The rating keyboards share a layout but carry
// different prefixes so a stale button can't rate the wrong flow.
const (
	callbackRate       = "rate"
	callbackUpdateRate = "updrate"
	callbackDelete     = "del"
	callbackPage       = "page"
)

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			slog.Debug("answer callback", "err", err)
		}
	}()

	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	requester := cq.From.ID

	prefix, arg, _ := strings.Cut(cq.Data, ":")
	switch prefix {
	case callbackRate:
		b.onRate(ctx, chatID, requester, arg)
	case callbackUpdateRate:
		b.onUpdateRate(ctx, chatID, requester, arg)
	case callbackDelete:
		b.onDeleteConfirm(ctx, chatID, requester, arg)
	case callbackPage:
		b.onPage(chatID, requester, arg)
	}
}

// onRate persists the rating for the current queue item and advances the
// flow. The record was appended by /add; a fresh read locates its live row
// so the write survives concurrent deletions shifting rows around.
func (b *Bot) onRate(ctx context.Context, chatID, requester int64, arg string) {
	sess := b.sessions.Get(requester)
	if sess.State != StateAwaitingRating || sess.Current == nil {
		return
	}
	rating, ok := parseRatingArg(arg)
	if !ok {
		return
	}

	cur := *sess.Current
	if err := b.writeRating(ctx, cur.Username, cur.URL, rating); err != nil {
		b.storeError(chatID, err)
		return
	}

	sess.Current = nil
	sess.Done++
	b.reply(chatID, fmt.Sprintf("@%s → %s", escape(cur.Username), starRating(rating)))
	b.promptNextRating(chatID, requester)
}

func (b *Bot) onUpdateRate(ctx context.Context, chatID, requester int64, arg string) {
	sess := b.sessions.Get(requester)
	if sess.State != StateAwaitingUpdateRating || sess.Target == nil {
		return
	}
	rating, ok := parseRatingArg(arg)
	if !ok {
		return
	}

	target := *sess.Target
	b.sessions.Clear(requester)

	if err := b.writeRating(ctx, target.Username, target.URL, rating); err != nil {
		b.storeError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("@%s updated → %s", escape(target.Username), starRating(rating)))
}

func (b *Bot) onDeleteConfirm(ctx context.Context, chatID, requester int64, arg string) {
	sess := b.sessions.Get(requester)
	if sess.State != StateAwaitingDeleteConfirm || sess.Target == nil {
		return
	}
	target := *sess.Target
	b.sessions.Clear(requester)

	if arg != "yes" {
		b.reply(chatID, "Kept.")
		return
	}

	// Re-resolve the row right before deleting; another flow may have
	// shifted rows since the confirmation prompt went out.
	records, err := b.store.ReadAll(ctx)
	if err != nil {
		b.storeError(chatID, err)
		return
	}
	rec, ok := store.FindByHandle(records, target.Username)
	if !ok {
		b.reply(chatID, "Already gone.")
		return
	}
	if err := b.store.DeleteRow(ctx, rec.RowIndex); err != nil {
		b.storeError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Deleted @%s.", escape(target.Username)))
}

func (b *Bot) onPage(chatID, requester int64, arg string) {
	sess := b.sessions.Get(requester)
	if sess.State != StatePagingResults || len(sess.Results) == 0 {
		return
	}

	switch arg {
	case "next":
		sess.Page++
		if sess.Page*pageSize >= len(sess.Results) {
			b.sessions.Clear(requester)
			b.reply(chatID, "End of results.")
			return
		}
		last := (sess.Page+1)*pageSize >= len(sess.Results)
		if last {
			page := sess.Page
			results := sess.Results
			b.sessions.Clear(requester)
			b.reply(chatID, formatResultsPage(results, page))
			return
		}
		b.replyWithKeyboard(chatID, formatResultsPage(sess.Results, sess.Page), pagingKeyboard())
	case "stop":
		b.sessions.Clear(requester)
		b.reply(chatID, "Stopped.")
	}
}

// writeRating updates the rating cell of the row currently holding username,
// appending a fresh record if the row disappeared since it was queued.
func (b *Bot) writeRating(ctx context.Context, username, url string, rating int) error {
	records, err := b.store.ReadAll(ctx)
	if err != nil {
		return err
	}
	rec, ok := store.FindByHandle(records, username)
	if !ok {
		return b.store.Append(ctx, store.Record{URL: url, Username: username, Rating: rating})
	}
	return b.store.UpdateCell(ctx, rec.RowIndex, store.FieldRating, strconv.Itoa(rating))
}

func parseRatingArg(arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}
