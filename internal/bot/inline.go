package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tdhoang/gramlist/internal/handle"
	"github.com/tdhoang/gramlist/internal/stats"
	"github.com/tdhoang/gramlist/internal/store"
)

const inlineResultLimit = 10

var starFilterPattern = regexp.MustCompile(`^([1-5])\s*sao$`)

// ambientAnswer handles plain chat text. Pasted profile URLs behave like
// /add, a bare digit answers an open rating prompt, anything else gets a
// nudge toward the command surface.
func (b *Bot) ambientAnswer(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	requester := msg.From.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	sess := b.sessions.Get(requester)
	if sess.State == StateAwaitingRating || sess.State == StateAwaitingUpdateRating {
		if rating, ok := parseRatingArg(text); ok {
			arg := strconv.Itoa(rating)
			if sess.State == StateAwaitingRating {
				b.onRate(ctx, chatID, requester, arg)
			} else {
				b.onUpdateRate(ctx, chatID, requester, arg)
			}
			return
		}
	}

	var urls []string
	for _, field := range strings.Fields(text) {
		if _, ok := handle.FromURL(field); ok {
			urls = append(urls, field)
		}
	}
	if len(urls) > 0 {
		b.cmdAdd(ctx, chatID, requester, urls)
		return
	}

	b.reply(chatID, "Send a profile URL to add it, or /help for commands.")
}

// handleInline answers inline queries: "stats", "random", "N sao" rating
// filters, or free-text name search, capped at inlineResultLimit articles.
func (b *Bot) handleInline(ctx context.Context, iq *tgbotapi.InlineQuery) {
	query := strings.TrimSpace(strings.ToLower(iq.Query))

	records, err := b.store.ReadAll(ctx)
	if err != nil {
		slog.Error("inline read", "err", err)
		return
	}

	var results []interface{}
	switch {
	case query == "stats":
		results = append(results, inlineArticle("stats", "Catalogue stats", formatStats(stats.Compute(records))))
	case query == "random":
		if rec, ok := stats.Random(records, 0); ok {
			results = append(results, recordArticle(rec))
		}
	default:
		var matches []store.Record
		if m := starFilterPattern.FindStringSubmatch(query); m != nil {
			rating, _ := strconv.Atoi(m[1])
			for _, r := range records {
				if r.Rating == rating {
					matches = append(matches, r)
				}
			}
		} else {
			matches = searchRecords(records, query)
		}
		for _, rec := range matches {
			if len(results) >= inlineResultLimit {
				break
			}
			results = append(results, recordArticle(rec))
		}
	}

	resp := tgbotapi.InlineConfig{
		InlineQueryID: iq.ID,
		Results:       results,
		CacheTime:     10,
		IsPersonal:    true,
	}
	if _, err := b.api.Request(resp); err != nil {
		slog.Error("answer inline", "err", err)
	}
}

func recordArticle(rec store.Record) tgbotapi.InlineQueryResultArticle {
	title := rec.DisplayTitle()
	desc := starRating(rec.Rating)
	art := inlineArticle("rec:"+strconv.Itoa(rec.RowIndex), title, formatRecordCard(rec))
	art.Description = desc
	if rec.AvatarURL != "" && !store.IsSentinel(rec.AvatarURL) {
		art.ThumbURL = rec.AvatarURL
	}
	return art
}

func inlineArticle(id, title, html string) tgbotapi.InlineQueryResultArticle {
	art := tgbotapi.NewInlineQueryResultArticleHTML(fmt.Sprintf("gl:%s", id), title, html)
	return art
}
