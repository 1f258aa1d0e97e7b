package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tdhoang/gramlist/internal/backup"
	"github.com/tdhoang/gramlist/internal/enrich"
	"github.com/tdhoang/gramlist/internal/handle"
	"github.com/tdhoang/gramlist/internal/stats"
	"github.com/tdhoang/gramlist/internal/store"
)

const helpText = `<b>gramlist</b>
/add &lt;url...&gt; — add profiles and rate them one by one
/update &lt;handle&gt; — change a rating
/delete &lt;handle&gt; — remove a profile
/search &lt;text&gt; — find profiles by name
/stats — catalogue summary
/random [1-5] — a random profile
/backup — CSV export
/scrape — fetch names and avatars for new profiles
/cancel — abandon the current flow`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	requester := msg.From.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
	case "add":
		b.cmdAdd(ctx, chatID, requester, strings.Fields(args))
	case "update":
		b.cmdUpdate(ctx, chatID, requester, args)
	case "delete":
		b.cmdDelete(ctx, chatID, requester, args)
	case "search":
		b.cmdSearch(ctx, chatID, requester, args)
	case "stats":
		b.cmdStats(ctx, chatID)
	case "random":
		b.cmdRandom(ctx, chatID, args)
	case "backup":
		b.cmdBackup(ctx, chatID)
	case "scrape":
		b.cmdScrape(ctx, chatID, requester)
	case "cancel":
		b.cmdCancel(chatID, requester)
	default:
		b.reply(chatID, "Unknown command. Try /help.")
	}
}

// cmdAdd dedups candidate URLs against a fresh store read, appends the
// accepted ones as bare records, and starts the sequential rating flow.
func (b *Bot) cmdAdd(ctx context.Context, chatID, requester int64, urls []string) {
	if len(urls) == 0 {
		b.reply(chatID, "Usage: /add <profile url...>")
		return
	}

	records, err := b.store.ReadAll(ctx)
	if err != nil {
		b.storeError(chatID, err)
		return
	}
	known := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Username != "" {
			known[r.Username] = true
		}
	}

	var accepted []pendingProfile
	var skipped, invalid []string
	for _, raw := range urls {
		h, ok := handle.FromURL(raw)
		if !ok {
			invalid = append(invalid, raw)
			continue
		}
		if known[h] {
			skipped = append(skipped, h)
			continue
		}
		known[h] = true
		accepted = append(accepted, pendingProfile{URL: handle.ProfileURL(h), Username: h})
	}

	for _, p := range accepted {
		if err := b.store.Append(ctx, store.Record{URL: p.URL, Username: p.Username}); err != nil {
			b.storeError(chatID, err)
			return
		}
	}

	b.reply(chatID, formatAddSummary(len(accepted), skipped, invalid))
	if len(accepted) == 0 {
		return
	}

	sess := b.sessions.Get(requester)
	sess.State = StateAwaitingRating
	sess.Queue = accepted
	sess.Current = nil
	sess.Total = len(accepted)
	sess.Done = 0
	b.promptNextRating(chatID, requester)
}

// promptNextRating pops the queue head and solicits its rating, or ends the
// flow when the queue has drained.
func (b *Bot) promptNextRating(chatID, requester int64) {
	sess := b.sessions.Get(requester)
	if len(sess.Queue) == 0 {
		done := sess.Done
		b.sessions.Clear(requester)
		b.reply(chatID, fmt.Sprintf("All done — %d profile(s) rated.", done))
		return
	}

	next := sess.Queue[0]
	sess.Queue = sess.Queue[1:]
	sess.Current = &next
	sess.State = StateAwaitingRating

	text := fmt.Sprintf("Rate <b>@%s</b> (%d/%d)", escape(next.Username), sess.Done+1, sess.Total)
	b.replyWithKeyboard(chatID, text, ratingKeyboard(callbackRate))
}

// argHandle resolves a command argument that may be @handle, bare handle,
// or a full profile URL.
func argHandle(arg string) string {
	if h, ok := handle.FromURL(arg); ok {
		return h
	}
	return handle.Normalize(strings.TrimPrefix(arg, "@"))
}

func (b *Bot) cmdUpdate(ctx context.Context, chatID, requester int64, arg string) {
	h := argHandle(arg)
	if h == "" {
		b.reply(chatID, "Usage: /update <handle>")
		return
	}

	records, err := b.store.ReadAll(ctx)
	if err != nil {
		b.storeError(chatID, err)
		return
	}
	rec, ok := store.FindByHandle(records, h)
	if !ok {
		b.reply(chatID, fmt.Sprintf("No profile found for @%s.", escape(h)))
		return
	}

	sess := b.sessions.Get(requester)
	sess.State = StateAwaitingUpdateRating
	sess.Target = &rec
	b.replyWithKeyboard(chatID,
		fmt.Sprintf("New rating for %s:", formatRecordLine(rec)),
		ratingKeyboard(callbackUpdateRate))
}

func (b *Bot) cmdDelete(ctx context.Context, chatID, requester int64, arg string) {
	h := argHandle(arg)
	if h == "" {
		b.reply(chatID, "Usage: /delete <handle>")
		return
	}

	records, err := b.store.ReadAll(ctx)
	if err != nil {
		b.storeError(chatID, err)
		return
	}
	rec, ok := store.FindByHandle(records, h)
	if !ok {
		b.reply(chatID, fmt.Sprintf("No profile found for @%s.", escape(h)))
		return
	}

	sess := b.sessions.Get(requester)
	sess.State = StateAwaitingDeleteConfirm
	sess.Target = &rec
	b.replyWithKeyboard(chatID,
		fmt.Sprintf("Delete %s?", formatRecordLine(rec)),
		confirmKeyboard())
}

func (b *Bot) cmdSearch(ctx context.Context, chatID, requester int64, query string) {
	if query == "" {
		b.reply(chatID, "Usage: /search <text>")
		return
	}

	records, err := b.store.ReadAll(ctx)
	if err != nil {
		b.storeError(chatID, err)
		return
	}
	matches := searchRecords(records, query)
	if len(matches) == 0 {
		b.reply(chatID, "No matches.")
		return
	}

	if len(matches) <= pageSize {
		b.reply(chatID, formatResultsPage(matches, 0))
		return
	}

	sess := b.sessions.Get(requester)
	sess.State = StatePagingResults
	sess.Results = matches
	sess.Page = 0
	b.replyWithKeyboard(chatID, formatResultsPage(matches, 0), pagingKeyboard())
}

func (b *Bot) cmdStats(ctx context.Context, chatID int64) {
	records, err := b.store.ReadAll(ctx)
	if err != nil {
		b.storeError(chatID, err)
		return
	}
	b.reply(chatID, formatStats(stats.Compute(records)))
}

func (b *Bot) cmdRandom(ctx context.Context, chatID int64, arg string) {
	rating := 0
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > 5 {
			b.reply(chatID, "Usage: /random [1-5]")
			return
		}
		rating = n
	}

	records, err := b.store.ReadAll(ctx)
	if err != nil {
		b.storeError(chatID, err)
		return
	}
	rec, ok := stats.Random(records, rating)
	if !ok {
		b.reply(chatID, "Nothing matches.")
		return
	}
	b.reply(chatID, formatRecordCard(rec))
}

func (b *Bot) cmdBackup(ctx context.Context, chatID int64) {
	data, err := backup.Export(ctx, b.store)
	if err != nil {
		b.storeError(chatID, err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "gramlist-backup.csv",
		Bytes: data,
	})
	if _, err := b.api.Send(doc); err != nil {
		slog.Error("send backup", "err", err)
	}
}

// cmdScrape acks immediately and lets the runner deliver its report
// out-of-band when the job finishes.
func (b *Bot) cmdScrape(ctx context.Context, chatID, requester int64) {
	err := b.runner.Enqueue(ctx, requester, func(rep enrich.Report) {
		b.reply(chatID, formatScrapeReport(rep))
	})
	if err != nil {
		b.reply(chatID, escape(err.Error()))
		return
	}
	b.reply(chatID, "Scraping started — I'll report back here when it's done.")
}

// cmdCancel clears the requester's conversation. Ratings already persisted
// stay persisted; only the unrated remainder is dropped.
func (b *Bot) cmdCancel(chatID, requester int64) {
	sess := b.sessions.Get(requester)
	dropped := len(sess.Queue)
	if sess.Current != nil {
		dropped++
	}
	b.sessions.Clear(requester)

	if dropped > 0 {
		b.reply(chatID, fmt.Sprintf("Cancelled — %d unrated profile(s) dropped.", dropped))
		return
	}
	b.reply(chatID, "Cancelled.")
}

func (b *Bot) storeError(chatID int64, err error) {
	slog.Error("record store error", "err", err)
	b.reply(chatID, "The record store is unavailable right now, try again later.")
}
