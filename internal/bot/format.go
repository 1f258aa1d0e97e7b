package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tdhoang/gramlist/internal/enrich"
	"github.com/tdhoang/gramlist/internal/stats"
	"github.com/tdhoang/gramlist/internal/store"
)

const pageSize = 5

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func starRating(rating int) string {
	if rating < 1 || rating > 5 {
		return "unrated"
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// formatRecordLine is the one-line form used in prompts and result lists.
func formatRecordLine(rec store.Record) string {
	title := escape(rec.DisplayTitle())
	if rec.Username != "" && rec.FullName != "" && !store.IsSentinel(rec.FullName) {
		title = fmt.Sprintf("%s (@%s)", escape(rec.FullName), escape(rec.Username))
	}
	return fmt.Sprintf(`<a href="%s">%s</a> %s`, rec.URL, title, starRating(rec.Rating))
}

// formatRecordCard is the full card used for /random and inline results.
func formatRecordCard(rec store.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", escape(rec.DisplayTitle()))
	fmt.Fprintf(&sb, "%s\n", rec.URL)
	fmt.Fprintf(&sb, "Rating: %s", starRating(rec.Rating))
	if store.IsSentinel(rec.FullName) {
		fmt.Fprintf(&sb, "\nLast scrape: %s", escape(rec.FullName))
	}
	return sb.String()
}

func formatAddSummary(accepted int, skipped, invalid []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Added %d new profile(s).", accepted)
	if len(skipped) > 0 {
		fmt.Fprintf(&sb, "\nAlready catalogued: @%s", escape(strings.Join(skipped, ", @")))
	}
	if len(invalid) > 0 {
		fmt.Fprintf(&sb, "\nNot profile URLs: %s", escape(strings.Join(invalid, ", ")))
	}
	return sb.String()
}

func formatResultsPage(results []store.Record, page int) string {
	start := page * pageSize
	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%d match(es)</b> — showing %d–%d\n", len(results), start+1, end)
	for _, rec := range results[start:end] {
		sb.WriteString("\n" + formatRecordLine(rec))
	}
	return sb.String()
}

// formatStats renders the summary as a monospace table.
func formatStats(sum stats.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendRows([]table.Row{
		{"Profiles", sum.Total},
		{"Enriched", sum.Enriched},
		{"Rated", sum.Rated},
	})
	if sum.Rated > 0 {
		tw.AppendRow(table.Row{"Average", fmt.Sprintf("%.2f", sum.Average)})
	}
	tw.AppendSeparator()
	for rating := 5; rating >= 1; rating-- {
		tw.AppendRow(table.Row{starRating(rating), sum.PerRating[rating]})
	}
	return "<pre>" + escape(tw.Render()) + "</pre>"
}

func formatScrapeReport(rep enrich.Report) string {
	switch {
	case rep.Fatal != nil:
		return "Scrape aborted: " + escape(rep.Fatal.Error())
	case rep.NothingToDo:
		return "Nothing to scrape — every profile is already enriched."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Scrape finished: %d/%d enriched", rep.Enriched, rep.Candidates)
	if rep.Failed > 0 {
		fmt.Fprintf(&sb, ", %d marked failed", rep.Failed)
	}
	sb.WriteString(".")
	return sb.String()
}

// searchRecords matches query case-insensitively against handle and name.
func searchRecords(records []store.Record, query string) []store.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var matches []store.Record
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Username), q) {
			matches = append(matches, r)
			continue
		}
		if !store.IsSentinel(r.FullName) && strings.Contains(strings.ToLower(r.FullName), q) {
			matches = append(matches, r)
		}
	}
	return matches
}

func ratingKeyboard(prefix string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for n := 1; n <= 5; n++ {
		label := strconv.Itoa(n) + "★"
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, prefix+":"+strconv.Itoa(n)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete", callbackDelete+":yes"),
			tgbotapi.NewInlineKeyboardButtonData("Keep", callbackDelete+":no"),
		),
	)
}

func pagingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("More", callbackPage+":next"),
			tgbotapi.NewInlineKeyboardButtonData("Stop", callbackPage+":stop"),
		),
	)
}
