package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lmittmann/tint"

	"github.com/tdhoang/gramlist/internal/bot"
	"github.com/tdhoang/gramlist/internal/config"
	"github.com/tdhoang/gramlist/internal/enrich"
	"github.com/tdhoang/gramlist/internal/extract"
	"github.com/tdhoang/gramlist/internal/fetch"
	"github.com/tdhoang/gramlist/internal/imagestore"
	"github.com/tdhoang/gramlist/internal/keepalive"
	"github.com/tdhoang/gramlist/internal/session"
	"github.com/tdhoang/gramlist/internal/store"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The sheet is the only durable state; without it nothing works, so
	// startup fails hard rather than limping along.
	sheet, err := store.NewSheet(ctx, cfg.Sheet.CredentialsFile, cfg.Sheet.SpreadsheetID, cfg.Sheet.Worksheet, sheetColumns(cfg))
	if err != nil {
		slog.Error("open sheet", "err", err)
		os.Exit(1)
	}

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		slog.Error("build fetcher", "err", err)
		os.Exit(1)
	}

	var images enrich.ImagePersister
	if cfg.CloudinaryEnabled() {
		cld, err := imagestore.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			slog.Error("init cloudinary", "err", err)
			os.Exit(1)
		}
		images = cld
	} else {
		slog.Warn("cloudinary not configured, avatars keep their source URLs")
	}

	runner := enrich.New(sheet, extract.NewEngine(fetcher), images)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		slog.Error("connect to telegram", "err", err)
		os.Exit(1)
	}
	slog.Info("authorized", "bot", api.Self.UserName)

	if cfg.KeepAlive.Enabled {
		ka := keepalive.New(cfg.KeepAlive.Listen, cfg.KeepAlive.PingURL)
		ka.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ka.Stop(shutdownCtx)
		}()
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := api.GetUpdatesChan(updateCfg)

	b := bot.New(api, sheet, runner, cfg.Telegram.AllowedUserIDs)
	slog.Info("bot running")
	b.Run(ctx, updates)
	slog.Info("shutting down")
}

func sheetColumns(cfg *config.Config) store.Columns {
	cols := store.DefaultColumns()
	if cfg.Sheet.RatingColumn != "" {
		cols.Rating = cfg.Sheet.RatingColumn
	}
	return cols
}

// buildFetcher selects the scraping backend and loads the authenticated
// session into it. A missing or expired session is not fatal here; scraping
// degrades to anonymous access until glctl login refreshes it.
func buildFetcher(cfg *config.Config) (fetch.Fetcher, error) {
	sess := session.NewStore(cfg.Scraping.SessionFile)
	if !sess.IsValid() {
		slog.Warn("no valid session on disk, run `glctl login` to authenticate", "path", sess.Path())
	}

	switch cfg.Scraping.Backend {
	case fetch.BackendClient:
		cookies, err := sess.HTTPCookies()
		if err != nil {
			slog.Warn("load session cookies", "err", err)
		}
		return fetch.NewClient(cookies), nil
	default:
		cookies, err := sess.InstagramCookies()
		if err != nil {
			slog.Warn("load session cookies", "err", err)
		}
		return fetch.NewBrowser(cfg.Scraping.Headless, cookies), nil
	}
}
