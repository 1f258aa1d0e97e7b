// Command glctl is a dev CLI for gramlist maintenance and debugging tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/chromedp/chromedp"

	browseropts "github.com/tdhoang/gramlist/internal/browser"
	"github.com/tdhoang/gramlist/internal/backup"
	"github.com/tdhoang/gramlist/internal/config"
	"github.com/tdhoang/gramlist/internal/session"
	"github.com/tdhoang/gramlist/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "login":
		runLogin()
	case "session":
		runSession()
	case "export":
		runExport()
	case "bot-test":
		runBotTest()
		os.Exit(0)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: glctl <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login      Open a browser to log in and capture the session cookies")
	fmt.Println("  session    Show whether the stored session is still valid")
	fmt.Println("  export     Write the catalogue as CSV to stdout")
	fmt.Println("  bot-test   Open bot.sannysoft.com to audit browser fingerprint")
}

func mustConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runLogin() {
	cfg := mustConfig()
	sess := session.NewStore(cfg.Scraping.SessionFile)

	log.Println("Opening browser for login...")
	if err := session.Login(context.Background(), sess); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.Printf("Session saved to %s", sess.Path())
}

func runSession() {
	cfg := mustConfig()
	sess := session.NewStore(cfg.Scraping.SessionFile)

	if sess.IsValid() {
		fmt.Println("Session is valid.")
		return
	}
	fmt.Println("No valid session. Run `glctl login`.")
	os.Exit(1)
}

func runExport() {
	cfg := mustConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx := context.Background()
	cols := store.DefaultColumns()
	if cfg.Sheet.RatingColumn != "" {
		cols.Rating = cfg.Sheet.RatingColumn
	}
	sheet, err := store.NewSheet(ctx, cfg.Sheet.CredentialsFile, cfg.Sheet.SpreadsheetID, cfg.Sheet.Worksheet, cols)
	if err != nil {
		log.Fatalf("Failed to open sheet: %v", err)
	}

	data, err := backup.Export(ctx, sheet)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	os.Stdout.Write(data)
}

func runBotTest() {
	log.Println("Opening bot.sannysoft.com with stealth browser options...")

	opts := browseropts.Options(false) // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	go func() {
		err := chromedp.Run(ctx,
			chromedp.Navigate("https://bot.sannysoft.com"),
		)
		if err != nil {
			log.Printf("Failed to navigate: %v", err)
		}
	}()

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()

	log.Println("Done.")
}
