// Package config loads and persists the bot's TOML configuration. Secrets
// can be supplied through environment variables, which always win over the
// file so deployments never need tokens on disk.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version    int              `toml:"version"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Sheet      SheetConfig      `toml:"sheet"`
	Scraping   ScrapingConfig   `toml:"scraping"`
	Cloudinary CloudinaryConfig `toml:"cloudinary"`
	KeepAlive  KeepAliveConfig  `toml:"keepalive"`
}

type TelegramConfig struct {
	Token string `toml:"token"`
	// AllowedUserIDs is the operator allow-list; empty admits everyone.
	AllowedUserIDs []int64 `toml:"allowed_user_ids"`
}

type SheetConfig struct {
	SpreadsheetID   string `toml:"spreadsheet_id"`
	Worksheet       string `toml:"worksheet"`
	CredentialsFile string `toml:"credentials_file"`
	RatingColumn    string `toml:"rating_column"`
}

type ScrapingConfig struct {
	// Backend is "browser" or "client".
	Backend     string `toml:"backend"`
	Headless    bool   `toml:"headless"`
	SessionFile string `toml:"session_file"`
}

type CloudinaryConfig struct {
	CloudName string `toml:"cloud_name"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

type KeepAliveConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
	// PingURL is the externally reachable base URL this process pings to
	// stay awake on free-tier hosts.
	PingURL string `toml:"ping_url"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Sheet: SheetConfig{
			Worksheet:       "Sheet1",
			CredentialsFile: "credentials.json",
			RatingColumn:    "Rating",
		},
		Scraping: ScrapingConfig{
			Backend:     "browser",
			Headless:    true,
			SessionFile: "session.json",
		},
		KeepAlive: KeepAliveConfig{
			Listen: ":8080",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "gramlist"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from disk, creating a default file on first run, and
// applies environment overrides on top.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// applyEnv overlays environment variables onto the file values.
func (c *Config) applyEnv() {
	setString(&c.Telegram.Token, "GRAMLIST_TELEGRAM_TOKEN")
	setString(&c.Sheet.SpreadsheetID, "GRAMLIST_SPREADSHEET_ID")
	setString(&c.Sheet.CredentialsFile, "GRAMLIST_CREDENTIALS_FILE")
	setString(&c.Cloudinary.CloudName, "GRAMLIST_CLOUDINARY_CLOUD")
	setString(&c.Cloudinary.APIKey, "GRAMLIST_CLOUDINARY_KEY")
	setString(&c.Cloudinary.APISecret, "GRAMLIST_CLOUDINARY_SECRET")
	setString(&c.KeepAlive.PingURL, "GRAMLIST_PING_URL")

	if v := os.Getenv("GRAMLIST_ALLOWED_USERS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err == nil {
				ids = append(ids, id)
			}
		}
		c.Telegram.AllowedUserIDs = ids
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is not set (config or GRAMLIST_TELEGRAM_TOKEN)")
	}
	if c.Sheet.SpreadsheetID == "" {
		return errors.New("spreadsheet id is not set (config or GRAMLIST_SPREADSHEET_ID)")
	}
	return nil
}

// CloudinaryEnabled reports whether avatar re-hosting is configured.
func (c *Config) CloudinaryEnabled() bool {
	return c.Cloudinary.CloudName != "" && c.Cloudinary.APIKey != "" && c.Cloudinary.APISecret != ""
}
