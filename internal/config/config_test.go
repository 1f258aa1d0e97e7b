package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "browser", cfg.Scraping.Backend)
	assert.True(t, cfg.Scraping.Headless)
	assert.Equal(t, "Sheet1", cfg.Sheet.Worksheet)
	assert.Equal(t, ":8080", cfg.KeepAlive.Listen)
	assert.False(t, cfg.CloudinaryEnabled())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRAMLIST_TELEGRAM_TOKEN", "tok-from-env")
	t.Setenv("GRAMLIST_ALLOWED_USERS", "11, 22,33")

	cfg := Default()
	cfg.Telegram.Token = "tok-from-file"
	cfg.applyEnv()

	assert.Equal(t, "tok-from-env", cfg.Telegram.Token)
	assert.Equal(t, []int64{11, 22, 33}, cfg.Telegram.AllowedUserIDs)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())

	cfg.Telegram.Token = "tok"
	assert.Error(t, cfg.Validate())

	cfg.Sheet.SpreadsheetID = "sheet"
	assert.NoError(t, cfg.Validate())
}
