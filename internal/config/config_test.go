package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("LEXIS_LOCATION", "ja-JP")
	t.Setenv("LEXIS_ADMIN_IDS", "1, 2,,3")
	t.Setenv("LEXIS_DAILY_LIMIT", "20")
	t.Setenv("LEXIS_PRODUCER_TIMEOUT", "3s")
	t.Setenv("LEXIS_SEGMENTER", "kagome")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "ja-JP", cfg.Location)
	assert.Equal(t, 20, cfg.DailyLimit)
	assert.Equal(t, 3*time.Second, cfg.ProducerTimeout)
	assert.Equal(t, SegmenterKagome, cfg.Segmenter)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(4))
	assert.Equal(t, 150, cfg.PhraseMaxLen)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvReportsBadValues(t *testing.T) {
	t.Setenv("LEXIS_DAILY_LIMIT", "fifty")
	t.Setenv("LEXIS_ADMIN_IDS", "1,x")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEXIS_DAILY_LIMIT")
	assert.Contains(t, err.Error(), "LEXIS_ADMIN_IDS")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.DailyLimit = 0
	cfg.Segmenter = "mecab"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEXIS_DAILY_LIMIT")
	assert.Contains(t, err.Error(), "LEXIS_SEGMENTER")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LEXIS_TEST_ENV_VALUE=from-file\n"), 0o600))
	t.Setenv("LEXIS_TEST_ENV_VALUE", "")
	os.Unsetenv("LEXIS_TEST_ENV_VALUE")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("LEXIS_TEST_ENV_VALUE"))

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
