package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"LOG_LEVEL", "BOT_TOKEN", "BOT_PASSWORD", "STORAGE_DRIVER", "SQLITE_PATH", "SNAPSHOT_KEY",
	"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	"GEMINI_API_KEY", "DEEPSEEK_API_KEY", "MOONSHOT_API_KEY",
	"GEMINI_BASE_URL", "DEEPSEEK_BASE_URL", "MOONSHOT_BASE_URL",
	"TRANSLATION_MODEL", "TRANSLATION_LANGUAGE", "TRANSLATION_BATCH_SIZE", "TRANSLATION_DEBOUNCE",
	"CHECK_DELAY", "AUTOSAVE_INTERVAL",
}

// clearEnv empties every config variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		setEnv       bool
		envValue     string
		expected     string
	}{
		{
			name:         "env variable set",
			key:          "TEST_KEY",
			defaultValue: "default",
			setEnv:       true,
			envValue:     "custom",
			expected:     "custom",
		},
		{
			name:         "env variable not set",
			key:          "TEST_KEY_NOT_SET",
			defaultValue: "default",
			setEnv:       false,
			expected:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			Database: DatabaseConfig{
				Host:     "localhost",
				Port:     "5432",
				User:     "testuser",
				Password: "testpass",
				Name:     "testdb",
			},
		},
	}

	dsn := cfg.DSN()
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, dsn)
}

func TestLoad_WithDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "data/correctionloop.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "default", cfg.Storage.SnapshotKey)
	assert.Equal(t, "localhost", cfg.Storage.Database.Host)
	assert.Equal(t, "correctionloop", cfg.Storage.Database.Name)
	assert.Equal(t, "gemini-flash", cfg.Translation.Model)
	assert.Equal(t, "Chinese", cfg.Translation.TargetLanguage)
	assert.Equal(t, 100, cfg.Translation.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Translation.Debounce)
	assert.Equal(t, 600*time.Millisecond, cfg.Review.CheckDelay)
	assert.Equal(t, 30*time.Second, cfg.Autosave.Interval)
	assert.False(t, cfg.BotEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("TRANSLATION_MODEL", "kimi")
	t.Setenv("TRANSLATION_BATCH_SIZE", "25")
	t.Setenv("TRANSLATION_DEBOUNCE", "500ms")
	t.Setenv("CHECK_DELAY", "0s")
	t.Setenv("MOONSHOT_BASE_URL", "http://localhost:9000/v1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "kimi", cfg.Translation.Model)
	assert.Equal(t, 25, cfg.Translation.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Translation.Debounce)
	assert.Zero(t, cfg.Review.CheckDelay)
	assert.Equal(t, "http://localhost:9000/v1", cfg.Translation.MoonshotBaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		contains string
	}{
		{
			name:     "postgres without password",
			env:      map[string]string{"STORAGE_DRIVER": "postgres"},
			contains: "DB_PASSWORD",
		},
		{
			name:     "unknown driver",
			env:      map[string]string{"STORAGE_DRIVER": "mongo"},
			contains: "Driver",
		},
		{
			name:     "batch size above limit",
			env:      map[string]string{"TRANSLATION_BATCH_SIZE": "101"},
			contains: "BatchSize",
		},
		{
			name:     "batch size not a number",
			env:      map[string]string{"TRANSLATION_BATCH_SIZE": "many"},
			contains: "TRANSLATION_BATCH_SIZE",
		},
		{
			name:     "bad duration",
			env:      map[string]string{"AUTOSAVE_INTERVAL": "soon"},
			contains: "AUTOSAVE_INTERVAL",
		},
		{
			name:     "bad base url",
			env:      map[string]string{"GEMINI_BASE_URL": "not a url"},
			contains: "GeminiBaseURL",
		},
		{
			name:     "bad log level",
			env:      map[string]string{"LOG_LEVEL": "loud"},
			contains: "LogLevel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestConfig_ValidateBot(t *testing.T) {
	tests := []struct {
		name     string
		bot      BotConfig
		contains string
	}{
		{name: "complete", bot: BotConfig{Token: "t", Password: "p"}},
		{name: "missing token", bot: BotConfig{Password: "p"}, contains: "BOT_TOKEN"},
		{name: "missing password", bot: BotConfig{Token: "t"}, contains: "BOT_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Bot: tt.bot}
			err := cfg.ValidateBot()
			if tt.contains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
