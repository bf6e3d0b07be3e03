package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	LogLevel    string `validate:"oneof=debug info warn error"`
	Bot         BotConfig
	Storage     StorageConfig
	Translation TranslationConfig
	Review      ReviewConfig
	Autosave    AutosaveConfig
}

// BotConfig holds Telegram settings
type BotConfig struct {
	Token    string
	Password string
}

// StorageConfig selects and configures the snapshot backend
type StorageConfig struct {
	Driver      string `validate:"oneof=sqlite postgres"`
	SQLitePath  string
	SnapshotKey string `validate:"required"`
	Database    DatabaseConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// TranslationConfig holds provider credentials and batching settings
type TranslationConfig struct {
	GeminiAPIKey    string
	DeepSeekAPIKey  string
	MoonshotAPIKey  string
	GeminiBaseURL   string `validate:"omitempty,url"`
	DeepSeekBaseURL string `validate:"omitempty,url"`
	MoonshotBaseURL string `validate:"omitempty,url"`
	Model           string `validate:"required"`
	TargetLanguage  string `validate:"required"`
	BatchSize       int    `validate:"min=1,max=100"`
	Debounce        time.Duration
}

// ReviewConfig holds review pacing
type ReviewConfig struct {
	CheckDelay time.Duration
}

// AutosaveConfig holds the snapshot flush interval
type AutosaveConfig struct {
	Interval time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Bot: BotConfig{
			Token:    os.Getenv("BOT_TOKEN"),
			Password: os.Getenv("BOT_PASSWORD"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
			SQLitePath:  getEnv("SQLITE_PATH", "data/correctionloop.db"),
			SnapshotKey: getEnv("SNAPSHOT_KEY", "default"),
			Database: DatabaseConfig{
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     getEnv("DB_PORT", "5432"),
				Name:     getEnv("DB_NAME", "correctionloop"),
				User:     getEnv("DB_USER", "correctionloop"),
				Password: os.Getenv("DB_PASSWORD"),
			},
		},
		Translation: TranslationConfig{
			GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
			DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			MoonshotAPIKey:  os.Getenv("MOONSHOT_API_KEY"),
			GeminiBaseURL:   os.Getenv("GEMINI_BASE_URL"),
			DeepSeekBaseURL: os.Getenv("DEEPSEEK_BASE_URL"),
			MoonshotBaseURL: os.Getenv("MOONSHOT_BASE_URL"),
			Model:           getEnv("TRANSLATION_MODEL", "gemini-flash"),
			TargetLanguage:  getEnv("TRANSLATION_LANGUAGE", "Chinese"),
			BatchSize:       getEnvInt("TRANSLATION_BATCH_SIZE", 100, &errs),
			Debounce:        getEnvDuration("TRANSLATION_DEBOUNCE", 2*time.Second, &errs),
		},
		Review: ReviewConfig{
			CheckDelay: getEnvDuration("CHECK_DELAY", 600*time.Millisecond, &errs),
		},
		Autosave: AutosaveConfig{
			Interval: getEnvDuration("AUTOSAVE_INTERVAL", 30*time.Second, &errs),
		},
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field ranges and driver requirements
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Storage.Driver == DriverPostgres && c.Storage.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required")
	}
	return nil
}

// BotEnabled reports whether a Telegram token is configured
func (c *Config) BotEnabled() bool {
	return c.Bot.Token != ""
}

// ValidateBot checks settings needed to run the bot
func (c *Config) ValidateBot() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.Bot.Password == "" {
		return fmt.Errorf("BOT_PASSWORD is required")
	}
	return nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Storage.Database.Host,
		c.Storage.Database.Port,
		c.Storage.Database.User,
		c.Storage.Database.Password,
		c.Storage.Database.Name,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
