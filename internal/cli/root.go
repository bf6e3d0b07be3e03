// Package cli implements the correctionloop commands.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"correctionloop/internal/config"
	"correctionloop/internal/coordinator"
	"correctionloop/internal/domain"
	"correctionloop/internal/repository"
	"correctionloop/internal/repository/postgres"
	"correctionloop/internal/repository/sqlite"
	"correctionloop/internal/service"
	"correctionloop/internal/store"
	"correctionloop/internal/translate"
)

type rootOptions struct {
	dbPath   string
	logLevel string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "correctionloop",
		Short:         "Spaced-repetition review of words, problems and habits",
		Long:          "Review items on a 1-2-4-7-15-30 day schedule. Vocabulary is translated in the background.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "SQLite database path (overrides STORAGE_DRIVER and SQLITE_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newListCmd(opts),
		newCheckCmd(opts),
		newCategoriesCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// app is the wired object graph shared by the commands
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	repo        repository.Repository
	store       *store.Store
	selector    *translate.Selector
	coordinator *coordinator.Coordinator
	session     *service.Session
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.SQLitePath = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = strings.ToLower(opts.logLevel)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	repo, err := openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	gateway := translate.NewGateway(translate.GatewayConfig{
		Credentials: translate.Credentials{
			Gemini:   cfg.Translation.GeminiAPIKey,
			DeepSeek: cfg.Translation.DeepSeekAPIKey,
			Moonshot: cfg.Translation.MoonshotAPIKey,
		},
		Endpoints: translate.Endpoints{
			Gemini:   cfg.Translation.GeminiBaseURL,
			DeepSeek: cfg.Translation.DeepSeekBaseURL,
			Moonshot: cfg.Translation.MoonshotBaseURL,
		},
		TargetLanguage: cfg.Translation.TargetLanguage,
	}, logger)
	selector := translate.NewSelector(gateway, cfg.Translation.Model)

	st := store.New(logger)
	coord := coordinator.New(st, selector, coordinator.Config{
		CategoryID: domain.CategoryVocabulary,
		BatchSize:  cfg.Translation.BatchSize,
		Debounce:   cfg.Translation.Debounce,
	}, logger)
	st.OnChange(coord.Notify)

	session := service.NewSession(st, repo, selector, coord, service.SessionConfig{
		SnapshotKey: cfg.Storage.SnapshotKey,
		CheckDelay:  cfg.Review.CheckDelay,
	}, logger)
	session.Load(ctx)

	return &app{
		cfg:         cfg,
		logger:      logger,
		repo:        repo,
		store:       st,
		selector:    selector,
		coordinator: coord,
		session:     session,
	}, nil
}

func (a *app) Close() {
	a.session.Close()
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("Failed to close repository", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func openRepository(cfg *config.Config, logger *zap.Logger) (repository.Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		repo, err := postgres.Open(cfg.DSN(), logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return repo, nil
	default:
		repo, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Debug("SQLite storage opened", zap.String("path", cfg.Storage.SQLitePath))
		return repo, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// resolveCategory defaults to the active category
func resolveCategory(a *app, id string) (domain.Category, error) {
	if id == "" {
		id = a.session.ActiveCategory()
	}
	return a.session.Category(strings.ToUpper(id))
}
