package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/handler"
	"correctionloop/internal/service"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background translator, autosave and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info("Starting correctionloop",
		zap.String("storage", a.cfg.Storage.Driver),
		zap.String("model", a.selector.Current().ID),
		zap.Bool("translator_ready", a.selector.Ready()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	coordDone := make(chan struct{})
	go func() {
		defer close(coordDone)
		if err := a.coordinator.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Translation coordinator failed", zap.Error(err))
		}
	}()
	// items imported before startup still need a pass
	a.coordinator.Notify()

	autosaver := service.NewAutosaver(a.session, a.cfg.Autosave.Interval, logger)
	if err := autosaver.Start(); err != nil {
		return fmt.Errorf("start autosave: %w", err)
	}

	var bot *tele.Bot
	if a.cfg.BotEnabled() {
		if err := a.cfg.ValidateBot(); err != nil {
			autosaver.Stop()
			return err
		}
		bot, err = tele.NewBot(tele.Settings{
			Token:  a.cfg.Bot.Token,
			Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		})
		if err != nil {
			autosaver.Stop()
			return fmt.Errorf("create bot: %w", err)
		}
		logger.Info("Telegram bot initialized")

		authService := service.NewAuthService(a.repo, a.cfg.Bot.Password)
		h := handler.NewHandler(bot, authService, a.session, logger)
		h.RegisterHandlers()
		logger.Info("Handlers registered")

		go func() {
			logger.Info("Bot started successfully")
			bot.Start()
		}()
	} else {
		logger.Info("BOT_TOKEN not set, running without Telegram bot")
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping...")

	if bot != nil {
		bot.Stop()
	}
	autosaver.Stop()
	cancel()
	<-coordDone
	a.session.Close()

	// a fresh context so the final flush survives the cancelled signal context
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()
	if err := a.session.Save(saveCtx); err != nil {
		logger.Error("Failed to save snapshot on shutdown", zap.Error(err))
		return err
	}

	logger.Info("Stopped gracefully")
	return nil
}
