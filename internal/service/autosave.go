package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// DefaultAutosaveInterval is used when no interval is configured
const DefaultAutosaveInterval = 30 * time.Second

// Saver persists session state when it changed
type Saver interface {
	SaveIfChanged(ctx context.Context) (bool, error)
}

// Autosaver flushes the session snapshot on a fixed interval
type Autosaver struct {
	scheduler *gocron.Scheduler
	saver     Saver
	interval  time.Duration
	logger    *zap.Logger
}

// NewAutosaver creates an autosaver. Call Start to begin saving.
func NewAutosaver(saver Saver, interval time.Duration, logger *zap.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		scheduler: gocron.NewScheduler(time.UTC),
		saver:     saver,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the save job without blocking
func (a *Autosaver) Start() error {
	_, err := a.scheduler.Every(a.interval).SingletonMode().WaitForSchedule().Do(a.save)
	if err != nil {
		return fmt.Errorf("schedule autosave: %w", err)
	}
	a.scheduler.StartAsync()
	a.logger.Info("Autosave started", zap.Duration("interval", a.interval))
	return nil
}

// Stop terminates the schedule. It does not save.
func (a *Autosaver) Stop() {
	a.scheduler.Stop()
	a.logger.Info("Autosave stopped")
}

func (a *Autosaver) save() {
	ctx, cancel := context.WithTimeout(context.Background(), a.interval)
	defer cancel()

	saved, err := a.saver.SaveIfChanged(ctx)
	if err != nil {
		a.logger.Error("Autosave failed", zap.Error(err))
		return
	}
	if saved {
		a.logger.Debug("Snapshot autosaved")
	}
}
