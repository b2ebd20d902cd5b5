package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context) error
}

// Hook keeps one daily export task registered under a fixed name.
type Hook struct {
	scheduler Scheduler
	name      string
	task      func()
	logger    *zap.Logger
}

func NewHook(ctx context.Context, scheduler Scheduler, name string, job Runner, logger *zap.Logger) *Hook {
	return &Hook{
		scheduler: scheduler,
		name:      name,
		task:      dailyExport(ctx, job, logger),
		logger:    logger,
	}
}

// Activate schedules the daily task unless it is already scheduled.
func (h *Hook) Activate() error {
	if h.scheduler.Scheduled(h.name) {
		return nil
	}
	if err := h.scheduler.ScheduleDaily(h.name, h.task); err != nil {
		return fmt.Errorf("activating %s: %w", h.name, err)
	}
	h.logger.Info("Scheduled daily export", zap.String("task", h.name))
	return nil
}

func (h *Hook) Deactivate() {
	if !h.scheduler.Scheduled(h.name) {
		return
	}
	h.scheduler.Unschedule(h.name)
	h.logger.Info("Unscheduled daily export", zap.String("task", h.name))
}

func dailyExport(ctx context.Context, job Runner, logger *zap.Logger) func() {
	return func() {
		logger.Info("Exporting monthly sales report")
		if err := job.Run(ctx); err != nil {
			logger.Error("Error exporting monthly sales report", zap.Error(err))
		}
	}
}
