package main

import (
	"context"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/schedule"
	"go.uber.org/zap"
)

type tasks struct {
	scheduler *schedule.CronScheduler
	export    *schedule.Hook
}

// startTasks registers the daily export and starts the cron scheduler.
func startTasks(ctx context.Context, spec string, job schedule.Runner, logger *zap.Logger) (*tasks, error) {
	scheduler, err := schedule.NewCronScheduler(spec, logger)
	if err != nil {
		return nil, err
	}
	hook := schedule.NewHook(ctx, scheduler, consts.ExportTaskName, job, logger.Named("schedule"))
	if err := hook.Activate(); err != nil {
		return nil, err
	}
	scheduler.Start()
	logger.Info("Next daily export", zap.Time("at", scheduler.Next(consts.ExportTaskName)))
	return &tasks{scheduler: scheduler, export: hook}, nil
}

// stop unregisters the daily export and waits for a running export to finish.
func (t *tasks) stop(ctx context.Context) {
	t.export.Deactivate()
	t.scheduler.Stop(ctx)
}
