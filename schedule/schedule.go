package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler registers recurring tasks by unique name. The host owns the timers.
type Scheduler interface {
	Scheduled(name string) bool
	ScheduleDaily(name string, task func()) error
	Unschedule(name string)
}

// CronScheduler runs daily tasks on a robfig/cron instance.
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	spec    string
	entries map[string]cron.EntryID
}

func NewCronScheduler(spec string, logger *zap.Logger) (*CronScheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parsing cron spec %q: %w", spec, err)
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &CronScheduler{cron: c, spec: spec, entries: map[string]cron.EntryID{}}, nil
}

func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop waits for running tasks to finish or ctx to be done.
func (s *CronScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *CronScheduler) Scheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

func (s *CronScheduler) ScheduleDaily(name string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("task %q is already scheduled", name)
	}
	id, err := s.cron.AddFunc(s.spec, task)
	if err != nil {
		return fmt.Errorf("scheduling task %q: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

func (s *CronScheduler) Unschedule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Next reports when a scheduled task fires next. Zero if the task is unknown
// or the scheduler is not running yet.
func (s *CronScheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}
