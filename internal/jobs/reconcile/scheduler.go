package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	cron "github.com/robfig/cron"
	"go.uber.org/zap"
)

type Scheduler struct {
	cron    *cron.Cron
	job     *Job
	timeout time.Duration
	running atomic.Bool
	logger  *zap.Logger
}

func NewScheduler(job *Job, spec string, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("reconcile job is nil")
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		cron:    cron.New(),
		job:     job,
		timeout: timeout,
		logger:  logger,
	}
	if err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("schedule reconcile %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("reconcile is still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.job.Run(ctx); err != nil {
		s.logger.Error("reconcile orphan matches failed", zap.Error(err))
	}
}
