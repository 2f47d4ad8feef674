package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/config"
	"github.com/AndreasArnolfo/Babyrons/internal/service/reporting"
)

// Scheduler manages the weekly summary export job.
type Scheduler struct {
	cron         *cron.Cron
	reportingSvc *reporting.Service
	cfg          config.ReportingConfig
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance. The cron runs in the
// configured timezone when it parses; otherwise local time.
func NewScheduler(cfg config.ReportingConfig, reportingSvc *reporting.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []cron.Option{}
	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		opts = append(opts, cron.WithLocation(loc))
	} else {
		logger.Warn("invalid timezone, using local", zap.String("tz", cfg.Timezone), zap.Error(err))
	}

	return &Scheduler{
		cron:         cron.New(opts...),
		reportingSvc: reportingSvc,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the summary job and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.exportWeeklySummary); err != nil {
		s.logger.Error("failed to schedule weekly summary", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) exportWeeklySummary() {
	s.logger.Info("exporting weekly summary")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.reportingSvc.Export(ctx, time.Now()); err != nil {
		s.logger.Error("failed to export weekly summary", zap.Error(err))
	}
}
