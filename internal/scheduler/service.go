package scheduler

import (
	"context"

	"github.com/cublic-github/team-summary-bot/internal/config"
	"github.com/cublic-github/team-summary-bot/internal/digest"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service triggers digest runs on an in-process cron schedule. Deployments
// that trigger the job externally leave the schedule empty and never start
// the cron loop.
type Service struct {
	config        *config.Config
	digestService *digest.Service
	cron          *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, digestService *digest.Service) *Service {
	return &Service{
		config:        cfg,
		digestService: digestService,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled digest runs. A no-op when no schedule is set.
func (s *Service) Start() error {
	if s.config.DigestSchedule == "" {
		logrus.Info("No digest schedule configured, runs are triggered externally")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.DigestSchedule, func() {
		logrus.Info("Starting scheduled digest run")
		// The run owns its own lifetime; nothing cancels it mid-flight.
		if _, err := s.digestService.Run(context.Background()); err != nil {
			logrus.Errorf("Scheduled digest run failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.config.DigestSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
