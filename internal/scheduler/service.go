package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/feedpulse/feedpulse/internal/config"
	"github.com/feedpulse/feedpulse/internal/ingest"
	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/feedpulse/feedpulse/internal/sources"
)

// Service handles scheduling of ingestion and maintenance tasks
type Service struct {
	config       *config.Config
	orchestrator *ingest.Orchestrator
	rss          *sources.RSS
	cron         *cron.Cron
}

// NewService creates a new scheduler service. rss may be nil when no
// feeds are configured.
func NewService(cfg *config.Config, orchestrator *ingest.Orchestrator, rss *sources.RSS) *Service {
	return &Service{
		config:       cfg,
		orchestrator: orchestrator,
		rss:          rss,
		cron:         cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location())),
	}
}

// Start registers the cron entries and begins the schedule
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.config.IngestSchedule, func() {
		logrus.Info("Starting scheduled ingestion run")
		s.orchestrator.Run(context.Background())
	})
	if err != nil {
		return err
	}

	if s.rss != nil {
		_, err = s.cron.AddFunc(s.config.RSSSchedule, func() {
			logrus.Info("Starting scheduled RSS pass")
			items := s.rss.FetchAll(context.Background())
			report := s.orchestrator.IngestFeedItems(context.Background(), items, models.CategoryNews)
			logrus.Infof("RSS pass completed: %d inserted, %d duplicates", report.ItemsInserted, report.Duplicates)
		})
		if err != nil {
			return err
		}
	}

	_, err = s.cron.AddFunc(s.config.CleanupSchedule, func() {
		logrus.Info("Starting scheduled cleanup")
		s.orchestrator.Cleanup(context.Background(), time.Duration(s.config.RetentionDays)*24*time.Hour)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started: ingest %q, cleanup %q (%s)",
		s.config.IngestSchedule, s.config.CleanupSchedule, s.config.TimeZone)
	return nil
}

// Stop halts the scheduler
func (s *Service) Stop() {
	s.cron.Stop()
	logrus.Info("Scheduler stopped")
}
