// Package scheduler closes each shift on a cron schedule: it builds the report
// of the shift that just ended, archives it and sends it to the plant manager.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/config"
	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

// ReportSource builds shift reports.
type ReportSource interface {
	LastClosedShift() shift.Window
	ShiftReportWindow(ctx context.Context, w shift.Window) (models.ShiftReport, error)
}

// Archive keeps closed shift reports.
type Archive interface {
	SaveShiftReport(ctx context.Context, report models.ShiftReport) error
}

// Notifier delivers closed shift reports.
type Notifier interface {
	SendShiftReport(ctx context.Context, report models.ShiftReport, to string) (string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	reports  ReportSource
	archive  Archive
	notifier Notifier
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance running in loc. archive and
// notifier may be nil.
func NewScheduler(cfg config.ReportingConfig, loc *time.Location, reports ReportSource, archive Archive, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: cfg.CronSchedule,
		reports:  reports,
		archive:  archive,
		notifier: notifier,
		logger:   logger,
	}
}

// Start registers the shift close job and starts the scheduler. An empty
// schedule leaves the scheduler idle.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("shift close report disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.closeShift); err != nil {
		return fmt.Errorf("schedule shift close report %q: %w", s.schedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) closeShift() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("shift close report failed", zap.Error(err))
	}
}

// RunOnce builds the report of the last closed shift, archives it and sends
// it. Archive and delivery failures are both attempted and joined.
func (s *Scheduler) RunOnce(ctx context.Context) (models.ShiftReport, error) {
	w := s.reports.LastClosedShift()
	s.logger.Info("generating shift report",
		zap.String("date", w.Date),
		zap.String("shift", string(w.Shift)),
		zap.Time("start", w.Start),
		zap.Time("end", w.End),
	)

	report, err := s.reports.ShiftReportWindow(ctx, w)
	if err != nil {
		return models.ShiftReport{}, fmt.Errorf("build shift report: %w", err)
	}

	var errs []error
	if s.archive != nil {
		if err := s.archive.SaveShiftReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("archive shift report: %w", err))
		}
	}
	if s.notifier != nil {
		if _, err := s.notifier.SendShiftReport(ctx, report, ""); err != nil {
			errs = append(errs, fmt.Errorf("notify shift report: %w", err))
		}
	}
	if len(errs) == 0 {
		s.logger.Info("shift report done", zap.String("date", w.Date), zap.String("shift", string(w.Shift)), zap.Bool("empty", report.Empty()))
	}
	return report, errors.Join(errs...)
}
