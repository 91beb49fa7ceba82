// Package scheduler runs the periodic jobs of the API.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/attendance"
)

type Scheduler struct {
	cron      *cron.Cron
	loc       *time.Location
	attendSvc *attendance.Service
	logger    core.Logger
	timeout   time.Duration
}

// New returns a scheduler evaluating its specs (with a seconds field) in the configured timezone.
func New(conf *core.Config, attendSvc *attendance.Service, logger core.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(conf.Jobs.Timezone)
	if err != nil {
		logger.Warn(fmt.Sprintf("loading timezone %q, falling back to UTC", conf.Jobs.Timezone), err)
		loc = time.UTC
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		loc:       loc,
		attendSvc: attendSvc,
		logger:    logger,
		timeout:   time.Minute,
	}
	if conf.Jobs.AttendanceSummarySpec != "" {
		if _, err := s.cron.AddFunc(conf.Jobs.AttendanceSummarySpec, s.summarizeAttendance); err != nil {
			return nil, errors.Wrapf(err, "scheduling attendance summary %q", conf.Jobs.AttendanceSummarySpec)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(fmt.Sprintf("scheduler started with %d job(s) (%s)", len(s.cron.Entries()), s.loc))
}

// Stop waits for the running jobs to finish or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}

// summarizeAttendance saves today's attendance summaries.
func (s *Scheduler) summarizeAttendance() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	date := core.NowFunc().In(s.loc).Format(attendance.DateLayout)
	sums, err := s.attendSvc.Summarize(ctx, date)
	if err != nil {
		s.logger.Error("summarizing attendance of "+date, err)
		return
	}
	s.logger.Info(fmt.Sprintf("attendance of %s summarized: %d class(es)", date, len(sums)))
}
