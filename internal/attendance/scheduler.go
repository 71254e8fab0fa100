package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field expressions
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler runs Generate for the previous day on a cron schedule
type Scheduler struct {
	cron *cron.Cron
	agg  *Aggregator
	now  func() time.Time
}

// NewScheduler validates spec and registers the daily job. Call Start to run it.
func NewScheduler(agg *Aggregator, spec string) (*Scheduler, error) {
	if _, err := cronParser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid attendance schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		cron: cron.New(cron.WithLocation(agg.Location()), cron.WithParser(cronParser)),
		agg:  agg,
		now:  time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.runYesterday); err != nil {
		return nil, fmt.Errorf("failed to schedule attendance job: %w", err)
	}
	return s, nil
}

func (s *Scheduler) runYesterday() {
	day := Yesterday(s.now(), s.agg.Location())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.agg.Generate(ctx, day); err != nil {
		logger.Error("scheduled attendance generation failed", "date", day.Format(time.DateOnly), "error", err)
	}
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("attendance scheduler started", "next_run", s.Next())
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled run, zero if none.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(s.now())
}
