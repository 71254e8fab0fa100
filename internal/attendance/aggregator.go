// Package attendance folds a day's closed presence windows into per-identity
// daily totals.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/kozaktomas/facewatch/internal/metrics"
)

// Aggregator computes attendance records
type Aggregator struct {
	store   database.AttendanceStore
	loc     *time.Location
	metrics *metrics.Metrics
}

// NewAggregator creates an aggregator whose days start at midnight in loc.
func NewAggregator(store database.AttendanceStore, loc *time.Location, m *metrics.Metrics) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: store, loc: loc, metrics: m}
}

// Location returns the aggregation timezone.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Result summarizes one Generate run
type Result struct {
	Date    time.Time                   `json:"date"`
	Events  int                         `json:"events"`
	Skipped int                         `json:"skipped"`
	Records []database.AttendanceRecord `json:"records"`
}

type group struct {
	total     float64
	firstSeen time.Time
	lastSeen  time.Time
}

// Generate aggregates the calendar day of date (its year, month and day in
// the aggregator's timezone) and upserts one record per identity. Running it
// again for the same day overwrites the same rows.
func (a *Aggregator) Generate(ctx context.Context, date time.Time) (*Result, error) {
	start := DayStart(date, a.loc)
	end := start.AddDate(0, 0, 1)

	events, err := a.store.ClosedPresenceEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load presence events for %s: %w", start.Format(time.DateOnly), err)
	}

	groups := make(map[string]*group)
	for _, ev := range events {
		if ev.DurationSeconds == nil {
			continue
		}
		exit := ev.EntryTime.Add(time.Duration(*ev.DurationSeconds * float64(time.Second)))
		if ev.ExitTime != nil {
			exit = *ev.ExitTime
		}

		g, ok := groups[ev.IdentityID]
		if !ok {
			groups[ev.IdentityID] = &group{total: *ev.DurationSeconds, firstSeen: ev.EntryTime, lastSeen: exit}
			continue
		}
		g.total += *ev.DurationSeconds
		if ev.EntryTime.Before(g.firstSeen) {
			g.firstSeen = ev.EntryTime
		}
		if exit.After(g.lastSeen) {
			g.lastSeen = exit
		}
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := &Result{Date: start, Events: len(events), Records: []database.AttendanceRecord{}}
	var errs []error
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			res.Skipped++
			logger.Warn("skipping attendance for malformed identity id", "identity", id, "date", start.Format(time.DateOnly))
			continue
		}
		g := groups[id]
		rec := database.AttendanceRecord{
			Date:                 start,
			IdentityID:           id,
			TotalDurationSeconds: g.total,
			FirstSeen:            g.firstSeen,
			LastSeen:             g.lastSeen,
		}
		if err := a.store.UpsertAttendance(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("identity %s: %w", id, err))
			continue
		}
		res.Records = append(res.Records, rec)
	}

	a.metrics.AttendanceRecords(len(res.Records))
	logger.Info("attendance generated",
		"date", start.Format(time.DateOnly),
		"events", res.Events,
		"records", len(res.Records),
		"skipped", res.Skipped)

	if len(errs) > 0 {
		return res, fmt.Errorf("failed to store attendance: %w", errors.Join(errs...))
	}
	return res, nil
}

// DayStart returns midnight of the calendar day date falls on in loc.
func DayStart(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDate parses YYYY-MM-DD as a day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Yesterday returns the start of the day before now in loc.
func Yesterday(now time.Time, loc *time.Location) time.Time {
	return DayStart(now.In(loc), loc).AddDate(0, 0, -1)
}
