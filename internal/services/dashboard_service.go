package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"patdash/internal/core"
	"patdash/internal/extract"
	"patdash/internal/log"
	"patdash/internal/report"
	"patdash/internal/source"
)

// Invalidator is implemented by fetchers that keep a cache.
type Invalidator interface {
	Invalidate()
}

// timedFetcher is implemented by fetchers that know when the grid was retrieved.
type timedFetcher interface {
	FetchWithTime(ctx context.Context) (core.Grid, time.Time, error)
}

// Snapshot is the outcome of one fetch + extraction pass.
type Snapshot struct {
	Table     core.Table
	Summary   report.Summary
	Profile   extract.Profile
	FetchedAt time.Time
}

// Empty reports whether the grid was read but nothing matched.
func (s Snapshot) Empty() bool { return s.Table.Empty() }

// DashboardService runs the fetch → extract → report pipeline. Each call
// owns its grid and table; only the fetcher's cache is shared.
type DashboardService struct {
	fetcher source.Fetcher
	profile extract.Profile
	labels  map[string]string
	now     func() time.Time
}

// NewDashboardService creates a service reading with fetcher and scanning with profile.
func NewDashboardService(fetcher source.Fetcher, profile extract.Profile) *DashboardService {
	labels := make(map[string]string, len(profile.Fields))
	for _, f := range profile.Fields {
		labels[f.Name] = profile.Label(f.Name)
	}
	return &DashboardService{
		fetcher: fetcher,
		profile: profile,
		labels:  labels,
		now:     time.Now,
	}
}

// Profile returns the layout profile in use.
func (s *DashboardService) Profile() extract.Profile { return s.profile }

// Load fetches the grid (possibly cached) and extracts the table. A fetch
// failure is returned as a *source.FetchError; an empty table is not an error.
func (s *DashboardService) Load(ctx context.Context) (Snapshot, error) {
	start := s.now()

	var (
		grid      core.Grid
		fetchedAt time.Time
		err       error
	)
	if tf, ok := s.fetcher.(timedFetcher); ok {
		grid, fetchedAt, err = tf.FetchWithTime(ctx)
	} else {
		grid, err = s.fetcher.Fetch(ctx)
		fetchedAt = s.now()
	}
	if err != nil {
		slog.ErrorContext(ctx, "Spreadsheet fetch failed",
			log.NewFields().WithComponent(log.ComponentDashboard).WithOperation(log.OpFetch).WithError(err).ToSlice()...)
		return Snapshot{}, source.Fail("spreadsheet", "fetch", err)
	}

	table := extract.Extract(grid, s.profile)
	snap := Snapshot{
		Table:     table,
		Summary:   report.Build(table, s.labels),
		Profile:   s.profile,
		FetchedAt: fetchedAt,
	}

	if table.Empty() {
		slog.WarnContext(ctx, "Spreadsheet read but no sections matched",
			log.NewFields().WithComponent(log.ComponentDashboard).WithExtraction(s.profile.Name, grid.Rows(), 0).ToSlice()...)
	} else {
		fields := log.NewFields().
			WithComponent(log.ComponentDashboard).
			WithOperation(log.OpExtract).
			WithExtraction(s.profile.Name, grid.Rows(), table.Len())
		fields[log.FieldDuration] = s.now().Sub(start).Milliseconds()
		slog.InfoContext(ctx, "Dashboard data extracted", fields.ToSlice()...)
	}
	return snap, nil
}

// Refresh drops any cached grid and loads again.
func (s *DashboardService) Refresh(ctx context.Context) (Snapshot, error) {
	if inv, ok := s.fetcher.(Invalidator); ok {
		inv.Invalidate()
	}
	snap, err := s.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh: %w", err)
	}
	return snap, nil
}
