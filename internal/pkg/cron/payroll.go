package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/utils"
)

// PayrollRunner generates the scheduled payrolls due at now.
type PayrollRunner interface {
	RunScheduled(ctx context.Context, now time.Time) (map[string]payroll.GenerationResult, error)
}

type PayrollJobs struct {
	runner   PayrollRunner
	clock    utils.Clock
	location *time.Location
	interval time.Duration

	mu      sync.Mutex
	lastRun time.Time
}

func NewPayrollJobs(runner PayrollRunner, clock utils.Clock, location *time.Location, interval time.Duration) *PayrollJobs {
	if clock == nil {
		clock = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &PayrollJobs{runner: runner, clock: clock, location: location, interval: interval}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("scheduled_payroll_generation", j.interval, j.GenerateScheduledPayrolls)
}

// GenerateScheduledPayrolls runs the automation at most once per calendar
// day in the business timezone.
func (j *PayrollJobs) GenerateScheduledPayrolls(ctx context.Context) error {
	today := utils.CalendarDay(j.clock(), j.location)

	j.mu.Lock()
	if j.lastRun.Equal(today) {
		j.mu.Unlock()
		return nil
	}
	j.lastRun = today
	j.mu.Unlock()

	slog.Info("Cron: Starting scheduled payroll generation", "date", today.Format("2006-01-02"))

	results, err := j.runner.RunScheduled(ctx, today)
	if err != nil {
		// Let the next tick try again.
		j.mu.Lock()
		j.lastRun = time.Time{}
		j.mu.Unlock()
		return fmt.Errorf("failed to run scheduled payrolls: %w", err)
	}

	for businessID, res := range results {
		slog.Info("Cron: Scheduled payroll generated",
			"business_id", businessID,
			"outcome", res.Outcome,
			"generated", res.GeneratedCount,
			"errors", len(res.Errors),
			"total_amount", res.TotalAmount.String(),
		)
	}
	slog.Info("Cron: Scheduled payroll generation finished", "businesses", len(results))
	return nil
}
