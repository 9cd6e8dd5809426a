package audit

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

// rangeConcurrency bounds how many days are audited in parallel.
const rangeConcurrency = 4

// DayReport pairs one audited day with its findings and health score.
type DayReport struct {
	Date   scheduler.Date
	Issues []Issue
	Score  int
}

// AuditRange audits every day in [from, to] and returns per-day reports in
// ascending date order. Days are independent reads of committed state, so
// they are evaluated concurrently.
func (a *Auditor) AuditRange(ctx context.Context, from, to scheduler.Date, snap *scheduler.Snapshot) ([]DayReport, error) {
	days := scheduler.DateRange{From: from, To: to}.Days()
	reports := make([]DayReport, len(days))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rangeConcurrency)
	for i, day := range days {
		i, day := i, day
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			issues := a.AuditDay(day, snap)
			reports[i] = DayReport{Date: day, Issues: issues, Score: HealthScore(issues)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
