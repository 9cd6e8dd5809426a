package audit

import (
	"context"
	"testing"

	"github.com/example/workforce-scheduler/internal/scheduler"
	"github.com/example/workforce-scheduler/internal/testfixtures"
)

func TestAuditRange(t *testing.T) {
	t.Parallel()

	monday := testfixtures.ReferenceDate()
	auditor := New(testfixtures.BaseConfig(), nil)
	snap := testfixtures.NewSnapshotBuilder().
		WithEmployee("alice", "engineer", scheduler.Date{Year: 2020, Month: 1, Day: 6}).
		WithHoliday(monday.AddDays(1)).
		WithCommitted(scheduler.Assignment{EventID: "a-1", EventType: "core-shift", EmployeeID: "alice", Date: monday, Slot: 1}).
		WithCommitted(scheduler.Assignment{EventID: "a-2", EventType: "core-shift", EmployeeID: "alice", Date: monday.AddDays(1), Slot: 1}).
		Build()

	reports, err := auditor.AuditRange(context.Background(), monday, monday.AddDays(2), snap)
	if err != nil {
		t.Fatalf("AuditRange returned error: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("reports = %d, want 3", len(reports))
	}
	for i, report := range reports {
		if report.Date != monday.AddDays(i) {
			t.Fatalf("report %d for %s, want %s", i, report.Date, monday.AddDays(i))
		}
	}
	if reports[0].Score != 100 || len(reports[0].Issues) != 0 {
		t.Fatalf("clean day report = %+v", reports[0])
	}
	if reports[1].Score != 90 || len(reports[1].Issues) != 1 {
		t.Fatalf("holiday day report = %+v", reports[1])
	}
}

func TestAuditRange_CancelledContext(t *testing.T) {
	t.Parallel()

	auditor := New(testfixtures.BaseConfig(), nil)
	snap := testfixtures.NewSnapshotBuilder().Build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	monday := testfixtures.ReferenceDate()
	if _, err := auditor.AuditRange(ctx, monday, monday.AddDays(30), snap); err == nil {
		t.Fatal("expected cancellation error")
	}
}
