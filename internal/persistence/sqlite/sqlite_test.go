package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/workforce-scheduler/internal/persistence"
	"github.com/example/workforce-scheduler/internal/scheduler"
	"github.com/example/workforce-scheduler/internal/testfixtures"
)

func newTestStore(t *testing.T, baseRotations scheduler.RotationTable) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "scheduler.db")
	store, err := Open(dsn, baseRotations)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func mustExec(t *testing.T, store *Store, query string, args ...any) {
	t.Helper()
	if _, err := store.DB().Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestStore_LoadSnapshot(t *testing.T) {
	t.Parallel()

	monday := testfixtures.ReferenceDate()
	base := scheduler.RotationTable{
		Weekly: map[string]map[time.Weekday]scheduler.RotationPair{
			"pager": {time.Monday: {Primary: "alice", Backup: "bob"}},
		},
	}
	store := newTestStore(t, base)
	ctx := context.Background()

	mustExec(t, store, `INSERT INTO employees (id, name, role, active, termination_date, hire_date, rotations)
		VALUES ('alice', 'Alice', 'engineer', 1, NULL, '2019-01-07', 'pager'),
		       ('bob', 'Bob', 'supervisor', 1, '2026-06-30', '2021-04-12', '')`)
	mustExec(t, store, `INSERT INTO weekly_patterns (employee_id, weekday, available) VALUES
		('alice', 1, 1), ('alice', 2, 1), ('alice', 3, 0)`)
	mustExec(t, store, `INSERT INTO time_off (employee_id, from_date, to_date) VALUES ('bob', ?, ?)`,
		monday.AddDays(3).String(), monday.AddDays(4).String())
	mustExec(t, store, `INSERT INTO availability_overrides (employee_id, date, available) VALUES ('alice', ?, 1)`,
		monday.AddDays(2).String())
	mustExec(t, store, `INSERT INTO holidays (date) VALUES (?)`, monday.AddDays(1).String())
	mustExec(t, store, `INSERT INTO locked_days (date) VALUES (?)`, monday.AddDays(2).String())
	mustExec(t, store, `INSERT INTO events (id, type, due_date, earliest_date, correlation_key) VALUES
		('ev-due', 'core-shift', ?, NULL, 'acct-1'),
		('ev-overdue', 'backlog-task', ?, NULL, ''),
		('ev-later', 'core-shift', ?, NULL, ''),
		('ev-assigned', 'core-shift', ?, NULL, '')`,
		monday.AddDays(2).String(), monday.AddDays(-7).String(), monday.AddDays(30).String(), monday.AddDays(30).String())
	mustExec(t, store, `INSERT INTO assignments (event_id, event_type, employee_id, date, slot, correlation_key)
		VALUES ('ev-assigned', 'core-shift', 'alice', ?, 1, '')`, monday.String())
	mustExec(t, store, `INSERT INTO rotation_overrides (rotation_type, date, primary_id, backup_id)
		VALUES ('pager', ?, 'bob', '')`, monday.AddDays(7).String())

	window := scheduler.Window{From: monday, To: monday.AddDays(4)}
	snap, err := store.LoadSnapshot(ctx, window)
	if err != nil {
		t.Fatalf("LoadSnapshot returned error: %v", err)
	}

	t.Run("roster", func(t *testing.T) {
		alice, ok := snap.Employees["alice"]
		if !ok || !alice.Active || alice.HireDate.Year != 2019 {
			t.Fatalf("alice = %+v, %v", alice, ok)
		}
		if len(alice.Rotations) != 1 || alice.Rotations[0] != "pager" {
			t.Fatalf("alice rotations = %v", alice.Rotations)
		}
		bob := snap.Employees["bob"]
		if bob.TerminationDate == nil || bob.TerminationDate.Month != time.June {
			t.Fatalf("bob termination = %+v", bob.TerminationDate)
		}
	})

	t.Run("availability", func(t *testing.T) {
		alice := snap.Availability["alice"]
		if !alice.WeeklyPattern[1] || alice.WeeklyPattern[3] {
			t.Fatalf("alice pattern = %v", alice.WeeklyPattern)
		}
		if !alice.AvailableOn(monday.AddDays(2)) {
			t.Fatal("override not applied")
		}
		if !snap.Availability["bob"].OnTimeOff(monday.AddDays(3)) {
			t.Fatal("time off not loaded")
		}
	})

	t.Run("calendar", func(t *testing.T) {
		if !snap.Calendar.IsHoliday(monday.AddDays(1)) {
			t.Fatal("holiday not loaded")
		}
		if !snap.Calendar.IsLocked(monday.AddDays(2)) {
			t.Fatal("locked day not loaded")
		}
	})

	t.Run("events in or overdue for the window, plus assigned ones", func(t *testing.T) {
		ids := make(map[string]bool, len(snap.Events))
		for _, ev := range snap.Events {
			ids[ev.ID] = true
		}
		if !ids["ev-due"] || !ids["ev-overdue"] {
			t.Fatalf("events = %v", ids)
		}
		if ids["ev-later"] {
			t.Fatal("unassigned event due after the window was loaded")
		}
		// The assigned event rides along despite its distant due date so
		// relocations can honor its due window.
		if !ids["ev-assigned"] {
			t.Fatal("assigned event missing from the snapshot")
		}
	})

	t.Run("committed assignments", func(t *testing.T) {
		if len(snap.Committed) != 1 || snap.Committed[0].EventID != "ev-assigned" {
			t.Fatalf("committed = %+v", snap.Committed)
		}
	})

	t.Run("rotations overlay storage overrides", func(t *testing.T) {
		pair, ok := snap.Rotations.Resolve(monday, "pager")
		if !ok || pair.Primary != "alice" {
			t.Fatalf("weekly pair = %+v, %v", pair, ok)
		}
		override, ok := snap.Rotations.Resolve(monday.AddDays(7), "pager")
		if !ok || override.Primary != "bob" {
			t.Fatalf("override pair = %+v, %v", override, ok)
		}
	})
}

func TestStore_RunRecordRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, scheduler.RotationTable{})
	ctx := context.Background()
	monday := testfixtures.ReferenceDate()
	started := testfixtures.ReferenceTime()

	rec := &scheduler.RunRecord{
		ID:          "run-1",
		Window:      scheduler.Window{From: monday, To: monday.AddDays(2)},
		StartedAt:   started,
		CompletedAt: started.Add(3 * time.Second),
		Status:      scheduler.RunCompleted,
		Proposals: []scheduler.Proposal{
			{ID: "p-1", EventID: "ev-1", EventType: "core-shift", EmployeeID: "alice", Date: monday, Slot: 1, Wave: scheduler.WaveCore, Status: scheduler.ProposalProposed, CorrelationKey: "acct-1"},
			{ID: "p-2", EventID: "ev-2", EventType: "backlog-task", EmployeeID: "alice", Date: monday, Slot: 3, Wave: scheduler.WaveGeneral, Status: scheduler.ProposalRelocated},
		},
		Relocations: []scheduler.Relocation{
			{EventID: "held", EmployeeID: "alice", From: scheduler.Placement{Date: monday, Slot: 1}, To: scheduler.Placement{Date: monday, Slot: 2}},
		},
		Unscheduled: []scheduler.UnscheduledEvent{
			{Event: scheduler.Event{ID: "ev-3", Type: "core-shift", DueDate: monday}, Reason: scheduler.ReasonCapacityExceeded},
		},
	}

	if err := store.SaveRunRecord(ctx, rec); err != nil {
		t.Fatalf("SaveRunRecord returned error: %v", err)
	}

	got, err := store.GetRunRecord(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRunRecord returned error: %v", err)
	}
	if got.Status != scheduler.RunCompleted || got.Window != rec.Window {
		t.Fatalf("record = %+v", got)
	}
	if !got.StartedAt.Equal(rec.StartedAt) || !got.CompletedAt.Equal(rec.CompletedAt) {
		t.Fatalf("timestamps = %v, %v", got.StartedAt, got.CompletedAt)
	}
	if len(got.Proposals) != 2 {
		t.Fatalf("proposals = %+v", got.Proposals)
	}
	first := got.Proposals[0]
	if first.ID != "p-1" || first.Wave != scheduler.WaveCore || first.CorrelationKey != "acct-1" {
		t.Fatalf("first proposal = %+v", first)
	}
	if got.Proposals[1].Status != scheduler.ProposalRelocated {
		t.Fatalf("second proposal = %+v", got.Proposals[1])
	}
	if len(got.Relocations) != 1 {
		t.Fatalf("relocations = %+v", got.Relocations)
	}
	if rel := got.Relocations[0]; rel != rec.Relocations[0] {
		t.Fatalf("relocation = %+v, want %+v", rel, rec.Relocations[0])
	}
	if len(got.Unscheduled) != 1 || got.Unscheduled[0].Event.ID != "ev-3" || got.Unscheduled[0].Reason != scheduler.ReasonCapacityExceeded {
		t.Fatalf("unscheduled = %+v", got.Unscheduled)
	}
}

func TestStore_GetRunRecord_NotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, scheduler.RotationTable{})
	if _, err := store.GetRunRecord(context.Background(), "absent"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveRunRecord_NilRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, scheduler.RotationTable{})
	if err := store.SaveRunRecord(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}

func TestStore_DuplicateRunRecordRollsBack(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, scheduler.RotationTable{})
	ctx := context.Background()
	monday := testfixtures.ReferenceDate()

	rec := &scheduler.RunRecord{
		ID:          "run-1",
		Window:      scheduler.Window{From: monday, To: monday},
		StartedAt:   testfixtures.ReferenceTime(),
		CompletedAt: testfixtures.ReferenceTime(),
		Status:      scheduler.RunCompleted,
	}
	if err := store.SaveRunRecord(ctx, rec); err != nil {
		t.Fatalf("first save: %v", err)
	}

	dup := *rec
	dup.Proposals = []scheduler.Proposal{
		{ID: "p-1", EventID: "ev-1", EventType: "core-shift", EmployeeID: "alice", Date: monday, Slot: 1, Wave: scheduler.WaveCore, Status: scheduler.ProposalProposed},
	}
	if err := store.SaveRunRecord(ctx, &dup); err == nil {
		t.Fatal("expected primary key violation")
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM run_proposals WHERE run_id = 'run-1'`).Scan(&count); err != nil {
		t.Fatalf("count proposals: %v", err)
	}
	if count != 0 {
		t.Fatalf("rolled-back proposals persisted: %d", count)
	}
}
