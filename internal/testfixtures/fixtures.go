// Package testfixtures provides deterministic builders for scheduling
// tests: a controllable clock, sequential identifiers, and snapshot
// construction helpers.
package testfixtures

import (
	"time"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

var referenceTime = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures:
// a Monday morning.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar day of ReferenceTime.
func ReferenceDate() scheduler.Date {
	return scheduler.DateOf(referenceTime)
}

// SnapshotBuilder assembles a scheduler.Snapshot incrementally.
type SnapshotBuilder struct {
	snap scheduler.Snapshot
}

// NewSnapshotBuilder starts an empty snapshot with initialised collections.
func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{snap: scheduler.Snapshot{
		Employees:    make(map[string]scheduler.Employee),
		Availability: make(map[string]scheduler.Availability),
		Calendar: scheduler.Calendar{
			Holidays:   make(map[scheduler.Date]bool),
			LockedDays: make(map[scheduler.Date]bool),
		},
		Rotations: scheduler.RotationTable{
			Weekly:    make(map[string]map[time.Weekday]scheduler.RotationPair),
			Overrides: make(map[string]map[scheduler.Date]scheduler.RotationPair),
		},
	}}
}

// WithEmployee adds a fully available employee working all seven weekdays.
func (b *SnapshotBuilder) WithEmployee(id, role string, hired scheduler.Date) *SnapshotBuilder {
	b.snap.Employees[id] = scheduler.Employee{
		ID:       id,
		Name:     id,
		Role:     role,
		Active:   true,
		HireDate: hired,
	}
	b.snap.Availability[id] = scheduler.Availability{
		WeeklyPattern: [7]bool{true, true, true, true, true, true, true},
	}
	return b
}

// WithAvailability replaces an employee's availability facts.
func (b *SnapshotBuilder) WithAvailability(id string, avail scheduler.Availability) *SnapshotBuilder {
	b.snap.Availability[id] = avail
	return b
}

// WithEvent queues a work item for scheduling.
func (b *SnapshotBuilder) WithEvent(ev scheduler.Event) *SnapshotBuilder {
	b.snap.Events = append(b.snap.Events, ev)
	return b
}

// WithCommitted seeds an already-approved assignment.
func (b *SnapshotBuilder) WithCommitted(a scheduler.Assignment) *SnapshotBuilder {
	b.snap.Committed = append(b.snap.Committed, a)
	return b
}

// WithHoliday marks a shared holiday.
func (b *SnapshotBuilder) WithHoliday(day scheduler.Date) *SnapshotBuilder {
	b.snap.Calendar.Holidays[day] = true
	return b
}

// WithLockedDay marks a locked day.
func (b *SnapshotBuilder) WithLockedDay(day scheduler.Date) *SnapshotBuilder {
	b.snap.Calendar.LockedDays[day] = true
	return b
}

// WithWeeklyRotation sets the weekly pair for a rotation type on a weekday.
func (b *SnapshotBuilder) WithWeeklyRotation(rotationType string, day time.Weekday, primary, backup string) *SnapshotBuilder {
	if b.snap.Rotations.Weekly[rotationType] == nil {
		b.snap.Rotations.Weekly[rotationType] = make(map[time.Weekday]scheduler.RotationPair)
	}
	b.snap.Rotations.Weekly[rotationType][day] = scheduler.RotationPair{Primary: primary, Backup: backup}
	return b
}

// WithRotationOverride sets a date-specific rotation pair.
func (b *SnapshotBuilder) WithRotationOverride(rotationType string, day scheduler.Date, primary, backup string) *SnapshotBuilder {
	if b.snap.Rotations.Overrides[rotationType] == nil {
		b.snap.Rotations.Overrides[rotationType] = make(map[scheduler.Date]scheduler.RotationPair)
	}
	b.snap.Rotations.Overrides[rotationType][day] = scheduler.RotationPair{Primary: primary, Backup: backup}
	return b
}

// Build returns the assembled snapshot.
func (b *SnapshotBuilder) Build() *scheduler.Snapshot {
	snap := b.snap
	return &snap
}

// BaseConfig returns a scheduling configuration with the standard event
// types used across tests.
func BaseConfig() scheduler.Config {
	return scheduler.Config{
		EventTypes: map[string]scheduler.EventType{
			"core-shift": {
				Name:         "core-shift",
				Category:     scheduler.CategoryCore,
				Duration:     4 * time.Hour,
				BasePriority: 50,
			},
			"pager-duty": {
				Name:         "pager-duty",
				Category:     scheduler.CategoryRotation,
				RotationType: "pager",
				BasePriority: 80,
			},
			"shadowing": {
				Name:          "shadowing",
				Category:      scheduler.CategoryPairing,
				BasePriority:  30,
				Duration:      2 * time.Hour,
				RequiredRoles: []string{"supervisor"},
			},
			"compliance-review": {
				Name:          "compliance-review",
				Category:      scheduler.CategoryRestricted,
				BasePriority:  40,
				RequiredRoles: []string{"supervisor"},
			},
			"backlog-task": {
				Name:         "backlog-task",
				Category:     scheduler.CategoryGeneral,
				BasePriority: 10,
			},
		},
		WeeklyCoreCap: 5,
		SlotCount:     scheduler.DefaultSlotCount,
		OverflowOrder: scheduler.DefaultOverflowOrder,
		LeadRotation:  "lead",
		Rescue: scheduler.RescueConfig{
			HorizonDays:  3,
			RelaxedRules: []scheduler.Rule{scheduler.RuleWeeklyAvailability},
		},
	}
}
