package scheduler

import (
	"errors"
	"time"
)

// ErrDataUnavailable is returned when the snapshot backing a run could not be
// loaded. It is the only fatal error class: no partial output is produced.
var ErrDataUnavailable = errors.New("scheduler: snapshot data unavailable")

// Category groups event types by how the orchestrator places them.
type Category string

const (
	// CategoryRotation events are assignable only to the date's configured
	// rotation pair.
	CategoryRotation Category = "rotation"
	// CategoryCore events are the capacity-capped primary workload.
	CategoryCore Category = "core"
	// CategoryPairing events attach to an already-assigned core event that
	// shares their correlation key.
	CategoryPairing Category = "pairing"
	// CategoryRestricted events require a role from the type's restricted set.
	CategoryRestricted Category = "restricted"
	// CategoryGeneral covers everything else.
	CategoryGeneral Category = "general"
)

// EventType describes a configured category of work item.
type EventType struct {
	Name          string
	Category      Category
	Duration      time.Duration
	BasePriority  int
	RotationType  string
	RequiredRoles []string
	HolidayExempt bool
}

// Event is a single work item awaiting assignment. Immutable during a run.
type Event struct {
	ID             string
	Type           string
	DueDate        Date
	EarliestDate   Date
	CorrelationKey string
}

// Employee is a roster entry. Immutable during a run.
type Employee struct {
	ID              string
	Name            string
	Role            string
	Active          bool
	TerminationDate *Date
	HireDate        Date
	Rotations       []string
}

// Employable reports whether the employee can take work on the given day.
func (e Employee) Employable(day Date) bool {
	if !e.Active {
		return false
	}
	if e.TerminationDate != nil && day.After(*e.TerminationDate) {
		return false
	}
	return true
}

// Availability holds one employee's scheduling constraints.
type Availability struct {
	// WeeklyPattern marks which weekdays the employee works, indexed by
	// time.Weekday (Sunday == 0).
	WeeklyPattern [7]bool
	TimeOff       []DateRange
	// Overrides flip the weekly pattern for a single day.
	Overrides map[Date]bool
}

// AvailableOn evaluates the recurring pattern plus any same-date override.
func (a Availability) AvailableOn(day Date) bool {
	if a.Overrides != nil {
		if avail, ok := a.Overrides[day]; ok {
			return avail
		}
	}
	return a.WeeklyPattern[int(day.Weekday())]
}

// OnTimeOff reports whether any time-off range covers the day.
func (a Availability) OnTimeOff(day Date) bool {
	for _, r := range a.TimeOff {
		if r.Contains(day) {
			return true
		}
	}
	return false
}

// Calendar holds shared, company-wide day facts.
type Calendar struct {
	Holidays   map[Date]bool
	LockedDays map[Date]bool
}

// IsHoliday reports whether the day is a company holiday.
func (c Calendar) IsHoliday(day Date) bool {
	return c.Holidays[day]
}

// IsLocked reports whether the day is administratively locked.
func (c Calendar) IsLocked(day Date) bool {
	return c.LockedDays[day]
}

// Assignment is one committed or proposed placement of an event.
// Slot 0 marks whole-day duties (rotation categories); slots 1..8 are the
// ordinal shift blocks used by everything else.
type Assignment struct {
	EventID        string
	EventType      string
	EmployeeID     string
	Date           Date
	Slot           int
	CorrelationKey string
}

// Placement is a (date, slot) position, used when relocating assignments.
type Placement struct {
	Date Date
	Slot int
}

// RotationPair names the primary and backup employee for a rotation duty.
type RotationPair struct {
	Primary string
	Backup  string
}

// RotationTable maps rotation types to employee pairs, by weekday with
// date-specific overrides taking precedence.
type RotationTable struct {
	Weekly    map[string]map[time.Weekday]RotationPair
	Overrides map[string]map[Date]RotationPair
}

// Resolve returns the pair on duty for the rotation type on the day.
func (t RotationTable) Resolve(day Date, rotationType string) (RotationPair, bool) {
	if byDate, ok := t.Overrides[rotationType]; ok {
		if pair, ok := byDate[day]; ok {
			return pair, true
		}
	}
	byDay, ok := t.Weekly[rotationType]
	if !ok {
		return RotationPair{}, false
	}
	pair, ok := byDay[day.Weekday()]
	return pair, ok
}

// Snapshot is the immutable read model a run operates against: events to
// place, the roster, availability facts, shared calendar, the committed
// schedule, and the rotation table — all loaded once at run start.
type Snapshot struct {
	Events       []Event
	Employees    map[string]Employee
	Availability map[string]Availability
	Calendar     Calendar
	Committed    []Assignment
	Rotations    RotationTable
}

// Window is the contiguous date range a run schedules into.
type Window struct {
	From Date
	To   Date
}

// Contains reports whether the day falls inside the window.
func (w Window) Contains(day Date) bool {
	return DateRange{From: w.From, To: w.To}.Contains(day)
}

// Days enumerates the window's days in ascending order.
func (w Window) Days() []Date {
	return DateRange{From: w.From, To: w.To}.Days()
}
