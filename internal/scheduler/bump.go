package scheduler

// Resolver relocates a blocking lower-priority assignment so its slot can be
// given to higher-priority work. Bump depth is bounded to one level: a
// relocation target whose slot is itself occupied is rejected rather than
// cascading.
type Resolver struct {
	cfg     Config
	checker *Checker
	events  map[string]Event
}

// NewResolver builds a resolver. The events index supplies due windows; an
// assignment whose event is not in the index is relocatable only within its
// current day, which its existing placement already satisfies.
func NewResolver(cfg Config, checker *Checker, events map[string]Event) *Resolver {
	return &Resolver{cfg: cfg, checker: checker, events: events}
}

// TryBump searches alternative placements for the blocking assignment's own
// employee: its current day first, then the remaining window days inside the
// blocked event's [earliest, due] span, slots in the allocator's sequential
// order. The assignment moves to the first combination that is free and
// validates. On failure the working set is left untouched.
func (r *Resolver) TryBump(blocking Assignment, window Window, ws *WorkingSet) (Placement, bool) {
	ev := r.eventFor(blocking)
	snap := ws.Snapshot()
	for _, day := range r.candidateDays(ev, blocking.Date, window) {
		if emp, known := snap.Employees[blocking.EmployeeID]; known && !emp.Employable(day) {
			continue
		}
		for slot := 1; slot <= r.cfg.slotCount(); slot++ {
			if day == blocking.Date && slot == blocking.Slot {
				continue
			}
			if _, occupied := ws.SlotOccupant(blocking.EmployeeID, day, slot); occupied {
				continue
			}
			verdict := r.checker.Validate(ev, blocking.EmployeeID, day, slot, ws)
			if !verdict.Valid {
				continue
			}
			to := Placement{Date: day, Slot: slot}
			ws.Relocate(blocking, to)
			return to, true
		}
	}
	return Placement{}, false
}

// candidateDays orders relocation days: the assignment's current day first,
// then the rest of the window intersected with the event's eligible span,
// ascending.
func (r *Resolver) candidateDays(ev Event, current Date, window Window) []Date {
	days := []Date{current}
	for _, day := range window.Days() {
		if day == current {
			continue
		}
		if day.After(ev.DueDate) {
			continue
		}
		if !ev.EarliestDate.IsZero() && day.Before(ev.EarliestDate) {
			continue
		}
		days = append(days, day)
	}
	return days
}

func (r *Resolver) eventFor(a Assignment) Event {
	if ev, ok := r.events[a.EventID]; ok {
		return ev
	}
	// No due window on record for this assignment; pin it to its current day
	// so it is never moved past a due date we cannot see.
	return Event{
		ID:             a.EventID,
		Type:           a.EventType,
		DueDate:        a.Date,
		EarliestDate:   a.Date,
		CorrelationKey: a.CorrelationKey,
	}
}
