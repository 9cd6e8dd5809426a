package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

// LoadSnapshot assembles the immutable run snapshot: unscheduled events in
// or overdue for the window, the roster, availability facts, the shared
// calendar, committed assignments, and the rotation table with storage
// overrides overlaid. Any failure is wrapped as ErrDataUnavailable.
func (s *Store) LoadSnapshot(ctx context.Context, window scheduler.Window) (*scheduler.Snapshot, error) {
	snap := &scheduler.Snapshot{
		Employees:    make(map[string]scheduler.Employee),
		Availability: make(map[string]scheduler.Availability),
		Calendar: scheduler.Calendar{
			Holidays:   make(map[scheduler.Date]bool),
			LockedDays: make(map[scheduler.Date]bool),
		},
	}

	steps := []struct {
		name string
		load func(context.Context, *scheduler.Snapshot, scheduler.Window) error
	}{
		{"employees", s.loadEmployees},
		{"availability", s.loadAvailability},
		{"calendar", s.loadCalendar},
		{"events", s.loadEvents},
		{"assignments", s.loadAssignments},
		{"rotations", s.loadRotations},
	}
	for _, step := range steps {
		if err := step.load(ctx, snap, window); err != nil {
			return nil, fmt.Errorf("%w: load %s: %v", scheduler.ErrDataUnavailable, step.name, err)
		}
	}
	return snap, nil
}

func (s *Store) loadEmployees(ctx context.Context, snap *scheduler.Snapshot, _ scheduler.Window) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role, active, termination_date, hire_date, rotations
		FROM employees ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			emp         scheduler.Employee
			active      int
			termination sql.NullString
			hireDate    string
			rotations   string
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Role, &active, &termination, &hireDate, &rotations); err != nil {
			return err
		}
		emp.Active = active != 0
		if termination.Valid {
			day, err := scheduler.ParseDate(termination.String)
			if err != nil {
				return fmt.Errorf("employee %s termination_date: %w", emp.ID, err)
			}
			emp.TerminationDate = &day
		}
		if emp.HireDate, err = scheduler.ParseDate(hireDate); err != nil {
			return fmt.Errorf("employee %s hire_date: %w", emp.ID, err)
		}
		if rotations != "" {
			emp.Rotations = strings.Split(rotations, ",")
		}
		snap.Employees[emp.ID] = emp
	}
	return rows.Err()
}

func (s *Store) loadAvailability(ctx context.Context, snap *scheduler.Snapshot, _ scheduler.Window) error {
	byEmployee := make(map[string]scheduler.Availability, len(snap.Employees))

	rows, err := s.db.QueryContext(ctx, `SELECT employee_id, weekday, available FROM weekly_patterns`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			employeeID string
			weekday    int
			available  int
		)
		if err := rows.Scan(&employeeID, &weekday, &available); err != nil {
			return err
		}
		avail := byEmployee[employeeID]
		avail.WeeklyPattern[weekday] = available != 0
		byEmployee[employeeID] = avail
	}
	if err := rows.Err(); err != nil {
		return err
	}

	offRows, err := s.db.QueryContext(ctx, `SELECT employee_id, from_date, to_date FROM time_off`)
	if err != nil {
		return err
	}
	defer offRows.Close()
	for offRows.Next() {
		var employeeID, fromDate, toDate string
		if err := offRows.Scan(&employeeID, &fromDate, &toDate); err != nil {
			return err
		}
		from, err := scheduler.ParseDate(fromDate)
		if err != nil {
			return err
		}
		to, err := scheduler.ParseDate(toDate)
		if err != nil {
			return err
		}
		avail := byEmployee[employeeID]
		avail.TimeOff = append(avail.TimeOff, scheduler.DateRange{From: from, To: to})
		byEmployee[employeeID] = avail
	}
	if err := offRows.Err(); err != nil {
		return err
	}

	ovRows, err := s.db.QueryContext(ctx, `SELECT employee_id, date, available FROM availability_overrides`)
	if err != nil {
		return err
	}
	defer ovRows.Close()
	for ovRows.Next() {
		var (
			employeeID, date string
			available        int
		)
		if err := ovRows.Scan(&employeeID, &date, &available); err != nil {
			return err
		}
		day, err := scheduler.ParseDate(date)
		if err != nil {
			return err
		}
		avail := byEmployee[employeeID]
		if avail.Overrides == nil {
			avail.Overrides = make(map[scheduler.Date]bool)
		}
		avail.Overrides[day] = available != 0
		byEmployee[employeeID] = avail
	}
	if err := ovRows.Err(); err != nil {
		return err
	}

	snap.Availability = byEmployee
	return nil
}

func (s *Store) loadCalendar(ctx context.Context, snap *scheduler.Snapshot, _ scheduler.Window) error {
	if err := s.loadDateSet(ctx, `SELECT date FROM holidays`, snap.Calendar.Holidays); err != nil {
		return err
	}
	return s.loadDateSet(ctx, `SELECT date FROM locked_days`, snap.Calendar.LockedDays)
}

func (s *Store) loadDateSet(ctx context.Context, query string, into map[scheduler.Date]bool) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return err
		}
		day, err := scheduler.ParseDate(date)
		if err != nil {
			return err
		}
		into[day] = true
	}
	return rows.Err()
}

// loadEvents selects work items due inside the window or already overdue,
// plus every event with a committed assignment. Assigned events are never
// scheduled again, but the resolver needs their due windows to relocate
// their assignments across days.
func (s *Store) loadEvents(ctx context.Context, snap *scheduler.Snapshot, window scheduler.Window) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.id, e.type, e.due_date, e.earliest_date, e.correlation_key
		FROM events e
		LEFT JOIN assignments a ON a.event_id = e.id
		WHERE a.event_id IS NOT NULL OR e.due_date <= ?
		ORDER BY e.due_date, e.id`, window.To.String())
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ev       scheduler.Event
			dueDate  string
			earliest sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Type, &dueDate, &earliest, &ev.CorrelationKey); err != nil {
			return err
		}
		if ev.DueDate, err = scheduler.ParseDate(dueDate); err != nil {
			return fmt.Errorf("event %s due_date: %w", ev.ID, err)
		}
		if earliest.Valid && earliest.String != "" {
			if ev.EarliestDate, err = scheduler.ParseDate(earliest.String); err != nil {
				return fmt.Errorf("event %s earliest_date: %w", ev.ID, err)
			}
		}
		snap.Events = append(snap.Events, ev)
	}
	return rows.Err()
}

func (s *Store) loadAssignments(ctx context.Context, snap *scheduler.Snapshot, _ scheduler.Window) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, employee_id, date, slot, correlation_key
		FROM assignments ORDER BY date, employee_id, slot, event_id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a    scheduler.Assignment
			date string
		)
		if err := rows.Scan(&a.EventID, &a.EventType, &a.EmployeeID, &date, &a.Slot, &a.CorrelationKey); err != nil {
			return err
		}
		if a.Date, err = scheduler.ParseDate(date); err != nil {
			return fmt.Errorf("assignment %s date: %w", a.EventID, err)
		}
		snap.Committed = append(snap.Committed, a)
	}
	return rows.Err()
}

// loadRotations copies the file-sourced table and overlays storage-sourced
// date overrides.
func (s *Store) loadRotations(ctx context.Context, snap *scheduler.Snapshot, _ scheduler.Window) error {
	table := scheduler.RotationTable{
		Weekly:    make(map[string]map[time.Weekday]scheduler.RotationPair),
		Overrides: make(map[string]map[scheduler.Date]scheduler.RotationPair),
	}
	for rotationType, byDay := range s.baseRotations.Weekly {
		table.Weekly[rotationType] = make(map[time.Weekday]scheduler.RotationPair, len(byDay))
		for day, pair := range byDay {
			table.Weekly[rotationType][day] = pair
		}
	}
	for rotationType, byDate := range s.baseRotations.Overrides {
		table.Overrides[rotationType] = make(map[scheduler.Date]scheduler.RotationPair, len(byDate))
		for date, pair := range byDate {
			table.Overrides[rotationType][date] = pair
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT rotation_type, date, primary_id, backup_id FROM rotation_overrides`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rotationType, date, primaryID, backupID string
		if err := rows.Scan(&rotationType, &date, &primaryID, &backupID); err != nil {
			return err
		}
		day, err := scheduler.ParseDate(date)
		if err != nil {
			return err
		}
		if table.Overrides[rotationType] == nil {
			table.Overrides[rotationType] = make(map[scheduler.Date]scheduler.RotationPair)
		}
		table.Overrides[rotationType][day] = scheduler.RotationPair{Primary: primaryID, Backup: backupID}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	snap.Rotations = table
	return nil
}
