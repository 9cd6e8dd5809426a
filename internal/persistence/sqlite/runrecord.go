package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/workforce-scheduler/internal/persistence"
	"github.com/example/workforce-scheduler/internal/scheduler"
)

// SaveRunRecord persists a run's output for the external approval step.
func (s *Store) SaveRunRecord(ctx context.Context, rec *scheduler.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("sqlite: nil run record")
	}
	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_records (id, window_from, window_to, started_at, completed_at, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID,
			rec.Window.From.String(),
			rec.Window.To.String(),
			rec.StartedAt.UTC().Format(time.RFC3339),
			rec.CompletedAt.UTC().Format(time.RFC3339),
			string(rec.Status),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert run record: %w", err)
		}

		for i, p := range rec.Proposals {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO run_proposals (id, run_id, seq, event_id, event_type, employee_id, date, slot, wave, status, correlation_key)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, rec.ID, i, p.EventID, p.EventType, p.EmployeeID,
				p.Date.String(), p.Slot, int(p.Wave), string(p.Status), p.CorrelationKey,
			)
			if err != nil {
				return fmt.Errorf("sqlite: insert proposal %s: %w", p.ID, err)
			}
		}
		for i, u := range rec.Unscheduled {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO run_unscheduled (run_id, seq, event_id, reason)
				VALUES (?, ?, ?, ?)`,
				rec.ID, i, u.Event.ID, string(u.Reason),
			)
			if err != nil {
				return fmt.Errorf("sqlite: insert unscheduled %s: %w", u.Event.ID, err)
			}
		}
		for i, r := range rec.Relocations {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO run_relocations (run_id, seq, event_id, employee_id, from_date, from_slot, to_date, to_slot)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, i, r.EventID, r.EmployeeID,
				r.From.Date.String(), r.From.Slot, r.To.Date.String(), r.To.Slot,
			)
			if err != nil {
				return fmt.Errorf("sqlite: insert relocation %s: %w", r.EventID, err)
			}
		}
		return nil
	})
}

// GetRunRecord reads back a persisted run record: proposals, relocations,
// and unscheduled events. Bump detail and wave counts are run-time
// diagnostics and are not persisted.
func (s *Store) GetRunRecord(ctx context.Context, id string) (*scheduler.RunRecord, error) {
	rec := &scheduler.RunRecord{ID: id}
	var windowFrom, windowTo, startedAt, completedAt, status string
	err := s.db.QueryRowContext(ctx, `
		SELECT window_from, window_to, started_at, completed_at, status
		FROM run_records WHERE id = ?`, id).
		Scan(&windowFrom, &windowTo, &startedAt, &completedAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get run record: %w", err)
	}

	if rec.Window.From, err = scheduler.ParseDate(windowFrom); err != nil {
		return nil, err
	}
	if rec.Window.To, err = scheduler.ParseDate(windowTo); err != nil {
		return nil, err
	}
	if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, err
	}
	if rec.CompletedAt, err = time.Parse(time.RFC3339, completedAt); err != nil {
		return nil, err
	}
	rec.Status = scheduler.RunStatus(status)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, event_type, employee_id, date, slot, wave, status, correlation_key
		FROM run_proposals WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list proposals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p          scheduler.Proposal
			date       string
			wave       int
			propStatus string
		)
		if err := rows.Scan(&p.ID, &p.EventID, &p.EventType, &p.EmployeeID, &date, &p.Slot, &wave, &propStatus, &p.CorrelationKey); err != nil {
			return nil, err
		}
		if p.Date, err = scheduler.ParseDate(date); err != nil {
			return nil, err
		}
		p.Wave = scheduler.Wave(wave)
		p.Status = scheduler.ProposalStatus(propStatus)
		rec.Proposals = append(rec.Proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	relRows, err := s.db.QueryContext(ctx, `
		SELECT event_id, employee_id, from_date, from_slot, to_date, to_slot
		FROM run_relocations WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list relocations: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var (
			r                scheduler.Relocation
			fromDate, toDate string
		)
		if err := relRows.Scan(&r.EventID, &r.EmployeeID, &fromDate, &r.From.Slot, &toDate, &r.To.Slot); err != nil {
			return nil, err
		}
		if r.From.Date, err = scheduler.ParseDate(fromDate); err != nil {
			return nil, err
		}
		if r.To.Date, err = scheduler.ParseDate(toDate); err != nil {
			return nil, err
		}
		rec.Relocations = append(rec.Relocations, r)
	}
	if err := relRows.Err(); err != nil {
		return nil, err
	}

	unschedRows, err := s.db.QueryContext(ctx, `
		SELECT event_id, reason FROM run_unscheduled WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list unscheduled: %w", err)
	}
	defer unschedRows.Close()
	for unschedRows.Next() {
		var eventID, reason string
		if err := unschedRows.Scan(&eventID, &reason); err != nil {
			return nil, err
		}
		rec.Unscheduled = append(rec.Unscheduled, scheduler.UnscheduledEvent{
			Event:  scheduler.Event{ID: eventID},
			Reason: scheduler.Reason(reason),
		})
	}
	return rec, unschedRows.Err()
}
