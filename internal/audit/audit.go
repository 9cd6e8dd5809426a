// Package audit re-validates committed schedules independently of the
// orchestrator, catching issues introduced by manual edits. Auditors are
// pure queries: they read committed state only and never see run proposals.
package audit

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

// Severity grades an audit issue.
type Severity string

const (
	// SeverityCritical issues indicate rule violations in committed state.
	SeverityCritical Severity = "critical"
	// SeverityWarning issues indicate suspect but not invalid state.
	SeverityWarning Severity = "warning"
	// SeverityInfo issues are observations with no score impact.
	SeverityInfo Severity = "info"
)

// Issue is one finding from an audit pass.
type Issue struct {
	Rule       string
	Severity   Severity
	Message    string
	EmployeeID string
	EventID    string
	Date       scheduler.Date
}

// Auditor evaluates committed schedules against the run configuration.
type Auditor struct {
	cfg    scheduler.Config
	logger *slog.Logger
}

// New builds an auditor for the given configuration.
func New(cfg scheduler.Config, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{cfg: cfg, logger: logger}
}

// AuditDay re-validates every committed assignment on the day and applies
// the presentation checks (lead at slot 1). Issues are returned in a
// deterministic order.
func (a *Auditor) AuditDay(day scheduler.Date, snap *scheduler.Snapshot) []Issue {
	if snap == nil {
		return nil
	}
	ws := scheduler.NewWorkingSet(snap, a.cfg)
	checker := scheduler.NewChecker(a.cfg)

	var issues []Issue
	for _, assignment := range committedOn(snap, day) {
		ev := eventView(assignment)
		verdict := checker.Validate(ev, assignment.EmployeeID, assignment.Date, assignment.Slot, ws)
		for _, v := range verdict.Violations {
			issues = append(issues, Issue{
				Rule:       string(v.Rule),
				Severity:   SeverityCritical,
				Message:    v.Message,
				EmployeeID: assignment.EmployeeID,
				EventID:    assignment.EventID,
				Date:       day,
			})
		}
	}

	issues = append(issues, a.leadSlotIssues(day, snap, ws)...)
	sortIssues(issues)
	a.logger.Debug("day audited", "date", day.String(), "issues", len(issues))
	return issues
}

// leadSlotIssues flags a designated lead whose slotted work on the day does
// not start at slot 1.
func (a *Auditor) leadSlotIssues(day scheduler.Date, snap *scheduler.Snapshot, ws *scheduler.WorkingSet) []Issue {
	pair, ok := snap.Rotations.Resolve(day, a.cfg.LeadRotation)
	if !ok || pair.Primary == "" {
		return nil
	}
	slotted := false
	for _, assignment := range ws.AssignmentsOn(pair.Primary, day) {
		if assignment.Slot == scheduler.LeadSlot {
			return nil
		}
		if assignment.Slot > 0 {
			slotted = true
		}
	}
	if !slotted {
		return nil
	}
	return []Issue{{
		Rule:       "lead_slot",
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf("designated lead %s has slotted work on %s but not at slot %d", pair.Primary, day, scheduler.LeadSlot),
		EmployeeID: pair.Primary,
		Date:       day,
	}}
}

// AuditWeek applies the weekly rules over the ISO week starting at
// weekStart: cap re-checks, duplicate type per day, slot repetition, and
// slot distribution.
func (a *Auditor) AuditWeek(weekStart scheduler.Date, snap *scheduler.Snapshot) []Issue {
	if snap == nil {
		return nil
	}
	week := scheduler.DateRange{From: weekStart, To: weekStart.AddDays(6)}

	perEmployee := make(map[string][]scheduler.Assignment)
	for _, assignment := range snap.Committed {
		if !week.Contains(assignment.Date) {
			continue
		}
		perEmployee[assignment.EmployeeID] = append(perEmployee[assignment.EmployeeID], assignment)
	}

	var issues []Issue
	for _, employeeID := range sortedKeys(perEmployee) {
		assignments := perEmployee[employeeID]
		issues = append(issues, a.weeklyCapIssues(employeeID, assignments)...)
		issues = append(issues, a.duplicateTypeIssues(employeeID, assignments)...)
		issues = append(issues, a.slotRepetitionIssues(employeeID, assignments)...)
		issues = append(issues, a.slotDistributionIssues(employeeID, assignments)...)
	}
	sortIssues(issues)
	a.logger.Debug("week audited", "week_start", weekStart.String(), "issues", len(issues))
	return issues
}

func (a *Auditor) weeklyCapIssues(employeeID string, assignments []scheduler.Assignment) []Issue {
	limit := a.cfg.WeeklyCoreCap
	if limit <= 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, assignment := range assignments {
		if a.cfg.CategoryOf(assignment.EventType) == scheduler.CategoryCore {
			counts[assignment.EventType]++
		}
	}
	var issues []Issue
	for _, typeName := range sortedKeys(counts) {
		if counts[typeName] > limit {
			issues = append(issues, Issue{
				Rule:       string(scheduler.RuleWeeklyCap),
				Severity:   SeverityCritical,
				Message:    fmt.Sprintf("employee %s holds %d %s assignments this week, cap is %d", employeeID, counts[typeName], typeName, limit),
				EmployeeID: employeeID,
			})
		}
	}
	return issues
}

// duplicateTypeIssues flags the same product assigned twice to one employee
// on one day.
func (a *Auditor) duplicateTypeIssues(employeeID string, assignments []scheduler.Assignment) []Issue {
	type dayType struct {
		day      scheduler.Date
		typeName string
	}
	counts := make(map[dayType]int)
	for _, assignment := range assignments {
		counts[dayType{day: assignment.Date, typeName: assignment.EventType}]++
	}
	keys := make([]dayType, 0, len(counts))
	for k := range counts {
		if counts[k] > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].day != keys[j].day {
			return keys[i].day.Before(keys[j].day)
		}
		return keys[i].typeName < keys[j].typeName
	})
	var issues []Issue
	for _, k := range keys {
		issues = append(issues, Issue{
			Rule:       "duplicate_type_same_day",
			Severity:   SeverityCritical,
			Message:    fmt.Sprintf("employee %s has %d %s assignments on %s", employeeID, counts[k], k.typeName, k.day),
			EmployeeID: employeeID,
			Date:       k.day,
		})
	}
	return issues
}

// slotRepetitionIssues flags an employee holding the identical slot on four
// or more days of the week, a sign the rotation heuristic is not spreading
// work.
func (a *Auditor) slotRepetitionIssues(employeeID string, assignments []scheduler.Assignment) []Issue {
	days := make(map[int]map[scheduler.Date]bool)
	for _, assignment := range assignments {
		if assignment.Slot <= 0 {
			continue
		}
		if days[assignment.Slot] == nil {
			days[assignment.Slot] = make(map[scheduler.Date]bool)
		}
		days[assignment.Slot][assignment.Date] = true
	}
	var slots []int
	for slot, set := range days {
		if len(set) >= 4 {
			slots = append(slots, slot)
		}
	}
	sort.Ints(slots)
	var issues []Issue
	for _, slot := range slots {
		issues = append(issues, Issue{
			Rule:       "slot_repetition",
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("employee %s holds slot %d on %d days this week", employeeID, slot, len(days[slot])),
			EmployeeID: employeeID,
		})
	}
	return issues
}

// slotDistributionIssues flags a busy week concentrated in very few slots.
func (a *Auditor) slotDistributionIssues(employeeID string, assignments []scheduler.Assignment) []Issue {
	distinct := make(map[int]bool)
	slotted := 0
	for _, assignment := range assignments {
		if assignment.Slot <= 0 {
			continue
		}
		slotted++
		distinct[assignment.Slot] = true
	}
	if slotted < 5 || len(distinct) > 2 {
		return nil
	}
	return []Issue{{
		Rule:       "slot_distribution",
		Severity:   SeverityInfo,
		Message:    fmt.Sprintf("employee %s has %d slotted assignments spread over only %d slots this week", employeeID, slotted, len(distinct)),
		EmployeeID: employeeID,
	}}
}

// HealthScore summarizes an issue list: 100 − 10×critical − 3×warning,
// clamped to [0,100]. Info issues do not affect the score.
func HealthScore(issues []Issue) int {
	score := 100
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			score -= 10
		case SeverityWarning:
			score -= 3
		}
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func committedOn(snap *scheduler.Snapshot, day scheduler.Date) []scheduler.Assignment {
	var out []scheduler.Assignment
	for _, assignment := range snap.Committed {
		if assignment.Date == day {
			out = append(out, assignment)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].EventID < out[j].EventID
	})
	return out
}

// eventView reconstructs the validator's event input from a committed row.
// The due window is pinned to the committed date: audits judge placement
// rules, not due-date drift the approval step already accepted.
func eventView(a scheduler.Assignment) scheduler.Event {
	return scheduler.Event{
		ID:             a.EventID,
		Type:           a.EventType,
		DueDate:        a.Date,
		EarliestDate:   a.Date,
		CorrelationKey: a.CorrelationKey,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].EmployeeID != issues[j].EmployeeID {
			return issues[i].EmployeeID < issues[j].EmployeeID
		}
		if issues[i].Rule != issues[j].Rule {
			return issues[i].Rule < issues[j].Rule
		}
		return issues[i].Message < issues[j].Message
	})
}
