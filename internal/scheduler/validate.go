package scheduler

import "fmt"

// Rule identifies one validation rule.
type Rule string

const (
	// RuleHoliday rejects placements on company holidays.
	RuleHoliday Rule = "holiday"
	// RuleTimeOff rejects placements inside an employee's time-off range.
	RuleTimeOff Rule = "time_off"
	// RuleWeeklyAvailability rejects weekdays the employee's recurring
	// pattern marks unavailable, absent a same-date override.
	RuleWeeklyAvailability Rule = "weekly_availability"
	// RuleLockedDay rejects administratively locked days.
	RuleLockedDay Rule = "locked_day"
	// RuleRoleEligibility rejects employees outside a type's restricted
	// role set.
	RuleRoleEligibility Rule = "role_eligibility"
	// RuleOverlap rejects placements into an occupied slot.
	RuleOverlap Rule = "overlap"
	// RuleDailyCap limits core assignments to one per employee per day.
	RuleDailyCap Rule = "daily_cap"
	// RuleWeeklyCap limits core assignments per employee per ISO week.
	RuleWeeklyCap Rule = "weekly_cap"
	// RuleDueWindow rejects dates outside [earliest eligible, due].
	RuleDueWindow Rule = "due_window"
)

// relaxableRules is the closed set the rescue pass may downgrade to
// advisory. Everything else is always critical.
var relaxableRules = map[Rule]bool{
	RuleWeeklyAvailability: true,
	RuleWeeklyCap:          true,
}

// Severity classifies a violation.
type Severity string

const (
	// SeverityCritical violations invalidate the placement.
	SeverityCritical Severity = "critical"
	// SeverityAdvisory violations are reported but do not invalidate.
	SeverityAdvisory Severity = "advisory"
)

// Violation is one failed rule with its severity at evaluation time.
type Violation struct {
	Rule     Rule
	Severity Severity
	Message  string
}

// Verdict is the outcome of validating one candidate placement. Valid is
// true only when no critical violation occurred.
type Verdict struct {
	Valid      bool
	Violations []Violation
}

// Checker evaluates candidate placements against the configured rule set.
// It is pure: Validate never mutates the working set or the snapshot.
type Checker struct {
	cfg     Config
	relaxed map[Rule]bool
}

// NewChecker builds a checker with every rule critical.
func NewChecker(cfg Config) *Checker {
	return &Checker{cfg: cfg}
}

// Relaxed returns a checker that treats the named rules as advisory. Rules
// outside the relaxable set are silently kept critical.
func (c *Checker) Relaxed(rules []Rule) *Checker {
	relaxed := make(map[Rule]bool, len(rules))
	for _, r := range rules {
		if relaxableRules[r] {
			relaxed[r] = true
		}
	}
	return &Checker{cfg: c.cfg, relaxed: relaxed}
}

func (c *Checker) severity(rule Rule) Severity {
	if c.relaxed[rule] {
		return SeverityAdvisory
	}
	return SeverityCritical
}

// Validate evaluates the placement of ev for the employee at (day, slot)
// against the combined committed-plus-proposed view. Rules run in a fixed
// order and every violated rule is reported; the verdict is invalid as soon
// as any critical rule fails.
func (c *Checker) Validate(ev Event, employeeID string, day Date, slot int, ws *WorkingSet) Verdict {
	def := c.cfg.EventTypes[ev.Type]
	snap := ws.Snapshot()
	avail := snap.Availability[employeeID]
	employee := snap.Employees[employeeID]

	var violations []Violation
	fail := func(rule Rule, format string, args ...any) {
		violations = append(violations, Violation{
			Rule:     rule,
			Severity: c.severity(rule),
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if !def.HolidayExempt && snap.Calendar.IsHoliday(day) {
		fail(RuleHoliday, "%s is a company holiday", day)
	}
	if avail.OnTimeOff(day) {
		fail(RuleTimeOff, "employee %s has time off on %s", employeeID, day)
	}
	if !avail.AvailableOn(day) {
		fail(RuleWeeklyAvailability, "employee %s does not work on %s", employeeID, day.Weekday())
	}
	if snap.Calendar.IsLocked(day) {
		fail(RuleLockedDay, "%s is locked for scheduling", day)
	}
	if len(def.RequiredRoles) > 0 && !roleEligible(employee.Role, def.RequiredRoles) {
		fail(RuleRoleEligibility, "role %q not eligible for %s", employee.Role, ev.Type)
	}
	if occ, occupied := c.slotConflict(employeeID, day, slot, ev, ws); occupied {
		fail(RuleOverlap, "slot %d on %s already holds event %s", slot, day, occ.EventID)
	}
	if def.Category == CategoryCore {
		if c.sameTypeCountOn(ws, employeeID, day, ev.Type, ev.ID) >= 1 {
			fail(RuleDailyCap, "employee %s already has a %s assignment on %s", employeeID, ev.Type, day)
		}
		if limit := c.cfg.WeeklyCoreCap; limit > 0 && c.sameTypeCountInWeek(ws, employeeID, day, ev.Type, ev.ID) >= limit {
			fail(RuleWeeklyCap, "employee %s is at the weekly cap of %d for %s", employeeID, limit, ev.Type)
		}
	}
	if day.After(ev.DueDate) {
		fail(RuleDueWindow, "%s is after due date %s", day, ev.DueDate)
	} else if !ev.EarliestDate.IsZero() && day.Before(ev.EarliestDate) {
		fail(RuleDueWindow, "%s is before earliest eligible date %s", day, ev.EarliestDate)
	}

	return Verdict{Valid: !hasCritical(violations), Violations: violations}
}

// slotConflict reports whether the placement collides with an existing
// assignment. Slotted work (slot > 0) occupies consecutive blocks per its
// type's duration and collides when the block ranges intersect; whole-day
// duties (slot 0) collide only with another duty of the same type.
func (c *Checker) slotConflict(employeeID string, day Date, slot int, ev Event, ws *WorkingSet) (Assignment, bool) {
	newFrom, newTo := slot, slot+c.cfg.SlotSpan(ev.Type)-1
	for _, a := range ws.AssignmentsOn(employeeID, day) {
		if a.EventID == ev.ID {
			continue
		}
		if slot > 0 && a.Slot > 0 {
			heldFrom, heldTo := a.Slot, a.Slot+c.cfg.SlotSpan(a.EventType)-1
			if newFrom <= heldTo && heldFrom <= newTo {
				return a, true
			}
		}
		if slot == 0 && a.Slot == 0 && a.EventType == ev.Type {
			return a, true
		}
	}
	return Assignment{}, false
}

// sameTypeCountOn counts the employee's assignments of the given event type
// on the day, ignoring the event under validation so relocations do not
// collide with themselves. Caps are per type: a day may hold several core
// assignments of different types, never two of the same.
func (c *Checker) sameTypeCountOn(ws *WorkingSet, employeeID string, day Date, typeName, excludeEventID string) int {
	count := 0
	for _, a := range ws.AssignmentsOn(employeeID, day) {
		if a.EventID == excludeEventID {
			continue
		}
		if a.EventType == typeName {
			count++
		}
	}
	return count
}

func (c *Checker) sameTypeCountInWeek(ws *WorkingSet, employeeID string, day Date, typeName, excludeEventID string) int {
	count := 0
	start := weekStart(day)
	for offset := 0; offset < 7; offset++ {
		count += c.sameTypeCountOn(ws, employeeID, start.AddDays(offset), typeName, excludeEventID)
	}
	return count
}

func roleEligible(role string, required []string) bool {
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

func hasCritical(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CriticalRules lists the violated rules tagged critical, in evaluation
// order.
func (v Verdict) CriticalRules() []Rule {
	var rules []Rule
	for _, violation := range v.Violations {
		if violation.Severity == SeverityCritical {
			rules = append(rules, violation.Rule)
		}
	}
	return rules
}
