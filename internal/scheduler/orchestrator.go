package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Recorder receives engine observations. Implementations must be cheap and
// non-blocking; a nil recorder disables instrumentation.
type Recorder interface {
	RunObserved(rec *RunRecord, duration time.Duration)
	BumpObserved(success bool)
}

// Orchestrator produces scheduling proposals for a window. A single
// orchestrator value is reusable across runs; each run is sequential and
// assumes exclusive access to its snapshot for the duration (the caller
// holds the run-level lock).
type Orchestrator struct {
	cfg      Config
	ranker   Ranker
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRanker installs the optional external ranking collaborator.
func WithRanker(r Ranker) Option {
	return func(o *Orchestrator) { o.ranker = r }
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger installs a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides run and proposal ID generation, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// New wires an orchestrator for the given immutable configuration.
func New(cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runState carries one run's mutable accumulator and per-event bookkeeping.
type runState struct {
	ctx       context.Context
	cfg       Config
	window    Window
	ws        *WorkingSet
	checker   *Checker
	allocator *Allocator
	resolver  *Resolver
	ranking   *rankingClient
	recorder  Recorder
	logger    *slog.Logger
	newID     func() string

	events      map[string]Event
	rec         *RunRecord
	unscheduled map[string]Reason // event ID -> reason, pending record assembly
	order       []string          // unscheduled event IDs in first-failure order
	frozen      map[string]bool   // events barred from later waves (failed lead placement)
}

// Run executes the wave pipeline over the snapshot and returns the run
// record. Identical snapshot and configuration always produce an identical
// record. The snapshot is never mutated.
func (o *Orchestrator) Run(ctx context.Context, window Window, snap *Snapshot) (*RunRecord, error) {
	if snap == nil {
		return nil, ErrDataUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	started := o.now()
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "orchestrator", "window_from", window.From.String(), "window_to", window.To.String())

	checker := NewChecker(o.cfg)
	events := make(map[string]Event, len(snap.Events))
	for _, ev := range snap.Events {
		events[ev.ID] = ev
	}

	st := &runState{
		ctx:       ctx,
		cfg:       o.cfg,
		window:    window,
		ws:        NewWorkingSet(snap, o.cfg),
		checker:   checker,
		allocator: NewAllocator(o.cfg),
		resolver:  NewResolver(o.cfg, checker, events),
		ranking:   newRankingClient(o.ranker, o.cfg.Ranking, logger),
		recorder:  o.recorder,
		logger:    logger,
		newID:     o.newID,
		events:    events,
		rec: &RunRecord{
			ID:        o.newID(),
			Window:    window,
			StartedAt: started,
		},
		unscheduled: make(map[string]Reason),
		frozen:      make(map[string]bool),
	}

	waves := []struct {
		wave Wave
		run  func(Window)
	}{
		{WaveRotation, st.runRotationWave},
		{WaveLead, st.runLeadWave},
		{WaveCore, st.runCoreWave},
		{WavePairing, st.runPairingWave},
		{WaveRestricted, st.runRestrictedWave},
		{WaveGeneral, st.runGeneralWave},
		{WaveRescue, st.runRescuePass},
	}

	completed := true
	for _, w := range waves {
		if ctx.Err() != nil {
			logger.Info("run cancelled", "before_wave", w.wave.String())
			completed = false
			break
		}
		logger.Debug("wave starting", "wave", w.wave.String())
		w.run(window)
	}

	st.rec.Proposals = st.ws.Proposals()
	st.rec.Relocations = st.ws.Relocations()
	for _, id := range st.order {
		if reason, still := st.unscheduled[id]; still {
			st.rec.Unscheduled = append(st.rec.Unscheduled, UnscheduledEvent{Event: st.events[id], Reason: reason})
		}
	}
	st.rec.Status = RunCompleted
	if !completed {
		st.rec.Status = RunIncomplete
	}
	st.rec.CompletedAt = o.now()

	logger.Info("run finished",
		"status", string(st.rec.Status),
		"proposals", len(st.rec.Proposals),
		"unscheduled", len(st.rec.Unscheduled),
		"relocations", len(st.rec.Relocations))

	if o.recorder != nil {
		o.recorder.RunObserved(st.rec, st.rec.CompletedAt.Sub(started))
	}
	return st.rec, nil
}

// candidateEvents filters and orders the wave's events: unplaced, matching
// the category filter, due inside the window or already overdue, sorted by
// due date then ID for reproducibility.
func (st *runState) candidateEvents(window Window, match func(EventType) bool) []Event {
	var out []Event
	for _, ev := range st.events {
		def, ok := st.cfg.TypeOf(ev)
		if !ok || !match(def) {
			continue
		}
		if st.ws.EventPlaced(ev.ID) || st.frozen[ev.ID] {
			continue
		}
		if ev.DueDate.After(window.To) {
			continue
		}
		out = append(out, ev)
	}
	sortEvents(out)
	return out
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].DueDate != events[j].DueDate {
			return events[i].DueDate.Before(events[j].DueDate)
		}
		return events[i].ID < events[j].ID
	})
}

// eligibleDates intersects the window with the event's [earliest, due] span.
func (st *runState) eligibleDates(ev Event, window Window) []Date {
	var out []Date
	for _, day := range window.Days() {
		if day.After(ev.DueDate) {
			continue
		}
		if !ev.EarliestDate.IsZero() && day.Before(ev.EarliestDate) {
			continue
		}
		out = append(out, day)
	}
	return out
}

func (st *runState) markUnscheduled(ev Event, reason Reason) {
	if _, seen := st.unscheduled[ev.ID]; !seen {
		st.order = append(st.order, ev.ID)
	}
	st.unscheduled[ev.ID] = reason
}

func (st *runState) propose(ev Event, employeeID string, day Date, slot int, wave Wave) {
	st.ws.AddProposal(Proposal{
		ID:             st.newID(),
		EventID:        ev.ID,
		EventType:      ev.Type,
		EmployeeID:     employeeID,
		Date:           day,
		Slot:           slot,
		Wave:           wave,
		Status:         ProposalProposed,
		CorrelationKey: ev.CorrelationKey,
	})
	delete(st.unscheduled, ev.ID)
}

func (st *runState) countWave(wave Wave, attempted, scheduled int) {
	st.rec.WaveCounts = append(st.rec.WaveCounts, WaveCount{Wave: wave, Attempted: attempted, Scheduled: scheduled})
}

// runRotationWave places rotation-category events on the date's configured
// primary, falling back to the backup.
func (st *runState) runRotationWave(window Window) {
	events := st.candidateEvents(window, func(def EventType) bool { return def.Category == CategoryRotation })
	scheduled := 0
	for _, ev := range events {
		if st.placeRotationEvent(ev, window, st.checker, WaveRotation) {
			scheduled++
		}
	}
	st.countWave(WaveRotation, len(events), scheduled)
}

func (st *runState) placeRotationEvent(ev Event, window Window, checker *Checker, wave Wave) bool {
	def, _ := st.cfg.TypeOf(ev)
	snap := st.ws.Snapshot()
	resolvedAny := false
	reason := ReasonMissingRotation
	for _, day := range st.eligibleDates(ev, window) {
		pair, ok := snap.Rotations.Resolve(day, def.RotationType)
		if !ok {
			continue
		}
		resolvedAny = true
		for _, candidateID := range []string{pair.Primary, pair.Backup} {
			if candidateID == "" {
				continue
			}
			emp, known := snap.Employees[candidateID]
			if !known || !emp.Employable(day) {
				reason = worseReason(reason, ReasonNoAvailableEmployee)
				continue
			}
			verdict := checker.Validate(ev, candidateID, day, 0, st.ws)
			if verdict.Valid {
				st.propose(ev, candidateID, day, 0, wave)
				return true
			}
			reason = worseReason(reason, classifyVerdict(verdict))
		}
	}
	if !resolvedAny {
		st.markUnscheduled(ev, ReasonMissingRotation)
		return false
	}
	if reason == ReasonMissingRotation {
		reason = ReasonNoAvailableEmployee
	}
	st.markUnscheduled(ev, reason)
	return false
}

// runLeadWave gives each day's designated lead a core assignment at slot 1.
// An occupant of slot 1 is unconditionally routed through the resolver; if
// relocation fails the lead's event is recorded unscheduled rather than
// placed elsewhere.
func (st *runState) runLeadWave(window Window) {
	snap := st.ws.Snapshot()
	attempted, scheduled := 0, 0
	for _, day := range window.Days() {
		pair, ok := snap.Rotations.Resolve(day, st.cfg.LeadRotation)
		if !ok || pair.Primary == "" {
			continue
		}
		lead, known := snap.Employees[pair.Primary]
		if !known || !lead.Employable(day) {
			continue
		}
		ev, found := st.firstLeadEvent(day, window)
		if !found {
			continue
		}
		attempted++
		if occupant, occupied := st.ws.SlotOccupant(lead.ID, day, LeadSlot); occupied {
			if !st.attemptBump(occupant, ev.ID) {
				// The lead's event is never silently placed elsewhere.
				st.frozen[ev.ID] = true
				st.markUnscheduled(ev, ReasonBumpFailed)
				continue
			}
		}
		verdict := st.checker.Validate(ev, lead.ID, day, LeadSlot, st.ws)
		if !verdict.Valid {
			st.markUnscheduled(ev, classifyVerdict(verdict))
			continue
		}
		st.propose(ev, lead.ID, day, LeadSlot, WaveLead)
		scheduled++
	}
	st.countWave(WaveLead, attempted, scheduled)
}

// firstLeadEvent picks the first unplaced core event whose eligible span
// covers the day, in due-then-ID order.
func (st *runState) firstLeadEvent(day Date, window Window) (Event, bool) {
	events := st.candidateEvents(window, func(def EventType) bool { return def.Category == CategoryCore })
	for _, ev := range events {
		if day.After(ev.DueDate) {
			continue
		}
		if !ev.EarliestDate.IsZero() && day.Before(ev.EarliestDate) {
			continue
		}
		return ev, true
	}
	return Event{}, false
}

func (st *runState) runCoreWave(window Window) {
	st.runCandidateWave(window, WaveCore, func(def EventType) bool {
		return def.Category == CategoryCore
	})
}

// runPairingWave attaches pairing events to an already-assigned core event
// sharing their correlation key, on the partner's date.
func (st *runState) runPairingWave(window Window) {
	events := st.candidateEvents(window, func(def EventType) bool { return def.Category == CategoryPairing })
	scheduled := 0
	for _, ev := range events {
		if st.placePairingEvent(ev, st.checker, WavePairing) {
			scheduled++
		}
	}
	st.countWave(WavePairing, len(events), scheduled)
}

func (st *runState) placePairingEvent(ev Event, checker *Checker, wave Wave) bool {
	partner, ok := st.ws.FindPartner(ev.CorrelationKey)
	if !ok {
		st.markUnscheduled(ev, ReasonConstraintViolation)
		return false
	}
	day := partner.Date
	if day.After(ev.DueDate) || (!ev.EarliestDate.IsZero() && day.Before(ev.EarliestDate)) {
		st.markUnscheduled(ev, ReasonConstraintViolation)
		return false
	}
	candidates := st.eligibleEmployees(ev, []Date{day}, partner.EmployeeID)
	return st.placeOnDates(ev, []Date{day}, candidates, checker, wave)
}

func (st *runState) runRestrictedWave(window Window) {
	st.runCandidateWave(window, WaveRestricted, func(def EventType) bool {
		return def.Category == CategoryRestricted
	})
}

func (st *runState) runGeneralWave(window Window) {
	st.runCandidateWave(window, WaveGeneral, func(def EventType) bool {
		return def.Category == CategoryGeneral
	})
}

// runRescuePass retries still-unscheduled events due within the rescue
// horizon, with the configured advisory rules relaxed. Critical rules stay
// enforced.
func (st *runState) runRescuePass(window Window) {
	horizon := window.From.AddDays(st.cfg.Rescue.HorizonDays)
	relaxed := st.checker.Relaxed(st.cfg.Rescue.RelaxedRules)

	var retry []Event
	for _, id := range st.order {
		if _, still := st.unscheduled[id]; !still {
			continue
		}
		if st.frozen[id] {
			continue
		}
		ev := st.events[id]
		if ev.DueDate.After(horizon) {
			continue
		}
		retry = append(retry, ev)
	}
	sortEvents(retry)

	scheduled := 0
	for _, ev := range retry {
		def, ok := st.cfg.TypeOf(ev)
		if !ok {
			continue
		}
		placed := false
		switch def.Category {
		case CategoryRotation:
			placed = st.placeRotationEvent(ev, window, relaxed, WaveRescue)
		case CategoryPairing:
			placed = st.placePairingEvent(ev, relaxed, WaveRescue)
		default:
			placed = st.placeCandidateEvent(ev, window, relaxed, WaveRescue)
		}
		if placed {
			scheduled++
		}
	}
	st.countWave(WaveRescue, len(retry), scheduled)
}

// runCandidateWave is the shared wave body for core, restricted, and general
// events: ordered events, ranked candidates, allocator slots, bump on
// overflow.
func (st *runState) runCandidateWave(window Window, wave Wave, match func(EventType) bool) {
	events := st.candidateEvents(window, match)
	scheduled := 0
	for _, ev := range events {
		if st.placeCandidateEvent(ev, window, st.checker, wave) {
			scheduled++
		}
	}
	st.countWave(wave, len(events), scheduled)
}

func (st *runState) placeCandidateEvent(ev Event, window Window, checker *Checker, wave Wave) bool {
	dates := st.eligibleDates(ev, window)
	if len(dates) == 0 {
		st.markUnscheduled(ev, ReasonConstraintViolation)
		return false
	}
	candidates := st.eligibleEmployees(ev, dates, "")
	return st.placeOnDates(ev, dates, candidates, checker, wave)
}

// eligibleEmployees builds the ordered candidate list: role-eligible
// employees employable on at least one of the dates, ranked by the external
// scorer when configured, otherwise in deterministic seniority order.
// placeOnDates re-checks employability per date.
func (st *runState) eligibleEmployees(ev Event, dates []Date, excludeID string) []string {
	def, _ := st.cfg.TypeOf(ev)
	snap := st.ws.Snapshot()
	var pool []Employee
	for _, emp := range snap.Employees {
		if emp.ID == excludeID {
			continue
		}
		if !employableOnAny(emp, dates) {
			continue
		}
		if len(def.RequiredRoles) > 0 && !roleEligible(emp.Role, def.RequiredRoles) {
			continue
		}
		pool = append(pool, emp)
	}
	return st.ranking.order(st.ctx, ev, pool)
}

func employableOnAny(emp Employee, dates []Date) bool {
	for _, day := range dates {
		if emp.Employable(day) {
			return true
		}
	}
	return false
}

// placeOnDates walks dates then candidates, placing the event at the first
// valid (candidate, date, slot). Overflow days probe the overflow order and
// relocate strictly lower-priority occupants.
func (st *runState) placeOnDates(ev Event, dates []Date, candidates []string, checker *Checker, wave Wave) bool {
	if len(candidates) == 0 {
		st.markUnscheduled(ev, ReasonNoAvailableEmployee)
		return false
	}
	snap := st.ws.Snapshot()
	reason := ReasonNoAvailableEmployee
	for _, day := range dates {
		for _, candidateID := range candidates {
			emp, known := snap.Employees[candidateID]
			if !known || !emp.Employable(day) {
				continue
			}
			placed, attemptReason := st.attemptPlacement(ev, candidateID, day, checker, wave)
			if placed {
				return true
			}
			reason = worseReason(reason, attemptReason)
		}
	}
	st.markUnscheduled(ev, reason)
	return false
}

func (st *runState) attemptPlacement(ev Event, employeeID string, day Date, checker *Checker, wave Wave) (bool, Reason) {
	slot, free := st.allocator.NextSlot(employeeID, day, st.ws)
	if free {
		verdict := checker.Validate(ev, employeeID, day, slot, st.ws)
		if verdict.Valid {
			st.propose(ev, employeeID, day, slot, wave)
			return true, ""
		}
		return false, classifyVerdict(verdict)
	}

	// Day is in overflow: probe the overflow order, relocating occupants of
	// strictly lower priority.
	priority := st.cfg.PriorityOf(ev.Type)
	bumpTried := false
	for _, slot := range st.allocator.OverflowOrder() {
		occupant, occupied := st.ws.SlotOccupant(employeeID, day, slot)
		if occupied {
			if st.cfg.PriorityOf(occupant.EventType) >= priority {
				continue
			}
			bumpTried = true
			if !st.attemptBump(occupant, ev.ID) {
				continue
			}
		}
		verdict := checker.Validate(ev, employeeID, day, slot, st.ws)
		if verdict.Valid {
			st.propose(ev, employeeID, day, slot, wave)
			return true, ""
		}
	}
	if bumpTried {
		return false, ReasonBumpFailed
	}
	return false, ReasonCapacityExceeded
}

// attemptBump runs the resolver for the blocking assignment and records the
// attempt on the run record.
func (st *runState) attemptBump(blocking Assignment, forEventID string) bool {
	to, ok := st.resolver.TryBump(blocking, st.window, st.ws)
	attempt := BumpAttempt{
		BlockedEventID:  blocking.EventID,
		BlockedEmployee: blocking.EmployeeID,
		From:            Placement{Date: blocking.Date, Slot: blocking.Slot},
		ForEventID:      forEventID,
		Success:         ok,
	}
	if ok {
		attempt.To = &to
	}
	st.rec.BumpDetail = append(st.rec.BumpDetail, attempt)
	if st.recorder != nil {
		st.recorder.BumpObserved(ok)
	}
	st.logger.Debug("bump attempted",
		"blocked_event", blocking.EventID,
		"for_event", forEventID,
		"success", ok)
	return ok
}

// classifyVerdict maps a failed verdict to its reason code: capacity when
// the first critical rule is a cap, constraint otherwise.
func classifyVerdict(v Verdict) Reason {
	rules := v.CriticalRules()
	if len(rules) == 0 {
		return ReasonConstraintViolation
	}
	switch rules[0] {
	case RuleDailyCap, RuleWeeklyCap:
		return ReasonCapacityExceeded
	default:
		return ReasonConstraintViolation
	}
}

// worseReason keeps the more actionable of two reasons, so the recorded code
// reflects the closest the event came to being placed.
func worseReason(current, candidate Reason) Reason {
	rank := func(r Reason) int {
		switch r {
		case ReasonBumpFailed:
			return 4
		case ReasonCapacityExceeded:
			return 3
		case ReasonConstraintViolation:
			return 2
		case ReasonNoAvailableEmployee:
			return 1
		default:
			return 0
		}
	}
	if rank(candidate) > rank(current) {
		return candidate
	}
	return current
}
