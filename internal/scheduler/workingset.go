package scheduler

// WorkingSet overlays a run's growing proposal list, and any relocations of
// committed assignments, on top of the immutable snapshot. The snapshot is
// never mutated; all run-local state lives here.
type WorkingSet struct {
	snap *Snapshot
	cfg  Config

	entries  []Assignment
	pos      map[string]int      // event ID -> index into entries
	byEmpDay map[empDayKey][]int // current bucket membership, insertion order

	proposals   []Proposal
	proposalIdx map[string]int // event ID -> index into proposals
	relocations []Relocation
}

type empDayKey struct {
	EmployeeID string
	Date       Date
}

// NewWorkingSet seeds the working view with the snapshot's committed
// assignments.
func NewWorkingSet(snap *Snapshot, cfg Config) *WorkingSet {
	ws := &WorkingSet{
		snap:        snap,
		cfg:         cfg,
		entries:     make([]Assignment, 0, len(snap.Committed)),
		pos:         make(map[string]int, len(snap.Committed)),
		byEmpDay:    make(map[empDayKey][]int),
		proposalIdx: make(map[string]int),
	}
	for _, a := range snap.Committed {
		ws.insert(a)
	}
	return ws
}

func (ws *WorkingSet) insert(a Assignment) {
	idx := len(ws.entries)
	ws.entries = append(ws.entries, a)
	ws.pos[a.EventID] = idx
	key := empDayKey{EmployeeID: a.EmployeeID, Date: a.Date}
	ws.byEmpDay[key] = append(ws.byEmpDay[key], idx)
}

func (ws *WorkingSet) rebucket(idx int, from, to empDayKey) {
	if from == to {
		return
	}
	bucket := ws.byEmpDay[from]
	for i, v := range bucket {
		if v == idx {
			ws.byEmpDay[from] = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
	}
	ws.byEmpDay[to] = append(ws.byEmpDay[to], idx)
}

// Snapshot exposes the immutable inputs backing the working set.
func (ws *WorkingSet) Snapshot() *Snapshot {
	return ws.snap
}

// AssignmentsOn lists the employee's assignments on the day, committed and
// proposed, reflecting any relocations applied so far.
func (ws *WorkingSet) AssignmentsOn(employeeID string, day Date) []Assignment {
	idxs := ws.byEmpDay[empDayKey{EmployeeID: employeeID, Date: day}]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Assignment, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, ws.entries[i])
	}
	return out
}

// SlotOccupant returns the assignment holding the slot for the employee on
// the day, if any.
func (ws *WorkingSet) SlotOccupant(employeeID string, day Date, slot int) (Assignment, bool) {
	for _, a := range ws.AssignmentsOn(employeeID, day) {
		if a.Slot == slot {
			return a, true
		}
	}
	return Assignment{}, false
}

// CountTypeOn counts the employee's assignments of the event type on the
// day.
func (ws *WorkingSet) CountTypeOn(employeeID string, day Date, typeName string) int {
	count := 0
	for _, a := range ws.AssignmentsOn(employeeID, day) {
		if a.EventType == typeName {
			count++
		}
	}
	return count
}

// CountTypeInWeek counts the employee's assignments of the event type in the
// ISO week containing the day.
func (ws *WorkingSet) CountTypeInWeek(employeeID string, day Date, typeName string) int {
	count := 0
	start := weekStart(day)
	for offset := 0; offset < 7; offset++ {
		count += ws.CountTypeOn(employeeID, start.AddDays(offset), typeName)
	}
	return count
}

// EventPlaced reports whether the event already has a committed or proposed
// placement.
func (ws *WorkingSet) EventPlaced(eventID string) bool {
	_, ok := ws.pos[eventID]
	return ok
}

// FindPartner locates an assigned core-category event carrying the
// correlation key, searching proposals first and committed entries second in
// insertion order.
func (ws *WorkingSet) FindPartner(correlationKey string) (Assignment, bool) {
	if correlationKey == "" {
		return Assignment{}, false
	}
	for _, p := range ws.proposals {
		if p.CorrelationKey == correlationKey && ws.cfg.CategoryOf(p.EventType) == CategoryCore {
			return p.assignment(), true
		}
	}
	for _, a := range ws.entries {
		if _, proposed := ws.proposalIdx[a.EventID]; proposed {
			continue
		}
		if a.CorrelationKey == correlationKey && ws.cfg.CategoryOf(a.EventType) == CategoryCore {
			return a, true
		}
	}
	return Assignment{}, false
}

// AddProposal records a new proposal and makes it visible to subsequent
// validation.
func (ws *WorkingSet) AddProposal(p Proposal) {
	ws.proposalIdx[p.EventID] = len(ws.proposals)
	ws.proposals = append(ws.proposals, p)
	ws.insert(p.assignment())
}

// Relocate moves an assignment to a new placement. Proposals are edited in
// place and marked relocated; committed assignments are shadowed by a
// Relocation record for the approval step to apply.
func (ws *WorkingSet) Relocate(a Assignment, to Placement) {
	idx, ok := ws.pos[a.EventID]
	if !ok {
		return
	}
	from := empDayKey{EmployeeID: a.EmployeeID, Date: ws.entries[idx].Date}
	ws.entries[idx].Date = to.Date
	ws.entries[idx].Slot = to.Slot
	ws.rebucket(idx, from, empDayKey{EmployeeID: a.EmployeeID, Date: to.Date})

	if pi, proposed := ws.proposalIdx[a.EventID]; proposed {
		ws.proposals[pi].Date = to.Date
		ws.proposals[pi].Slot = to.Slot
		ws.proposals[pi].Status = ProposalRelocated
		return
	}
	ws.relocations = append(ws.relocations, Relocation{
		EventID:    a.EventID,
		EmployeeID: a.EmployeeID,
		From:       Placement{Date: a.Date, Slot: a.Slot},
		To:         to,
	})
}

// Proposals returns a copy of the proposal list in creation order.
func (ws *WorkingSet) Proposals() []Proposal {
	out := make([]Proposal, len(ws.proposals))
	copy(out, ws.proposals)
	return out
}

// Relocations returns a copy of the committed-assignment moves recorded so
// far.
func (ws *WorkingSet) Relocations() []Relocation {
	out := make([]Relocation, len(ws.relocations))
	copy(out, ws.relocations)
	return out
}

// IsProposal reports whether the event's current placement originated in
// this run.
func (ws *WorkingSet) IsProposal(eventID string) bool {
	_, ok := ws.proposalIdx[eventID]
	return ok
}
