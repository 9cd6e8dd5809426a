package scheduler

import "time"

// Wave identifies one ordered phase of a run.
type Wave int

const (
	// WaveRotation places rotation-category events.
	WaveRotation Wave = iota + 1
	// WaveLead places the day's lead-priority core assignment at slot 1.
	WaveLead
	// WaveCore places the remaining core events.
	WaveCore
	// WavePairing attaches pairing events to assigned core work.
	WavePairing
	// WaveRestricted places restricted-role categories.
	WaveRestricted
	// WaveGeneral places everything else.
	WaveGeneral
	// WaveRescue retries near-due unscheduled events after all waves.
	WaveRescue
)

// String names the wave for logs and reports.
func (w Wave) String() string {
	switch w {
	case WaveRotation:
		return "rotation"
	case WaveLead:
		return "lead"
	case WaveCore:
		return "core"
	case WavePairing:
		return "pairing"
	case WaveRestricted:
		return "restricted"
	case WaveGeneral:
		return "general"
	case WaveRescue:
		return "rescue"
	default:
		return "unknown"
	}
}

// Reason codes explain why an event could not be scheduled.
type Reason string

const (
	// ReasonNoAvailableEmployee means every candidate was rejected by
	// availability or eligibility rules.
	ReasonNoAvailableEmployee Reason = "no_available_employee"
	// ReasonConstraintViolation means a non-capacity constraint blocked
	// every candidate placement.
	ReasonConstraintViolation Reason = "constraint_violation"
	// ReasonCapacityExceeded means daily or weekly caps blocked every
	// candidate placement.
	ReasonCapacityExceeded Reason = "capacity_exceeded"
	// ReasonBumpFailed means a slot conflict could not be resolved by
	// relocating the blocking assignment.
	ReasonBumpFailed Reason = "bump_failed"
	// ReasonMissingRotation means no rotation pair is configured for the
	// event's type on any eligible day.
	ReasonMissingRotation Reason = "missing_rotation"
)

// RunStatus marks how a run ended.
type RunStatus string

const (
	// RunCompleted means every wave and the rescue pass finished.
	RunCompleted RunStatus = "completed"
	// RunIncomplete means the run was cancelled between waves; the record
	// holds whatever was produced up to that point.
	RunIncomplete RunStatus = "incomplete"
)

// ProposalStatus tracks a proposal through its life inside a run.
type ProposalStatus string

const (
	// ProposalProposed is the terminal in-run state awaiting external
	// approval.
	ProposalProposed ProposalStatus = "proposed"
	// ProposalRelocated marks a proposal that was bumped to a new slot
	// after initially being placed.
	ProposalRelocated ProposalStatus = "relocated"
)

// Proposal is one tentative assignment produced by a run.
type Proposal struct {
	ID             string
	EventID        string
	EventType      string
	EmployeeID     string
	Date           Date
	Slot           int
	Wave           Wave
	Status         ProposalStatus
	CorrelationKey string
}

// assignment converts the proposal to its placement view.
func (p Proposal) assignment() Assignment {
	return Assignment{
		EventID:        p.EventID,
		EventType:      p.EventType,
		EmployeeID:     p.EmployeeID,
		Date:           p.Date,
		Slot:           p.Slot,
		CorrelationKey: p.CorrelationKey,
	}
}

// Relocation records a committed assignment moved by the conflict resolver.
// The committed row itself is untouched; the external approval step applies
// the move together with the run's proposals.
type Relocation struct {
	EventID    string
	EmployeeID string
	From       Placement
	To         Placement
}

// BumpAttempt records one conflict-resolution attempt, successful or not.
type BumpAttempt struct {
	BlockedEventID  string
	BlockedEmployee string
	From            Placement
	To              *Placement
	ForEventID      string
	Success         bool
}

// UnscheduledEvent pairs an event that could not be placed with the reason.
type UnscheduledEvent struct {
	Event  Event
	Reason Reason
}

// WaveCount summarizes one wave's activity.
type WaveCount struct {
	Wave      Wave
	Attempted int
	Scheduled int
}

// RunRecord is the immutable output of a single run.
type RunRecord struct {
	ID          string
	Window      Window
	StartedAt   time.Time
	CompletedAt time.Time
	Status      RunStatus
	WaveCounts  []WaveCount
	Proposals   []Proposal
	Relocations []Relocation
	BumpDetail  []BumpAttempt
	Unscheduled []UnscheduledEvent
}
