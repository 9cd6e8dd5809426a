package scheduler

// Allocator hands out ordinal shift blocks for same-employee, same-day
// assignments.
type Allocator struct {
	cfg Config
}

// NewAllocator builds an allocator for the run's configuration.
func NewAllocator(cfg Config) *Allocator {
	return &Allocator{cfg: cfg}
}

// NextSlot returns the lowest free slot in [1..SlotCount] for the employee
// on the day. When every sequential block is taken the day is in overflow
// and ok is false; callers then probe OverflowOrder slots, relocating
// occupants through the conflict resolver.
func (a *Allocator) NextSlot(employeeID string, day Date, ws *WorkingSet) (int, bool) {
	for slot := 1; slot <= a.cfg.slotCount(); slot++ {
		if _, occupied := ws.SlotOccupant(employeeID, day, slot); !occupied {
			return slot, true
		}
	}
	return 0, false
}

// OverflowOrder returns the slot probe order used once a day is full.
func (a *Allocator) OverflowOrder() []int {
	order := a.cfg.overflowOrder()
	out := make([]int, len(order))
	copy(out, order)
	return out
}

// LeadSlot is the block always reserved for the day's designated lead.
const LeadSlot = 1
