package scheduler

import "time"

// DefaultSlotCount is the number of ordinal shift blocks in a day.
const DefaultSlotCount = 8

// DefaultOverflowOrder is the slot search order applied once a day's
// sequential blocks are exhausted.
var DefaultOverflowOrder = []int{1, 3, 5, 7, 2, 4, 6, 8}

// DefaultSlotBlock is the nominal length of one shift block, used to convert
// an event type's duration into the number of consecutive slots it occupies.
const DefaultSlotBlock = 4 * time.Hour

// RankingConfig controls the optional external ranking collaborator.
type RankingConfig struct {
	// Timeout bounds a single Score call. Zero disables the ranker.
	Timeout time.Duration
	// MinConfidence is the threshold below which the ranked order is
	// discarded in favor of the deterministic fallback.
	MinConfidence float64
	// RatePerSecond throttles outbound Score calls. Zero means unthrottled.
	RatePerSecond float64
}

// RescueConfig controls the post-wave rescue pass.
type RescueConfig struct {
	// HorizonDays bounds which unscheduled events are retried: those due
	// within this many days of the window start.
	HorizonDays int
	// RelaxedRules lists advisory rules the rescue pass may ignore.
	// Critical rules are never relaxed regardless of this list.
	RelaxedRules []Rule
}

// Config is the immutable configuration for a run. It is passed in whole to
// Run; nothing in the engine reads process-wide state.
type Config struct {
	EventTypes map[string]EventType

	// WeeklyCoreCap limits core-category assignments per employee per ISO
	// week. The daily core cap is fixed at one.
	WeeklyCoreCap int

	SlotCount     int
	OverflowOrder []int

	// SlotBlock is the length of one shift block. Event types whose duration
	// exceeds it span multiple consecutive slots for overlap purposes.
	SlotBlock time.Duration

	// LeadRotation names the rotation type whose resolved primary is the
	// day's designated lead (always placed at slot 1).
	LeadRotation string

	Rescue  RescueConfig
	Ranking RankingConfig
}

// TypeOf resolves an event's configured type definition.
func (c Config) TypeOf(ev Event) (EventType, bool) {
	def, ok := c.EventTypes[ev.Type]
	return def, ok
}

// PriorityOf returns the base priority for a type name, zero when unknown.
func (c Config) PriorityOf(typeName string) int {
	return c.EventTypes[typeName].BasePriority
}

// CategoryOf returns the category for a type name, CategoryGeneral when the
// type is unknown.
func (c Config) CategoryOf(typeName string) Category {
	def, ok := c.EventTypes[typeName]
	if !ok {
		return CategoryGeneral
	}
	return def.Category
}

func (c Config) slotCount() int {
	if c.SlotCount > 0 {
		return c.SlotCount
	}
	return DefaultSlotCount
}

func (c Config) slotBlock() time.Duration {
	if c.SlotBlock > 0 {
		return c.SlotBlock
	}
	return DefaultSlotBlock
}

// SlotSpan converts a type's duration into whole shift blocks, minimum one.
func (c Config) SlotSpan(typeName string) int {
	def := c.EventTypes[typeName]
	if def.Duration <= 0 {
		return 1
	}
	block := c.slotBlock()
	span := int((def.Duration + block - 1) / block)
	if span < 1 {
		span = 1
	}
	return span
}

func (c Config) overflowOrder() []int {
	if len(c.OverflowOrder) > 0 {
		return c.OverflowOrder
	}
	return DefaultOverflowOrder
}
