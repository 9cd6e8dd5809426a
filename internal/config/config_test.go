package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

const validSchedulingYAML = `
weekly_core_cap: 4
slot_count: 8
overflow_order: [1, 3, 5, 7, 2, 4, 6, 8]
slot_block: 2h
lead_rotation: lead
rescue:
  horizon_days: 2
  relaxed_rules: [weekly_availability, weekly_cap]
ranking:
  timeout: 250ms
  min_confidence: 0.7
  rate_per_second: 5
event_types:
  - name: core-shift
    category: core
    duration: 4h
    priority: 50
  - name: pager-duty
    category: rotation
    rotation_type: pager
    priority: 80
    holiday_exempt: true
  - name: compliance-review
    category: restricted
    priority: 40
    required_roles: [supervisor]
rotations:
  weekly:
    - type: pager
      weekday: monday
      primary: alice
      backup: bob
  overrides:
    - type: pager
      date: "2026-03-09"
      primary: bob
`

func TestParseScheduling_ValidDocument(t *testing.T) {
	t.Parallel()

	cfg, rotations, err := ParseScheduling([]byte(validSchedulingYAML))
	if err != nil {
		t.Fatalf("ParseScheduling returned error: %v", err)
	}

	if cfg.WeeklyCoreCap != 4 {
		t.Fatalf("WeeklyCoreCap = %d", cfg.WeeklyCoreCap)
	}
	if cfg.SlotBlock != 2*time.Hour {
		t.Fatalf("SlotBlock = %s", cfg.SlotBlock)
	}
	if cfg.Rescue.HorizonDays != 2 || len(cfg.Rescue.RelaxedRules) != 2 {
		t.Fatalf("Rescue = %+v", cfg.Rescue)
	}
	if cfg.Ranking.Timeout != 250*time.Millisecond || cfg.Ranking.MinConfidence != 0.7 || cfg.Ranking.RatePerSecond != 5 {
		t.Fatalf("Ranking = %+v", cfg.Ranking)
	}

	core, ok := cfg.EventTypes["core-shift"]
	if !ok || core.Category != scheduler.CategoryCore || core.Duration != 4*time.Hour || core.BasePriority != 50 {
		t.Fatalf("core-shift = %+v", core)
	}
	pager := cfg.EventTypes["pager-duty"]
	if pager.RotationType != "pager" || !pager.HolidayExempt {
		t.Fatalf("pager-duty = %+v", pager)
	}
	review := cfg.EventTypes["compliance-review"]
	if len(review.RequiredRoles) != 1 || review.RequiredRoles[0] != "supervisor" {
		t.Fatalf("compliance-review = %+v", review)
	}

	pair, ok := rotations.Weekly["pager"][time.Monday]
	if !ok || pair.Primary != "alice" || pair.Backup != "bob" {
		t.Fatalf("weekly pair = %+v, %v", pair, ok)
	}
	overrideDay, _ := scheduler.ParseDate("2026-03-09")
	override, ok := rotations.Overrides["pager"][overrideDay]
	if !ok || override.Primary != "bob" {
		t.Fatalf("override pair = %+v, %v", override, ok)
	}
	if got, _ := rotations.Resolve(overrideDay, "pager"); got.Primary != "bob" {
		t.Fatalf("override did not win: %+v", got)
	}
}

func TestParseScheduling_Defaults(t *testing.T) {
	t.Parallel()

	cfg, _, err := ParseScheduling([]byte("event_types:\n  - name: core-shift\n    category: core\n"))
	if err != nil {
		t.Fatalf("ParseScheduling returned error: %v", err)
	}
	if cfg.SlotCount != scheduler.DefaultSlotCount {
		t.Fatalf("SlotCount = %d", cfg.SlotCount)
	}
	if len(cfg.OverflowOrder) != len(scheduler.DefaultOverflowOrder) {
		t.Fatalf("OverflowOrder = %v", cfg.OverflowOrder)
	}
	if cfg.SlotBlock != scheduler.DefaultSlotBlock {
		t.Fatalf("SlotBlock = %s", cfg.SlotBlock)
	}
	if cfg.LeadRotation != "lead" {
		t.Fatalf("LeadRotation = %q", cfg.LeadRotation)
	}
	if cfg.Rescue.HorizonDays != 3 {
		t.Fatalf("HorizonDays = %d", cfg.Rescue.HorizonDays)
	}
	if cfg.Ranking.MinConfidence != 0.5 {
		t.Fatalf("MinConfidence = %f", cfg.Ranking.MinConfidence)
	}
}

func TestParseScheduling_CollectsEveryProblem(t *testing.T) {
	t.Parallel()

	doc := `
slot_block: fast
rescue:
  relaxed_rules: [no_such_rule]
event_types:
  - name: mystery
    category: imaginary
  - name: broken-rotation
    category: rotation
rotations:
  weekly:
    - type: pager
      weekday: someday
      primary: alice
`
	_, _, err := ParseScheduling([]byte(doc))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, fragment := range []string{"slot_block", "no_such_rule", "imaginary", "rotation_type", "someday"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing %q", err, fragment)
		}
	}
}

func TestParseScheduling_RejectsDuplicateTypes(t *testing.T) {
	t.Parallel()

	doc := `
event_types:
  - name: core-shift
    category: core
  - name: core-shift
    category: general
`
	if _, _, err := ParseScheduling([]byte(doc)); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate-type error, got %v", err)
	}
}

func writeSchedulingFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	if err := os.WriteFile(path, []byte(validSchedulingYAML), 0o600); err != nil {
		t.Fatalf("write scheduling file: %v", err)
	}
	return path
}

func TestLoad_Environment(t *testing.T) {
	path := writeSchedulingFile(t)

	t.Run("overrides apply", func(t *testing.T) {
		t.Setenv("SCHEDULER_CONFIG", path)
		t.Setenv("SCHEDULER_HTTP_PORT", "8088")
		t.Setenv("SCHEDULER_SQLITE_DSN", "file:elsewhere.db")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 8088 || cfg.SQLiteDSN != "file:elsewhere.db" {
			t.Fatalf("cfg = %+v", cfg)
		}
		if cfg.Scheduling.WeeklyCoreCap != 4 {
			t.Fatalf("scheduling rules not loaded: %+v", cfg.Scheduling)
		}
		if _, ok := cfg.Rotations.Weekly["pager"]; !ok {
			t.Fatal("rotation table not loaded")
		}
	})

	t.Run("invalid port names the variable", func(t *testing.T) {
		t.Setenv("SCHEDULER_CONFIG", path)
		t.Setenv("SCHEDULER_HTTP_PORT", "not-a-port")

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "SCHEDULER_HTTP_PORT") {
			t.Fatalf("expected invalid-port error, got %v", err)
		}
	})

	t.Run("missing rules file fails", func(t *testing.T) {
		t.Setenv("SCHEDULER_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for missing scheduling config")
		}
	})
}
