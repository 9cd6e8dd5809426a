// Package config loads the immutable scheduling configuration: operational
// values from the environment, scheduling rules from a YAML document.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

// Config captures everything the binary needs to run. Rotations are part of
// the run snapshot rather than the rule config; the file-sourced table is
// carried separately so snapshot loaders can overlay storage-sourced
// overrides.
type Config struct {
	HTTPPort   int
	SQLiteDSN  string
	ConfigPath string
	Scheduling scheduler.Config
	Rotations  scheduler.RotationTable
}

// Load parses operational values from the environment, then the scheduling
// rules from the YAML file named by SCHEDULER_CONFIG.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:   9090,
		SQLiteDSN:  "file:scheduler.db?_foreign_keys=on",
		ConfigPath: "scheduler.yaml",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}
	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	if path := strings.TrimSpace(os.Getenv("SCHEDULER_CONFIG")); path != "" {
		cfg.ConfigPath = path
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	scheduling, rotations, err := LoadScheduling(cfg.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	cfg.Scheduling = scheduling
	cfg.Rotations = rotations

	return cfg, nil
}

// LoadScheduling reads and parses the scheduling rules file.
func LoadScheduling(path string) (scheduler.Config, scheduler.RotationTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scheduler.Config{}, scheduler.RotationTable{}, fmt.Errorf("read scheduling config: %w", err)
	}
	return ParseScheduling(data)
}

type schedulingFile struct {
	WeeklyCoreCap int    `yaml:"weekly_core_cap"`
	SlotCount     int    `yaml:"slot_count"`
	OverflowOrder []int  `yaml:"overflow_order"`
	SlotBlock     string `yaml:"slot_block"`
	LeadRotation  string `yaml:"lead_rotation"`

	Rescue struct {
		HorizonDays  int      `yaml:"horizon_days"`
		RelaxedRules []string `yaml:"relaxed_rules"`
	} `yaml:"rescue"`

	Ranking struct {
		Timeout       string  `yaml:"timeout"`
		MinConfidence float64 `yaml:"min_confidence"`
		RatePerSecond float64 `yaml:"rate_per_second"`
	} `yaml:"ranking"`

	EventTypes []struct {
		Name          string   `yaml:"name"`
		Category      string   `yaml:"category"`
		Duration      string   `yaml:"duration"`
		Priority      int      `yaml:"priority"`
		RotationType  string   `yaml:"rotation_type"`
		RequiredRoles []string `yaml:"required_roles"`
		HolidayExempt bool     `yaml:"holiday_exempt"`
	} `yaml:"event_types"`

	Rotations struct {
		Weekly []struct {
			Type    string `yaml:"type"`
			Weekday string `yaml:"weekday"`
			Primary string `yaml:"primary"`
			Backup  string `yaml:"backup"`
		} `yaml:"weekly"`
		Overrides []struct {
			Type    string `yaml:"type"`
			Date    string `yaml:"date"`
			Primary string `yaml:"primary"`
			Backup  string `yaml:"backup"`
		} `yaml:"overrides"`
	} `yaml:"rotations"`
}

var categories = map[string]scheduler.Category{
	"rotation":   scheduler.CategoryRotation,
	"core":       scheduler.CategoryCore,
	"pairing":    scheduler.CategoryPairing,
	"restricted": scheduler.CategoryRestricted,
	"general":    scheduler.CategoryGeneral,
}

var knownRules = map[string]bool{
	string(scheduler.RuleHoliday):            true,
	string(scheduler.RuleTimeOff):            true,
	string(scheduler.RuleWeeklyAvailability): true,
	string(scheduler.RuleLockedDay):          true,
	string(scheduler.RuleRoleEligibility):    true,
	string(scheduler.RuleOverlap):            true,
	string(scheduler.RuleDailyCap):           true,
	string(scheduler.RuleWeeklyCap):          true,
	string(scheduler.RuleDueWindow):          true,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseScheduling decodes and validates a scheduling rules document,
// returning the rule configuration and the file-sourced rotation table.
// Every problem is collected before reporting so operators can fix a file in
// one pass.
func ParseScheduling(data []byte) (scheduler.Config, scheduler.RotationTable, error) {
	var file schedulingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return scheduler.Config{}, scheduler.RotationTable{}, fmt.Errorf("parse scheduling config: %w", err)
	}

	invalid := make([]string, 0, 2)

	cfg := scheduler.Config{
		EventTypes:    make(map[string]scheduler.EventType, len(file.EventTypes)),
		WeeklyCoreCap: file.WeeklyCoreCap,
		SlotCount:     file.SlotCount,
		OverflowOrder: file.OverflowOrder,
		LeadRotation:  file.LeadRotation,
	}
	if cfg.WeeklyCoreCap < 0 {
		invalid = append(invalid, "weekly_core_cap must not be negative")
	}
	if cfg.SlotCount == 0 {
		cfg.SlotCount = scheduler.DefaultSlotCount
	}
	if len(cfg.OverflowOrder) == 0 {
		cfg.OverflowOrder = scheduler.DefaultOverflowOrder
	} else if len(cfg.OverflowOrder) != cfg.SlotCount {
		invalid = append(invalid, "overflow_order must cover every slot exactly once")
	}
	if cfg.LeadRotation == "" {
		cfg.LeadRotation = "lead"
	}
	if file.SlotBlock != "" {
		block, err := time.ParseDuration(file.SlotBlock)
		if err != nil || block <= 0 {
			invalid = append(invalid, fmt.Sprintf("slot_block %q is not a duration", file.SlotBlock))
		} else {
			cfg.SlotBlock = block
		}
	} else {
		cfg.SlotBlock = scheduler.DefaultSlotBlock
	}

	cfg.Rescue.HorizonDays = file.Rescue.HorizonDays
	if cfg.Rescue.HorizonDays == 0 {
		cfg.Rescue.HorizonDays = 3
	}
	for _, name := range file.Rescue.RelaxedRules {
		if !knownRules[name] {
			invalid = append(invalid, fmt.Sprintf("rescue.relaxed_rules names unknown rule %q", name))
			continue
		}
		cfg.Rescue.RelaxedRules = append(cfg.Rescue.RelaxedRules, scheduler.Rule(name))
	}

	if file.Ranking.Timeout != "" {
		timeout, err := time.ParseDuration(file.Ranking.Timeout)
		if err != nil || timeout < 0 {
			invalid = append(invalid, fmt.Sprintf("ranking.timeout %q is not a duration", file.Ranking.Timeout))
		} else {
			cfg.Ranking.Timeout = timeout
		}
	}
	cfg.Ranking.MinConfidence = file.Ranking.MinConfidence
	if cfg.Ranking.MinConfidence == 0 {
		cfg.Ranking.MinConfidence = 0.5
	}
	cfg.Ranking.RatePerSecond = file.Ranking.RatePerSecond

	for _, et := range file.EventTypes {
		if et.Name == "" {
			invalid = append(invalid, "event type with empty name")
			continue
		}
		if _, dup := cfg.EventTypes[et.Name]; dup {
			invalid = append(invalid, fmt.Sprintf("duplicate event type %q", et.Name))
			continue
		}
		category, ok := categories[strings.ToLower(et.Category)]
		if !ok {
			invalid = append(invalid, fmt.Sprintf("event type %q has unknown category %q", et.Name, et.Category))
			continue
		}
		def := scheduler.EventType{
			Name:          et.Name,
			Category:      category,
			BasePriority:  et.Priority,
			RotationType:  et.RotationType,
			RequiredRoles: et.RequiredRoles,
			HolidayExempt: et.HolidayExempt,
		}
		if et.Duration != "" {
			duration, err := time.ParseDuration(et.Duration)
			if err != nil || duration <= 0 {
				invalid = append(invalid, fmt.Sprintf("event type %q has invalid duration %q", et.Name, et.Duration))
				continue
			}
			def.Duration = duration
		}
		if category == scheduler.CategoryRotation && def.RotationType == "" {
			invalid = append(invalid, fmt.Sprintf("rotation event type %q needs rotation_type", et.Name))
			continue
		}
		cfg.EventTypes[et.Name] = def
	}

	table, rotationProblems := parseRotations(file)
	invalid = append(invalid, rotationProblems...)

	if len(invalid) > 0 {
		return scheduler.Config{}, scheduler.RotationTable{}, fmt.Errorf("invalid scheduling config: %s", strings.Join(invalid, "; "))
	}

	return cfg, table, nil
}

func parseRotations(file schedulingFile) (scheduler.RotationTable, []string) {
	table := scheduler.RotationTable{
		Weekly:    make(map[string]map[time.Weekday]scheduler.RotationPair),
		Overrides: make(map[string]map[scheduler.Date]scheduler.RotationPair),
	}
	var problems []string

	for _, row := range file.Rotations.Weekly {
		day, ok := weekdays[strings.ToLower(row.Weekday)]
		if !ok {
			problems = append(problems, fmt.Sprintf("rotation %q has unknown weekday %q", row.Type, row.Weekday))
			continue
		}
		if table.Weekly[row.Type] == nil {
			table.Weekly[row.Type] = make(map[time.Weekday]scheduler.RotationPair)
		}
		table.Weekly[row.Type][day] = scheduler.RotationPair{Primary: row.Primary, Backup: row.Backup}
	}
	for _, row := range file.Rotations.Overrides {
		date, err := scheduler.ParseDate(row.Date)
		if err != nil {
			problems = append(problems, fmt.Sprintf("rotation override %q has invalid date %q", row.Type, row.Date))
			continue
		}
		if table.Overrides[row.Type] == nil {
			table.Overrides[row.Type] = make(map[scheduler.Date]scheduler.RotationPair)
		}
		table.Overrides[row.Type][date] = scheduler.RotationPair{Primary: row.Primary, Backup: row.Backup}
	}
	return table, problems
}
