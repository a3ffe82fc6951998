package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative end-to-end exercise of the record access
// layer: a starting calendar day and a sequence of steps to apply.
// The resulting trace and final active list are compared against a
// golden snapshot.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartDay positions the simulated calendar, as an epoch-day count.
	StartDay int64 `yaml:"start_day"`

	// Steps are applied in order. Any step failure aborts the run.
	Steps []Step `yaml:"steps"`
}

// Step is one scenario action.
type Step struct {
	// Op selects the action: insert, update, delete, mark_received,
	// advance_days or recompute.
	Op string `yaml:"op"`

	// Record fields, used by insert and update.
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Start       int64  `yaml:"start,omitempty"`
	End         int64  `yaml:"end,omitempty"`
	Term        int    `yaml:"term,omitempty"`
	Doctor      string `yaml:"doctor,omitempty"`
	Location    string `yaml:"location,omitempty"`

	// UID targets an existing record for update, delete and
	// mark_received. Records are assigned uids 1, 2, 3... in insert
	// order, so scenarios can reference them directly.
	UID int64 `yaml:"uid,omitempty"`

	// Days moves the simulated calendar forward for advance_days.
	Days int64 `yaml:"days,omitempty"`
}

// Step op constants.
const (
	OpInsert       = "insert"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpMarkReceived = "mark_received"
	OpAdvanceDays  = "advance_days"
	OpRecompute    = "recompute"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently dropping a
// step attribute.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks one step based on its op.
func validateStep(index int, step *Step) error {
	switch step.Op {
	case OpInsert:
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required for insert", index)
		}
		if step.Term == 0 {
			return fmt.Errorf("steps[%d]: term is required for insert", index)
		}
	case OpUpdate:
		if step.UID == 0 {
			return fmt.Errorf("steps[%d]: uid is required for update", index)
		}
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required for update", index)
		}
	case OpDelete, OpMarkReceived:
		if step.UID == 0 {
			return fmt.Errorf("steps[%d]: uid is required for %s", index, step.Op)
		}
	case OpAdvanceDays:
		if step.Days == 0 {
			return fmt.Errorf("steps[%d]: days is required for advance_days", index)
		}
	case OpRecompute:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	return nil
}
