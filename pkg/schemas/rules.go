package schemas

import "fmt"

const (
	RulesSchemaVersionV1 = "1.0"
)

// Condition types understood by the trigger evaluator.
const (
	ConditionHealthDecrease = "health_decrease"
	ConditionHealthZero     = "health_zero"
	ConditionFlashed        = "flashed"
	ConditionSmoked         = "smoked"
	ConditionBurning        = "burning"
	ConditionRoundPhase     = "round_phase"
)

// Action types understood by the dispatcher.
const (
	ActionSendCommand = "send_command"
)

// RuleFile represents the top-level YAML rule-definitions file.
type RuleFile struct {
	SchemaVersion string       `yaml:"schemaVersion"`
	Rules         []StoredRule `yaml:"rules"`
}

// StoredRule pairs a rule with the id it is stored under. The list order
// in the file is the evaluation order.
type StoredRule struct {
	ID   string `yaml:"id" json:"event_id"`
	Rule Rule   `yaml:",inline" json:"event"`
}

// Rule describes one triggerable event: a single condition plus the
// actions to run when it fires. A disabled rule is never evaluated.
type Rule struct {
	Name        string    `yaml:"name" json:"event_name"`
	Enabled     bool      `yaml:"enabled" json:"enabled"`
	Condition   Condition `yaml:"condition" json:"trigger_condition"`
	Actions     []Action  `yaml:"actions" json:"actions"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// Condition is a tagged variant selected by Type. Only the fields
// relevant to the type carry meaning; the rest stay zero.
type Condition struct {
	Type      string `yaml:"type" json:"type"`
	MinDamage int    `yaml:"minDamage,omitempty" json:"min_damage,omitempty"`
	MinValue  int    `yaml:"minValue,omitempty" json:"min_value,omitempty"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Action is a tagged variant selected by Type. send_command carries the
// command id forwarded to the notification sink.
type Action struct {
	Type    string         `yaml:"type" json:"type"`
	Command string         `yaml:"command,omitempty" json:"command,omitempty"`
	Params  map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Validate checks a rule at the admin/load boundary and normalizes
// defaulted fields. The evaluator itself stays fail-open for unknown
// condition types so a hand-edited rule file cannot break evaluation,
// but nothing unknown gets past this gate through the API.
func (r *Rule) Validate() error {
	switch r.Condition.Type {
	case ConditionHealthDecrease:
		if r.Condition.MinDamage == 0 {
			r.Condition.MinDamage = 1
		}
		if r.Condition.MinDamage < 1 {
			return fmt.Errorf("condition %s: minDamage must be at least 1, got %d", r.Condition.Type, r.Condition.MinDamage)
		}
	case ConditionHealthZero, ConditionFlashed, ConditionSmoked, ConditionBurning:
	case ConditionRoundPhase:
		if r.Condition.Value == "" {
			return fmt.Errorf("condition %s: value is required", r.Condition.Type)
		}
	case "":
		return fmt.Errorf("rule %q: condition type is required", r.Name)
	default:
		return fmt.Errorf("rule %q: unknown condition type %q", r.Name, r.Condition.Type)
	}

	for i, a := range r.Actions {
		switch a.Type {
		case ActionSendCommand:
			if a.Command == "" {
				return fmt.Errorf("action %d: send_command requires a command id", i)
			}
		case "":
			return fmt.Errorf("action %d: type is required", i)
		default:
			return fmt.Errorf("action %d: unknown action type %q", i, a.Type)
		}
	}
	return nil
}
