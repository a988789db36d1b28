package rules

import "github.com/primaryrutabaga/cs2-link/pkg/schemas"

// DefaultRules is the rule set seeded on first start: one rule per
// supported condition, each forwarding a matching command to the sink.
func DefaultRules() []schemas.StoredRule {
	return []schemas.StoredRule{
		{
			ID: "player_hurt",
			Rule: schemas.Rule{
				Name:        "Player hurt",
				Enabled:     true,
				Condition:   schemas.Condition{Type: schemas.ConditionHealthDecrease, MinDamage: 1},
				Actions:     []schemas.Action{{Type: schemas.ActionSendCommand, Command: "player_hurt"}},
				Description: "Fires when the player takes damage",
			},
		},
		{
			ID: "player_death",
			Rule: schemas.Rule{
				Name:        "Player death",
				Enabled:     true,
				Condition:   schemas.Condition{Type: schemas.ConditionHealthZero},
				Actions:     []schemas.Action{{Type: schemas.ActionSendCommand, Command: "player_death"}},
				Description: "Fires when the player's health reaches zero",
			},
		},
		{
			ID: "player_flashed",
			Rule: schemas.Rule{
				Name:        "Flashbang blind",
				Enabled:     true,
				Condition:   schemas.Condition{Type: schemas.ConditionFlashed, MinValue: 1},
				Actions:     []schemas.Action{{Type: schemas.ActionSendCommand, Command: "player_flashed"}},
				Description: "Fires when the player becomes flashed",
			},
		},
		{
			ID: "player_smoked",
			Rule: schemas.Rule{
				Name:        "Smoke cover",
				Enabled:     true,
				Condition:   schemas.Condition{Type: schemas.ConditionSmoked, MinValue: 1},
				Actions:     []schemas.Action{{Type: schemas.ActionSendCommand, Command: "player_smoked"}},
				Description: "Fires when the player enters smoke",
			},
		},
		{
			ID: "player_burning",
			Rule: schemas.Rule{
				Name:        "Burning damage",
				Enabled:     true,
				Condition:   schemas.Condition{Type: schemas.ConditionBurning, MinValue: 1},
				Actions:     []schemas.Action{{Type: schemas.ActionSendCommand, Command: "player_burning"}},
				Description: "Fires on every snapshot while the player is burning",
			},
		},
		{
			ID: "round_end",
			Rule: schemas.Rule{
				Name:        "Round end",
				Enabled:     true,
				Condition:   schemas.Condition{Type: schemas.ConditionRoundPhase, Value: "over"},
				Actions:     []schemas.Action{{Type: schemas.ActionSendCommand, Command: "round_end"}},
				Description: "Fires when the round phase changes to over",
			},
		},
	}
}
