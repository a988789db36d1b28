package engine

import "github.com/primaryrutabaga/cs2-link/pkg/schemas"

// Evaluate returns the rules whose condition fired on the old→new
// transition, in rule-store order. It is a pure function: no I/O, no
// mutation, no state beyond the two snapshots, so evaluating the same
// pair twice yields the same result.
func Evaluate(old, next schemas.Snapshot, ruleSet []schemas.StoredRule) []schemas.StoredRule {
	var fired []schemas.StoredRule
	for _, sr := range ruleSet {
		if !sr.Rule.Enabled {
			continue
		}
		if conditionMet(sr.Rule.Condition, old, next) {
			fired = append(fired, sr)
		}
	}
	return fired
}

// conditionMet applies one condition to a transition. flashed and
// smoked are edge-triggered on the rising edge; burning is
// level-triggered and re-fires on every snapshot while it persists,
// matching how burn damage ticks repeatedly. An unknown condition type
// never fires: hand-edited rule files degrade to inert rules instead of
// breaking evaluation.
func conditionMet(c schemas.Condition, old, next schemas.Snapshot) bool {
	switch c.Type {
	case schemas.ConditionHealthDecrease:
		minDamage := c.MinDamage
		if minDamage < 1 {
			minDamage = 1
		}
		return next.Health < old.Health && old.Health-next.Health >= minDamage
	case schemas.ConditionHealthZero:
		return next.Health == 0 && old.Health > 0
	case schemas.ConditionFlashed:
		return next.Flashed > 0 && old.Flashed == 0
	case schemas.ConditionSmoked:
		return next.Smoked > 0 && old.Smoked == 0
	case schemas.ConditionBurning:
		return next.Burning > 0
	case schemas.ConditionRoundPhase:
		return next.RoundPhase == c.Value && old.RoundPhase != c.Value
	default:
		return false
	}
}
