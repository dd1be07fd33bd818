package rete

import "github.com/nofendian17/marketscanner/internal/ticker"

// EvaluateCondition tests one alpha node's condition against a
// resolved field value. IsNone/NotNone are the only operators that
// accept an absent value; every other operator is false when the
// field itself is absent, matching spec §6's null-propagation rule.
func EvaluateCondition(spec FieldSpec, t *ticker.Ticker, condition Condition) bool {
	if condition.Operator == OpIsNone {
		return !fieldPresent(spec, t)
	}
	if condition.Operator == OpNotNone {
		return fieldPresent(spec, t)
	}

	switch spec.Kind {
	case KindNumber:
		return evaluateNumberCondition(spec.Number(t), condition)
	case KindString:
		return evaluateStringCondition(spec.String(t), condition)
	default:
		return false
	}
}

func fieldPresent(spec FieldSpec, t *ticker.Ticker) bool {
	switch spec.Kind {
	case KindNumber:
		return spec.Number(t) != nil
	case KindString:
		return spec.String(t) != nil
	default:
		return false
	}
}

func evaluateNumberCondition(value *float64, condition Condition) bool {
	if value == nil {
		return false
	}
	v := *value

	switch condition.Operator {
	case OpGT:
		return v > asFloat(condition.Value)
	case OpGTE:
		return v >= asFloat(condition.Value)
	case OpLT:
		return v < asFloat(condition.Value)
	case OpLTE:
		return v <= asFloat(condition.Value)
	case OpEQ:
		return v == asFloat(condition.Value)
	case OpNEQ:
		return v != asFloat(condition.Value)
	case OpBetween:
		bounds, ok := condition.Value.([]float64)
		if !ok || len(bounds) != 2 {
			return false
		}
		return v >= bounds[0] && v <= bounds[1]
	case OpIn:
		set, ok := condition.Value.([]float64)
		if !ok {
			return false
		}
		for _, candidate := range set {
			if v == candidate {
				return true
			}
		}
		return false
	case OpNotIn:
		set, ok := condition.Value.([]float64)
		if !ok {
			return true
		}
		for _, candidate := range set {
			if v == candidate {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func evaluateStringCondition(value *string, condition Condition) bool {
	if value == nil {
		return false
	}
	v := *value

	switch condition.Operator {
	case OpEQ:
		return v == asString(condition.Value)
	case OpNEQ:
		return v != asString(condition.Value)
	case OpIn:
		set, ok := condition.Value.([]string)
		if !ok {
			return false
		}
		for _, candidate := range set {
			if v == candidate {
				return true
			}
		}
		return false
	case OpNotIn:
		set, ok := condition.Value.([]string)
		if !ok {
			return true
		}
		for _, candidate := range set {
			if v == candidate {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// Evaluate runs ticker t through every alpha/beta/terminal node in
// network and returns a map of ruleID -> matched.
func Evaluate(t *ticker.Ticker, network *Network) map[string]bool {
	alphaResults := make(map[string]bool, len(network.AlphaNodes))
	for alphaID, alpha := range network.AlphaNodes {
		spec, ok := Fields[alpha.Condition.Field]
		if !ok {
			alphaResults[alphaID] = false
			continue
		}
		alphaResults[alphaID] = EvaluateCondition(spec, t, alpha.Condition)
	}

	betaResults := make(map[string]bool, len(network.BetaNodes))
	for betaID, beta := range network.BetaNodes {
		allTrue := true
		for _, alphaID := range beta.ParentAlphas {
			if !alphaResults[alphaID] {
				allTrue = false
				break
			}
		}
		betaResults[betaID] = allTrue
	}

	matches := make(map[string]bool, len(network.TerminalNodes))
	for _, terminal := range network.TerminalNodes {
		matches[terminal.Rule.ID] = betaResults[terminal.ParentBeta]
	}

	return matches
}

// GetMatchingRules returns the set of rule IDs that matched ticker t.
func GetMatchingRules(t *ticker.Ticker, network *Network) map[string]struct{} {
	matches := Evaluate(t, network)
	result := make(map[string]struct{})
	for ruleID, matched := range matches {
		if matched {
			result[ruleID] = struct{}{}
		}
	}
	return result
}

// GetMatchingRulesByOwner groups matching rule IDs by owner: "system"
// for system categories, "user:<ownerID>" for user filters.
func GetMatchingRulesByOwner(t *ticker.Ticker, network *Network) map[string]map[string]struct{} {
	matches := Evaluate(t, network)
	result := map[string]map[string]struct{}{
		"system": {},
	}

	for ruleID, matched := range matches {
		if !matched {
			continue
		}

		terminalID := "terminal:" + ruleID
		terminal, ok := network.TerminalNodes[terminalID]
		if !ok {
			continue
		}

		rule := terminal.Rule
		if rule.OwnerType == OwnerSystem {
			result["system"][ruleID] = struct{}{}
			continue
		}

		userKey := "user:" + rule.OwnerID
		if _, ok := result[userKey]; !ok {
			result[userKey] = make(map[string]struct{})
		}
		result[userKey][ruleID] = struct{}{}
	}

	return result
}
