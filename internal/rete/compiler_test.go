package rete

import "testing"

func sampleRules() []ScanRule {
	return []ScanRule{
		{
			ID:        "a",
			OwnerType: OwnerSystem,
			Enabled:   true,
			Conditions: []Condition{
				{Field: "price", Operator: OpGT, Value: 1.0},
			},
		},
		{
			ID:        "b",
			OwnerType: OwnerUser,
			OwnerID:   "u1",
			Enabled:   true,
			Conditions: []Condition{
				{Field: "price", Operator: OpGT, Value: 1.0}, // shared condition with rule a
				{Field: "rvol", Operator: OpGTE, Value: 2.0},
			},
		},
		{
			ID:        "disabled",
			OwnerType: OwnerUser,
			OwnerID:   "u2",
			Enabled:   false,
			Conditions: []Condition{
				{Field: "price", Operator: OpGT, Value: 1.0},
			},
		},
	}
}

func TestCompileNetworkSharesAlphaNodes(t *testing.T) {
	network := CompileNetwork(sampleRules())

	if network.TotalRules != 2 {
		t.Errorf("expected 2 enabled rules compiled, got %d", network.TotalRules)
	}
	if network.SystemRules != 1 || network.UserRules != 1 {
		t.Errorf("expected 1 system + 1 user rule, got system=%d user=%d", network.SystemRules, network.UserRules)
	}

	// price > 1.0 should produce exactly one alpha node shared by both rules.
	var priceAlphaCount int
	for _, alpha := range network.AlphaNodes {
		if alpha.Condition.Field == "price" {
			priceAlphaCount++
			if len(alpha.Children) != 2 {
				t.Errorf("expected price alpha node shared by 2 beta nodes, got %d", len(alpha.Children))
			}
		}
	}
	if priceAlphaCount != 1 {
		t.Errorf("expected exactly 1 alpha node for price condition, got %d", priceAlphaCount)
	}

	if len(network.TerminalNodes) != 2 {
		t.Errorf("expected 2 terminal nodes, got %d", len(network.TerminalNodes))
	}
}

func TestCompileNetworkSkipsDisabledRules(t *testing.T) {
	network := CompileNetwork(sampleRules())
	if _, ok := network.RuleToTerminal["disabled"]; ok {
		t.Errorf("expected disabled rule to be excluded from network")
	}
}

func TestAddRuleThenRemoveRule(t *testing.T) {
	network := CompileNetwork(sampleRules())
	beforeTotal := network.TotalRules

	newRule := ScanRule{
		ID:        "c",
		OwnerType: OwnerUser,
		OwnerID:   "u3",
		Enabled:   true,
		Conditions: []Condition{
			{Field: "gap_percent", Operator: OpGTE, Value: 3.0},
		},
	}
	AddRule(network, newRule)

	if network.TotalRules != beforeTotal+1 {
		t.Errorf("expected total rules to increase by 1, got %d", network.TotalRules)
	}
	if _, ok := network.RuleToTerminal["c"]; !ok {
		t.Errorf("expected rule c to be present after AddRule")
	}

	removed := RemoveRule(network, "c")
	if !removed {
		t.Errorf("expected RemoveRule to report success")
	}
	if network.TotalRules != beforeTotal {
		t.Errorf("expected total rules to return to baseline after removal, got %d", network.TotalRules)
	}
	if _, ok := network.RuleToTerminal["c"]; ok {
		t.Errorf("expected rule c to be gone after RemoveRule")
	}
}

func TestRemoveRuleUnknownIDReturnsFalse(t *testing.T) {
	network := CompileNetwork(sampleRules())
	if RemoveRule(network, "does-not-exist") {
		t.Errorf("expected RemoveRule to report false for unknown rule")
	}
}

func TestAddRuleReplacesExisting(t *testing.T) {
	network := CompileNetwork(sampleRules())

	updated := ScanRule{
		ID:        "a",
		OwnerType: OwnerSystem,
		Enabled:   true,
		Conditions: []Condition{
			{Field: "price", Operator: OpGT, Value: 5.0}, // changed threshold
		},
	}
	AddRule(network, updated)

	terminalID := network.RuleToTerminal["a"]
	terminal := network.TerminalNodes[terminalID]
	beta := network.BetaNodes[terminal.ParentBeta]
	alpha := network.AlphaNodes[beta.ParentAlphas[0]]

	if asFloat(alpha.Condition.Value) != 5.0 {
		t.Errorf("expected replaced rule to use new condition value 5.0, got %v", alpha.Condition.Value)
	}
}
