package rete

import "fmt"

// CompileNetwork builds a fresh Network from rules, sharing one alpha
// node across every rule that uses an identical condition. Disabled
// rules are skipped entirely.
func CompileNetwork(rules []ScanRule) *Network {
	network := NewNetwork()

	var systemCount, userCount int

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		if rule.OwnerType == OwnerSystem {
			systemCount++
		} else {
			userCount++
		}

		linkRule(network, rule)
	}

	network.TotalRules = systemCount + userCount
	network.SystemRules = systemCount
	network.UserRules = userCount

	return network
}

// linkRule wires one rule's conditions/beta/terminal nodes into
// network, reusing existing alpha nodes by condition key. It does not
// update the network's rule-count totals; callers that add a single
// rule to an already-compiled network must do that themselves.
func linkRule(network *Network, rule ScanRule) {
	alphaIDs := make([]string, 0, len(rule.Conditions))

	for _, condition := range rule.Conditions {
		key := condition.Key()

		alphaID, ok := network.ConditionToAlpha[key]
		if !ok {
			alphaID = fmt.Sprintf("alpha:%s", key)
			network.AlphaNodes[alphaID] = &AlphaNode{
				ID:        alphaID,
				Condition: condition,
				Children:  make(map[string]struct{}),
			}
			network.ConditionToAlpha[key] = alphaID
		}

		alphaIDs = append(alphaIDs, alphaID)
	}

	betaID := fmt.Sprintf("beta:%s", rule.ID)
	network.BetaNodes[betaID] = &BetaNode{
		ID:           betaID,
		RuleID:       rule.ID,
		ParentAlphas: alphaIDs,
		Children:     make(map[string]struct{}),
	}

	for _, alphaID := range alphaIDs {
		network.AlphaNodes[alphaID].Children[betaID] = struct{}{}
	}

	terminalID := fmt.Sprintf("terminal:%s", rule.ID)
	network.TerminalNodes[terminalID] = &TerminalNode{
		ID:         terminalID,
		Rule:       rule,
		ParentBeta: betaID,
	}
	network.BetaNodes[betaID].Children[terminalID] = struct{}{}

	network.RuleToTerminal[rule.ID] = terminalID
}

// AddRule inserts (or replaces, if rule.ID already exists) a single
// rule into an already-compiled network, for hot-reload paths that
// touch one user filter at a time. A disabled rule is a no-op.
func AddRule(network *Network, rule ScanRule) {
	if !rule.Enabled {
		return
	}

	if _, exists := network.RuleToTerminal[rule.ID]; exists {
		RemoveRule(network, rule.ID)
	}

	linkRule(network, rule)

	if rule.OwnerType == OwnerSystem {
		network.SystemRules++
	} else {
		network.UserRules++
	}
	network.TotalRules++
}

// RemoveRule detaches rule.ID's terminal and beta nodes from network.
// Alpha nodes it shared are left in place (unlinked from the removed
// beta only) to avoid forcing a full recompile on every removal.
// Returns false if the rule was not present.
func RemoveRule(network *Network, ruleID string) bool {
	terminalID, ok := network.RuleToTerminal[ruleID]
	if !ok {
		return false
	}

	terminal, ok := network.TerminalNodes[terminalID]
	if !ok {
		return false
	}

	betaID := terminal.ParentBeta
	if beta, ok := network.BetaNodes[betaID]; ok {
		for _, alphaID := range beta.ParentAlphas {
			if alpha, ok := network.AlphaNodes[alphaID]; ok {
				delete(alpha.Children, betaID)
			}
		}
		delete(network.BetaNodes, betaID)
	}

	delete(network.TerminalNodes, terminalID)
	delete(network.RuleToTerminal, ruleID)

	if terminal.Rule.OwnerType == OwnerSystem {
		network.SystemRules--
	} else {
		network.UserRules--
	}
	network.TotalRules--

	return true
}
