package rete

import (
	"testing"

	"github.com/nofendian17/marketscanner/internal/ticker"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func TestEvaluateConditionNumericOperators(t *testing.T) {
	cases := []struct {
		name  string
		value *float64
		cond  Condition
		want  bool
	}{
		{"gt true", f(5), Condition{Operator: OpGT, Value: 1.0}, true},
		{"gt false", f(0.5), Condition{Operator: OpGT, Value: 1.0}, false},
		{"gte equal", f(1.0), Condition{Operator: OpGTE, Value: 1.0}, true},
		{"lt true", f(0.5), Condition{Operator: OpLT, Value: 1.0}, true},
		{"lte equal", f(1.0), Condition{Operator: OpLTE, Value: 1.0}, true},
		{"eq true", f(2.0), Condition{Operator: OpEQ, Value: 2.0}, true},
		{"neq true", f(2.0), Condition{Operator: OpNEQ, Value: 3.0}, true},
		{"between inside", f(5), Condition{Operator: OpBetween, Value: []float64{1, 10}}, true},
		{"between outside", f(15), Condition{Operator: OpBetween, Value: []float64{1, 10}}, false},
		{"in true", f(2), Condition{Operator: OpIn, Value: []float64{1, 2, 3}}, true},
		{"not_in true", f(9), Condition{Operator: OpNotIn, Value: []float64{1, 2, 3}}, true},
		{"nil value always false", nil, Condition{Operator: OpGT, Value: 1.0}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := evaluateNumberCondition(c.value, c.cond)
			if got != c.want {
				t.Errorf("expected %v, got %v", c.want, got)
			}
		})
	}
}

func TestEvaluateConditionIsNoneNotNone(t *testing.T) {
	spec := Fields["price"]

	absent := &ticker.Ticker{Symbol: "AAA"}
	if !EvaluateCondition(spec, absent, Condition{Field: "price", Operator: OpIsNone}) {
		t.Errorf("expected is_none true for absent price")
	}
	if EvaluateCondition(spec, absent, Condition{Field: "price", Operator: OpNotNone}) {
		t.Errorf("expected not_none false for absent price")
	}

	present := &ticker.Ticker{Symbol: "AAA", Price: f(10)}
	if EvaluateCondition(spec, present, Condition{Field: "price", Operator: OpIsNone}) {
		t.Errorf("expected is_none false for present price")
	}
	if !EvaluateCondition(spec, present, Condition{Field: "price", Operator: OpNotNone}) {
		t.Errorf("expected not_none true for present price")
	}
}

func TestEvaluateConditionStringOperators(t *testing.T) {
	spec := Fields["sector"]
	tk := &ticker.Ticker{Symbol: "AAA", Sector: s("Technology")}

	if !EvaluateCondition(spec, tk, Condition{Field: "sector", Operator: OpEQ, Value: "Technology"}) {
		t.Errorf("expected eq match")
	}
	if !EvaluateCondition(spec, tk, Condition{Field: "sector", Operator: OpIn, Value: []string{"Healthcare", "Technology"}}) {
		t.Errorf("expected in match")
	}
	if EvaluateCondition(spec, tk, Condition{Field: "sector", Operator: OpNotIn, Value: []string{"Healthcare", "Technology"}}) {
		t.Errorf("expected not_in false when sector is in the list")
	}
}

func TestEvaluateConditionInertFieldAlwaysAbsent(t *testing.T) {
	spec := Fields["rsi_14"]
	tk := &ticker.Ticker{Symbol: "AAA"}

	if EvaluateCondition(spec, tk, Condition{Field: "rsi_14", Operator: OpGT, Value: 50.0}) {
		t.Errorf("expected inert field to never match a comparison operator")
	}
	if !EvaluateCondition(spec, tk, Condition{Field: "rsi_14", Operator: OpIsNone}) {
		t.Errorf("expected inert field to report is_none true")
	}
}

func TestEvaluateANDsAlphasPerRule(t *testing.T) {
	network := CompileNetwork([]ScanRule{
		{
			ID:        "gapper",
			OwnerType: OwnerSystem,
			Enabled:   true,
			Conditions: []Condition{
				{Field: "gap_percent", Operator: OpGTE, Value: 2.0},
				{Field: "volume_today", Operator: OpGT, Value: 0.0},
			},
		},
	})

	matchingTicker := &ticker.Ticker{Symbol: "AAA", GapPercent: f(3.0), VolumeToday: f(1000)}
	matches := Evaluate(matchingTicker, network)
	if !matches["gapper"] {
		t.Errorf("expected gapper rule to match")
	}

	partialTicker := &ticker.Ticker{Symbol: "BBB", GapPercent: f(3.0)} // missing volume_today
	matches = Evaluate(partialTicker, network)
	if matches["gapper"] {
		t.Errorf("expected gapper rule not to match when one AND condition is unmet")
	}
}

func TestGetMatchingRulesByOwner(t *testing.T) {
	network := CompileNetwork([]ScanRule{
		{ID: "category:winners", OwnerType: OwnerSystem, Enabled: true, Conditions: []Condition{
			{Field: "change_percent", Operator: OpGTE, Value: 5.0},
		}},
		{ID: "user:u1:scan:1", OwnerType: OwnerUser, OwnerID: "u1", Enabled: true, Conditions: []Condition{
			{Field: "change_percent", Operator: OpGTE, Value: 5.0},
		}},
	})

	tk := &ticker.Ticker{Symbol: "AAA", ChangePercent: f(10.0)}
	grouped := GetMatchingRulesByOwner(tk, network)

	if _, ok := grouped["system"]["category:winners"]; !ok {
		t.Errorf("expected system group to contain category:winners")
	}
	if _, ok := grouped["user:u1"]["user:u1:scan:1"]; !ok {
		t.Errorf("expected user:u1 group to contain user:u1:scan:1")
	}
}
