package rete

import (
	"testing"

	"github.com/nofendian17/marketscanner/internal/ticker"
)

func systemNetwork(t *testing.T) *Network {
	t.Helper()
	return CompileNetwork(GetSystemRules())
}

func TestSystemRulesGapperUpMatches(t *testing.T) {
	network := systemNetwork(t)
	tk := &ticker.Ticker{Symbol: "AAA", GapPercent: f(4.0), VolumeToday: f(50000)}

	matches := Evaluate(tk, network)
	if !matches["category:gappers_up"] {
		t.Errorf("expected gappers_up to match a 4%% gap with volume")
	}
	if matches["category:gappers_down"] {
		t.Errorf("expected gappers_down not to match a positive gap")
	}
}

func TestSystemRulesMomentumUpRequiresEveryCondition(t *testing.T) {
	network := systemNetwork(t)

	full := &ticker.Ticker{
		Symbol:                "AAA",
		PriceFromIntradayHigh: f(-0.5),
		ChangePercent:         f(2.0),
		PriceVsVWAP:           f(0.5),
		RVOL:                  f(2.0),
		VolumeToday:           f(200000),
	}
	if !Evaluate(full, systemNetwork(t))["category:momentum_up"] {
		t.Errorf("expected momentum_up to match when all five conditions hold")
	}

	missingRVOL := &ticker.Ticker{
		Symbol:                "BBB",
		PriceFromIntradayHigh: f(-0.5),
		ChangePercent:         f(2.0),
		PriceVsVWAP:           f(0.5),
		RVOL:                  f(1.0), // below 1.5 threshold
		VolumeToday:           f(200000),
	}
	if Evaluate(missingRVOL, network)["category:momentum_up"] {
		t.Errorf("expected momentum_up not to match when rvol is below threshold")
	}
}

func TestSystemRulesAnomaliesTradeZScore(t *testing.T) {
	network := systemNetwork(t)

	anomalous := &ticker.Ticker{Symbol: "AAA", TradesZScore: f(3.5)}
	if !Evaluate(anomalous, network)["category:anomalies"] {
		t.Errorf("expected anomalies to match at z-score 3.5")
	}

	normal := &ticker.Ticker{Symbol: "BBB", TradesZScore: f(1.0)}
	if Evaluate(normal, network)["category:anomalies"] {
		t.Errorf("expected anomalies not to match at z-score 1.0")
	}
}

func TestSystemRulesWinnersAndLosersAreMirrored(t *testing.T) {
	network := systemNetwork(t)

	winner := &ticker.Ticker{Symbol: "AAA", ChangePercent: f(6.0), RVOL: f(2.0)}
	if !Evaluate(winner, network)["category:winners"] {
		t.Errorf("expected winners to match a 6%% gain with sufficient rvol")
	}

	loser := &ticker.Ticker{Symbol: "BBB", ChangePercent: f(-6.0), RVOL: f(2.0)}
	if !Evaluate(loser, network)["category:losers"] {
		t.Errorf("expected losers to match a -6%% move with sufficient rvol")
	}
}

func TestCategoryToChannelCoversEveryCompiledCategory(t *testing.T) {
	for _, rule := range GetSystemRules() {
		if _, ok := CategoryToChannel[rule.ID]; !ok {
			t.Errorf("expected CategoryToChannel to map %s to a fanout channel", rule.ID)
		}
	}
}
