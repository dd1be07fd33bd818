package rete

// GetSystemRules returns the built-in scan categories as ScanRules,
// compiled alongside every user filter into the same Network. Each
// category's conditions and sort order are grounded on the original
// scanner's category definitions (spec §7).
func GetSystemRules() []ScanRule {
	return []ScanRule{
		{
			ID:        "category:gappers_up",
			OwnerType: OwnerSystem,
			Name:      "Gappers Up",
			Conditions: []Condition{
				{Field: "gap_percent", Operator: OpGTE, Value: 2.0},
				{Field: "volume_today", Operator: OpGT, Value: 0.0},
			},
			Enabled:        true,
			SortField:      "gap_percent",
			SortDescending: true,
		},
		{
			ID:        "category:gappers_down",
			OwnerType: OwnerSystem,
			Name:      "Gappers Down",
			Conditions: []Condition{
				{Field: "gap_percent", Operator: OpLTE, Value: -2.0},
				{Field: "volume_today", Operator: OpGT, Value: 0.0},
			},
			Enabled:        true,
			SortField:      "gap_percent",
			SortDescending: false,
		},
		{
			// HOD momentum: price near the intraday high, trending up,
			// above VWAP, with enough RVOL and volume to be watchable.
			ID:        "category:momentum_up",
			OwnerType: OwnerSystem,
			Name:      "Momentum Up",
			Conditions: []Condition{
				{Field: "price_from_intraday_high", Operator: OpGTE, Value: -1.0},
				{Field: "change_percent", Operator: OpGTE, Value: 1.0},
				{Field: "price_vs_vwap", Operator: OpGT, Value: 0.0},
				{Field: "rvol", Operator: OpGTE, Value: 1.5},
				{Field: "volume_today", Operator: OpGTE, Value: 100000.0},
			},
			Enabled:        true,
			SortField:      "change_percent",
			SortDescending: true,
		},
		{
			// Mirror of momentum_up for breakdowns near the intraday low.
			ID:        "category:momentum_down",
			OwnerType: OwnerSystem,
			Name:      "Momentum Down",
			Conditions: []Condition{
				{Field: "price_from_intraday_low", Operator: OpLTE, Value: 1.0},
				{Field: "change_percent", Operator: OpLTE, Value: -1.0},
				{Field: "price_vs_vwap", Operator: OpLT, Value: 0.0},
				{Field: "rvol", Operator: OpGTE, Value: 1.5},
				{Field: "volume_today", Operator: OpGTE, Value: 100000.0},
			},
			Enabled:        true,
			SortField:      "change_percent",
			SortDescending: false,
		},
		{
			ID:        "category:winners",
			OwnerType: OwnerSystem,
			Name:      "Winners",
			Conditions: []Condition{
				{Field: "change_percent", Operator: OpGTE, Value: 5.0},
				{Field: "rvol", Operator: OpGTE, Value: 1.5},
			},
			Enabled:        true,
			SortField:      "change_percent",
			SortDescending: true,
		},
		{
			ID:        "category:losers",
			OwnerType: OwnerSystem,
			Name:      "Losers",
			Conditions: []Condition{
				{Field: "change_percent", Operator: OpLTE, Value: -5.0},
				{Field: "rvol", Operator: OpGTE, Value: 1.5},
			},
			Enabled:        true,
			SortField:      "change_percent",
			SortDescending: false,
		},
		{
			ID:        "category:high_volume",
			OwnerType: OwnerSystem,
			Name:      "High Volume",
			Conditions: []Condition{
				{Field: "rvol", Operator: OpGTE, Value: 2.0},
			},
			Enabled:        true,
			SortField:      "volume_today",
			SortDescending: true,
		},
		{
			ID:        "category:anomalies",
			OwnerType: OwnerSystem,
			Name:      "Anomalies",
			Conditions: []Condition{
				{Field: "trades_z_score", Operator: OpGTE, Value: 3.0},
			},
			Enabled:        true,
			SortField:      "trades_z_score",
			SortDescending: true,
		},
		{
			ID:        "category:new_highs",
			OwnerType: OwnerSystem,
			Name:      "New Highs",
			Conditions: []Condition{
				{Field: "price_from_intraday_high", Operator: OpGTE, Value: -0.1},
				{Field: "volume_today", Operator: OpGT, Value: 0.0},
			},
			Enabled:        true,
			SortField:      "price_from_intraday_high",
			SortDescending: true,
		},
		{
			ID:        "category:new_lows",
			OwnerType: OwnerSystem,
			Name:      "New Lows",
			Conditions: []Condition{
				{Field: "price_from_intraday_low", Operator: OpLTE, Value: 0.1},
				{Field: "volume_today", Operator: OpGT, Value: 0.0},
			},
			Enabled:        true,
			SortField:      "price_from_intraday_low",
			SortDescending: false,
		},
	}
}

// CategoryToChannel maps a system category's rule ID to the fanout
// channel name the delta publisher broadcasts it on (spec §10).
// reversals and post_market are carried from the original catalog for
// completeness even though no ScanRule currently produces them — both
// require session-phase data (spec's Non-goals exclude a pre/post
// market session model), so the channel exists but nothing publishes
// to it yet.
var CategoryToChannel = map[string]string{
	"category:gappers_up":   "gappers_up",
	"category:gappers_down": "gappers_down",
	"category:momentum_up":   "momentum_up",
	"category:momentum_down": "momentum_down",
	"category:winners":       "winners",
	"category:losers":        "losers",
	"category:high_volume":   "high_volume",
	"category:anomalies":     "anomalies",
	"category:new_highs":     "new_highs",
	"category:new_lows":      "new_lows",
	"category:reversals":     "reversals",
	"category:post_market":   "post_market",
}
