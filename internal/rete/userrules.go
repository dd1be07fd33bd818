package rete

import (
	"fmt"

	"github.com/nofendian17/marketscanner/internal/scanerr"
)

// filterFieldMapping pairs a user filter's min/max parameter names
// with the Ticker field they constrain. Carried in full from the
// original filter catalog (spec §7.2) — including entries for
// technical-indicator fields the Ticker model doesn't compute, which
// resolve through the registry's inert accessors rather than being
// dropped from the whitelist.
type filterFieldMapping struct {
	MinParam string
	MaxParam string // empty means this field has no max side
	Field    string
}

var FilterFieldMapping = []filterFieldMapping{
	// Price & spread
	{"min_price", "max_price", "price"},
	{"min_vwap", "max_vwap", "vwap"},
	{"min_spread", "max_spread", "spread"},
	{"min_bid_size", "max_bid_size", "bid_size"},
	{"min_ask_size", "max_ask_size", "ask_size"},
	{"min_distance_from_nbbo", "max_distance_from_nbbo", "distance_from_nbbo"},

	// Change %
	{"min_change_percent", "max_change_percent", "change_percent"},
	{"min_change_from_open", "max_change_from_open", "change_from_open"},
	{"min_gap_percent", "max_gap_percent", "gap_percent"},
	{"min_premarket_change_percent", "max_premarket_change_percent", "premarket_change_percent"},
	{"min_postmarket_change_percent", "max_postmarket_change_percent", "postmarket_change_percent"},
	{"min_price_from_high", "max_price_from_high", "price_from_high"},

	// Volume
	{"min_rvol", "max_rvol", "rvol"},
	{"min_volume", "", "volume_today"},
	{"min_volume_today", "", "volume_today"},
	{"min_minute_volume", "", "minute_volume"},
	{"min_volume_today_pct", "max_volume_today_pct", "volume_today_pct"},

	// Volume windows
	{"min_vol_1min", "max_vol_1min", "vol_1min"},
	{"min_vol_5min", "max_vol_5min", "vol_5min"},
	{"min_vol_10min", "max_vol_10min", "vol_10min"},
	{"min_vol_15min", "max_vol_15min", "vol_15min"},
	{"min_vol_30min", "max_vol_30min", "vol_30min"},

	// Time window changes
	{"min_chg_1min", "max_chg_1min", "chg_1min"},
	{"min_chg_5min", "max_chg_5min", "chg_5min"},
	{"min_chg_10min", "max_chg_10min", "chg_10min"},
	{"min_chg_15min", "max_chg_15min", "chg_15min"},
	{"min_chg_30min", "max_chg_30min", "chg_30min"},
	{"min_chg_60min", "max_chg_60min", "chg_60min"},

	// Quote
	{"min_bid", "max_bid", "bid"},
	{"min_ask", "max_ask", "ask"},
	{"min_bid_ask_ratio", "max_bid_ask_ratio", "bid_ask_ratio"},

	// Technical (intraday) — atr, atr_percent and price_vs_vwap are
	// live fields; the rest are recognized but inert, see fields.go.
	{"min_atr", "max_atr", "atr"},
	{"min_atr_percent", "max_atr_percent", "atr_percent"},
	{"min_rsi", "max_rsi", "rsi_14"},
	{"min_ema_20", "max_ema_20", "ema_20"},
	{"min_ema_50", "max_ema_50", "ema_50"},
	{"min_price_vs_vwap", "max_price_vs_vwap", "price_vs_vwap"},
	{"min_sma_5", "max_sma_5", "sma_5"},
	{"min_sma_8", "max_sma_8", "sma_8"},
	{"min_sma_20", "max_sma_20", "sma_20"},
	{"min_sma_50", "max_sma_50", "sma_50"},
	{"min_sma_200", "max_sma_200", "sma_200"},
	{"min_macd_line", "max_macd_line", "macd_line"},
	{"min_macd_hist", "max_macd_hist", "macd_hist"},
	{"min_stoch_k", "max_stoch_k", "stoch_k"},
	{"min_stoch_d", "max_stoch_d", "stoch_d"},
	{"min_adx_14", "max_adx_14", "adx_14"},
	{"min_bb_upper", "max_bb_upper", "bb_upper"},
	{"min_bb_lower", "max_bb_lower", "bb_lower"},

	// Daily indicators — recognized but inert.
	{"min_daily_sma_20", "max_daily_sma_20", "daily_sma_20"},
	{"min_daily_sma_50", "max_daily_sma_50", "daily_sma_50"},
	{"min_daily_sma_200", "max_daily_sma_200", "daily_sma_200"},
	{"min_daily_rsi", "max_daily_rsi", "daily_rsi"},
	{"min_daily_adx_14", "max_daily_adx_14", "daily_adx_14"},
	{"min_daily_atr_percent", "max_daily_atr_percent", "daily_atr_percent"},
	{"min_daily_bb_position", "max_daily_bb_position", "daily_bb_position"},

	// 52-week
	{"min_high_52w", "max_high_52w", "high_52w"},
	{"min_low_52w", "max_low_52w", "low_52w"},
	{"min_from_52w_high", "max_from_52w_high", "from_52w_high"},
	{"min_from_52w_low", "max_from_52w_low", "from_52w_low"},

	// Derived / computed — recognized but inert unless noted.
	{"min_dollar_volume", "max_dollar_volume", "dollar_volume"},
	{"min_todays_range", "max_todays_range", "todays_range"},
	{"min_todays_range_pct", "max_todays_range_pct", "todays_range_pct"},
	{"min_float_turnover", "max_float_turnover", "float_turnover"},
	{"min_dist_from_vwap", "max_dist_from_vwap", "dist_from_vwap"},
	{"min_dist_sma_5", "max_dist_sma_5", "dist_sma_5"},
	{"min_dist_sma_8", "max_dist_sma_8", "dist_sma_8"},
	{"min_dist_sma_20", "max_dist_sma_20", "dist_sma_20"},
	{"min_dist_sma_50", "max_dist_sma_50", "dist_sma_50"},
	{"min_dist_sma_200", "max_dist_sma_200", "dist_sma_200"},
	{"min_dist_daily_sma_20", "max_dist_daily_sma_20", "dist_daily_sma_20"},
	{"min_dist_daily_sma_50", "max_dist_daily_sma_50", "dist_daily_sma_50"},
	{"min_pos_in_range", "max_pos_in_range", "pos_in_range"},
	{"min_below_high", "max_below_high", "below_high"},
	{"min_above_low", "max_above_low", "above_low"},
	{"min_pos_of_open", "max_pos_of_open", "pos_of_open"},
	{"min_prev_day_volume", "max_prev_day_volume", "prev_day_volume"},

	// Multi-day changes — recognized but inert (no historical bar store).
	{"min_change_1d", "max_change_1d", "change_1d"},
	{"min_change_3d", "max_change_3d", "change_3d"},
	{"min_change_5d", "max_change_5d", "change_5d"},
	{"min_change_10d", "max_change_10d", "change_10d"},
	{"min_change_20d", "max_change_20d", "change_20d"},

	// Average volumes — recognized but inert.
	{"min_avg_volume_5d", "max_avg_volume_5d", "avg_volume_5d"},
	{"min_avg_volume_10d", "max_avg_volume_10d", "avg_volume_10d"},
	{"min_avg_volume_20d", "max_avg_volume_20d", "avg_volume_20d"},
	{"min_avg_volume_3m", "max_avg_volume_3m", "avg_volume_3m"},

	// Trades
	{"min_trades_today", "max_trades_today", "trades_today"},
	{"min_trades_z_score", "max_trades_z_score", "trades_z_score"},

	// Fundamentals
	{"min_market_cap", "max_market_cap", "market_cap"},
	{"min_float", "max_float", "free_float"},
	{"min_float_shares", "max_float_shares", "free_float"},
	{"min_shares_outstanding", "max_shares_outstanding", "shares_outstanding"},
}

// FilterParams is the decoded shape of a user_scanner_filters.parameters
// JSONB column: min/max bounds keyed by the parameter names in
// FilterFieldMapping, plus the list-valued filters below.
type FilterParams map[string]any

func (p FilterParams) float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func (p FilterParams) stringList(key string) ([]string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok && len(ss) > 0 {
			return ss, true
		}
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func (p FilterParams) string(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FilterParamsToConditions converts decoded filter parameters into
// Conditions, one per bounded field plus the list-valued security
// type/sector/industry/exchange filters.
func FilterParamsToConditions(params FilterParams) []Condition {
	var conditions []Condition

	for _, mapping := range FilterFieldMapping {
		minVal, hasMin := params.float(mapping.MinParam)
		var maxVal float64
		var hasMax bool
		if mapping.MaxParam != "" {
			maxVal, hasMax = params.float(mapping.MaxParam)
		}

		switch {
		case hasMin && hasMax:
			conditions = append(conditions, Condition{
				Field:    mapping.Field,
				Operator: OpBetween,
				Value:    []float64{minVal, maxVal},
			})
		case hasMin:
			conditions = append(conditions, Condition{
				Field:    mapping.Field,
				Operator: OpGTE,
				Value:    minVal,
			})
		case hasMax:
			conditions = append(conditions, Condition{
				Field:    mapping.Field,
				Operator: OpLTE,
				Value:    maxVal,
			})
		}
	}

	if securityType, ok := params.string("security_type"); ok && securityType != "" {
		conditions = append(conditions, Condition{
			Field:    "security_type",
			Operator: OpEQ,
			Value:    securityType,
		})
	}

	if sectors, ok := params.stringList("sectors"); ok {
		conditions = append(conditions, Condition{Field: "sector", Operator: OpIn, Value: sectors})
	}
	if industries, ok := params.stringList("industries"); ok {
		conditions = append(conditions, Condition{Field: "industry", Operator: OpIn, Value: industries})
	}
	if exchanges, ok := params.stringList("exchanges"); ok {
		conditions = append(conditions, Condition{Field: "exchange", Operator: OpIn, Value: exchanges})
	}

	return conditions
}

// UserFilterToScanRule converts one user_scanner_filters row into a
// ScanRule. Returns a *scanerr.ValidationError if the filter produced
// no conditions (an empty filter matches nothing by definition, so
// it is rejected rather than compiled into an always-true rule); the
// caller is expected to skip the row with a warning (spec §7.3).
func UserFilterToScanRule(filterID, ownerID, name string, enabled bool, priority int, params FilterParams) (ScanRule, error) {
	conditions := FilterParamsToConditions(params)
	if len(conditions) == 0 {
		return ScanRule{}, scanerr.NewValidationErrorWithValue("parameters", "produced no usable conditions", filterID)
	}

	if name == "" {
		name = fmt.Sprintf("Scan %s", filterID)
	}

	return ScanRule{
		ID:             fmt.Sprintf("user:%s:scan:%s", ownerID, filterID),
		OwnerType:      OwnerUser,
		OwnerID:        ownerID,
		Name:           name,
		Conditions:     conditions,
		Enabled:        enabled,
		Priority:       priority,
		SortField:      "change_percent",
		SortDescending: true,
	}, nil
}
