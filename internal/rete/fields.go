package rete

import "github.com/nofendian17/marketscanner/internal/ticker"

// FieldKind tags which accessor function applies to a registered
// field name.
type FieldKind int

const (
	KindNumber FieldKind = iota
	KindString
	KindBool
)

// FieldSpec is one entry in the field registry: the precompiled
// closure that reads a named field off a Ticker, chosen once at
// registry-construction time rather than looked up by reflection on
// every evaluation (spec §9).
type FieldSpec struct {
	Kind     FieldKind
	Number   func(*ticker.Ticker) *float64
	String   func(*ticker.Ticker) *string
	Bool     func(*ticker.Ticker) *bool
}

// absentNumber/absentString back the "recognized but
// inert" whitelist entries: technical-indicator fields the original
// filter catalog exposes that the Ticker model (spec §3) does not
// compute. Conditions on these fields compile and evaluate — they
// simply never match, the same outcome a genuinely absent value
// produces.
func absentNumber(*ticker.Ticker) *float64 { return nil }
func absentString(*ticker.Ticker) *string  { return nil }

// Fields is the precompiled field registry used by the evaluator. It
// is built once at package init and shared read-only by every
// Network evaluation.
var Fields = buildFieldRegistry()

func numField(fn func(*ticker.Ticker) *float64) FieldSpec {
	return FieldSpec{Kind: KindNumber, Number: fn}
}

func strField(fn func(*ticker.Ticker) *string) FieldSpec {
	return FieldSpec{Kind: KindString, String: fn}
}

func inertNumField() FieldSpec { return numField(absentNumber) }
func inertStrField() FieldSpec { return strField(absentString) }

func buildFieldRegistry() map[string]FieldSpec {
	reg := map[string]FieldSpec{
		// Quote
		"price":          numField(func(t *ticker.Ticker) *float64 { return t.Price }),
		"bid":            numField(func(t *ticker.Ticker) *float64 { return t.Bid }),
		"ask":            numField(func(t *ticker.Ticker) *float64 { return t.Ask }),
		"spread":         numField(func(t *ticker.Ticker) *float64 { return t.Spread }),
		"spread_percent": numField(func(t *ticker.Ticker) *float64 { return t.SpreadPercent }),

		// Session bars
		"open":        numField(func(t *ticker.Ticker) *float64 { return t.Open }),
		"high":        numField(func(t *ticker.Ticker) *float64 { return t.High }),
		"low":         numField(func(t *ticker.Ticker) *float64 { return t.Low }),
		"prev_close":  numField(func(t *ticker.Ticker) *float64 { return t.PrevClose }),
		"day_volume":  numField(func(t *ticker.Ticker) *float64 { return t.DayVolume }),

		// Derived change
		"change_percent":  numField(func(t *ticker.Ticker) *float64 { return t.ChangePercent }),
		"change_from_open": numField(func(t *ticker.Ticker) *float64 { return t.ChangeFromOpen }),
		"gap_percent":      numField(func(t *ticker.Ticker) *float64 { return t.GapPercent }),

		// Volume
		"volume_today": numField(func(t *ticker.Ticker) *float64 { return t.VolumeToday }),
		"vol_1min":     numField(func(t *ticker.Ticker) *float64 { return t.Vol1Min }),
		"vol_5min":     numField(func(t *ticker.Ticker) *float64 { return t.Vol5Min }),
		"vol_10min":    numField(func(t *ticker.Ticker) *float64 { return t.Vol10Min }),
		"vol_15min":    numField(func(t *ticker.Ticker) *float64 { return t.Vol15Min }),
		"vol_30min":    numField(func(t *ticker.Ticker) *float64 { return t.Vol30Min }),

		// Time window changes
		"chg_1min":  numField(func(t *ticker.Ticker) *float64 { return t.Chg1Min }),
		"chg_5min":  numField(func(t *ticker.Ticker) *float64 { return t.Chg5Min }),
		"chg_10min": numField(func(t *ticker.Ticker) *float64 { return t.Chg10Min }),
		"chg_15min": numField(func(t *ticker.Ticker) *float64 { return t.Chg15Min }),
		"chg_30min": numField(func(t *ticker.Ticker) *float64 { return t.Chg30Min }),
		"chg_60min": numField(func(t *ticker.Ticker) *float64 { return t.Chg60Min }),

		// Extremes
		"intraday_high":             numField(func(t *ticker.Ticker) *float64 { return t.IntradayHigh }),
		"intraday_low":              numField(func(t *ticker.Ticker) *float64 { return t.IntradayLow }),
		"price_from_intraday_high":  numField(func(t *ticker.Ticker) *float64 { return t.PriceFromIntradayHigh }),
		"price_from_intraday_low":   numField(func(t *ticker.Ticker) *float64 { return t.PriceFromIntradayLow }),
		"high_52w":                  numField(func(t *ticker.Ticker) *float64 { return t.High52W }),
		"low_52w":                   numField(func(t *ticker.Ticker) *float64 { return t.Low52W }),

		// Volatility / flow
		"rvol":          numField(func(t *ticker.Ticker) *float64 { return t.RVOL }),
		"atr":           numField(func(t *ticker.Ticker) *float64 { return t.ATR }),
		"atr_percent":   numField(func(t *ticker.Ticker) *float64 { return t.ATRPercent }),
		"vwap":          numField(func(t *ticker.Ticker) *float64 { return t.VWAP }),
		"price_vs_vwap": numField(func(t *ticker.Ticker) *float64 { return t.PriceVsVWAP }),

		// Activity
		"trades_today":   numField(func(t *ticker.Ticker) *float64 { return t.TradesToday }),
		"avg_trades_5d":  numField(func(t *ticker.Ticker) *float64 { return t.AvgTrades5D }),
		"trades_z_score": numField(func(t *ticker.Ticker) *float64 { return t.TradesZScore }),

		// Fundamentals / reference
		"market_cap":         numField(func(t *ticker.Ticker) *float64 { return t.MarketCap }),
		"free_float":          numField(func(t *ticker.Ticker) *float64 { return t.FreeFloat }),
		"shares_outstanding":  numField(func(t *ticker.Ticker) *float64 { return t.SharesOutstanding }),
		"sector":              strField(func(t *ticker.Ticker) *string { return t.Sector }),
		"industry":            strField(func(t *ticker.Ticker) *string { return t.Industry }),
		"exchange":            strField(func(t *ticker.Ticker) *string { return t.Exchange }),
	}

	// Recognized-but-inert: whitelist entries carried from the full
	// filter catalog whose underlying indicator is out of scope for
	// the Ticker model (spec §3 Non-goals exclude a technical
	// indicator engine). Conditions referencing these compile and
	// evaluate to "field absent" rather than being rejected, matching
	// how an unset attribute behaves for every other field.
	for _, name := range []string{
		"bid_size", "ask_size", "distance_from_nbbo",
		"premarket_change_percent", "postmarket_change_percent",
		"price_from_high", "minute_volume", "volume_today_pct",
		"bid_ask_ratio",
		"rsi_14", "ema_20", "ema_50",
		"sma_5", "sma_8", "sma_20", "sma_50", "sma_200",
		"macd_line", "macd_hist", "stoch_k", "stoch_d", "adx_14",
		"bb_upper", "bb_lower",
		"daily_sma_20", "daily_sma_50", "daily_sma_200",
		"daily_rsi", "daily_adx_14", "daily_atr_percent", "daily_bb_position",
		"from_52w_high", "from_52w_low",
		"dollar_volume", "todays_range", "todays_range_pct", "float_turnover",
		"dist_from_vwap",
		"dist_sma_5", "dist_sma_8", "dist_sma_20", "dist_sma_50", "dist_sma_200",
		"dist_daily_sma_20", "dist_daily_sma_50",
		"pos_in_range", "below_high", "above_low", "pos_of_open",
		"prev_day_volume",
		"change_1d", "change_3d", "change_5d", "change_10d", "change_20d",
		"avg_volume_5d", "avg_volume_10d", "avg_volume_20d", "avg_volume_3m",
	} {
		reg[name] = inertNumField()
	}
	reg["security_type"] = inertStrField()

	return reg
}
