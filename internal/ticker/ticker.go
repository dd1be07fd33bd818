// Package ticker holds the per-symbol data shapes the scanner enriches
// and evaluates: the wire-level Ticker record and the long-lived State
// that backs rolling-window and intraday-extreme calculations.
package ticker

import "time"

// Ticker is one symbol's enriched snapshot. Every field is
// optional-by-presence: a nil pointer means the value was never
// computed or the upstream snapshot never carried it. Downstream rule
// evaluation treats an absent field as non-matching unless the
// condition is an explicit is_none/not_none test.
type Ticker struct {
	Symbol string `json:"symbol"`

	// Quote
	Price         *float64 `json:"price,omitempty"`
	Bid           *float64 `json:"bid,omitempty"`
	Ask           *float64 `json:"ask,omitempty"`
	Spread        *float64 `json:"spread,omitempty"`
	SpreadPercent *float64 `json:"spread_percent,omitempty"`

	// Session bars
	Open       *float64 `json:"open,omitempty"`
	High       *float64 `json:"high,omitempty"`
	Low        *float64 `json:"low,omitempty"`
	PrevClose  *float64 `json:"prev_close,omitempty"`
	DayVolume  *float64 `json:"day_volume,omitempty"`

	// Derived change
	ChangePercent    *float64 `json:"change_percent,omitempty"`
	ChangeFromOpen   *float64 `json:"change_from_open,omitempty"`
	GapPercent       *float64 `json:"gap_percent,omitempty"`

	// Volume
	VolumeToday *float64 `json:"volume_today,omitempty"`
	Vol1Min     *float64 `json:"vol_1min,omitempty"`
	Vol5Min     *float64 `json:"vol_5min,omitempty"`
	Vol10Min    *float64 `json:"vol_10min,omitempty"`
	Vol15Min    *float64 `json:"vol_15min,omitempty"`
	Vol30Min    *float64 `json:"vol_30min,omitempty"`

	// Price dynamics
	Chg1Min  *float64 `json:"chg_1min,omitempty"`
	Chg5Min  *float64 `json:"chg_5min,omitempty"`
	Chg10Min *float64 `json:"chg_10min,omitempty"`
	Chg15Min *float64 `json:"chg_15min,omitempty"`
	Chg30Min *float64 `json:"chg_30min,omitempty"`
	Chg60Min *float64 `json:"chg_60min,omitempty"`

	// Extremes
	IntradayHigh           *float64 `json:"intraday_high,omitempty"`
	IntradayLow            *float64 `json:"intraday_low,omitempty"`
	PriceFromIntradayHigh  *float64 `json:"price_from_intraday_high,omitempty"`
	PriceFromIntradayLow   *float64 `json:"price_from_intraday_low,omitempty"`
	High52W                *float64 `json:"high_52w,omitempty"`
	Low52W                 *float64 `json:"low_52w,omitempty"`

	// Volatility / flow
	RVOL         *float64 `json:"rvol,omitempty"`
	ATR          *float64 `json:"atr,omitempty"`
	ATRPercent   *float64 `json:"atr_percent,omitempty"`
	VWAP         *float64 `json:"vwap,omitempty"`
	PriceVsVWAP  *float64 `json:"price_vs_vwap,omitempty"`

	// Activity
	TradesToday    *float64 `json:"trades_today,omitempty"`
	AvgTrades5D    *float64 `json:"avg_trades_5d,omitempty"`
	TradesZScore   *float64 `json:"trades_z_score,omitempty"`
	IsTradeAnomaly *bool    `json:"is_trade_anomaly,omitempty"`

	// Reference
	Sector            *string  `json:"sector,omitempty"`
	Industry          *string  `json:"industry,omitempty"`
	Exchange          *string  `json:"exchange,omitempty"`
	MarketCap         *float64 `json:"market_cap,omitempty"`
	FreeFloat         *float64 `json:"free_float,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
	IsETF             *bool    `json:"is_etf,omitempty"`
}

// Windows is the read view returned by State.Windows: the rolling
// volume and price-change windows computed from ring-buffer samples.
// Any window with insufficient history is nil, never zero.
type Windows struct {
	Vol1Min  *float64
	Vol5Min  *float64
	Vol10Min *float64
	Vol15Min *float64
	Vol30Min *float64

	Chg1Min  *float64
	Chg5Min  *float64
	Chg10Min *float64
	Chg15Min *float64
	Chg30Min *float64
	Chg60Min *float64
}

// Reference is static/slow-moving per-symbol data (sector, industry,
// exchange, fundamentals) the scanner reads but never computes.
// Reference data is supplied by an external collaborator; the scanner
// only consumes it through this interface.
type Reference struct {
	Sector            *string
	Industry          *string
	Exchange          *string
	MarketCap         *float64
	FreeFloat         *float64
	SharesOutstanding *float64
	IsETF             *bool
	High52W           *float64
	Low52W            *float64
}

// ReferenceLookup resolves slow-moving reference data for a symbol.
// Implementations are out of scope for the scanner core; this is the
// seam the enrichment pipeline uses to attach §3's "Reference" fields.
type ReferenceLookup interface {
	Lookup(symbol string) (Reference, bool)
}

// Raw is the shape of one entry in the raw snapshot consumed by the
// enrichment pipeline: the union of quote/trade fields and session
// bar aggregates the upstream ingester publishes.
type Raw struct {
	Symbol        string
	LastTradePrice *float64
	Bid            *float64
	Ask            *float64
	Open           *float64
	High           *float64
	Low            *float64
	Close          *float64
	PrevClose      *float64
	DayVolume      *float64
	CumulativeVol  *float64
	TradeCount     *int64
	SnapshotVWAP   *float64
	Timestamp      time.Time
}
