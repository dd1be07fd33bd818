package indicators

import "github.com/markcheno/go-talib"

// ATRPercent expresses the supplied ATR value as a percentage of
// price, the normalized form spec §4.2 uses for cross-symbol
// volatility comparison. Returns nil if either input is missing or
// price is zero.
func ATRPercent(atr, price *float64) *float64 {
	if atr == nil || price == nil || *price == 0 {
		return nil
	}
	pct := *atr / *price * 100
	return &pct
}

// SeedATR computes an ATR series of the given period (14 when period
// is not positive) from historical high/low/close bars using go-talib.
// It is the only source of ATR values: the enrichment pipeline does
// not update ATR from live bars, it reads the value seeded from this
// series.
func SeedATR(high, low, close []float64, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	return talib.Atr(high, low, close, period)
}
