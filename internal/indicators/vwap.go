package indicators

// VWAPInputs carries every candidate source the VWAP fallback chain
// may draw from, in priority order: a vendor-supplied snapshot VWAP is
// trusted first, then a locally accumulated running VWAP, then a
// typical-price approximation from the session bar.
type VWAPInputs struct {
	SnapshotVWAP *float64
	RunningVWAP  *float64
	High         *float64
	Low          *float64
	Close        *float64
}

// VWAP resolves the best available VWAP per the fallback chain
// described in spec §4.2. Returns nil only if every source is absent.
func VWAP(in VWAPInputs) *float64 {
	if in.SnapshotVWAP != nil {
		v := *in.SnapshotVWAP
		return &v
	}
	if in.RunningVWAP != nil {
		v := *in.RunningVWAP
		return &v
	}
	if in.High != nil && in.Low != nil && in.Close != nil {
		v := (*in.High + *in.Low + *in.Close) / 3
		return &v
	}
	return nil
}

// PriceVsVWAP expresses price's percent distance from vwap, matching
// the resolution of the spec's Open Question: positive means price
// trades above VWAP. Returns nil if either input is missing or vwap
// is zero.
func PriceVsVWAP(price, vwap *float64) *float64 {
	if price == nil || vwap == nil || *vwap == 0 {
		return nil
	}
	pct := (*price - *vwap) / *vwap * 100
	return &pct
}

// RunningVWAP accumulates price*volume and volume across trades to
// derive a running session VWAP when no vendor snapshot is available.
type RunningVWAP struct {
	cumPV  float64
	cumVol float64
}

// Observe records one trade's price and size.
func (r *RunningVWAP) Observe(price, size float64) {
	r.cumPV += price * size
	r.cumVol += size
}

// Value returns the running VWAP, or nil if no volume has been
// observed yet.
func (r *RunningVWAP) Value() *float64 {
	if r.cumVol == 0 {
		return nil
	}
	v := r.cumPV / r.cumVol
	return &v
}

// Reset clears accumulated state, called on session rollover.
func (r *RunningVWAP) Reset() {
	r.cumPV = 0
	r.cumVol = 0
}
