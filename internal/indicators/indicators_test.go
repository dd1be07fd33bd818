package indicators

import (
	"testing"
	"time"
)

func f(v float64) *float64 { return &v }

func TestRVOLNilOnMissingOrZeroDenominator(t *testing.T) {
	if got := RVOL(nil, f(100)); got != nil {
		t.Errorf("expected nil with missing current volume, got %v", *got)
	}
	if got := RVOL(f(100), nil); got != nil {
		t.Errorf("expected nil with missing average, got %v", *got)
	}
	if got := RVOL(f(100), f(0)); got != nil {
		t.Errorf("expected nil with zero average, got %v", *got)
	}
	got := RVOL(f(300), f(100))
	if got == nil {
		t.Fatalf("expected non-nil result")
	}
	if *got != 3.0 {
		t.Errorf("expected RVOL 3.0, got %v", *got)
	}
}

func TestSlotBaselineAverage(t *testing.T) {
	b := NewSlotBaseline()
	if avg := b.Average(0); avg != nil {
		t.Errorf("expected nil average with no observations, got %v", *avg)
	}

	b.Add(0, 100)
	b.Add(0, 300)
	avg := b.Average(0)
	if avg == nil {
		t.Fatalf("expected non-nil average")
	}
	if *avg != 200 {
		t.Errorf("expected average 200, got %v", *avg)
	}
}

func TestSlotManagerOutsideSession(t *testing.T) {
	m, err := NewSlotManager("America/New_York", 5*time.Minute, 9*time.Hour+30*time.Minute, 16*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc, _ := time.LoadLocation("America/New_York")
	before := time.Date(2026, 7, 30, 8, 0, 0, 0, loc)
	if slot := m.GetCurrentSlot(before); slot != -1 {
		t.Errorf("expected -1 before session open, got %d", slot)
	}
}

func TestSlotManagerWithinSession(t *testing.T) {
	m, err := NewSlotManager("America/New_York", 5*time.Minute, 9*time.Hour+30*time.Minute, 16*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc, _ := time.LoadLocation("America/New_York")
	at := time.Date(2026, 7, 30, 9, 40, 0, 0, loc)
	if slot := m.GetCurrentSlot(at); slot != 2 {
		t.Errorf("expected slot 2 at 9:40 (10 minutes past open / 5-minute slots), got %d", slot)
	}
}

func TestSlotManagerUsesCanonicalTimezoneRegardlessOfInputLocation(t *testing.T) {
	m, err := NewSlotManager("America/New_York", 5*time.Minute, 9*time.Hour+30*time.Minute, 16*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 13:40 UTC is 9:40 Eastern during EDT (UTC-4).
	utcTime := time.Date(2026, 7, 30, 13, 40, 0, 0, time.UTC)
	if slot := m.GetCurrentSlot(utcTime); slot != 2 {
		t.Errorf("expected slot 2 regardless of input timezone, got %d", slot)
	}
}

func TestATRPercentNilOnMissingOrZeroPrice(t *testing.T) {
	if got := ATRPercent(nil, f(100)); got != nil {
		t.Errorf("expected nil with missing atr")
	}
	if got := ATRPercent(f(1), f(0)); got != nil {
		t.Errorf("expected nil with zero price")
	}
	got := ATRPercent(f(2), f(100))
	if got == nil || *got != 2.0 {
		t.Errorf("expected 2.0, got %v", got)
	}
}

func TestTradeZScoreAndAnomalyFlag(t *testing.T) {
	if got := TradeZScore(f(100), f(50), f(0)); got != nil {
		t.Errorf("expected nil with zero stddev")
	}
	z := TradeZScore(f(500), f(200), f(100))
	if z == nil || *z != 3.0 {
		t.Errorf("expected z-score 3.0, got %v", z)
	}
	anomaly := IsTradeAnomaly(z)
	if anomaly == nil || !*anomaly {
		t.Errorf("expected anomaly flagged at threshold")
	}

	below := f(2.99)
	if a := IsTradeAnomaly(below); a == nil || *a {
		t.Errorf("expected not anomalous below threshold")
	}

	if a := IsTradeAnomaly(nil); a != nil {
		t.Errorf("expected nil anomaly flag when z is nil")
	}
}

func TestMeanStdDev(t *testing.T) {
	mean, stddev, ok := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !ok {
		t.Fatalf("expected ok")
	}
	if mean != 5 {
		t.Errorf("expected mean 5, got %v", mean)
	}
	if stddev < 2.0 || stddev > 2.01 {
		t.Errorf("expected stddev ~2.0, got %v", stddev)
	}

	if _, _, ok := MeanStdDev(nil); ok {
		t.Errorf("expected not ok for empty input")
	}
}

func TestVWAPFallbackChain(t *testing.T) {
	snap := VWAP(VWAPInputs{SnapshotVWAP: f(10), RunningVWAP: f(20)})
	if snap == nil || *snap != 10 {
		t.Errorf("expected snapshot VWAP to take priority, got %v", snap)
	}

	running := VWAP(VWAPInputs{RunningVWAP: f(15), High: f(100), Low: f(90), Close: f(95)})
	if running == nil || *running != 15 {
		t.Errorf("expected running VWAP when no snapshot, got %v", running)
	}

	typical := VWAP(VWAPInputs{High: f(12), Low: f(9), Close: f(9)})
	if typical == nil {
		t.Fatalf("expected typical-price fallback")
	}
	if *typical < 9.99 || *typical > 10.01 {
		t.Errorf("expected typical price 10.0, got %v", *typical)
	}

	if got := VWAP(VWAPInputs{}); got != nil {
		t.Errorf("expected nil when every source missing, got %v", *got)
	}
}

func TestPriceVsVWAPPercent(t *testing.T) {
	got := PriceVsVWAP(f(110), f(100))
	if got == nil || *got != 10 {
		t.Errorf("expected 10%% above vwap, got %v", got)
	}
	if got := PriceVsVWAP(f(100), f(0)); got != nil {
		t.Errorf("expected nil with zero vwap")
	}
}

func TestRunningVWAPAccumulatesAndResets(t *testing.T) {
	r := &RunningVWAP{}
	if v := r.Value(); v != nil {
		t.Errorf("expected nil before any observation")
	}
	r.Observe(10, 100)
	r.Observe(20, 100)
	v := r.Value()
	if v == nil || *v != 15 {
		t.Errorf("expected vwap 15, got %v", v)
	}
	r.Reset()
	if v := r.Value(); v != nil {
		t.Errorf("expected nil after reset, got %v", *v)
	}
}
