package ticker

import (
	"testing"
	"time"
)

func TestObservePriceTracksIntradayExtremes(t *testing.T) {
	s := NewState("AAA")
	base := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)

	s.ObservePrice(10.0, base)
	s.ObservePrice(12.5, base.Add(1*time.Minute))
	s.ObservePrice(9.0, base.Add(2*time.Minute))

	high, low, ok := s.Extremes()
	if !ok {
		t.Fatalf("expected extremes to be set")
	}
	if high != 12.5 {
		t.Errorf("expected high 12.5, got %v", high)
	}
	if low != 9.0 {
		t.Errorf("expected low 9.0, got %v", low)
	}
	if high < low {
		t.Errorf("invariant violated: high %v < low %v", high, low)
	}
}

func TestWindowsNilWhenHistoryMissing(t *testing.T) {
	s := NewState("BBB")
	base := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)
	s.ObserveVolume(1000, base)

	w := s.Windows(base)
	if w.Vol5Min != nil {
		t.Errorf("expected nil 5min window with no earlier sample, got %v", *w.Vol5Min)
	}
}

func TestVolumeWindowComputesDelta(t *testing.T) {
	s := NewState("CCC")
	base := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)

	s.ObserveVolume(1000, base)
	s.ObserveVolume(1500, base.Add(1*time.Minute))
	s.ObserveVolume(2200, base.Add(5*time.Minute))

	w := s.Windows(base.Add(5 * time.Minute))
	if w.Vol5Min == nil {
		t.Fatalf("expected 5min window to be present")
	}
	if got := *w.Vol5Min; got != 1200 {
		t.Errorf("expected 5min volume delta 1200, got %v", got)
	}
}

func TestChangeWindowComputesPercent(t *testing.T) {
	s := NewState("DDD")
	base := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)

	s.ObservePrice(100.0, base)
	s.ObservePrice(110.0, base.Add(1*time.Minute))

	w := s.Windows(base.Add(1 * time.Minute))
	if w.Chg1Min == nil {
		t.Fatalf("expected 1min change window to be present")
	}
	if got := *w.Chg1Min; got < 9.99 || got > 10.01 {
		t.Errorf("expected ~10%% change, got %v", got)
	}
}

func TestResetClearsSessionState(t *testing.T) {
	s := NewState("EEE")
	base := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)

	s.ObservePrice(50.0, base)
	s.ObserveVolume(100, base)
	s.ObserveTradeCount(42)

	s.Reset()

	if _, _, ok := s.Extremes(); ok {
		t.Errorf("expected no extremes after reset")
	}
	if s.TradeCount() != 0 {
		t.Errorf("expected trade count reset to 0, got %d", s.TradeCount())
	}
	w := s.Windows(base)
	if w.Vol1Min != nil || w.Chg1Min != nil {
		t.Errorf("expected all windows nil after reset")
	}
}

func TestStoreGetOrCreateIsIdempotent(t *testing.T) {
	store := NewStore()
	a := store.GetOrCreate("AAA")
	b := store.GetOrCreate("AAA")
	if a != b {
		t.Errorf("expected GetOrCreate to return the same instance for repeated symbol")
	}
	if store.Len() != 1 {
		t.Errorf("expected store to track 1 symbol, got %d", store.Len())
	}
}

func TestStoreResetAllClearsEverySymbol(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)
	store.GetOrCreate("AAA").ObservePrice(10, base)
	store.GetOrCreate("BBB").ObservePrice(20, base)

	store.ResetAll()

	if _, _, ok := store.GetOrCreate("AAA").Extremes(); ok {
		t.Errorf("expected AAA extremes cleared")
	}
	if _, _, ok := store.GetOrCreate("BBB").Extremes(); ok {
		t.Errorf("expected BBB extremes cleared")
	}
}
