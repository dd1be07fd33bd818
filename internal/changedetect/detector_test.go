package changedetect

import "testing"

func TestFirstCycleForceWrite(t *testing.T) {
	d := New()
	if !d.IsFirstCycle() {
		t.Fatalf("expected fresh detector to report first cycle")
	}

	data := map[string]any{
		"AAA": map[string]any{"price": 10.0},
		"BBB": map[string]any{"price": 20.0},
	}
	written, err := d.ForceFullWrite(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(written) != 2 {
		t.Errorf("expected 2 entries written, got %d", len(written))
	}
	if d.IsFirstCycle() {
		t.Errorf("expected first cycle to be false after force write")
	}
}

func TestDetectChangesOnlyReportsDiffs(t *testing.T) {
	d := New()
	first := map[string]any{
		"AAA": map[string]any{"price": 10.0},
		"BBB": map[string]any{"price": 20.0},
	}
	if _, err := d.ForceFullWrite(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := map[string]any{
		"AAA": map[string]any{"price": 10.0}, // unchanged
		"BBB": map[string]any{"price": 25.0}, // changed
	}
	changed, total, changedCount, err := d.DetectChanges(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
	if changedCount != 1 {
		t.Errorf("expected 1 changed, got %d", changedCount)
	}
	if _, ok := changed["BBB"]; !ok {
		t.Errorf("expected BBB to be reported as changed")
	}
	if _, ok := changed["AAA"]; ok {
		t.Errorf("expected AAA to be absent (unchanged)")
	}
}

func TestDetectChangesDropsRemovedSymbols(t *testing.T) {
	d := New()
	if _, err := d.ForceFullWrite(map[string]any{
		"AAA": map[string]any{"price": 10.0},
		"BBB": map[string]any{"price": 20.0},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// BBB delisted, no longer present in current cycle.
	_, _, _, err := d.DetectChanges(map[string]any{
		"AAA": map[string]any{"price": 10.0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := d.GetStats()
	if stats.CacheSize != 1 {
		t.Errorf("expected cache size 1 after removal, got %d", stats.CacheSize)
	}

	// BBB reappearing should now be treated as new (changed).
	changed, _, changedCount, err := d.DetectChanges(map[string]any{
		"AAA": map[string]any{"price": 10.0},
		"BBB": map[string]any{"price": 30.0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changedCount != 1 {
		t.Errorf("expected 1 changed (BBB re-added), got %d", changedCount)
	}
	if _, ok := changed["BBB"]; !ok {
		t.Errorf("expected BBB to be reported as changed on re-add")
	}
}

func TestClearResetsFirstCycle(t *testing.T) {
	d := New()
	if _, err := d.ForceFullWrite(map[string]any{"AAA": map[string]any{"price": 1.0}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Clear()
	if !d.IsFirstCycle() {
		t.Errorf("expected first cycle to be true after Clear")
	}
}

func TestGetStatsComputesChangeRate(t *testing.T) {
	d := New()
	if _, err := d.ForceFullWrite(map[string]any{
		"AAA": map[string]any{"price": 1.0},
		"BBB": map[string]any{"price": 2.0},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, _, err := d.DetectChanges(map[string]any{
		"AAA": map[string]any{"price": 1.0},
		"BBB": map[string]any{"price": 99.0},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := d.GetStats()
	if stats.Cycles != 2 {
		t.Errorf("expected 2 cycles, got %d", stats.Cycles)
	}
	if stats.TotalCompared != 4 {
		t.Errorf("expected 4 total compared, got %d", stats.TotalCompared)
	}
	if stats.TotalChanged != 3 {
		t.Errorf("expected 3 total changed, got %d", stats.TotalChanged)
	}
}
