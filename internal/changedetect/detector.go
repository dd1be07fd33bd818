// Package changedetect detects which tickers changed between
// consecutive enrichment cycles so the pipeline only writes the
// tickers whose serialized form actually differs, per spec §5.
package changedetect

import (
	"encoding/json"
	"sync"
)

// Detector compares byte-serialized ticker snapshots across cycles.
// A ticker is "changed" when its serialized bytes differ from the
// previous cycle's; encoding/json produces stable field ordering for
// a fixed struct shape, so byte comparison is equivalent to a
// structural diff without needing to walk individual fields.
type Detector struct {
	mu   sync.Mutex
	prev map[string][]byte

	cycles        int64
	totalCompared int64
	totalChanged  int64
}

// New creates an empty Detector; the first call to DetectChanges will
// report every ticker as changed.
func New() *Detector {
	return &Detector{prev: make(map[string][]byte)}
}

// Stats summarizes detector activity for the status/metrics endpoint.
type Stats struct {
	Cycles              int64
	CacheSize           int
	CacheMemoryEstimate float64 // MiB
	TotalCompared       int64
	TotalChanged        int64
	AvgChangeRatePct    float64
}

// DetectChanges serializes each entry in current and compares it
// against the previous cycle's bytes for that symbol. It returns the
// serialized JSON for every symbol whose bytes changed (or which is
// new this cycle), the total number of symbols compared, and the
// number changed. Symbols present in a prior cycle but absent from
// current are dropped from the detector's memory so a re-listed
// symbol is treated as new.
func (d *Detector) DetectChanges(current map[string]any) (changed map[string]string, total, changedCount int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	changed = make(map[string]string)
	seen := make(map[string]struct{}, len(current))

	for symbol, data := range current {
		seen[symbol] = struct{}{}

		currentBytes, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			return nil, 0, 0, marshalErr
		}

		prevBytes, ok := d.prev[symbol]
		if !ok || string(prevBytes) != string(currentBytes) {
			changed[symbol] = string(currentBytes)
			d.prev[symbol] = currentBytes
		}
	}

	for symbol := range d.prev {
		if _, ok := seen[symbol]; !ok {
			delete(d.prev, symbol)
		}
	}

	d.cycles++
	d.totalCompared += int64(len(current))
	d.totalChanged += int64(len(changed))

	return changed, len(current), len(changed), nil
}

// ForceFullWrite serializes and returns every entry in current
// unconditionally, refreshing the detector's memory so subsequent
// cycles diff against this snapshot. Used on the first cycle after
// startup and after Clear.
func (d *Detector) ForceFullWrite(current map[string]any) (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make(map[string]string, len(current))
	for symbol, data := range current {
		serialized, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		result[symbol] = string(serialized)
		d.prev[symbol] = serialized
	}

	d.cycles++
	d.totalCompared += int64(len(current))
	d.totalChanged += int64(len(current))

	return result, nil
}

// IsFirstCycle reports whether no previous cycle's data is cached,
// i.e. this is the first cycle since startup or the last Clear.
func (d *Detector) IsFirstCycle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.prev) == 0
}

// Clear discards all cached previous-cycle bytes, used on trading-day
// rollover so the next cycle force-writes everything fresh.
func (d *Detector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prev = make(map[string][]byte)
}

// GetStats returns a snapshot of detector activity counters.
func (d *Detector) GetStats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	var memBytes int
	for _, v := range d.prev {
		memBytes += len(v)
	}

	var avgChangeRate float64
	if d.totalCompared > 0 {
		avgChangeRate = float64(d.totalChanged) / float64(d.totalCompared) * 100
	}

	return Stats{
		Cycles:              d.cycles,
		CacheSize:           len(d.prev),
		CacheMemoryEstimate: float64(memBytes) / (1024 * 1024),
		TotalCompared:       d.totalCompared,
		TotalChanged:        d.totalChanged,
		AvgChangeRatePct:    avgChangeRate,
	}
}
