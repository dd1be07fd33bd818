package ticker

import (
	"sync"
	"time"
)

// ringCapacity bounds the per-minute sample history kept for rolling
// window computation. §3 requires capacity >= 30 minutes; 64 gives
// headroom for the 60-minute change window without reallocating.
const ringCapacity = 64

type minuteSample struct {
	minute time.Time
	volume float64
	close  float64
	has    bool
}

// State is the long-lived, per-symbol TickerState described in spec
// §4.1. It is owned exclusively by the enrichment pipeline; nothing
// else observes or mutates it directly.
type State struct {
	mu sync.Mutex

	symbol string

	ring     [ringCapacity]minuteSample
	ringHead int
	ringLen  int

	intradayHigh float64
	intradayLow  float64
	hasIntraday  bool

	cumulativeTrades int64
}

// NewState creates an empty TickerState for symbol.
func NewState(symbol string) *State {
	return &State{symbol: symbol}
}

// ObservePrice updates intraday extremes and appends a per-minute
// close sample, coalescing repeated observations within the same
// minute bucket.
func (s *State) ObservePrice(price float64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasIntraday || price > s.intradayHigh {
		s.intradayHigh = price
	}
	if !s.hasIntraday || price < s.intradayLow {
		s.intradayLow = price
	}
	s.hasIntraday = true

	s.putSample(t, func(sample *minuteSample) { sample.close = price })
}

// ObserveVolume records the latest cumulative session volume for the
// current minute bucket. Rolling windows are derived on read as
// cum(t) - cum(t-W).
func (s *State) ObserveVolume(cumulativeVolume float64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putSample(t, func(sample *minuteSample) { sample.volume = cumulativeVolume })
}

// putSample finds or creates the ring slot for t's minute bucket and
// applies mutate to it. Must be called with s.mu held.
func (s *State) putSample(t time.Time, mutate func(*minuteSample)) {
	minute := t.Truncate(time.Minute)

	if s.ringLen > 0 {
		lastIdx := s.prevIndex(s.ringHead)
		if s.ring[lastIdx].minute.Equal(minute) {
			mutate(&s.ring[lastIdx])
			return
		}
	}

	idx := s.ringHead
	s.ring[idx] = minuteSample{minute: minute, has: true}
	mutate(&s.ring[idx])
	s.ringHead = (s.ringHead + 1) % ringCapacity
	if s.ringLen < ringCapacity {
		s.ringLen++
	}
}

func (s *State) prevIndex(idx int) int {
	return (idx - 1 + ringCapacity) % ringCapacity
}

// ObserveTradeCount sets the cumulative session trade count.
func (s *State) ObserveTradeCount(count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cumulativeTrades = count
}

// TradeCount returns the cumulative session trade count.
func (s *State) TradeCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cumulativeTrades
}

// Extremes returns the current intraday high/low, and whether any
// price has been observed this session.
func (s *State) Extremes() (high, low float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intradayHigh, s.intradayLow, s.hasIntraday
}

// Windows computes the current rolling volume and price-change
// windows as of now. A window whose start predates the oldest sample
// in the ring is nil rather than zero, per spec §4.1.
func (s *State) Windows(now time.Time) Windows {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Windows{
		Vol1Min:  s.volumeWindow(now, 1*time.Minute),
		Vol5Min:  s.volumeWindow(now, 5*time.Minute),
		Vol10Min: s.volumeWindow(now, 10*time.Minute),
		Vol15Min: s.volumeWindow(now, 15*time.Minute),
		Vol30Min: s.volumeWindow(now, 30*time.Minute),

		Chg1Min:  s.changeWindow(now, 1*time.Minute),
		Chg5Min:  s.changeWindow(now, 5*time.Minute),
		Chg10Min: s.changeWindow(now, 10*time.Minute),
		Chg15Min: s.changeWindow(now, 15*time.Minute),
		Chg30Min: s.changeWindow(now, 30*time.Minute),
		Chg60Min: s.changeWindow(now, 60*time.Minute),
	}
}

// volumeWindow returns cum(now) - cum(now-window), or nil if no
// sample exists at or before now-window. Must be called with s.mu held.
func (s *State) volumeWindow(now time.Time, window time.Duration) *float64 {
	latest, ok := s.sampleAtOrBefore(now)
	if !ok {
		return nil
	}
	past, ok := s.sampleAtOrBefore(now.Add(-window))
	if !ok {
		return nil
	}
	delta := latest.volume - past.volume
	return &delta
}

// changeWindow returns the percent price change over window, or nil
// if no sample exists at or before now-window. Must be called with
// s.mu held.
func (s *State) changeWindow(now time.Time, window time.Duration) *float64 {
	latest, ok := s.sampleAtOrBefore(now)
	if !ok {
		return nil
	}
	past, ok := s.sampleAtOrBefore(now.Add(-window))
	if !ok || past.close == 0 {
		return nil
	}
	pct := (latest.close - past.close) / past.close * 100
	return &pct
}

// sampleAtOrBefore scans the ring for the most recent sample whose
// minute is <= at. Must be called with s.mu held.
func (s *State) sampleAtOrBefore(at time.Time) (minuteSample, bool) {
	minute := at.Truncate(time.Minute)
	idx := s.prevIndex(s.ringHead)
	for i := 0; i < s.ringLen; i++ {
		sample := s.ring[idx]
		if sample.has && !sample.minute.After(minute) {
			return sample, true
		}
		idx = s.prevIndex(idx)
	}
	return minuteSample{}, false
}

// Reset clears all session state. Called by the day-change handler
// before the next enrichment cycle; per spec §3 this must be atomic
// with respect to concurrent reads, which the mutex guarantees.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring = [ringCapacity]minuteSample{}
	s.ringHead = 0
	s.ringLen = 0
	s.hasIntraday = false
	s.intradayHigh = 0
	s.intradayLow = 0
	s.cumulativeTrades = 0
}

// Store owns the set of TickerState instances the enrichment pipeline
// has observed, keyed by symbol. It is created fresh and exclusively
// owned by the pipeline.
type Store struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewStore creates an empty state store.
func NewStore() *Store {
	return &Store{states: make(map[string]*State)}
}

// GetOrCreate returns the State for symbol, creating it on first
// observation.
func (s *Store) GetOrCreate(symbol string) *State {
	s.mu.RLock()
	st, ok := s.states[symbol]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[symbol]; ok {
		return st
	}
	st = NewState(symbol)
	s.states[symbol] = st
	return st
}

// ResetAll clears every tracked symbol's session state. Called on
// trading-day rollover before the next enrichment cycle.
func (s *Store) ResetAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.states {
		st.Reset()
	}
}

// Len returns the number of tracked symbols.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Symbols returns every symbol currently tracked, used to drive a
// daily re-seed of per-symbol baselines over the live universe rather
// than a fixed watchlist.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbols := make([]string, 0, len(s.states))
	for sym := range s.states {
		symbols = append(symbols, sym)
	}
	return symbols
}
