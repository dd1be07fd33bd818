// Package indicators computes the stateless derived metrics (RVOL,
// ATR%, trade-anomaly Z-score, VWAP) described in spec §4.2. Every
// function here reads TickerState and/or an external reference cache
// and never mutates either; any missing datum or degenerate math
// yields a nil result instead of failing the enrichment cycle.
package indicators

import (
	"fmt"
	"time"
)

// SlotIndex identifies a fixed-width intraday time bucket used to
// normalize RVOL. Negative means "outside the regular session".
type SlotIndex int

// SlotManager partitions the regular trading session into fixed-width
// slots in the market's canonical timezone. Slot index must never be
// derived from local wall-clock time (spec §9).
type SlotManager struct {
	location   *time.Location
	slotWidth  time.Duration
	sessionStart time.Duration // offset from local midnight, e.g. 9h30m
	sessionEnd   time.Duration
}

// NewSlotManager builds a SlotManager for the given IANA location name
// (e.g. "America/New_York"), slot width, and regular-session start/end
// offsets from local midnight.
func NewSlotManager(locationName string, slotWidth, sessionStart, sessionEnd time.Duration) (*SlotManager, error) {
	loc, err := time.LoadLocation(locationName)
	if err != nil {
		return nil, fmt.Errorf("indicators: load location %q: %w", locationName, err)
	}
	return &SlotManager{
		location:     loc,
		slotWidth:    slotWidth,
		sessionStart: sessionStart,
		sessionEnd:   sessionEnd,
	}, nil
}

// GetCurrentSlot returns the slot index for t, expressed in the
// manager's canonical timezone regardless of t's own location.
// Returns -1 outside the regular session.
func (m *SlotManager) GetCurrentSlot(t time.Time) SlotIndex {
	local := t.In(m.location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.location)
	offset := local.Sub(midnight)

	if offset < m.sessionStart || offset >= m.sessionEnd {
		return -1
	}
	return SlotIndex((offset - m.sessionStart) / m.slotWidth)
}

// FormatSlotInfo renders a human-readable description of a slot,
// used only for the structured log event emitted on slot rollover.
func (m *SlotManager) FormatSlotInfo(slot SlotIndex) string {
	if slot < 0 {
		return "outside-session"
	}
	start := m.sessionStart + time.Duration(slot)*m.slotWidth
	end := start + m.slotWidth
	return fmt.Sprintf("%s-%s", start, end)
}
