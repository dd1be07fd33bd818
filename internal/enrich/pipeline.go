// Package enrich runs the main enrichment loop: read the raw
// snapshot, compute every derived indicator per ticker, detect what
// changed since the last cycle, and write only the changed tickers
// back to the shared Redis hash (spec §4, §5).
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nofendian17/marketscanner/internal/changedetect"
	"github.com/nofendian17/marketscanner/internal/indicators"
	"github.com/nofendian17/marketscanner/internal/store"
	"github.com/nofendian17/marketscanner/internal/ticker"
)

// RawSnapshotKey is the Redis string key the upstream ingester writes
// the latest raw snapshot to.
const RawSnapshotKey = "snapshot:polygon:latest"

// RawSnapshot is the decoded shape of the value at RawSnapshotKey.
type RawSnapshot struct {
	Timestamp string        `json:"timestamp"`
	Tickers   []ticker.Raw  `json:"tickers"`
}

// Pipeline owns the full enrichment cycle: reading raw snapshots,
// computing indicators, detecting changes, and writing results.
type Pipeline struct {
	redis       *store.Client
	states      *ticker.Store
	detector    *changedetect.Detector
	slotManager *indicators.SlotManager
	baseline    *indicators.SlotBaseline
	reference   ticker.ReferenceLookup

	vwapMu    sync.Mutex
	vwapCache map[string]*indicators.RunningVWAP

	zscoreMu   sync.Mutex
	trade5d    map[string][]float64 // rolling 5-day trade-count history per symbol

	atrMu  sync.RWMutex
	atr    map[string]float64 // latest seeded ATR per symbol, refreshed daily

	isHolidayMode           bool
	lastProcessedTimestamp  string
	lastSlot                indicators.SlotIndex
	cycleCount              int64

	onChanged func(changed map[string]*ticker.Ticker)
}

// New constructs a Pipeline. reference may be nil if no external
// fundamentals/sector lookup is wired.
func New(redis *store.Client, states *ticker.Store, slotManager *indicators.SlotManager, reference ticker.ReferenceLookup) *Pipeline {
	return &Pipeline{
		redis:       redis,
		states:      states,
		detector:    changedetect.New(),
		slotManager: slotManager,
		baseline:    indicators.NewSlotBaseline(),
		reference:   reference,
		vwapCache:   make(map[string]*indicators.RunningVWAP),
		trade5d:     make(map[string][]float64),
		atr:         make(map[string]float64),
		lastSlot:    -1,
	}
}

// SetHolidayMode pauses/resumes cycle processing without tearing down
// the pipeline's accumulated state.
func (p *Pipeline) SetHolidayMode(v bool) { p.isHolidayMode = v }

// IsHolidayMode reports whether the pipeline is currently paused.
func (p *Pipeline) IsHolidayMode() bool { return p.isHolidayMode }

// ClearChangeDetector discards cached previous-cycle bytes, called on
// trading-day rollover so the next cycle force-writes everything.
func (p *Pipeline) ClearChangeDetector() { p.detector.Clear() }

// OnChanged registers a callback invoked once per cycle with the
// tickers that changed, letting a caller drive rule evaluation and
// fanout off the same changed subset written to Redis, without the
// pipeline needing to know anything about rule evaluation.
func (p *Pipeline) OnChanged(fn func(changed map[string]*ticker.Ticker)) {
	p.onChanged = fn
}

// RunLoop runs the enrichment cycle continuously until ctx is
// cancelled. Errors from a single cycle are logged and the loop
// backs off briefly rather than exiting.
func (p *Pipeline) RunLoop(ctx context.Context) error {
	log.Info().Msg("enrichment pipeline started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p.isHolidayMode {
			if !sleepOrDone(ctx, 60*time.Second) {
				return ctx.Err()
			}
			continue
		}

		if err := p.RunSingleCycle(ctx); err != nil {
			log.Error().Err(err).Msg("enrichment cycle error")
			if !sleepOrDone(ctx, 5*time.Second) {
				return ctx.Err()
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// RunSingleCycle executes exactly one enrichment pass: read the raw
// snapshot, enrich every ticker, detect changes, and write the
// changed subset back to Redis.
func (p *Pipeline) RunSingleCycle(ctx context.Context) error {
	now := time.Now()

	if p.slotManager != nil {
		if slot := p.slotManager.GetCurrentSlot(now); slot >= 0 && slot != p.lastSlot {
			log.Info().
				Int("slot", int(slot)).
				Str("slot_info", p.slotManager.FormatSlotInfo(slot)).
				Msg("new rvol slot detected")
			p.lastSlot = slot
		}
	}

	raw, err := p.readRawSnapshot(ctx)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if raw.Timestamp == p.lastProcessedTimestamp {
		return nil
	}
	if len(raw.Tickers) == 0 {
		return nil
	}

	enriched := make(map[string]any, len(raw.Tickers))
	tickersBySymbol := make(map[string]*ticker.Ticker, len(raw.Tickers))
	rvolMapping := make(map[string]string)

	for _, rawTicker := range raw.Tickers {
		if rawTicker.Symbol == "" {
			continue
		}
		t := p.enrichSingleTicker(rawTicker, now)
		enriched[rawTicker.Symbol] = t
		tickersBySymbol[rawTicker.Symbol] = t

		if t.RVOL != nil && *t.RVOL > 0 {
			rvolMapping[rawTicker.Symbol] = fmt.Sprintf("%.2f", *t.RVOL)
		}
	}

	var changed map[string]string
	var totalCount, changedCount int

	if p.detector.IsFirstCycle() {
		changed, err = p.detector.ForceFullWrite(enriched)
		if err != nil {
			return fmt.Errorf("enrich: force full write: %w", err)
		}
		totalCount = len(enriched)
		changedCount = len(changed)
		log.Info().Int("total", totalCount).Msg("first cycle full write")
	} else {
		changed, totalCount, changedCount, err = p.detector.DetectChanges(enriched)
		if err != nil {
			return fmt.Errorf("enrich: detect changes: %w", err)
		}
	}

	if len(changed) > 0 {
		if err := p.writeToHash(ctx, changed, raw.Timestamp, totalCount, changedCount); err != nil {
			return err
		}
	}

	if len(rvolMapping) > 0 {
		if err := p.redis.HSetRVOL(ctx, rvolMapping); err != nil {
			log.Error().Err(err).Msg("error writing rvol hash")
		}
	}

	if p.onChanged != nil && len(changed) > 0 {
		changedTickers := make(map[string]*ticker.Ticker, len(changed))
		for symbol := range changed {
			if symbol == "__meta__" {
				continue
			}
			if t, ok := tickersBySymbol[symbol]; ok {
				changedTickers[symbol] = t
			}
		}
		p.onChanged(changedTickers)
	}

	p.lastProcessedTimestamp = raw.Timestamp
	p.cycleCount++

	var changePct float64
	if totalCount > 0 {
		changePct = float64(changedCount) / float64(totalCount) * 100
	}
	log.Info().
		Int("total", totalCount).
		Int("changed", changedCount).
		Float64("change_pct", changePct).
		Int64("cycle", p.cycleCount).
		Msg("enrichment cycle complete")

	return nil
}

func (p *Pipeline) readRawSnapshot(ctx context.Context) (*RawSnapshot, error) {
	if p.redis == nil {
		return nil, nil
	}
	raw, err := p.redis.Get(ctx, RawSnapshotKey)
	if err != nil {
		return nil, nil // absent snapshot is not an error; caller retries next cycle
	}
	var snapshot RawSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("enrich: decode raw snapshot: %w", err)
	}
	return &snapshot, nil
}

// enrichSingleTicker merges raw snapshot data with every calculated
// indicator for one symbol (spec §4.2).
func (p *Pipeline) enrichSingleTicker(raw ticker.Raw, now time.Time) *ticker.Ticker {
	state := p.states.GetOrCreate(raw.Symbol)

	t := &ticker.Ticker{Symbol: raw.Symbol}
	t.Price = raw.LastTradePrice
	if t.Price == nil {
		t.Price = raw.Close
	}
	t.Bid = raw.Bid
	t.Ask = raw.Ask
	t.Open = raw.Open
	t.High = raw.High
	t.Low = raw.Low
	t.PrevClose = raw.PrevClose

	volume := volumePriority(raw)
	if volume != nil {
		t.VolumeToday = volume
		t.DayVolume = volume
	}

	if t.Bid != nil && t.Ask != nil {
		spread := *t.Ask - *t.Bid
		t.Spread = &spread
		if *t.Ask > 0 {
			pct := spread / *t.Ask * 100
			t.SpreadPercent = &pct
		}
	}

	if t.Price != nil && t.PrevClose != nil && *t.PrevClose != 0 {
		chg := (*t.Price - *t.PrevClose) / *t.PrevClose * 100
		t.ChangePercent = &chg
	}
	if t.Price != nil && t.Open != nil && *t.Open != 0 {
		chgOpen := (*t.Price - *t.Open) / *t.Open * 100
		t.ChangeFromOpen = &chgOpen
	}
	if t.Open != nil && t.PrevClose != nil && *t.PrevClose != 0 {
		gap := (*t.Open - *t.PrevClose) / *t.PrevClose * 100
		t.GapPercent = &gap
	}

	if t.Price != nil && volume != nil && *volume > 0 {
		state.ObservePrice(*t.Price, now)
		state.ObserveVolume(*volume, now)

		if p.slotManager != nil {
			slot := p.slotManager.GetCurrentSlot(now)
			avg := p.baseline.Average(slot)
			t.RVOL = indicators.RVOL(volume, avg)
		}
	}

	if high, low, ok := state.Extremes(); ok {
		t.IntradayHigh = &high
		t.IntradayLow = &low
		if t.Price != nil && high != 0 {
			d := (*t.Price - high) / high * 100
			t.PriceFromIntradayHigh = &d
		}
		if t.Price != nil && low != 0 {
			d := (*t.Price - low) / low * 100
			t.PriceFromIntradayLow = &d
		}
	}

	windows := state.Windows(now)
	t.Vol1Min, t.Vol5Min, t.Vol10Min, t.Vol15Min, t.Vol30Min =
		windows.Vol1Min, windows.Vol5Min, windows.Vol10Min, windows.Vol15Min, windows.Vol30Min
	t.Chg1Min, t.Chg5Min, t.Chg10Min, t.Chg15Min, t.Chg30Min, t.Chg60Min =
		windows.Chg1Min, windows.Chg5Min, windows.Chg10Min, windows.Chg15Min, windows.Chg30Min, windows.Chg60Min

	if atr, ok := p.ATRFor(raw.Symbol); ok {
		v := atr
		t.ATR = &v
		t.ATRPercent = indicators.ATRPercent(t.ATR, t.Price)
	}

	t.VWAP = indicators.VWAP(indicators.VWAPInputs{
		SnapshotVWAP: raw.SnapshotVWAP,
		RunningVWAP:  p.runningVWAP(raw.Symbol),
		High:         t.High,
		Low:          t.Low,
		Close:        t.Price,
	})
	t.PriceVsVWAP = indicators.PriceVsVWAP(t.Price, t.VWAP)

	if raw.TradeCount != nil {
		state.ObserveTradeCount(*raw.TradeCount)
		tradesToday := float64(*raw.TradeCount)
		t.TradesToday = &tradesToday

		mean, stddev, ok := p.tradeBaseline(raw.Symbol)
		if ok {
			t.AvgTrades5D = &mean
			z := indicators.TradeZScore(&tradesToday, &mean, &stddev)
			t.TradesZScore = z
			t.IsTradeAnomaly = indicators.IsTradeAnomaly(z)
		}
	}

	if p.reference != nil {
		if ref, ok := p.reference.Lookup(raw.Symbol); ok {
			t.Sector, t.Industry, t.Exchange = ref.Sector, ref.Industry, ref.Exchange
			t.MarketCap, t.FreeFloat, t.SharesOutstanding = ref.MarketCap, ref.FreeFloat, ref.SharesOutstanding
			t.IsETF = ref.IsETF
			t.High52W, t.Low52W = ref.High52W, ref.Low52W
		}
	}

	return t
}

func volumePriority(raw ticker.Raw) *float64 {
	if raw.CumulativeVol != nil && *raw.CumulativeVol > 0 {
		return raw.CumulativeVol
	}
	if raw.DayVolume != nil && *raw.DayVolume > 0 {
		return raw.DayVolume
	}
	return nil
}

func (p *Pipeline) runningVWAP(symbol string) *float64 {
	p.vwapMu.Lock()
	defer p.vwapMu.Unlock()
	if acc, ok := p.vwapCache[symbol]; ok {
		return acc.Value()
	}
	return nil
}

// ObserveTrade feeds one executed trade into the symbol's running
// VWAP accumulator, used when no vendor-supplied VWAP is available.
func (p *Pipeline) ObserveTrade(symbol string, price, size float64) {
	p.vwapMu.Lock()
	defer p.vwapMu.Unlock()
	acc, ok := p.vwapCache[symbol]
	if !ok {
		acc = &indicators.RunningVWAP{}
		p.vwapCache[symbol] = acc
	}
	acc.Observe(price, size)
}

// SeedTradeBaseline installs a symbol's trailing 5-day trade-count
// history, used to compute the anomaly Z-score. Only the last five
// entries of a longer history are kept.
func (p *Pipeline) SeedTradeBaseline(symbol string, history []float64) {
	p.zscoreMu.Lock()
	defer p.zscoreMu.Unlock()
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	p.trade5d[symbol] = history
}

// SeedSlotBaseline installs a symbol's historical per-slot volume
// observation, used to compute RVOL.
func (p *Pipeline) SeedSlotBaseline(slot indicators.SlotIndex, volume float64) {
	p.baseline.Add(slot, volume)
}

// SeedATRBaseline installs a symbol's latest seeded ATR value,
// computed from historical daily bars (refdata.Seeder.SeedATR).
// enrichSingleTicker reads it back every cycle until the next seed.
func (p *Pipeline) SeedATRBaseline(symbol string, atr float64) {
	p.atrMu.Lock()
	defer p.atrMu.Unlock()
	p.atr[symbol] = atr
}

// ATRFor returns the latest seeded ATR value for symbol, if any.
func (p *Pipeline) ATRFor(symbol string) (float64, bool) {
	p.atrMu.RLock()
	defer p.atrMu.RUnlock()
	v, ok := p.atr[symbol]
	return v, ok
}

func (p *Pipeline) tradeBaseline(symbol string) (mean, stddev float64, ok bool) {
	p.zscoreMu.Lock()
	defer p.zscoreMu.Unlock()
	history, exists := p.trade5d[symbol]
	if !exists {
		return 0, 0, false
	}
	return indicators.MeanStdDev(history)
}

func (p *Pipeline) writeToHash(ctx context.Context, changed map[string]string, timestamp string, totalCount, changedCount int) error {
	meta, err := json.Marshal(map[string]any{
		"timestamp": timestamp,
		"count":     totalCount,
		"changed":   changedCount,
		"version":   2,
	})
	if err != nil {
		return fmt.Errorf("enrich: marshal meta: %w", err)
	}

	return p.redis.HSetChanged(ctx, store.SnapshotEnrichedHash, changed, string(meta), store.SnapshotEnrichedTTL)
}

// WriteLastCloseSnapshot copies the current enriched hash into the
// last-close hash. Called only on a SESSION_CHANGED event, never
// every cycle, per spec §5.
func (p *Pipeline) WriteLastCloseSnapshot(ctx context.Context) error {
	if err := p.redis.CopyHash(ctx, store.SnapshotEnrichedHash, store.SnapshotLastCloseHash, store.SnapshotLastCloseTTL); err != nil {
		return fmt.Errorf("enrich: write last close snapshot: %w", err)
	}
	return nil
}

// Stats summarizes pipeline activity for the status endpoint.
type Stats struct {
	CycleCount             int64
	LastProcessedTimestamp string
	IsHolidayMode          bool
	ChangeDetector         changedetect.Stats
}

// GetStats returns a snapshot of pipeline activity.
func (p *Pipeline) GetStats() Stats {
	return Stats{
		CycleCount:             p.cycleCount,
		LastProcessedTimestamp: p.lastProcessedTimestamp,
		IsHolidayMode:          p.isHolidayMode,
		ChangeDetector:         p.detector.GetStats(),
	}
}
