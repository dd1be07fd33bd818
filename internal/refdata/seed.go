// Package refdata bridges historical market data into the running
// scanner's warm-up state: ATR seeded from daily bars via go-talib,
// and RVOL/trade-anomaly baselines seeded from historical per-slot
// volume and daily trade-count samples, so the first live cycle after
// startup isn't flying blind (spec §4.2's RVOL/ATR/anomaly detectors
// all depend on a historical baseline existing before they're useful).
package refdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nofendian17/marketscanner/internal/enrich"
	"github.com/nofendian17/marketscanner/internal/indicators"
)

// DailyBar is one session's OHLCV aggregate plus trade count, the unit
// historical bar sources return.
type DailyBar struct {
	Date       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64
}

// DailyBarsSource resolves a symbol's trailing daily bars. Production
// wiring is out of scope here; this is the seam a vendor historical
// data client implements.
type DailyBarsSource interface {
	DailyBars(ctx context.Context, symbol string, lookback int) ([]DailyBar, error)
}

// SlotVolumeSource resolves a symbol's historical volume-within-slot
// observations, keyed by the slot they fell in.
type SlotVolumeSource interface {
	SlotVolumes(ctx context.Context, symbol string, lookbackDays int) (map[indicators.SlotIndex][]float64, error)
}

// Seeder primes a running Pipeline's ATR, RVOL baseline, and
// trade-anomaly baseline from historical data before live enrichment
// begins.
type Seeder struct {
	bars  DailyBarsSource
	slots SlotVolumeSource
}

// NewSeeder constructs a Seeder. Either source may be nil to skip that
// category of seeding.
func NewSeeder(bars DailyBarsSource, slots SlotVolumeSource) *Seeder {
	return &Seeder{bars: bars, slots: slots}
}

// SeedATR fetches symbol's trailing daily bars and returns the latest
// ATR value computed over period, or nil if too little history exists.
func (s *Seeder) SeedATR(ctx context.Context, symbol string, period int) (*float64, error) {
	if s.bars == nil {
		return nil, nil
	}

	daily, err := s.bars.DailyBars(ctx, symbol, period*3)
	if err != nil {
		return nil, fmt.Errorf("refdata: fetch daily bars for %s: %w", symbol, err)
	}
	if len(daily) <= period {
		return nil, nil
	}

	high := make([]float64, len(daily))
	low := make([]float64, len(daily))
	closePrices := make([]float64, len(daily))
	for i, bar := range daily {
		high[i], low[i], closePrices[i] = bar.High, bar.Low, bar.Close
	}

	series := indicators.SeedATR(high, low, closePrices, period)
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			v := series[i]
			return &v, nil
		}
	}
	return nil, nil
}

// SeedTradeBaseline fetches symbol's trailing daily trade counts and
// seeds the pipeline's Z-score baseline from them.
func (s *Seeder) SeedTradeBaseline(ctx context.Context, pipeline *enrich.Pipeline, symbol string, lookbackDays int) error {
	if s.bars == nil {
		return nil
	}

	daily, err := s.bars.DailyBars(ctx, symbol, lookbackDays)
	if err != nil {
		return fmt.Errorf("refdata: fetch daily bars for %s: %w", symbol, err)
	}

	history := make([]float64, 0, len(daily))
	for _, bar := range daily {
		history = append(history, float64(bar.TradeCount))
	}
	if len(history) == 0 {
		return nil
	}

	pipeline.SeedTradeBaseline(symbol, history)
	return nil
}

// SeedSlotBaseline fetches symbol's historical per-slot volume samples
// and seeds the pipeline's RVOL baseline from them.
func (s *Seeder) SeedSlotBaseline(ctx context.Context, pipeline *enrich.Pipeline, symbol string, lookbackDays int) error {
	if s.slots == nil {
		return nil
	}

	bySlot, err := s.slots.SlotVolumes(ctx, symbol, lookbackDays)
	if err != nil {
		return fmt.Errorf("refdata: fetch slot volumes for %s: %w", symbol, err)
	}

	for slot, volumes := range bySlot {
		for _, v := range volumes {
			pipeline.SeedSlotBaseline(slot, v)
		}
	}
	return nil
}

// SeedAll runs every applicable seeding step for symbol, logging but
// not failing the whole batch on a single symbol's error.
func (s *Seeder) SeedAll(ctx context.Context, pipeline *enrich.Pipeline, symbol string, atrPeriod, lookbackDays int) {
	if atr, err := s.SeedATR(ctx, symbol, atrPeriod); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("refdata: atr seed failed")
	} else if atr != nil {
		pipeline.SeedATRBaseline(symbol, *atr)
	}
	if err := s.SeedTradeBaseline(ctx, pipeline, symbol, lookbackDays); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("refdata: trade baseline seed failed")
	}
	if err := s.SeedSlotBaseline(ctx, pipeline, symbol, lookbackDays); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("refdata: slot baseline seed failed")
	}
}
