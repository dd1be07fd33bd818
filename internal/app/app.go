// Package app wires every scanner component together and owns the
// process lifecycle, mirroring the teacher's App.Start orchestration
// style: connect dependencies in order, start each long-running
// component in its own goroutine, then block on an interrupt signal
// and shut down gracefully within a timeout.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nofendian17/marketscanner/internal/config"
	"github.com/nofendian17/marketscanner/internal/delta"
	"github.com/nofendian17/marketscanner/internal/enrich"
	"github.com/nofendian17/marketscanner/internal/events"
	"github.com/nofendian17/marketscanner/internal/indicators"
	"github.com/nofendian17/marketscanner/internal/ingest"
	"github.com/nofendian17/marketscanner/internal/refdata"
	"github.com/nofendian17/marketscanner/internal/rete"
	"github.com/nofendian17/marketscanner/internal/rulesdb"
	"github.com/nofendian17/marketscanner/internal/statusapi"
	"github.com/nofendian17/marketscanner/internal/store"
	"github.com/nofendian17/marketscanner/internal/ticker"
)

// App owns every long-lived scanner component.
type App struct {
	config *config.Config

	redis    *store.Client
	rulesRepo *rulesdb.Repository
	states   *ticker.Store

	pipeline    *enrich.Pipeline
	manager     *rete.Manager
	publisher   *delta.Publisher
	eventSource *events.Source
	feed        *ingest.Feed
	seeder      *refdata.Seeder

	metrics      *statusapi.Metrics
	statusServer *statusapi.Server
	httpServer   *http.Server
}

// New creates an application instance. Dependencies that require I/O
// (database, Redis) are connected in Start, not here, so constructing
// an App never fails.
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Start connects every dependency, starts the background loops, and
// blocks until an interrupt signal triggers a graceful shutdown.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("🧠 Connecting to Redis...")
	redisClient, err := store.NewClient(a.config.RedisHost, a.config.RedisPort, a.config.RedisPassword)
	if err != nil {
		fmt.Printf("⚠️  Redis connection failed, continuing without shared state: %v\n", err)
	} else {
		a.redis = redisClient
	}

	fmt.Println("🗄️  Connecting to rules database...")
	if err := a.connectRulesDB(); err != nil {
		fmt.Printf("⚠️  Rules database unavailable, user-defined rules disabled: %v\n", err)
	}

	a.states = ticker.NewStore()

	slotManager, err := newSlotManager(a.config.Scanner)
	if err != nil {
		return fmt.Errorf("app: slot manager: %w", err)
	}

	a.metrics = statusapi.NewMetrics()

	a.pipeline = enrich.New(a.redis, a.states, slotManager, nil)
	a.manager = rete.NewManager(a.redis, a.rulesRepo)
	a.publisher = delta.New(a.redis)
	a.eventSource = events.NewSource(a.redis)

	// Historical daily-bar and slot-volume vendor clients are out of
	// scope here (the same seam left nil for ticker.ReferenceLookup
	// above); refdata.Seeder tolerates nil sources and simply skips
	// seeding until one is supplied.
	a.seeder = refdata.NewSeeder(nil, nil)

	a.pipeline.OnChanged(a.handleChangedTickers)

	fmt.Println("⚙️  Compiling rule network...")
	if err := a.manager.Initialize(ctx); err != nil {
		return fmt.Errorf("app: rule network init failed: %w", err)
	}
	fmt.Println("✅ Rule network compiled!")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.eventSource.Listen(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.consumeEvents(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.pipeline.RunLoop(ctx); err != nil {
			log.Error().Err(err).Msg("enrichment pipeline exited")
		}
	}()

	if a.config.RawSnapshotSourceURL != "" {
		a.feed = ingest.NewFeed(a.config.RawSnapshotSourceURL, "", a.redis)
		if err := a.feed.Connect(); err != nil {
			fmt.Printf("⚠️  Raw snapshot feed unavailable, relying on externally-populated Redis: %v\n", err)
			a.feed = nil
		} else {
			fmt.Println("✅ Raw snapshot feed connected!")
			a.feed.StartPing(25 * time.Second)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := a.feed.RunLoop(ctx); err != nil {
					log.Error().Err(err).Msg("raw snapshot feed exited")
				}
			}()
		}
	}

	a.statusServer = statusapi.NewServer(a.pipeline, a.manager, a.publisher)
	a.httpServer = &http.Server{
		Addr:    a.config.StatusAddr,
		Handler: a.routes(),
	}
	go func() {
		fmt.Printf("🌐 Status/delta server listening on %s\n", a.config.StatusAddr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status/delta server failed")
		}
	}()

	err = a.gracefulShutdown(cancel)
	wg.Wait()
	return err
}

// routes mounts the status/metrics endpoints alongside the SSE delta
// stream on one mux.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", a.statusServer.Handler())
	mux.HandleFunc("/stream", a.publisher.ServeHTTP)
	return mux
}

// connectRulesDB opens the Postgres connection used for user-defined
// scan rules and ensures its schema exists.
func (a *App) connectRulesDB() error {
	dbPort := a.config.DatabasePort

	repo, err := rulesdb.Open(rulesdb.Config{
		Host:     a.config.DatabaseHost,
		Port:     dbPort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	})
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(); err != nil {
		return err
	}
	a.rulesRepo = repo
	return nil
}

// handleChangedTickers evaluates every changed ticker against the
// rule network and publishes the resulting match sets, the bridge
// between the enrichment cycle and rule-driven fanout (spec §6, §7).
func (a *App) handleChangedTickers(changed map[string]*ticker.Ticker) {
	if len(changed) == 0 {
		return
	}

	tickers := make([]*ticker.Ticker, 0, len(changed))
	for _, t := range changed {
		tickers = append(tickers, t)
	}

	a.metrics.TickersEnriched.Add(float64(len(tickers)))
	a.metrics.EnrichmentCycles.Inc()

	batch := a.manager.EvaluateBatch(tickers)
	a.metrics.RuleEvaluations.Add(float64(len(tickers)))
	a.metrics.RuleMatches.Add(float64(countMatches(batch)))

	changedSet := make(map[string]struct{}, len(changed))
	for symbol := range changed {
		changedSet[symbol] = struct{}{}
	}

	ctx := context.Background()
	for _, ruleID := range orderedChannels(batch) {
		matched := batch[ruleID]
		symbols := make([]string, 0, len(matched))
		for _, t := range matched {
			symbols = append(symbols, t.Symbol)
		}
		channel := ruleID
		if mapped, ok := rete.CategoryToChannel[ruleID]; ok {
			channel = mapped
		}
		a.publisher.Publish(ctx, channel, symbols, changedSet)
	}
}

// orderedChannels returns batch's channel IDs in publication order:
// system categories first in lexical order, then user rule IDs
// ("user:<ownerID>:scan:<filterID>") grouped by owner id and, within
// an owner, ordered by scan id; both ids are compared as strings
// (spec §4.8).
func orderedChannels(batch map[string][]*ticker.Ticker) []string {
	var system, user []string
	for ruleID := range batch {
		if strings.HasPrefix(ruleID, "category:") {
			system = append(system, ruleID)
		} else {
			user = append(user, ruleID)
		}
	}
	sort.Strings(system)
	sort.Slice(user, func(i, j int) bool {
		a := strings.SplitN(user[i], ":", 4)
		b := strings.SplitN(user[j], ":", 4)
		if len(a) == 4 && len(b) == 4 && a[1] != b[1] {
			return a[1] < b[1]
		}
		return user[i] < user[j]
	})
	return append(system, user...)
}

func countMatches(batch map[string][]*ticker.Ticker) int {
	total := 0
	for _, matched := range batch {
		total += len(matched)
	}
	return total
}

// consumeEvents reacts to day/session rollover events: a new day wipes
// the change detector and ticker state so the next cycle force-writes
// everything fresh, and the end of the regular session snapshots the
// enriched hash into the last-close hash that gap calculations read
// from the next morning.
func (a *App) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case kind, ok := <-a.eventSource.Events():
			if !ok {
				return
			}
			switch kind {
			case events.DayChanged:
				log.Info().Msg("trading day changed, resetting pipeline state")
				a.pipeline.ClearChangeDetector()
				a.states.ResetAll()
				go a.reseedBaselines(ctx)
			case events.SessionChanged:
				log.Info().Msg("regular session ended, snapshotting last close")
				if err := a.pipeline.WriteLastCloseSnapshot(ctx); err != nil {
					log.Error().Err(err).Msg("failed to write last-close snapshot")
				}
			}
		}
	}
}

// reseedBaselines refreshes ATR, trade-count, and RVOL baselines for
// every symbol the pipeline currently tracks, once per trading day
// (spec §4.2's historical-baseline detectors go stale without this).
func (a *App) reseedBaselines(ctx context.Context) {
	symbols := a.states.Symbols()
	if len(symbols) == 0 {
		return
	}
	log.Info().Int("symbols", len(symbols)).Msg("reseeding historical baselines")
	for _, symbol := range symbols {
		a.seeder.SeedAll(ctx, a.pipeline, symbol, a.config.Scanner.ATRPeriod, a.config.Scanner.RefDataLookbackDays)
	}
}

// gracefulShutdown waits for an interrupt signal, then tears down
// every component within a bounded timeout.
func (a *App) gracefulShutdown(cancel context.CancelFunc) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		a.manager.Stop()

		if a.feed != nil {
			fmt.Println("📡 Closing raw snapshot feed...")
			if err := a.feed.Close(); err != nil {
				log.Error().Err(err).Msg("error closing raw snapshot feed")
			}
		}

		if a.httpServer != nil {
			fmt.Println("🌐 Closing status/delta server...")
			_ = a.httpServer.Shutdown(shutdownCtx)
		}

		if a.rulesRepo != nil {
			fmt.Println("🗄️  Closing rules database connection...")
			if err := a.rulesRepo.Close(); err != nil {
				log.Error().Err(err).Msg("error closing rules database")
			}
		}

		if a.redis != nil {
			fmt.Println("🧠 Closing Redis connection...")
			if err := a.redis.Close(); err != nil {
				log.Error().Err(err).Msg("error closing redis")
			}
		}

		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}

func newSlotManager(cfg config.ScannerConfig) (*indicators.SlotManager, error) {
	return indicators.NewSlotManager(cfg.MarketTimezone, cfg.RVOLSlotWidth, cfg.SessionStartOffset, cfg.SessionEndOffset)
}
