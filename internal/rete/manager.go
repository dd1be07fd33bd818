package rete

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/nofendian17/marketscanner/internal/rulesdb"
	"github.com/nofendian17/marketscanner/internal/store"
	"github.com/nofendian17/marketscanner/internal/ticker"
)

// periodicReloadSpec runs the safety-net reload every 5 minutes, the
// maximum time a new user filter can go unnoticed if the pub/sub
// hot-reload event is ever dropped (spec §6.4).
const periodicReloadSpec = "@every 5m"

// RulesRepository is the subset of *rulesdb.Repository the rule
// network depends on: listing enabled filters for a reload and
// counting them for the periodic drift check. Declared as an
// interface (rather than depending on *rulesdb.Repository directly)
// so manager_test.go can exercise the DB-error reload path without a
// real Postgres connection.
type RulesRepository interface {
	ListEnabled(ctx context.Context) ([]rulesdb.UserScannerFilter, error)
	CountEnabled(ctx context.Context) (int64, error)
}

// Manager owns the live Network and the machinery that keeps it in
// sync with the rules database: immediate hot-reload via Redis
// pub/sub, and a periodic safety-net reload as a fallback. Evaluators
// read the Network through a pointer swapped atomically, so a reload
// in progress never exposes a half-built graph (spec §6.4).
type Manager struct {
	network atomic.Pointer[Network]

	redis     *store.Client
	rulesRepo RulesRepository

	reloadMu    sync.Mutex
	lastCompile time.Time

	activeUsersMu sync.RWMutex
	activeUsers   map[string]struct{}

	totalEvaluations atomic.Int64
	totalMatches     atomic.Int64

	cronSched *cron.Cron
}

// NewManager constructs a Manager with an empty network. Call
// Initialize to perform the first compile and start the background
// reload machinery. rulesRepo may be a nil *rulesdb.Repository to run
// with system rules only; it is only installed when non-nil so
// m.rulesRepo stays a true nil interface rather than a non-nil
// interface wrapping a nil pointer.
func NewManager(redis *store.Client, rulesRepo *rulesdb.Repository) *Manager {
	m := &Manager{
		redis:       redis,
		activeUsers: make(map[string]struct{}),
	}
	if rulesRepo != nil {
		m.rulesRepo = rulesRepo
	}
	m.network.Store(NewNetwork())
	return m
}

// Initialize performs the first rule load/compile, then starts the
// pub/sub listener (if redis is configured) and the periodic
// safety-net reload (if rulesRepo is configured).
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.ReloadRules(ctx); err != nil {
		return err
	}

	if m.redis != nil {
		go m.listenForChanges(ctx)
	}
	if m.rulesRepo != nil {
		m.cronSched = cron.New()
		if _, err := m.cronSched.AddFunc(periodicReloadSpec, func() {
			m.periodicReloadCheck(ctx)
		}); err != nil {
			return err
		}
		m.cronSched.Start()
	}

	return nil
}

// Stop halts the periodic reload scheduler. The pub/sub listener
// goroutine exits when ctx is cancelled.
func (m *Manager) Stop() {
	if m.cronSched != nil {
		m.cronSched.Stop()
	}
}

// ReloadRules loads system rules plus every enabled user filter,
// compiles a fresh Network, and atomically swaps it in.
func (m *Manager) ReloadRules(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	allRules := append([]ScanRule{}, GetSystemRules()...)

	if m.rulesRepo != nil {
		userRules, err := m.loadUserRules(ctx)
		if err != nil {
			log.Error().Err(err).Msg("error loading user rules, keeping previous network intact")
			return err
		}
		allRules = append(allRules, userRules...)
	}

	compiled := CompileNetwork(allRules)
	m.network.Store(compiled)
	m.lastCompile = time.Now()

	stats := compiled.GetStats()
	log.Info().
		Int("total_rules", stats.TotalRules).
		Int("system_rules", stats.SystemRules).
		Int("user_rules", stats.UserRules).
		Int("alpha_nodes", stats.AlphaNodes).
		Int("beta_nodes", stats.BetaNodes).
		Int("terminal_nodes", stats.TerminalNodes).
		Msg("network compiled")

	return nil
}

// loadUserRules fetches every enabled user_scanner_filters row and
// converts it to a ScanRule, skipping rows whose parameters produce
// no conditions.
func (m *Manager) loadUserRules(ctx context.Context) ([]ScanRule, error) {
	filters, err := m.rulesRepo.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	rules := make([]ScanRule, 0, len(filters))
	for _, f := range filters {
		rule, err := UserFilterToScanRule(
			strconv.FormatInt(f.ID, 10),
			f.UserID,
			f.Name,
			f.Enabled,
			f.Priority,
			rulesdb.JSONMap(f.Parameters),
		)
		if err != nil {
			log.Warn().Err(err).Int64("filter_id", f.ID).Str("user_id", f.UserID).
				Msg("skipping invalid user rule row")
			continue
		}
		rules = append(rules, rule)
	}

	log.Info().Int("count", len(rules)).Msg("loaded user rules")
	return rules, nil
}

// periodicReloadCheck compares the enabled-filter count in the
// database against the current network's user rule count and
// reloads only on a mismatch, the low-cost safety net against a
// dropped pub/sub notification.
func (m *Manager) periodicReloadCheck(ctx context.Context) {
	count, err := m.rulesRepo.CountEnabled(ctx)
	if err != nil {
		log.Error().Err(err).Msg("periodic reload count check failed")
		return
	}

	current := m.network.Load().UserRules
	if int(count) == current {
		return
	}

	log.Info().
		Int64("db_rules", count).
		Int("current_rules", current).
		Msg("periodic reload triggered: rule count mismatch")

	if err := m.ReloadRules(ctx); err != nil {
		log.Error().Err(err).Msg("periodic reload failed")
	}
}

// listenForChanges subscribes to the rules-changed channel and
// reloads on every notification, until ctx is cancelled.
func (m *Manager) listenForChanges(ctx context.Context) {
	pubsub := m.redis.Subscribe(ctx, store.ChannelRulesChanged)
	defer pubsub.Close()

	log.Info().Str("channel", store.ChannelRulesChanged).Msg("pubsub listener started")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			log.Info().Msg("rules changed event received")
			if err := m.ReloadRules(ctx); err != nil {
				log.Error().Err(err).Msg("reload after rules-changed event failed")
			}
		}
	}
}

// SetActiveUsers replaces the tracked set of active users.
func (m *Manager) SetActiveUsers(users []string) {
	m.activeUsersMu.Lock()
	defer m.activeUsersMu.Unlock()
	m.activeUsers = make(map[string]struct{}, len(users))
	for _, u := range users {
		m.activeUsers[u] = struct{}{}
	}
}

// AddActiveUser marks a user active.
func (m *Manager) AddActiveUser(userID string) {
	m.activeUsersMu.Lock()
	defer m.activeUsersMu.Unlock()
	m.activeUsers[userID] = struct{}{}
}

// RemoveActiveUser marks a user inactive.
func (m *Manager) RemoveActiveUser(userID string) {
	m.activeUsersMu.Lock()
	defer m.activeUsersMu.Unlock()
	delete(m.activeUsers, userID)
}

// Evaluate runs one ticker through the current network.
func (m *Manager) Evaluate(t *ticker.Ticker) map[string]bool {
	network := m.network.Load()
	if network == nil {
		return map[string]bool{}
	}

	m.totalEvaluations.Add(1)
	matches := Evaluate(t, network)

	var matchCount int64
	for _, matched := range matches {
		if matched {
			matchCount++
		}
	}
	m.totalMatches.Add(matchCount)

	return matches
}

// EvaluateBatch evaluates every ticker and groups matches by rule ID.
func (m *Manager) EvaluateBatch(tickers []*ticker.Ticker) map[string][]*ticker.Ticker {
	results := make(map[string][]*ticker.Ticker)

	for _, t := range tickers {
		matches := m.Evaluate(t)
		for ruleID, matched := range matches {
			if matched {
				results[ruleID] = append(results[ruleID], t)
			}
		}
	}

	return results
}

// SystemResults filters batch results down to system categories.
func SystemResults(batch map[string][]*ticker.Ticker) map[string][]*ticker.Ticker {
	out := make(map[string][]*ticker.Ticker)
	for ruleID, matched := range batch {
		if strings.HasPrefix(ruleID, "category:") {
			out[ruleID] = matched
		}
	}
	return out
}

// UserResults filters batch results down to one user's rules.
func UserResults(batch map[string][]*ticker.Ticker, userID string) map[string][]*ticker.Ticker {
	prefix := "user:" + userID + ":"
	out := make(map[string][]*ticker.Ticker)
	for ruleID, matched := range batch {
		if strings.HasPrefix(ruleID, prefix) {
			out[ruleID] = matched
		}
	}
	return out
}

// ManagerStats summarizes manager activity for the status endpoint.
type ManagerStats struct {
	Network          Stats
	ActiveUsers      int
	TotalEvaluations int64
	TotalMatches     int64
	LastCompile      time.Time
}

// GetStats returns a snapshot of manager + network statistics.
func (m *Manager) GetStats() ManagerStats {
	m.activeUsersMu.RLock()
	activeUsers := len(m.activeUsers)
	m.activeUsersMu.RUnlock()

	return ManagerStats{
		Network:          m.network.Load().GetStats(),
		ActiveUsers:      activeUsers,
		TotalEvaluations: m.totalEvaluations.Load(),
		TotalMatches:     m.totalMatches.Load(),
		LastCompile:      m.lastCompile,
	}
}
