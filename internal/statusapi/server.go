// Package statusapi exposes the scanner's health, Prometheus metrics,
// and aggregate status endpoints, grounded on the teacher corpus's
// system-status handler style (zerolog + gopsutil CPU/RAM sampling)
// plus a standard promhttp metrics endpoint.
package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/nofendian17/marketscanner/internal/delta"
	"github.com/nofendian17/marketscanner/internal/enrich"
	"github.com/nofendian17/marketscanner/internal/rete"
)

// Metrics holds the Prometheus collectors the rest of the scanner
// updates as it runs.
type Metrics struct {
	EnrichmentCycles   prometheus.Counter
	TickersEnriched    prometheus.Counter
	RuleEvaluations    prometheus.Counter
	RuleMatches        prometheus.Counter
	EnrichmentCycleDur prometheus.Histogram
}

// NewMetrics registers and returns the scanner's Prometheus collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		EnrichmentCycles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marketscanner_enrichment_cycles_total",
			Help: "Total number of enrichment cycles that produced changed tickers.",
		}),
		TickersEnriched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marketscanner_tickers_enriched_total",
			Help: "Total number of changed ticker records passed to rule evaluation.",
		}),
		RuleEvaluations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marketscanner_rule_evaluations_total",
			Help: "Total number of tickers evaluated against the rule network.",
		}),
		RuleMatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marketscanner_rule_matches_total",
			Help: "Total number of rule matches produced.",
		}),
		EnrichmentCycleDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketscanner_enrichment_cycle_duration_seconds",
			Help:    "Wall-clock duration of a single enrichment cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Server serves /healthz, /metrics, and an aggregate /api/status
// endpoint summarizing pipeline, rule-network, and fanout activity.
type Server struct {
	pipeline  *enrich.Pipeline
	manager   *rete.Manager
	publisher *delta.Publisher
	startedAt time.Time
}

// NewServer constructs a Server. Any dependency may be nil; the
// corresponding section of the status response is simply omitted.
func NewServer(pipeline *enrich.Pipeline, manager *rete.Manager, publisher *delta.Publisher) *Server {
	return &Server{
		pipeline:  pipeline,
		manager:   manager,
		publisher: publisher,
		startedAt: time.Now(),
	}
}

// Handler builds the status API's http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

// healthResponse is the shape of /healthz.
type healthResponse struct {
	Status      string  `json:"status"`
	UptimeSec   float64 `json:"uptime_seconds"`
	CPUPercent  float64 `json:"cpu_percent"`
	RAMPercent  float64 `json:"ram_percent"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.systemStats()

	resp := healthResponse{
		Status:     "healthy",
		UptimeSec:  time.Since(s.startedAt).Seconds(),
		CPUPercent: cpuPercent,
		RAMPercent: ramPercent,
	}

	s.writeJSON(w, resp)
}

// systemStats samples CPU and RAM usage the same way the teacher's
// system-status handler does: a CPU sample that blocks for 100ms plus
// an instantaneous memory read.
func (s *Server) systemStats() (cpuPercent, ramPercent float64) {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		log.Warn().Err(err).Msg("failed to sample cpu percent")
	} else if len(percentages) > 0 {
		cpuPercent = percentages[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("failed to sample memory stats")
		return cpuPercent, 0
	}
	return cpuPercent, memStat.UsedPercent
}

// statusResponse is the shape of /api/status.
type statusResponse struct {
	UptimeSec      float64                `json:"uptime_seconds"`
	Enrichment     *enrich.Stats          `json:"enrichment,omitempty"`
	RuleNetwork    *rete.ManagerStats     `json:"rule_network,omitempty"`
	Fanout         *delta.Stats           `json:"fanout,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{UptimeSec: time.Since(s.startedAt).Seconds()}

	if s.pipeline != nil {
		stats := s.pipeline.GetStats()
		resp.Enrichment = &stats
	}
	if s.manager != nil {
		stats := s.manager.GetStats()
		resp.RuleNetwork = &stats
	}
	if s.publisher != nil {
		stats := s.publisher.GetStats()
		resp.Fanout = &stats
	}

	s.writeJSON(w, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode status api response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
