// Package delta fans scan-rule matches out to subscribers: in-process
// SSE clients grouped by channel (one per system category or user scan
// rule), mirrored to Redis pub/sub in msgpack form so other processes
// can subscribe to the same channel (spec §10).
package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/nofendian17/marketscanner/internal/store"
)

// Delta is one rule-match fanout event. A "delta" event carries the
// incremental added/removed/updated symbols since the channel's
// previous publish; a synthetic "initial" event (sent once per new
// subscriber) carries the full current match set instead (spec §4.8).
type Delta struct {
	Channel string   `json:"channel" msgpack:"channel"`
	Type    string   `json:"type" msgpack:"type"`
	Added   []string `json:"added,omitempty" msgpack:"added,omitempty"`
	Removed []string `json:"removed,omitempty" msgpack:"removed,omitempty"`
	Updated []string `json:"updated,omitempty" msgpack:"updated,omitempty"`
	Symbols []string `json:"symbols,omitempty" msgpack:"symbols,omitempty"`
}

// Publisher owns one SSE client registry per fanout channel and
// mirrors every publish to Redis so cross-process subscribers (e.g. a
// websocket gateway on another node) observe the same deltas.
type Publisher struct {
	redis *store.Client

	mu       sync.RWMutex
	channels map[string]*channelHub
}

// channelHub is the set of locally connected SSE clients for one
// fanout channel, generalized from the teacher's single-channel SSE
// broker (spec §10 requires one hub per category/user rule, not one
// global hub).
type channelHub struct {
	mu      sync.RWMutex
	clients map[chan []byte]bool
	current map[string]struct{} // current full match set, for diffing and the initial event
}

func newChannelHub() *channelHub {
	return &channelHub{clients: make(map[chan []byte]bool)}
}

// diff replaces the hub's tracked match set with symbols and returns
// the added/removed symbols plus, among symbols present in both sets,
// those also present in changed (still-matching tickers whose
// underlying data changed this cycle).
func (h *channelHub) diff(symbols []string, changed map[string]struct{}) (added, removed, updated []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		next[s] = struct{}{}
	}

	for s := range next {
		if _, existed := h.current[s]; !existed {
			added = append(added, s)
		} else if _, isChanged := changed[s]; isChanged {
			updated = append(updated, s)
		}
	}
	for s := range h.current {
		if _, stillMatches := next[s]; !stillMatches {
			removed = append(removed, s)
		}
	}

	h.current = next
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(updated)
	return added, removed, updated
}

// snapshot returns the hub's current full match set, sorted, for the
// synthetic "initial" event sent to a newly registered client.
func (h *channelHub) snapshot() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.current))
	for s := range h.current {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (h *channelHub) register() chan []byte {
	client := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	return client
}

func (h *channelHub) unregister(client chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client)
	}
}

func (h *channelHub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client <- msg:
		default:
			// drop rather than block a slow subscriber
		}
	}
}

func (h *channelHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// New constructs a Publisher. redis may be nil to run purely
// in-process (tests, single-instance dev mode).
func New(redis *store.Client) *Publisher {
	return &Publisher{
		redis:    redis,
		channels: make(map[string]*channelHub),
	}
}

func (p *Publisher) hub(channel string) *channelHub {
	p.mu.RLock()
	h, ok := p.channels[channel]
	p.mu.RUnlock()
	if ok {
		return h
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.channels[channel]; ok {
		return h
	}
	h = newChannelHub()
	p.channels[channel] = h
	return h
}

// redisChannel maps a fanout channel name to its mirrored Redis
// pub/sub channel.
func redisChannel(channel string) string {
	return fmt.Sprintf("scanner:delta:%s", channel)
}

// Publish computes the added/removed/updated symbols for channel
// since its previous publish (diffed against symbols, the channel's
// new full match set) and broadcasts that delta to every locally
// registered SSE client, mirroring it to Redis pub/sub as msgpack so
// other processes can subscribe too. changed is the set of symbols
// whose underlying data changed this cycle (from the enrichment
// ChangeDetector); it is used to infer "updated" among tickers that
// still match (spec §4.8).
func (p *Publisher) Publish(ctx context.Context, channel string, symbols []string, changed map[string]struct{}) {
	hub := p.hub(channel)
	added, removed, updated := hub.diff(symbols, changed)
	if len(added) == 0 && len(removed) == 0 && len(updated) == 0 {
		return
	}

	d := Delta{Channel: channel, Type: "delta", Added: added, Removed: removed, Updated: updated}

	jsonBytes, err := json.Marshal(d)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to marshal delta for sse")
	} else {
		hub.broadcast(jsonBytes)
	}

	if p.redis == nil {
		return
	}
	packed, err := msgpack.Marshal(d)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to marshal delta for redis mirror")
		return
	}
	if err := p.redis.Publish(ctx, redisChannel(channel), packed); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to publish delta to redis")
	}
}

// ServeHTTP handles an SSE subscription for one channel, identified by
// the "channel" query parameter.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "missing channel query parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	connID := uuid.New().String()
	hub := p.hub(channel)
	client := hub.register()
	defer hub.unregister(client)

	log.Info().Str("channel", channel).Str("conn_id", connID).Msg("sse client connected")
	defer log.Info().Str("channel", channel).Str("conn_id", connID).Msg("sse client disconnected")

	initial := Delta{Channel: channel, Type: "initial", Symbols: hub.snapshot()}
	if initialBytes, err := json.Marshal(initial); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to marshal initial delta")
	} else {
		fmt.Fprintf(w, "data: %s\n\n", initialBytes)
		flusher.Flush()
	}

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case msg, ok := <-client:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Stats summarizes fanout activity for the status endpoint.
type Stats struct {
	ChannelClientCounts map[string]int
}

// GetStats reports the number of locally connected SSE clients per
// channel.
func (p *Publisher) GetStats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	counts := make(map[string]int, len(p.channels))
	for name, hub := range p.channels {
		counts[name] = hub.clientCount()
	}
	return Stats{ChannelClientCounts: counts}
}
