// Package events listens for the day-rollover and session-rollover
// signals that drive state resets and last-close snapshotting,
// mirroring the RETE manager's own pub/sub listener style (spec §5,
// §8).
package events

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nofendian17/marketscanner/internal/store"
)

// Kind identifies which rollover occurred.
type Kind int

const (
	// DayChanged signals a new trading day has begun: ticker state and
	// the change detector's memory must be reset.
	DayChanged Kind = iota
	// SessionChanged signals the regular session has ended: the
	// enriched hash should be snapshotted into the last-close hash.
	SessionChanged
)

func (k Kind) String() string {
	switch k {
	case DayChanged:
		return "day_changed"
	case SessionChanged:
		return "session_changed"
	default:
		return "unknown"
	}
}

// Source subscribes to the day-changed and session-changed Redis
// channels and delivers events on a single channel so one goroutine
// can drive both resets.
type Source struct {
	redis   *store.Client
	events  chan Kind
}

// NewSource constructs a Source. Call Listen to start consuming.
func NewSource(redis *store.Client) *Source {
	return &Source{
		redis:  redis,
		events: make(chan Kind, 8),
	}
}

// Events returns the channel Kind values are delivered on.
func (s *Source) Events() <-chan Kind { return s.events }

// Listen subscribes to both rollover channels and forwards messages
// onto Events until ctx is cancelled. Intended to run in its own
// goroutine, matching the RETE manager's listenForChanges shape.
func (s *Source) Listen(ctx context.Context) {
	if s.redis == nil {
		return
	}

	dayPubsub := s.redis.Subscribe(ctx, store.ChannelDayChanged)
	sessionPubsub := s.redis.Subscribe(ctx, store.ChannelSessionChanged)
	defer dayPubsub.Close()
	defer sessionPubsub.Close()

	dayCh := dayPubsub.Channel()
	sessionCh := sessionPubsub.Channel()

	log.Info().Msg("event source listening for day/session rollover")

	for {
		select {
		case <-ctx.Done():
			return
		case <-dayCh:
			log.Info().Msg("day changed event received")
			s.deliver(DayChanged)
		case <-sessionCh:
			log.Info().Msg("session changed event received")
			s.deliver(SessionChanged)
		}
	}
}

func (s *Source) deliver(k Kind) {
	select {
	case s.events <- k:
	default:
		log.Warn().Str("kind", k.String()).Msg("event source channel full, dropping event")
	}
}

// PublishDayChanged announces a trading-day rollover to every
// listening process. Used by whichever component owns the trading
// calendar (out of scope here; exposed for that caller).
func PublishDayChanged(ctx context.Context, redis *store.Client) error {
	return redis.Publish(ctx, store.ChannelDayChanged, []byte("1"))
}

// PublishSessionChanged announces the regular session has ended.
func PublishSessionChanged(ctx context.Context, redis *store.Client) error {
	return redis.Publish(ctx, store.ChannelSessionChanged, []byte("1"))
}
