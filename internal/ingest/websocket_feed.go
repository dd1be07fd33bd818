// Package ingest is the dev/reference collaborator that connects to an
// upstream raw-snapshot websocket feed and republishes it at the Redis
// key the enrichment pipeline reads from. Production deployments are
// expected to swap this for whatever vendor feed they run; this
// package exists so the scanner is runnable end-to-end without one
// (spec §2, Non-goals).
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nofendian17/marketscanner/internal/enrich"
	"github.com/nofendian17/marketscanner/internal/store"
)

// Feed connects to an upstream websocket and republishes every raw
// snapshot message it receives into Redis at enrich.RawSnapshotKey.
type Feed struct {
	url    string
	header http.Header
	redis  *store.Client

	conn       *websocket.Conn
	writeMu    sync.Mutex
	pingCancel context.CancelFunc
}

// NewFeed constructs a Feed. authToken may be empty for an
// unauthenticated upstream.
func NewFeed(url, authToken string, redis *store.Client) *Feed {
	header := make(http.Header)
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}
	header.Set("User-Agent", "marketscanner/1.0")

	return &Feed{url: url, header: header, redis: redis}
}

// Connect dials the upstream websocket.
func (f *Feed) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(f.url, f.header)
	if err != nil {
		return fmt.Errorf("ingest: failed to connect to %s: %w", f.url, err)
	}
	f.conn = conn
	log.Info().Str("url", f.url).Msg("connected to raw snapshot feed")
	return nil
}

// StartPing starts a periodic keep-alive ping to the upstream
// connection, mirroring the teacher's app-level ping loop.
func (f *Feed) StartPing(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	f.pingCancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := f.writeMessage(websocket.PingMessage, nil); err != nil {
					log.Error().Err(err).Msg("ingest: ping failed")
					return
				}
			}
		}
	}()
}

func (f *Feed) writeMessage(messageType int, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("ingest: connection is nil")
	}
	return f.conn.WriteMessage(messageType, data)
}

// RunLoop reads snapshot messages from the upstream connection and
// republishes each one to Redis until ctx is cancelled or the
// connection drops.
func (f *Feed) RunLoop(ctx context.Context) error {
	if f.conn == nil {
		return fmt.Errorf("ingest: not connected")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := f.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ingest: read message: %w", err)
		}

		var snapshot enrich.RawSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			log.Warn().Err(err).Msg("ingest: dropping malformed snapshot message")
			continue
		}

		if err := f.publish(ctx, data); err != nil {
			log.Error().Err(err).Msg("ingest: failed to publish raw snapshot")
		}
	}
}

func (f *Feed) publish(ctx context.Context, data []byte) error {
	return f.redis.Raw().Set(ctx, enrich.RawSnapshotKey, data, 0).Err()
}

// Close tears down the ping loop and the underlying connection.
func (f *Feed) Close() error {
	if f.pingCancel != nil {
		f.pingCancel()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
