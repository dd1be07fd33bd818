// Package store wraps the Redis client the enrichment pipeline and
// RETE manager share: the enriched-ticker hash, the last-close hash,
// the RVOL slot hash, and the pub/sub channels that drive hot-reload
// and session-rollover events (spec §5, §8, §10).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nofendian17/marketscanner/internal/scanerr"
)

// Redis key and TTL constants for the shared snapshot hashes.
const (
	SnapshotEnrichedHash  = "snapshot:enriched:latest"
	SnapshotEnrichedMeta  = "__meta__"
	SnapshotLastCloseHash = "snapshot:enriched:last_close"
	RVOLCurrentSlotHash   = "rvol:current_slot"

	SnapshotEnrichedTTL  = 600 * time.Second
	SnapshotLastCloseTTL = 7 * 24 * time.Hour
	RVOLCurrentSlotTTL   = 300 * time.Second
)

// Pub/sub channel names.
const (
	ChannelRulesChanged   = "scanner:rules:changed"
	ChannelDayChanged     = "scanner:day:changed"
	ChannelSessionChanged = "scanner:session:changed"
)

// Client wraps a redis.Client with the hash/pubsub operations the
// scanner needs, consistent with the teacher's thin-wrapper style.
type Client struct {
	raw *redis.Client
}

// NewClient dials Redis at host:port and verifies connectivity.
func NewClient(host, port, password string) (*Client, error) {
	addr := fmt.Sprintf("%s:%s", host, port)
	raw := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, scanerr.WrapStoreError("redis.Ping", err)
	}

	log.Info().Str("addr", addr).Msg("connected to redis")
	return &Client{raw: raw}, nil
}

// Raw exposes the underlying client for callers (e.g. the RETE
// manager's pub/sub listener) that need operations this wrapper
// doesn't cover.
func (c *Client) Raw() *redis.Client { return c.raw }

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.raw.Close()
}

// HSetChanged writes the changed-ticker mapping plus a metadata field
// to hash in one pipelined call and refreshes its TTL, mirroring the
// enrichment pipeline's incremental-write contract (spec §5).
func (c *Client) HSetChanged(ctx context.Context, hash string, changed map[string]string, meta string, ttl time.Duration) error {
	pipe := c.raw.Pipeline()

	if len(changed) > 0 {
		fields := make(map[string]any, len(changed))
		for k, v := range changed {
			fields[k] = v
		}
		pipe.HSet(ctx, hash, fields)
	}
	pipe.HSet(ctx, hash, SnapshotEnrichedMeta, meta)
	pipe.Expire(ctx, hash, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return scanerr.WrapStoreError("HSetChanged", err)
	}
	return nil
}

// CopyHash overwrites dst with the entire contents of src and sets
// dst's TTL, used to snapshot the enriched hash into the last-close
// hash on session rollover.
func (c *Client) CopyHash(ctx context.Context, src, dst string, ttl time.Duration) error {
	all, err := c.raw.HGetAll(ctx, src).Result()
	if err != nil {
		return scanerr.WrapStoreError("CopyHash.HGetAll", err)
	}
	if len(all) == 0 {
		return nil
	}

	fields := make(map[string]any, len(all))
	for k, v := range all {
		fields[k] = v
	}

	pipe := c.raw.Pipeline()
	pipe.Del(ctx, dst)
	pipe.HSet(ctx, dst, fields)
	pipe.Expire(ctx, dst, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return scanerr.WrapStoreError("CopyHash.Exec", err)
	}
	return nil
}

// HSetRVOL writes the current-slot RVOL mapping and refreshes its TTL.
func (c *Client) HSetRVOL(ctx context.Context, mapping map[string]string) error {
	if len(mapping) == 0 {
		return nil
	}
	fields := make(map[string]any, len(mapping))
	for k, v := range mapping {
		fields[k] = v
	}

	pipe := c.raw.Pipeline()
	pipe.HSet(ctx, RVOLCurrentSlotHash, fields)
	pipe.Expire(ctx, RVOLCurrentSlotHash, RVOLCurrentSlotTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return scanerr.WrapStoreError("HSetRVOL", err)
	}
	return nil
}

// Publish publishes message to channel.
func (c *Client) Publish(ctx context.Context, channel string, message []byte) error {
	if err := c.raw.Publish(ctx, channel, message).Err(); err != nil {
		return scanerr.WrapStoreError("Publish", err)
	}
	return nil
}

// Subscribe subscribes to channel and returns the underlying PubSub.
func (c *Client) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.raw.Subscribe(ctx, channel)
}

// Get retrieves a raw string value by key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.raw.Get(ctx, key).Result()
	if err != nil {
		return "", scanerr.WrapStoreError("Get", err)
	}
	return val, nil
}
