package store

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"

	cachekeys "signalpilot/internal/cache"
	"signalpilot/pkg/ledger"
)

// CooldownStore mirrors cooldown ledger entries into a Redis hash so a
// restarted process does not re-dispatch signals still inside their window.
// Entries are msgpack-encoded and keyed by signal id.
type CooldownStore struct {
	rds *redis.Redis
}

// NewCooldownStore wires the Redis client.
func NewCooldownStore(rds *redis.Redis) *CooldownStore {
	return &CooldownStore{rds: rds}
}

// SaveEntry upserts the entry for one signal id. Persistence failures are
// reported to the caller; the in-memory ledger remains the source of truth
// within a process lifetime.
func (c *CooldownStore) SaveEntry(ctx context.Context, entry ledger.Entry) error {
	if c == nil || c.rds == nil {
		return nil
	}
	payload, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cooldown entry %s: %w", entry.SignalID, err)
	}
	if err := c.rds.HsetCtx(ctx, cachekeys.CooldownHashKey(), entry.SignalID, string(payload)); err != nil {
		return fmt.Errorf("persist cooldown entry %s: %w", entry.SignalID, err)
	}
	return nil
}

// Load returns all persisted entries still inside the window. Expired and
// undecodable fields are dropped, the latter with a warning, so one bad
// record cannot block startup.
func (c *CooldownStore) Load(ctx context.Context, window time.Duration, now time.Time) ([]ledger.Entry, error) {
	if c == nil || c.rds == nil {
		return nil, nil
	}
	fields, err := c.rds.HgetallCtx(ctx, cachekeys.CooldownHashKey())
	if err != nil {
		return nil, fmt.Errorf("load cooldown entries: %w", err)
	}

	entries := make([]ledger.Entry, 0, len(fields))
	var expired []string
	for signalID, raw := range fields {
		var entry ledger.Entry
		if err := msgpack.Unmarshal([]byte(raw), &entry); err != nil {
			logx.WithContext(ctx).Errorf("decode cooldown entry %s: %v", signalID, err)
			continue
		}
		if window > 0 && now.Sub(entry.LastExecutedAt) >= window {
			expired = append(expired, signalID)
			continue
		}
		entries = append(entries, entry)
	}

	if len(expired) > 0 {
		if _, err := c.rds.HdelCtx(ctx, cachekeys.CooldownHashKey(), expired...); err != nil {
			logx.WithContext(ctx).Errorf("prune persisted cooldown entries: %v", err)
		}
	}
	return entries, nil
}
