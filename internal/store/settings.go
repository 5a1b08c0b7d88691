// Package store provides the Postgres and Redis collaborators behind the
// in-process settings and cooldown state.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "signalpilot/internal/cache"
	"signalpilot/pkg/settings"
)

// SettingsStore persists the shared risk settings in Postgres as a single
// versioned row, with a Redis read-through cache in front.
type SettingsStore struct {
	conn  sqlx.SqlConn
	cache gocache.Cache
	ttl   cachekeys.TTLSet
}

var _ settings.Store = (*SettingsStore)(nil)

// NewSettingsStore wires the Postgres connection and optional cache.
func NewSettingsStore(conn sqlx.SqlConn, cache gocache.Cache, ttl cachekeys.TTLSet) *SettingsStore {
	return &SettingsStore{conn: conn, cache: cache, ttl: ttl}
}

type settingsRow struct {
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Get returns the current settings, falling back to defaults when the row
// does not exist yet.
func (s *SettingsStore) Get(ctx context.Context) (settings.Settings, error) {
	key := cachekeys.SettingsKey()
	var cached settings.Settings
	if ok, _ := s.getCache(ctx, key, &cached); ok {
		return cached, nil
	}

	current, err := s.load(ctx)
	if err != nil {
		return settings.Settings{}, err
	}
	s.setCache(ctx, key, current)
	return current, nil
}

// Update merges the patch into the stored settings inside a transaction and
// invalidates the cache. The returned value is the post-merge snapshot.
func (s *SettingsStore) Update(ctx context.Context, patch settings.Patch) (settings.Settings, error) {
	var merged settings.Settings
	err := s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		const selectQ = `SELECT payload, updated_at FROM pilot_settings WHERE id = 1 FOR UPDATE`
		current := settings.Default()
		var row settingsRow
		switch err := session.QueryRowCtx(ctx, &row, selectQ); {
		case err == nil:
			if err := json.Unmarshal([]byte(row.Payload), &current); err != nil {
				return fmt.Errorf("decode settings payload: %w", err)
			}
		case errors.Is(err, sqlx.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			// first write seeds the row
		default:
			return fmt.Errorf("load settings: %w", err)
		}

		merged = patch.Apply(current)
		if err := merged.Validate(); err != nil {
			return err
		}

		payload, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode settings payload: %w", err)
		}
		const upsertQ = `
INSERT INTO pilot_settings (id, payload, updated_at) VALUES (1, $1, NOW())
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`
		if _, err := session.ExecCtx(ctx, upsertQ, string(payload)); err != nil {
			return fmt.Errorf("store settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return settings.Settings{}, err
	}

	s.invalidate(ctx, cachekeys.SettingsKey())
	return merged, nil
}

func (s *SettingsStore) load(ctx context.Context) (settings.Settings, error) {
	const q = `SELECT payload, updated_at FROM pilot_settings WHERE id = 1`
	var row settingsRow
	switch err := s.conn.QueryRowCtx(ctx, &row, q); {
	case err == nil:
	case errors.Is(err, sqlx.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return settings.Default(), nil
	default:
		return settings.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	current := settings.Default()
	if err := json.Unmarshal([]byte(row.Payload), &current); err != nil {
		return settings.Settings{}, fmt.Errorf("decode settings payload: %w", err)
	}
	return current, nil
}

func (s *SettingsStore) getCache(ctx context.Context, key string, v interface{}) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	if err := s.cache.GetCtx(ctx, key, v); err != nil {
		if s.cache.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SettingsStore) setCache(ctx context.Context, key string, v interface{}) {
	if s.cache == nil || s.ttl.Medium <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, v, s.ttl.Medium); err != nil {
		logx.WithContext(ctx).Errorf("set cache %s: %v", key, err)
	}
}

func (s *SettingsStore) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DelCtx(ctx, key); err != nil {
		logx.WithContext(ctx).Errorf("invalidate cache %s: %v", key, err)
	}
}
