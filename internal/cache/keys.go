package cache

import (
	"strings"
	"time"

	"signalpilot/internal/config"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "pilot"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// SettingsKey holds the cached risk-settings payload.
func SettingsKey() string {
	return formatKey("settings")
}

// CooldownHashKey is the Redis hash carrying cooldown ledger entries keyed by
// signal id.
func CooldownHashKey() string {
	return formatKey("cooldown")
}

// GuardStateKey stores the last guard snapshot for inspection.
func GuardStateKey() string {
	return formatKey("guard", "state")
}

// CycleSeqKey is the counter behind per-cycle sequence numbers.
func CycleSeqKey() string {
	return formatKey("cycle", "seq")
}
