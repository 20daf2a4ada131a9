package store

import (
	"strings"
	"time"

	"github.com/andresuchdata/salesledger/internal/config"
)

// CachePolicy decides whether a cached snapshot loaded at loadedAt is still usable.
type CachePolicy interface {
	Fresh(loadedAt, now time.Time) bool
}

type ttlPolicy struct {
	ttl time.Duration
}

// TTLPolicy expires cached snapshots after d.
func TTLPolicy(d time.Duration) CachePolicy {
	return ttlPolicy{ttl: d}
}

func (p ttlPolicy) Fresh(loadedAt, now time.Time) bool {
	return now.Sub(loadedAt) < p.ttl
}

type manualPolicy struct{}

// ManualPolicy keeps snapshots until Invalidate is called.
func ManualPolicy() CachePolicy {
	return manualPolicy{}
}

func (manualPolicy) Fresh(time.Time, time.Time) bool { return true }

func PolicyFromConfig(cfg config.StoreConfig) CachePolicy {
	if strings.EqualFold(cfg.CachePolicy, "ttl") && cfg.CacheTTLSeconds > 0 {
		return TTLPolicy(cfg.CacheTTL())
	}
	return ManualPolicy()
}
