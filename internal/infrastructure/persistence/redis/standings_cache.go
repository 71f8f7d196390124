package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/leaderboard"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// DefaultStandingsTTL bounds how long an unread version stays around.
const DefaultStandingsTTL = 10 * time.Minute

// Store is the key/value surface StandingsCache needs. *Cache implements it.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// StandingsCache implements leaderboard.Cache.
type StandingsCache struct {
	store   Store
	breaker *circuitbreaker.CircuitBreaker
}

// NewStandingsCache creates a StandingsCache.
func NewStandingsCache(store Store) *StandingsCache {
	return &StandingsCache{store: store}
}

// WithBreaker guards every call with cb. While the circuit is open Get is a
// miss and Set and Invalidate are skipped, so requests go straight to the
// database instead of waiting on Redis timeouts.
func (c *StandingsCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *StandingsCache {
	c.breaker = cb
	return c
}

func (c *StandingsCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	err := c.breaker.Execute(ctx, fn)
	if circuitbreaker.IsRejected(err) {
		return nil
	}
	return err
}

// StandingsKey returns the Redis key of one dataset version and month.
func StandingsKey(key leaderboard.CacheKey) string {
	return PrefixStandings + "v" + strconv.FormatInt(key.Version, 10) + ":" + key.Month
}

// Get returns the standings cached under key; a miss is (nil, nil). A
// payload stored under the key but carrying another key is a miss too.
func (c *StandingsCache) Get(ctx context.Context, key leaderboard.CacheKey) (*leaderboard.Standings, error) {
	var (
		st    leaderboard.Standings
		found bool
	)
	err := c.guard(ctx, func(ctx context.Context) error {
		err := c.store.Get(ctx, StandingsKey(key), &st)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found || st.Key() != key {
		return nil, nil
	}
	return &st, nil
}

// Set caches st under st.Key().
func (c *StandingsCache) Set(ctx context.Context, st *leaderboard.Standings, ttl time.Duration) error {
	if st == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultStandingsTTL
	}
	return c.guard(ctx, func(ctx context.Context) error {
		return c.store.Set(ctx, StandingsKey(st.Key()), st, ttl)
	})
}

// Invalidate drops every cached version.
func (c *StandingsCache) Invalidate(ctx context.Context) error {
	return c.guard(ctx, func(ctx context.Context) error {
		return c.store.DeleteByPattern(ctx, PrefixStandings+"*")
	})
}
