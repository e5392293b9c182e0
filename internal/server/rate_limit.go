package server

import (
	"fmt"
	"math"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// Admission control happens before parsing: a packet that fails the
// rate check costs one map lookup, not a full decode. Three token
// buckets stack on top of each other:
//
//   - global: one bucket for the whole server
//   - prefix: one bucket per /24 (IPv4) or /64 (IPv6)
//   - ip:     one bucket per source address
//
// A query passes only if all three have a token. The prefix tier is
// what blunts spoofed floods that rotate addresses inside one network.

// RateLimiter stacks the global, prefix and per-IP buckets.
type RateLimiter struct {
	global *TokenBucketRateLimiter
	prefix *TokenBucketRateLimiter
	ip     *TokenBucketRateLimiter
}

// RateLimitSettings carries the limiter knobs from configuration.
// A tier with rate or burst <= 0 is disabled.
type RateLimitSettings struct {
	CleanupSeconds   float64
	MaxIPEntries     int
	MaxPrefixEntries int
	GlobalQPS        float64
	GlobalBurst      int
	PrefixQPS        float64
	PrefixBurst      int
	IPQPS            float64
	IPBurst          int
}

// NewRateLimiter builds the three-tier limiter from settings.
func NewRateLimiter(s RateLimitSettings) *RateLimiter {
	cleanup := time.Duration(math.Max(0.0, s.CleanupSeconds) * float64(time.Second))
	if cleanup <= 0 {
		cleanup = 60 * time.Second
	}

	return &RateLimiter{
		global: NewTokenBucketRateLimiter(TokenBucketConfig{
			Rate: s.GlobalQPS, Burst: s.GlobalBurst, CleanupInterval: cleanup, MaxEntries: 1,
		}),
		prefix: NewTokenBucketRateLimiter(TokenBucketConfig{
			Rate: s.PrefixQPS, Burst: s.PrefixBurst, CleanupInterval: cleanup, MaxEntries: s.MaxPrefixEntries,
		}),
		ip: NewTokenBucketRateLimiter(TokenBucketConfig{
			Rate: s.IPQPS, Burst: s.IPBurst, CleanupInterval: cleanup, MaxEntries: s.MaxIPEntries,
		}),
	}
}

// Allow reports whether a query from srcIP may proceed. Tiers are
// checked global first so a saturated server stops paying for prefix
// key derivation.
func (r *RateLimiter) Allow(srcIP string) bool {
	if r == nil {
		return true
	}
	if !r.global.Allow("*") {
		return false
	}
	if !r.prefix.Allow(prefixKey(srcIP)) {
		return false
	}
	return r.ip.Allow(srcIP)
}

// AllowAddr is Allow for callers that already hold a parsed address,
// sparing the string round-trip on the prefix tier.
func (r *RateLimiter) AllowAddr(ip netip.Addr) bool {
	if r == nil {
		return true
	}
	if !r.global.Allow("*") {
		return false
	}
	if !r.prefix.Allow(prefixKeyFromAddr(ip)) {
		return false
	}
	return r.ip.Allow(ip.String())
}

// prefixKeyFromAddr derives the same keys as prefixKey so both entry
// points share buckets.
func prefixKeyFromAddr(ip netip.Addr) string {
	if ip.Is4() {
		pfx, _ := ip.Prefix(24)
		return "v4:" + pfx.String()
	}
	pfx, _ := ip.Prefix(64)
	return "v6:" + pfx.String()
}

// prefixKey maps a source address string to its network bucket key,
// /24 for IPv4 and /64 for IPv6.
func prefixKey(ip string) string {
	if strings.IndexByte(ip, ':') >= 0 {
		if addr, err := netip.ParseAddr(ip); err == nil {
			if pfx, err := addr.Prefix(64); err == nil {
				return "v6:" + pfx.String()
			}
		}
		return "v6:" + ip
	}
	// Dotted quad: replace the last octet without parsing.
	if strings.Count(ip, ".") == 3 {
		return "v4:" + ip[:strings.LastIndexByte(ip, '.')] + ".0/24"
	}
	return "ip:" + ip
}

// FormatRateLimitsLog renders the effective settings for the startup log.
func FormatRateLimitsLog(s RateLimitSettings) string {
	tier := func(name string, rate float64, burst int) string {
		if rate <= 0.0 || burst <= 0 {
			return name + "=disabled"
		}
		return fmt.Sprintf("%s=%gqps/%d", name, rate, burst)
	}

	return fmt.Sprintf(
		"%s %s %s cleanup_s=%g max_ip=%d max_prefix=%d",
		tier("global", s.GlobalQPS, s.GlobalBurst),
		tier("prefix", s.PrefixQPS, s.PrefixBurst),
		tier("ip", s.IPQPS, s.IPBurst),
		s.CleanupSeconds,
		s.MaxIPEntries,
		s.MaxPrefixEntries,
	)
}

// TokenBucketConfig configures one bucket tier.
type TokenBucketConfig struct {
	Rate            float64       // Tokens replenished per second
	Burst           int           // Bucket capacity
	CleanupInterval time.Duration // How often stale keys are swept
	MaxEntries      int           // Hard cap on tracked keys
}

// tokenBucket is the per-key state: the current fill and when it was
// last touched.
type tokenBucket struct {
	tokens float64
	last   time.Time
}

// TokenBucketRateLimiter meters keys with the token bucket algorithm:
// every key owns a bucket holding up to burst tokens, refilled at rate
// tokens per second, and each admitted query drains one. Short bursts
// pass; the sustained rate converges on the configured rate.
//
// The key map is capped at MaxEntries. When full, unknown keys are
// denied until a sweep frees room, so an address-rotating flood cannot
// grow the map without bound.
type TokenBucketRateLimiter struct {
	rate            float64
	burst           float64
	cleanupInterval time.Duration
	maxEntries      int

	mu          sync.Mutex
	lastCleanup time.Time
	buckets     map[string]*tokenBucket
}

// NewTokenBucketRateLimiter builds a limiter; MaxEntries floors at 1
// and CleanupInterval defaults to a minute.
func NewTokenBucketRateLimiter(cfg TokenBucketConfig) *TokenBucketRateLimiter {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1
	}
	ci := cfg.CleanupInterval
	if ci <= 0 {
		ci = 60 * time.Second
	}
	return &TokenBucketRateLimiter{
		rate:            cfg.Rate,
		burst:           float64(cfg.Burst),
		cleanupInterval: ci,
		maxEntries:      maxEntries,
		lastCleanup:     time.Now(),
		buckets:         map[string]*tokenBucket{},
	}
}

// Allow takes one token from key's bucket, reporting false when the
// bucket is empty. A limiter with rate or burst <= 0 admits everything.
func (l *TokenBucketRateLimiter) Allow(key string) bool {
	if l == nil || l.rate <= 0.0 || l.burst <= 0.0 {
		return true
	}

	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) > l.cleanupInterval {
		l.evictStaleLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxEntries {
			l.evictStaleLocked(now)
			if len(l.buckets) >= l.maxEntries {
				return false
			}
		}
		// New keys start with a full bucket, minus this query.
		l.buckets[key] = &tokenBucket{tokens: l.burst - 1.0, last: now}
		return true
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.burst, b.tokens+elapsed*l.rate)
	}
	b.last = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// evictStaleLocked drops keys idle for longer than the cleanup
// interval. Caller holds l.mu.
func (l *TokenBucketRateLimiter) evictStaleLocked(now time.Time) {
	cutoff := now.Add(-l.cleanupInterval)
	for k, b := range l.buckets {
		if !b.last.After(cutoff) {
			delete(l.buckets, k)
		}
	}
	l.lastCleanup = now
}
