package ratelimit

import (
	"sync"
	"time"
)

const (
	ActionSendMessage       = "send_message"
	ActionStartConversation = "start_conversation"
	ActionConnect           = "connect"
)

// Rule sizes a bucket: Burst tokens, one token regained every Interval.
type Rule struct {
	Burst    int
	Interval time.Duration
}

// DefaultRules cover short bursts only. The weekly cap on unverified senders
// is enforced separately from the document store.
var DefaultRules = map[string]Rule{
	ActionSendMessage:       {Burst: 10, Interval: 6 * time.Second},
	ActionStartConversation: {Burst: 5, Interval: 12 * time.Minute},
	ActionConnect:           {Burst: 20, Interval: 3 * time.Second},
}

var fallbackRule = Rule{Burst: 20, Interval: 3 * time.Second}

type TokenBucket struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	interval   time.Duration
	lastRefill time.Time
	lastUsed   time.Time
}

func NewTokenBucket(rule Rule, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     rule.Burst,
		maxTokens:  rule.Burst,
		interval:   rule.Interval,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow consumes a token if one is available. When it is not, the returned
// duration is how long until the next refill.
func (tb *TokenBucket) Allow(now time.Time) (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.lastUsed = now
	if refills := int(now.Sub(tb.lastRefill) / tb.interval); refills > 0 {
		tb.tokens += refills
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(refills) * tb.interval)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}
	return false, tb.lastRefill.Add(tb.interval).Sub(now)
}

func (tb *TokenBucket) Tokens() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens
}

func (tb *TokenBucket) idleSince(now time.Time) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return now.Sub(tb.lastUsed)
}

// RateLimiter keeps one bucket per subject and action. Subjects are user ids
// or client IPs.
type RateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*TokenBucket
	rules   map[string]Rule
	now     func() time.Time
}

func NewRateLimiter(rules map[string]Rule) *RateLimiter {
	if rules == nil {
		rules = DefaultRules
	}
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		rules:   rules,
		now:     time.Now,
	}
}

// WithClock swaps the time source, for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

func (rl *RateLimiter) Allow(subject, action string) (bool, time.Duration) {
	key := subject + ":" + action
	now := rl.now()

	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			rule, ok := rl.rules[action]
			if !ok {
				rule = fallbackRule
			}
			bucket = NewTokenBucket(rule, now)
			rl.buckets[key] = bucket
		}
		rl.mu.Unlock()
	}

	return bucket.Allow(now)
}

// Status reports remaining and maximum tokens; zeros for an unseen key.
func (rl *RateLimiter) Status(subject, action string) (tokens int, maxTokens int) {
	rl.mu.RLock()
	bucket, exists := rl.buckets[subject+":"+action]
	rl.mu.RUnlock()

	if !exists {
		return 0, 0
	}
	return bucket.Tokens(), bucket.maxTokens
}

// Cleanup drops buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, bucket := range rl.buckets {
		if bucket.idleSince(now) > maxIdle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every interval until stop is closed.
func (rl *RateLimiter) StartCleanupRoutine(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-stop:
				return
			}
		}
	}()
}
