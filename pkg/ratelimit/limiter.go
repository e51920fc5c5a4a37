// Package ratelimit enforces the daily per-moderator quota on manual
// moderation actions.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// DefaultDailyCap is how many actions of one kind a moderator may perform per UTC day.
const DefaultDailyCap = 4

// DateLayout formats the day component of a quota key.
const DateLayout = "2006-01-02"

// Key identifies one daily counter.
type Key struct {
	TenantID string
	ActorID  string
	Category string
	Date     string
}

// Store persists quota counters.
type Store interface {
	// ConsumeQuota increments the counter for key only when it is below limit,
	// in a single atomic operation. It returns the counter value after the call
	// and whether the increment happened.
	ConsumeQuota(ctx context.Context, key Key, limit int) (count int, allowed bool, err error)
	QuotaUsage(ctx context.Context, key Key) (int, error)
}

// Result is the outcome of TryConsume.
type Result struct {
	Allowed   bool `json:"allowed"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
}

// Limiter applies a daily cap over a Store.
type Limiter struct {
	store Store
	Cap   int
	now   func() time.Time
}

// NewLimiter creates a Limiter. A cap below 1 falls back to DefaultDailyCap.
func NewLimiter(store Store, dailyCap int) *Limiter {
	if dailyCap < 1 {
		dailyCap = DefaultDailyCap
	}
	return &Limiter{store: store, Cap: dailyCap, now: time.Now}
}

func (l *Limiter) key(tenantID, actorID, category string) Key {
	return Key{
		TenantID: tenantID,
		ActorID:  actorID,
		Category: category,
		Date:     l.now().UTC().Format(DateLayout),
	}
}

// TryConsume takes one unit of today's quota if any is left.
func (l *Limiter) TryConsume(ctx context.Context, tenantID, actorID, category string) (Result, error) {
	count, allowed, err := l.store.ConsumeQuota(ctx, l.key(tenantID, actorID, category), l.Cap)
	if err != nil {
		quotaErrors.WithLabelValues(category).Inc()
		return Result{}, fmt.Errorf("consuming %s quota: %w", category, err)
	}
	res := l.result(count)
	res.Allowed = allowed
	if allowed {
		quotaConsumed.WithLabelValues(category).Inc()
	} else {
		quotaRejected.WithLabelValues(category).Inc()
	}
	return res, nil
}

// Usage reports today's consumption without changing it.
func (l *Limiter) Usage(ctx context.Context, tenantID, actorID, category string) (Result, error) {
	count, err := l.store.QuotaUsage(ctx, l.key(tenantID, actorID, category))
	if err != nil {
		return Result{}, fmt.Errorf("reading %s quota: %w", category, err)
	}
	res := l.result(count)
	res.Allowed = res.Remaining > 0
	return res, nil
}

func (l *Limiter) result(count int) Result {
	used := min(count, l.Cap)
	return Result{Used: used, Remaining: l.Cap - used}
}
