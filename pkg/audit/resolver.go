// Package audit resolves the member behind an anonymous guild event by polling
// the audit log until the matching entry shows up.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

// Defaults for Resolve.
const (
	DefaultWindow   = 30 * time.Second
	DefaultAttempts = 3
	DefaultDelay    = 900 * time.Millisecond
	DefaultLimit    = 50
)

// Resolver polls a platform.AuditLog with bounded retries.
type Resolver struct {
	audit platform.AuditLog

	Window   time.Duration
	Attempts int
	Delay    time.Duration
	Limit    int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResolver creates a Resolver with the default window and retry budget.
func NewResolver(audit platform.AuditLog) *Resolver {
	return &Resolver{
		audit:    audit,
		Window:   DefaultWindow,
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		Limit:    DefaultLimit,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// request holds the per-call parameters of Resolve.
type request struct {
	window   time.Duration
	attempts int
	delay    time.Duration
	match    func(platform.AuditEntry) bool
}

// Option overrides a Resolve parameter for one call.
type Option func(*request)

// WithWindow sets the maximum age of a matching entry.
func WithWindow(d time.Duration) Option { return func(r *request) { r.window = d } }

// WithAttempts sets how many times the audit log is queried.
func WithAttempts(n int) Option { return func(r *request) { r.attempts = n } }

// WithDelay sets the pause between attempts.
func WithDelay(d time.Duration) Option { return func(r *request) { r.delay = d } }

// WithMatch adds a predicate every matching entry must satisfy.
func WithMatch(fn func(platform.AuditEntry) bool) Option { return func(r *request) { r.match = fn } }

// Resolve returns the executor of the most recent entry of action that targets
// targetID and is younger than the window. An empty id means no actor could be
// determined: either the bot cannot read the audit log or no entry showed up
// within the retry budget. An error is returned only for transport failures.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, action platform.AuditAction, targetID string, opts ...Option) (string, error) {
	req := request{window: r.Window, attempts: r.Attempts, delay: r.Delay}
	for _, opt := range opts {
		opt(&req)
	}
	if req.attempts < 1 {
		req.attempts = 1
	}

	ok, err := r.audit.CanReadAudit(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("checking audit permission: %w", err)
	}
	if !ok {
		return "", nil
	}

	for attempt := 1; attempt <= req.attempts; attempt++ {
		entries, err := r.audit.QueryAudit(ctx, tenantID, action, r.Limit)
		if err != nil {
			return "", fmt.Errorf("querying audit log (attempt %d): %w", attempt, err)
		}
		if id := r.pick(entries, action, targetID, req); id != "" {
			return id, nil
		}
		if attempt < req.attempts {
			if err := r.sleep(ctx, req.delay); err != nil {
				return "", err
			}
		}
	}
	return "", nil
}

func (r *Resolver) pick(entries []platform.AuditEntry, action platform.AuditAction, targetID string, req request) string {
	now := r.now()
	for _, e := range entries {
		if e.Action != action || e.ExecutorID == "" {
			continue
		}
		if targetID != "" && e.TargetID != targetID {
			continue
		}
		age := now.Sub(e.CreatedAt)
		if age < 0 || age > req.window {
			continue
		}
		if req.match != nil && !req.match(e) {
			continue
		}
		return e.ExecutorID
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
