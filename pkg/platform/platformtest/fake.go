// Package platformtest provides an in-memory platform.Platform for tests.
package platformtest

import (
	"context"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

// Action is a mutation recorded by the fake.
type Action struct {
	Kind     string
	TenantID string
	UserID   string
	RoleID   string
	Duration time.Duration
}

// Fake is a thread-safe in-memory guild model.
type Fake struct {
	mu sync.Mutex

	Owners    map[string]string // tenant -> owner
	Members   map[string]map[string]*platform.Member
	Roles     map[string]map[string]bool // tenant -> role -> manageable
	NoAudit   map[string]bool
	AuditFunc func(attempt int, tenantID string, action platform.AuditAction) []platform.AuditEntry

	// Fail maps a mutation kind ("kick", "ban", "timeout", "add_role", "remove_role") to the error it returns.
	Fail map[string]error

	Actions      []Action
	AuditQueries int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Owners:  map[string]string{},
		Members: map[string]map[string]*platform.Member{},
		Roles:   map[string]map[string]bool{},
		NoAudit: map[string]bool{},
		Fail:    map[string]error{},
	}
}

// AddGuildRole registers a role on a guild.
func (f *Fake) AddGuildRole(tenantID, roleID string, manageable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Roles[tenantID] == nil {
		f.Roles[tenantID] = map[string]bool{}
	}
	f.Roles[tenantID][roleID] = manageable
}

// DeleteGuildRole removes a role from a guild.
func (f *Fake) DeleteGuildRole(tenantID, roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Roles[tenantID], roleID)
}

// AddMember registers a member with the given roles.
func (f *Fake) AddMember(tenantID, userID string, roleIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Members[tenantID] == nil {
		f.Members[tenantID] = map[string]*platform.Member{}
	}
	f.Members[tenantID][userID] = &platform.Member{ID: userID, RoleIDs: append([]string(nil), roleIDs...)}
}

// MemberRoles returns the current roles of a member.
func (f *Fake) MemberRoles(tenantID, userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.Members[tenantID][userID]
	if m == nil {
		return nil
	}
	return append([]string(nil), m.RoleIDs...)
}

// CountActions returns how many recorded mutations have the given kind.
func (f *Fake) CountActions(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func (f *Fake) CanReadAudit(_ context.Context, tenantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.NoAudit[tenantID], nil
}

func (f *Fake) QueryAudit(_ context.Context, tenantID string, action platform.AuditAction, limit int) ([]platform.AuditEntry, error) {
	f.mu.Lock()
	f.AuditQueries++
	attempt := f.AuditQueries
	fn := f.AuditFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	entries := fn(attempt, tenantID, action)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *Fake) Member(_ context.Context, tenantID, userID string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.Members[tenantID][userID]
	if m == nil {
		return nil, platform.ErrNotFound
	}
	cp := *m
	cp.RoleIDs = append([]string(nil), m.RoleIDs...)
	return &cp, nil
}

func (f *Fake) IsOwner(_ context.Context, tenantID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Owners[tenantID] == userID, nil
}

func (f *Fake) RoleExists(_ context.Context, tenantID, roleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Roles[tenantID][roleID]
	return ok, nil
}

func (f *Fake) CanManageRole(_ context.Context, tenantID, roleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Roles[tenantID][roleID], nil
}

func (f *Fake) AddRole(_ context.Context, tenantID, userID, roleID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail["add_role"]; err != nil {
		return err
	}
	m := f.Members[tenantID][userID]
	if m == nil {
		return platform.ErrNotFound
	}
	for _, r := range m.RoleIDs {
		if r == roleID {
			return nil
		}
	}
	m.RoleIDs = append(m.RoleIDs, roleID)
	f.Actions = append(f.Actions, Action{Kind: "add_role", TenantID: tenantID, UserID: userID, RoleID: roleID})
	return nil
}

func (f *Fake) RemoveRole(_ context.Context, tenantID, userID, roleID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail["remove_role"]; err != nil {
		return err
	}
	m := f.Members[tenantID][userID]
	if m == nil {
		return platform.ErrNotFound
	}
	kept := m.RoleIDs[:0]
	for _, r := range m.RoleIDs {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	m.RoleIDs = kept
	f.Actions = append(f.Actions, Action{Kind: "remove_role", TenantID: tenantID, UserID: userID, RoleID: roleID})
	return nil
}

func (f *Fake) Kick(_ context.Context, tenantID, userID, _ string) error {
	return f.removeMember("kick", tenantID, userID)
}

func (f *Fake) Ban(_ context.Context, tenantID, userID, _ string) error {
	return f.removeMember("ban", tenantID, userID)
}

func (f *Fake) Timeout(_ context.Context, tenantID, userID string, d time.Duration, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail["timeout"]; err != nil {
		return err
	}
	f.Actions = append(f.Actions, Action{Kind: "timeout", TenantID: tenantID, UserID: userID, Duration: d})
	return nil
}

func (f *Fake) removeMember(kind, tenantID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail[kind]; err != nil {
		return err
	}
	delete(f.Members[tenantID], userID)
	f.Actions = append(f.Actions, Action{Kind: kind, TenantID: tenantID, UserID: userID})
	return nil
}

var _ platform.Platform = (*Fake)(nil)
