package security

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

// WhitelistGate decides whether a member is exempt from a category.
// Guild owners are not whitelist data; callers check ownership themselves.
type WhitelistGate struct {
	configs ConfigStore
}

// NewWhitelistGate creates a gate reading from configs.
func NewWhitelistGate(configs ConfigStore) *WhitelistGate {
	return &WhitelistGate{configs: configs}
}

// IsExempt reports whether subjectID or any of roleIDs is whitelisted for category.
func (g *WhitelistGate) IsExempt(ctx context.Context, tenantID string, category models.Category, subjectID string, roleIDs []string) (bool, error) {
	cfg, err := g.configs.GetConfig(ctx, tenantID, category)
	if err != nil {
		return false, fmt.Errorf("loading config for %s: %w", category, err)
	}
	return g.Exempts(cfg, subjectID, roleIDs), nil
}

// Exempts is IsExempt against a config the caller already loaded. A nil
// config exempts nobody.
func (g *WhitelistGate) Exempts(cfg *models.SecurityConfig, subjectID string, roleIDs []string) bool {
	if cfg == nil {
		return false
	}
	for _, id := range cfg.WhitelistedMembers {
		if id == subjectID {
			return true
		}
	}
	if len(cfg.WhitelistedRoles) == 0 {
		return false
	}
	allowed := make(map[string]struct{}, len(cfg.WhitelistedRoles))
	for _, id := range cfg.WhitelistedRoles {
		allowed[id] = struct{}{}
	}
	for _, id := range roleIDs {
		if _, ok := allowed[id]; ok {
			return true
		}
	}
	return false
}
