package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/audit"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
)

// Resolver finds the actor behind an event.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string, action platform.AuditAction, targetID string, opts ...audit.Option) (string, error)
}

// Alerter surfaces reliability problems to operators.
type Alerter interface {
	Alert(kind, message string)
}

// route maps an event kind to its category and the audit entry that reveals the actor.
type route struct {
	category models.Category
	action   platform.AuditAction
	opts     []audit.Option
}

var guildUpdateWindow = audit.WithWindow(60 * time.Second)

var routes = map[platform.EventKind]route{
	platform.EventChannelCreate: {category: models.CategoryChannelCreate, action: platform.AuditChannelCreate},
	platform.EventChannelDelete: {category: models.CategoryChannelDelete, action: platform.AuditChannelDelete},
	platform.EventRoleCreate:    {category: models.CategoryRoleCreate, action: platform.AuditRoleCreate},
	platform.EventRoleDelete:    {category: models.CategoryRoleDelete, action: platform.AuditRoleDelete},
	platform.EventMemberBan:     {category: models.CategoryBan, action: platform.AuditMemberBanAdd},
	platform.EventMemberKick:    {category: models.CategoryKick, action: platform.AuditMemberKick},
	platform.EventBotAdd:        {category: models.CategoryAddBot, action: platform.AuditBotAdd},
	platform.EventRoleGrant:     {category: models.CategoryDangerousRoleGive, action: platform.AuditMemberRoleUpdate},
	platform.EventTenantRename: {category: models.CategoryChangeServerName, action: platform.AuditGuildUpdate, opts: []audit.Option{
		guildUpdateWindow,
		audit.WithMatch(func(e platform.AuditEntry) bool { return e.HasChange("name") }),
	}},
	platform.EventVanityChange: {category: models.CategoryChangeVanity, action: platform.AuditGuildUpdate, opts: []audit.Option{
		guildUpdateWindow,
		audit.WithMatch(func(e platform.AuditEntry) bool { return e.HasChange("vanity_url_code") }),
	}},
}

// CategoryFor returns the category an event kind is accounted under.
func CategoryFor(kind platform.EventKind) (models.Category, bool) {
	r, ok := routes[kind]
	return r.category, ok
}

// Pipeline turns classified events into evaluated outcomes.
type Pipeline struct {
	configs  ConfigStore
	resolver Resolver
	dir      platform.Directory
	exec     *Executor
	sink     LogSink
	alerts   Alerter
	now      func() time.Time
}

// NewPipeline wires a Pipeline. sink and alerts may be nil.
func NewPipeline(configs ConfigStore, resolver Resolver, dir platform.Directory, exec *Executor, sink LogSink, alerts Alerter) *Pipeline {
	return &Pipeline{
		configs:  configs,
		resolver: resolver,
		dir:      dir,
		exec:     exec,
		sink:     sink,
		alerts:   alerts,
		now:      time.Now,
	}
}

// Handle resolves the actor of ev and evaluates it. A nil outcome means the
// event ended early: unknown kind, disabled category, or no resolvable actor.
// Storage failures while recording the violation are logged as unprocessed,
// alerted, and not returned.
func (p *Pipeline) Handle(ctx context.Context, ev platform.Event) (*Outcome, error) {
	r, ok := routes[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	// Skip the audit polling entirely when the category is off.
	cfg, err := p.configs.GetConfig(ctx, ev.TenantID, r.category)
	if err != nil {
		return nil, fmt.Errorf("loading config for %s: %w", r.category, err)
	}
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	start := p.now()
	actorID, err := p.resolver.Resolve(ctx, ev.TenantID, r.action, ev.TargetID, r.opts...)
	resolveDuration.WithLabelValues(string(r.category)).Observe(p.now().Sub(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("resolving actor of %s: %w", ev.Kind, err)
	}
	if actorID == "" {
		eventsUnresolved.WithLabelValues(string(r.category)).Inc()
		return nil, nil
	}

	member, err := p.dir.Member(ctx, ev.TenantID, actorID)
	if errors.Is(err, platform.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching member %s: %w", actorID, err)
	}
	owner, err := p.dir.IsOwner(ctx, ev.TenantID, actorID)
	if err != nil {
		return nil, fmt.Errorf("checking owner: %w", err)
	}

	subject := Subject{
		TenantID: ev.TenantID,
		Category: r.category,
		ID:       actorID,
		RoleIDs:  member.RoleIDs,
		IsOwner:  owner,
	}
	out, err := p.exec.Evaluate(ctx, subject)
	if errors.Is(err, ErrLedgerUnavailable) {
		ledgerFailOpen.Inc()
		eventsHandled.WithLabelValues(string(r.category), OutcomeUnprocessed).Inc()
		msg := fmt.Sprintf("Evento %s sin procesar en %s (actor %s): %v", ev.Kind, ev.TenantID, actorID, err)
		logger.Error(msg, "Security")
		if p.alerts != nil {
			p.alerts.Alert("ledger_fail_open", msg)
		}
		rec := NewLogRecord(subject, out, ev.Context, p.now())
		rec.Outcome = OutcomeUnprocessed
		p.emit(ctx, rec)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	eventsHandled.WithLabelValues(string(r.category), string(out.Kind)).Inc()
	if out.Kind == OutcomePunished {
		result := "applied"
		if !out.Success {
			result = out.FailureReason
		}
		punishmentsApplied.WithLabelValues(string(out.Punishment), result).Inc()
	}
	p.emit(ctx, NewLogRecord(subject, out, ev.Context, p.now()))
	return &out, nil
}

func (p *Pipeline) emit(ctx context.Context, rec LogRecord) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Emit(ctx, rec); err != nil {
		logger.Warn(fmt.Sprintf("Error al emitir registro de seguridad: %v", err), "Security")
	}
}
