package security

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

// LogRecord is emitted once per evaluated event.
type LogRecord struct {
	TenantID          string                `json:"guild_id"`
	Category          models.Category       `json:"category"`
	SubjectID         string                `json:"subject"`
	Count             int                   `json:"count"`
	Max               int                   `json:"max"`
	PunishmentApplied models.PunishmentType `json:"punishment_applied,omitempty"`
	Outcome           string                `json:"outcome"`
	Success           bool                  `json:"success"`
	FailureReason     string                `json:"failure_reason,omitempty"`
	Context           []string              `json:"context,omitempty"`
	LogSink           string                `json:"log_sink,omitempty"`
	At                time.Time             `json:"at"`
}

// OutcomeUnprocessed marks a record for an event the ledger could not account.
const OutcomeUnprocessed = "unprocessed"

// NewLogRecord builds the record for an outcome.
func NewLogRecord(s Subject, out Outcome, lines []string, at time.Time) LogRecord {
	rec := LogRecord{
		TenantID:      s.TenantID,
		Category:      s.Category,
		SubjectID:     s.ID,
		Count:         out.Count,
		Max:           out.Max,
		Outcome:       string(out.Kind),
		Success:       out.Success,
		FailureReason: out.FailureReason,
		Context:       lines,
		LogSink:       out.LogSink,
		At:            at.UTC(),
	}
	if out.Kind == OutcomeSkipped {
		rec.Outcome = string(out.Kind) + ":" + string(out.SkipReason)
	}
	if out.Kind == OutcomePunished {
		rec.PunishmentApplied = out.Punishment
	}
	return rec
}

// LogSink receives evaluated event records.
type LogSink interface {
	Emit(ctx context.Context, rec LogRecord) error
}

// LogSinkFunc adapts a function to LogSink.
type LogSinkFunc func(ctx context.Context, rec LogRecord) error

func (f LogSinkFunc) Emit(ctx context.Context, rec LogRecord) error { return f(ctx, rec) }

// RecordSink writes records to the structured security log.
type RecordSink struct{}

func (RecordSink) Emit(_ context.Context, rec LogRecord) error {
	logger.Record("Security", rec)
	return nil
}

// MultiSink fans a record out to several sinks concurrently.
type MultiSink []LogSink

func (m MultiSink) Emit(ctx context.Context, rec LogRecord) error {
	var g errgroup.Group
	for _, sink := range m {
		sink := sink
		g.Go(func() error {
			if err := sink.Emit(ctx, rec); err != nil {
				return fmt.Errorf("%T: %w", sink, err)
			}
			return nil
		})
	}
	return g.Wait()
}
