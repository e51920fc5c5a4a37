package events

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/errors"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

// handleTimeout bounds one event evaluation, audit polling included.
const handleTimeout = 30 * time.Second

// EventSink evaluates a classified event.
type EventSink interface {
	Handle(ctx context.Context, ev platform.Event) (*security.Outcome, error)
}

// Dispatcher runs every classified event on its own goroutine so gateway
// handlers never block on audit polling.
type Dispatcher struct {
	sink EventSink
	// wait is set by tests to make dispatch synchronous.
	wait bool
}

func NewDispatcher(sink EventSink) *Dispatcher {
	return &Dispatcher{sink: sink}
}

func (d *Dispatcher) Dispatch(ev platform.Event) {
	if d == nil || d.sink == nil {
		return
	}
	if d.wait {
		d.handle(ev)
		return
	}
	go d.handle(ev)
}

func (d *Dispatcher) handle(ev platform.Event) {
	defer errors.RecoverMiddleware()()

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	out, err := d.sink.Handle(ctx, ev)
	if err != nil {
		logger.Error(fmt.Sprintf("Error procesando %s en %s: %v", ev.Kind, ev.TenantID, err), "Security")
		return
	}
	if out != nil && out.Kind == security.OutcomePunished {
		logger.Warn(fmt.Sprintf("Castigo %s aplicado en %s (éxito: %v)", out.Punishment, ev.TenantID, out.Success), "Security")
	}
}
