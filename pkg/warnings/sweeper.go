package warnings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

// DefaultSweepInterval is how often expired warnings are collected.
const DefaultSweepInterval = 10 * time.Minute

// Alerter surfaces sweep failures to operators.
type Alerter interface {
	Alert(kind, message string)
}

// Sweeper calls ExpireSweep periodically in the background.
type Sweeper struct {
	esc      *Escalator
	interval time.Duration
	alerts   Alerter
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSweeper creates a Sweeper. alerts may be nil.
func NewSweeper(esc *Escalator, interval time.Duration, alerts Alerter) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{esc: esc, interval: interval, alerts: alerts, done: make(chan struct{})}
}

// Start runs one sweep right away and then one per interval until Stop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.done:
				return
			}
		}
	}()
	logger.System(fmt.Sprintf("Barrido de advertencias cada %v", s.interval), "Warnings")
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	n, err := s.esc.ExpireSweep(ctx)
	switch {
	case errors.Is(err, ErrSweepInProgress):
		logger.Debug("Barrido anterior aún en curso, se omite", "Warnings")
	case err != nil:
		msg := fmt.Sprintf("Error en el barrido de advertencias: %v", err)
		logger.Error(msg, "Warnings")
		if s.alerts != nil {
			s.alerts.Alert("warning_sweep_failed", msg)
		}
	case n > 0:
		logger.Info(fmt.Sprintf("%d advertencias expiradas eliminadas", n), "Warnings")
	}
}

// Stop halts the sweeper and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}
