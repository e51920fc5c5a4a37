// Package errors counts runtime errors, shuts the bot down when they spike and
// forwards reports and reliability alerts to a Discord webhook.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

var alertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pancyguard_reliability_alerts_total",
	Help: "Number of reliability alerts raised, by kind",
}, []string{"kind"})

// ErrorHandler manages error counting and reporting
type ErrorHandler struct {
	errorCount    atomic.Int32
	webhookURL    string
	stopChan      chan struct{}
	stopOnce      sync.Once
	shutdownFunc  func()
	exit          func(code int)
	http          *http.Client
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration

	alertMu       sync.Mutex
	lastAlert     map[string]time.Time
	alertCooldown time.Duration
}

// ReportErrorOptions contains options for reporting an error
type ReportErrorOptions struct {
	Error   string
	Message string
	Color   int
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init initializes the global error handler
func Init(webhookURL string, shutdownFunc func()) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(webhookURL, shutdownFunc)
	})
	return handler
}

// Get returns the global error handler instance
func Get() *ErrorHandler {
	return handler
}

// NewErrorHandler creates a handler and starts its monitoring goroutines.
func NewErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	h := newErrorHandler(webhookURL, shutdownFunc)
	h.start()
	return h
}

func newErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	return &ErrorHandler{
		webhookURL:    webhookURL,
		stopChan:      make(chan struct{}),
		shutdownFunc:  shutdownFunc,
		exit:          os.Exit,
		http:          &http.Client{Timeout: 10 * time.Second},
		maxErrors:     15,
		resetInterval: 5 * time.Second,
		checkInterval: 1 * time.Second,
		lastAlert:     map[string]time.Time{},
		alertCooldown: time.Minute,
	}
}

func (h *ErrorHandler) start() {
	go func() {
		reset := time.NewTicker(h.resetInterval)
		check := time.NewTicker(h.checkInterval)
		defer reset.Stop()
		defer check.Stop()

		for {
			select {
			case <-reset.C:
				h.errorCount.Store(0)
			case <-check.C:
				if h.overThreshold() {
					h.crash()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

func (h *ErrorHandler) overThreshold() bool {
	return h.errorCount.Load() > h.maxErrors
}

func (h *ErrorHandler) crash() {
	start := time.Now()
	logger.Warn("Se detectó un número demasiado alto de errores", "CRITICAL")
	logger.Warn("Apagando...", "CRITICAL")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Número inusual de errores. Apagando...",
	})
	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}
	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", time.Since(start)), "CRITICAL")
	h.exit(1)
}

// Stop stops the error monitoring goroutines
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// IncrementError increments the error count
func (h *ErrorHandler) IncrementError() {
	count := h.errorCount.Add(1)
	logger.Error(fmt.Sprintf("Error count: %d", count), "AntiCrash")
}

// HandlePanic handles a recovered panic
func (h *ErrorHandler) HandlePanic(recovered interface{}) {
	h.IncrementError()
	logger.Debug("Unhandled Panic/Catch", "AntiCrash")
	logger.Error(fmt.Sprintf("%v", recovered), "SYS")
}

// Alert raises a reliability alert. Alerts do not count toward the crash
// threshold; the webhook is hit at most once per kind per cooldown.
func (h *ErrorHandler) Alert(kind, message string) {
	alertsRaised.WithLabelValues(kind).Inc()
	logger.Warn(fmt.Sprintf("[%s] %s", kind, message), "Reliability")

	h.alertMu.Lock()
	now := time.Now()
	if last, ok := h.lastAlert[kind]; ok && now.Sub(last) < h.alertCooldown {
		h.alertMu.Unlock()
		return
	}
	h.lastAlert[kind] = now
	h.alertMu.Unlock()

	go h.Report(ReportErrorOptions{
		Error:   "Reliability: " + kind,
		Message: message,
		Color:   0xFFA500,
	})
}

// Report sends an error report to the Discord webhook
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}
	color := data.Color
	if color == 0 {
		color = 0xFF0000
	}

	payload := map[string]any{
		"embeds": []any{map[string]any{
			"author":      map[string]string{"name": fmt.Sprintf("Error %s", data.Error)},
			"description": data.Message,
			"color":       color,
			"footer":      map[string]string{"text": "PancyGuard Go"},
			"timestamp":   time.Now().Format(time.RFC3339),
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to marshal error report: %v", err), "AntiCrash")
		return
	}

	resp, err := h.http.Post(h.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send error report: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Sent ErrorReport to Webhook, Status: %d", resp.StatusCode), "AntiCrash")
}

// RecoverMiddleware returns a recovery function for use in deferred calls
func RecoverMiddleware() func() {
	return func() {
		if r := recover(); r != nil {
			if handler != nil {
				handler.HandlePanic(r)
			} else {
				logger.Error(fmt.Sprintf("Panic recovered (no handler): %v", r), "AntiCrash")
			}
		}
	}
}
