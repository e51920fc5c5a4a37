package security

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pancyguard_security_events_total",
	Help: "Number of classified guild events handled by the security pipeline",
}, []string{"category", "outcome"})

var eventsUnresolved = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pancyguard_security_unresolved_total",
	Help: "Number of events whose actor could not be resolved from the audit log",
}, []string{"category"})

var punishmentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pancyguard_security_punishments_total",
	Help: "Number of punishments attempted",
}, []string{"punishment", "result"})

var ledgerFailOpen = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pancyguard_ledger_fail_open_total",
	Help: "Number of events left unprocessed because the violation ledger failed",
})

var resolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "pancyguard_audit_resolve_duration_sec",
	Help:    "Time spent resolving the actor of an event",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
}, []string{"category"})
