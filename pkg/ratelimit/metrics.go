package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var quotaConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pancyguard_quota_consumed_total",
	Help: "Number of moderation actions allowed by the daily quota",
}, []string{"action"})

var quotaRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pancyguard_quota_rejected_total",
	Help: "Number of moderation actions rejected by the daily quota",
}, []string{"action"})

var quotaErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pancyguard_quota_errors_total",
	Help: "Number of quota checks that failed on storage",
}, []string{"action"})
