package warnings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var warningsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pancyguard_warnings_issued_total",
	Help: "Number of warnings issued, by resulting level",
}, []string{"level"})

var warningsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pancyguard_warnings_expired_total",
	Help: "Number of warnings removed by the expiry sweep",
})
