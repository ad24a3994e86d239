package rate

import "github.com/prometheus/client_golang/prometheus"

var (
	remainingGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remo_rate_limit_remaining",
			Help: "Remaining requests in the provider rate-limit window",
		},
		[]string{"provider"},
	)
	resetGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remo_rate_limit_reset_timestamp_seconds",
			Help: "Unix time at which the provider rate-limit window resets",
		},
		[]string{"provider"},
	)
	lastStatusGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remo_rate_limit_last_status_code",
			Help: "Last HTTP status code observed by the rate-limit wrapper",
		},
		[]string{"provider"},
	)
)

// MetricsCollectors exposes shared rate-limit collectors.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		remainingGauge,
		resetGauge,
		lastStatusGauge,
	}
}
