package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DonationsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donations_submitted_total",
			Help: "Donation submissions by type and result.",
		},
		[]string{"type", "result"},
	)

	PollOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_poll_outcomes_total",
			Help: "Terminal outcomes of transaction status polling.",
		},
		[]string{"outcome"},
	)

	SubscriptionActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_actions_total",
			Help: "Subscription lifecycle actions by result.",
		},
		[]string{"action", "result"},
	)
)

// MustRegister registers all gateway collectors on the default registry.
// Called once from serve; tests increment counters without registering.
func MustRegister() {
	prometheus.MustRegister(DonationsSubmitted, PollOutcomes, SubscriptionActions)
}
