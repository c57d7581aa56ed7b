// services/metrics.go - Prometheus collectors for the scoring and session
// cores, exposed on the side server's /metrics endpoint.
package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	flagSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flagforge_flag_submissions_total",
		Help: "Flag submissions by outcome.",
	}, []string{"outcome"})

	hintReveals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flagforge_hint_reveals_total",
		Help: "Recorded hint reveals.",
	})

	sessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flagforge_sessions_opened_total",
		Help: "Sessions established by sign-in.",
	})

	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flagforge_sessions_expired_total",
		Help: "Sessions revoked by the inactivity timeout.",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flagforge_active_sessions",
		Help: "Currently live sessions.",
	})
)

// ObserveSubmission records a flag submission outcome.
func ObserveSubmission(status SubmitStatus) {
	flagSubmissions.WithLabelValues(string(status)).Inc()
}

// ObserveHintReveal records a successful hint reveal.
func ObserveHintReveal() {
	hintReveals.Inc()
}

// TrackSessions wires the session gauge and counters to a manager's events.
func TrackSessions(manager *SessionManager) {
	manager.Subscribe(func(event SessionEvent, _ uint) {
		switch event {
		case EventSignedIn:
			sessionsOpened.Inc()
			activeSessions.Inc()
		case EventSignedOut:
			activeSessions.Dec()
		case EventExpired:
			sessionsExpired.Inc()
			activeSessions.Dec()
		}
	})
}
