// internal/metrics/metrics.go
//
// Prometheus metrics on a private registry (Go + process collectors plus
// the game counters below), served by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robalobadob/fallphabet/internal/game"
)

// Metrics owns the registry and every game collector.
type Metrics struct {
	registry *prometheus.Registry

	Words          *prometheus.CounterVec // result=accepted|rejected, reason
	Points         prometheus.Counter
	SessionsStart  *prometheus.CounterVec // mode
	SessionsEnd    *prometheus.CounterVec // mode
	TilesMissed    prometheus.Counter
	Submissions    *prometheus.CounterVec // status=ok|duplicate|error
	MaxChain       prometheus.Histogram
	ActiveSessions prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Words: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallphabet_words_total",
			Help: "Word submissions by result.",
		}, []string{"result", "reason"}),
		Points: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fallphabet_points_total",
			Help: "Points awarded across all sessions.",
		}),
		SessionsStart: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallphabet_sessions_started_total",
			Help: "Sessions started by mode.",
		}, []string{"mode"}),
		SessionsEnd: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallphabet_sessions_finished_total",
			Help: "Sessions finished by mode.",
		}, []string{"mode"}),
		TilesMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fallphabet_tiles_missed_total",
			Help: "Tiles that fell off the board and counted against a chain.",
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallphabet_leaderboard_submissions_total",
			Help: "Leaderboard submissions by status.",
		}, []string{"status"}),
		MaxChain: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fallphabet_session_max_chain",
			Help:    "Highest chain level reached per finished session.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fallphabet_active_sessions",
			Help: "Sessions currently held in memory.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Words, m.Points, m.SessionsStart, m.SessionsEnd,
		m.TilesMissed, m.Submissions, m.MaxChain, m.ActiveSessions,
	)
	return m
}

// Registry exposes the private registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WordAccepted implements game.Listener.
func (m *Metrics) WordAccepted(e game.Accepted) {
	m.Words.WithLabelValues("accepted", "").Inc()
	m.Points.Add(float64(e.Score))
}

// WordRejected implements game.Listener.
func (m *Metrics) WordRejected(e game.Rejected) {
	m.Words.WithLabelValues("rejected", e.Reason).Inc()
}

// SessionStarted counts a new session.
func (m *Metrics) SessionStarted(mode game.Mode) {
	m.SessionsStart.WithLabelValues(string(mode)).Inc()
	m.ActiveSessions.Inc()
}

// SessionEnded records a finished session.
func (m *Metrics) SessionEnded(sum game.Summary) {
	m.SessionsEnd.WithLabelValues(string(sum.Mode)).Inc()
	m.MaxChain.Observe(float64(sum.MaxChain))
}

// SessionDropped is called when a session leaves memory.
func (m *Metrics) SessionDropped() { m.ActiveSessions.Dec() }

// Missed adds n missed tiles.
func (m *Metrics) Missed(n int) {
	if n > 0 {
		m.TilesMissed.Add(float64(n))
	}
}

// Submission counts a leaderboard write by status.
func (m *Metrics) Submission(status string) {
	m.Submissions.WithLabelValues(status).Inc()
}
