package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide prometheus collectors for the
// orchestration core. This package serves no HTTP endpoint itself; a
// process embedding it exposes these on its own /metrics endpoint, as
// cmd/arena-demo's sidecar does.
type Metrics struct {
	MatchesTotal      *prometheus.CounterVec
	MatchDuration     *prometheus.HistogramVec
	MatchesInProgress prometheus.Gauge

	ActiveWorkers  prometheus.Gauge
	WorkerPoolSize prometheus.Gauge

	PendingMatches *prometheus.GaugeVec
	StageGauge     *prometheus.GaugeVec

	SeriesProgress *prometheus.GaugeVec

	PublishFailures *prometheus.CounterVec
	JournalFailures prometheus.Counter
}

// New creates a fresh set of collectors, registered against the default
// prometheus registry via promauto.
func New() *Metrics {
	return &Metrics{
		MatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_matches_total",
				Help: "Total number of matches executed, by outcome and game type",
			},
			[]string{"outcome", "game_type"},
		),
		MatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arena_match_duration_seconds",
				Help:    "Match execution duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"game_type"},
		),
		MatchesInProgress: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "arena_matches_in_progress",
				Help: "Number of matches currently dispatched",
			},
		),
		ActiveWorkers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "arena_active_dispatch_slots",
				Help: "Number of dispatch slots currently occupied",
			},
		),
		WorkerPoolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "arena_dispatch_parallelism",
				Help: "Configured bound on concurrent match dispatch",
			},
		),
		PendingMatches: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arena_pending_matches",
				Help: "Pending matches remaining in the current stage",
			},
			[]string{"tournament_id"},
		),
		StageGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arena_event_stage",
				Help: "1 if the event is currently in this stage, 0 otherwise",
			},
			[]string{"tournament_id", "stage"},
		),
		SeriesProgress: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arena_series_progress",
				Help: "Fraction of events completed in the running series",
			},
			[]string{"series_id"},
		),
		PublishFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_publish_failures_total",
				Help: "Total publisher failures, by sink kind",
			},
			[]string{"sink"},
		),
		JournalFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "arena_journal_failures_total",
				Help: "Total match-result journal append failures",
			},
		),
	}
}

func (m *Metrics) RecordMatchStart() {
	m.MatchesInProgress.Inc()
}

func (m *Metrics) RecordMatchComplete(gameType, outcome string, duration time.Duration) {
	m.MatchesInProgress.Dec()
	m.MatchesTotal.WithLabelValues(outcome, gameType).Inc()
	m.MatchDuration.WithLabelValues(gameType).Observe(duration.Seconds())
}

func (m *Metrics) SetActiveWorkers(count int) {
	m.ActiveWorkers.Set(float64(count))
}

func (m *Metrics) SetWorkerPoolSize(size int) {
	m.WorkerPoolSize.Set(float64(size))
}

func (m *Metrics) SetPendingMatches(tournamentID string, n int) {
	m.PendingMatches.WithLabelValues(tournamentID).Set(float64(n))
}

func (m *Metrics) SetStage(tournamentID string, stages []string, current string) {
	for _, s := range stages {
		v := 0.0
		if s == current {
			v = 1.0
		}
		m.StageGauge.WithLabelValues(tournamentID, s).Set(v)
	}
}

func (m *Metrics) SetSeriesProgress(seriesID string, fraction float64) {
	m.SeriesProgress.WithLabelValues(seriesID).Set(fraction)
}

func (m *Metrics) RecordPublishFailure(sink string) {
	m.PublishFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) RecordJournalFailure() {
	m.JournalFailures.Inc()
}
