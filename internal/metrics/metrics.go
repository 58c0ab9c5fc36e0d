// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_sessions_started_total",
			Help: "Total number of hosted assessment sessions started",
		},
		[]string{"kind"},
	)

	sessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_sessions_finished_total",
			Help: "Total number of hosted assessment sessions finished",
		},
		[]string{"kind", "reason"}, // reason: completed/expired/abandoned
	)

	sessionScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examprep_session_score_ratio",
			Help:    "Final score as a fraction of total questions",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"kind"},
	)

	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_submissions_total",
			Help: "Session result submissions by outcome",
		},
		[]string{"kind", "status"}, // status: saved/failed/skipped
	)

	liveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "examprep_sessions_live_current",
			Help: "Current number of sessions held in memory",
		},
	)

	progressPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_progress_persisted_total",
			Help: "Progress attempts written to PostgreSQL",
		},
		[]string{"path"}, // path: batch/single/duplicate/requeued/dropped
	)

	progressBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "examprep_progress_batch_size",
			Help:    "Number of jobs per progress flush",
			Buckets: []float64{1, 5, 10, 20, 30, 40, 50},
		},
	)
)

// Sessions records hosted session lifecycle events.
type Sessions struct{}

func (Sessions) SessionStarted(kind string) { sessionsStarted.WithLabelValues(kind).Inc() }

func (Sessions) SessionFinished(kind, reason string, score, total int) {
	sessionsFinished.WithLabelValues(kind, reason).Inc()
	if total > 0 {
		sessionScore.WithLabelValues(kind).Observe(float64(score) / float64(total))
	}
}

func (Sessions) SubmissionSettled(kind, status string) {
	submissions.WithLabelValues(kind, status).Inc()
}

func (Sessions) LiveSessions(n int) { liveSessions.Set(float64(n)) }

// ProgressFlushed records one worker flush.
func ProgressFlushed(batch, inserted int) {
	progressBatchSize.Observe(float64(batch))
	progressPersisted.WithLabelValues("batch").Add(float64(inserted))
	if dup := batch - inserted; dup > 0 {
		progressPersisted.WithLabelValues("duplicate").Add(float64(dup))
	}
}

// ProgressFallback records the outcome of one single-row retry.
func ProgressFallback(path string) { progressPersisted.WithLabelValues(path).Inc() }

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) { h.ServeHTTP(c.Writer, c.Request) }
}
