// Package metrics exposes Prometheus instrumentation for scheduling runs
// and audits.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/workforce-scheduler/internal/audit"
	"github.com/example/workforce-scheduler/internal/scheduler"
)

// Recorder implements the engine's observation hooks on Prometheus
// collectors.
type Recorder struct {
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	proposalsTotal *prometheus.CounterVec
	unscheduled    *prometheus.CounterVec
	bumpsTotal     *prometheus.CounterVec
	issuesTotal    *prometheus.CounterVec
	healthScore    prometheus.Gauge
}

// NewRecorder builds the collectors and registers them with the registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "runs_total",
			Help:      "Scheduling runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of scheduling runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		proposalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "proposals_total",
			Help:      "Proposals produced, by wave.",
		}, []string{"wave"}),
		unscheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "unscheduled_events_total",
			Help:      "Events left unscheduled, by reason code.",
		}, []string{"reason"}),
		bumpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "bump_attempts_total",
			Help:      "Conflict-resolution attempts, by outcome.",
		}, []string{"outcome"}),
		issuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "audit_issues_total",
			Help:      "Audit issues found, by severity.",
		}, []string{"severity"}),
		healthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scheduler",
			Name:      "audit_health_score",
			Help:      "Health score of the most recent audit.",
		}),
	}
	reg.MustRegister(
		r.runsTotal,
		r.runDuration,
		r.proposalsTotal,
		r.unscheduled,
		r.bumpsTotal,
		r.issuesTotal,
		r.healthScore,
	)
	return r
}

// RunObserved records a completed run.
func (r *Recorder) RunObserved(rec *scheduler.RunRecord, duration time.Duration) {
	r.runsTotal.WithLabelValues(string(rec.Status)).Inc()
	r.runDuration.Observe(duration.Seconds())
	for _, p := range rec.Proposals {
		r.proposalsTotal.WithLabelValues(p.Wave.String()).Inc()
	}
	for _, u := range rec.Unscheduled {
		r.unscheduled.WithLabelValues(string(u.Reason)).Inc()
	}
}

// BumpObserved records one conflict-resolution attempt.
func (r *Recorder) BumpObserved(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	r.bumpsTotal.WithLabelValues(outcome).Inc()
}

// AuditObserved records an audit pass's findings and health score.
func (r *Recorder) AuditObserved(issues []audit.Issue) {
	for _, issue := range issues {
		r.issuesTotal.WithLabelValues(string(issue.Severity)).Inc()
	}
	r.healthScore.Set(float64(audit.HealthScore(issues)))
}
