package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "gitpath"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	commandDuration   *prom.HistogramVec
	commandResults    *prom.CounterVec
	pollDuration      *prom.HistogramVec
	pollResults       *prom.CounterVec
	escalations       *prom.CounterVec
	revisionsDetected *prom.CounterVec
	pollRetries       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.commandDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "git_command_duration_seconds",
			Help:      "Duration of git invocations by subcommand",
			Buckets:   prom.DefBuckets,
		}, []string{"subcommand"})
		pr.commandResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "git_command_results_total",
			Help:      "Git invocation outcomes by subcommand",
		}, []string{"subcommand", "outcome"})
		pr.pollDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of material polls",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"material"})
		pr.pollResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "poll_results_total",
			Help:      "Material poll outcomes",
		}, []string{"material", "outcome"})
		pr.escalations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "shallow_escalations_total",
			Help:      "Shallow working copy deepening steps",
		}, []string{"step"})
		pr.revisionsDetected = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "revisions_detected_total",
			Help:      "New revisions reported per material",
		}, []string{"material"})
		pr.pollRetries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "poll_retries_total",
			Help:      "Poll attempts retried after transient failures",
		}, []string{"material"})
		reg.MustRegister(pr.commandDuration, pr.commandResults, pr.pollDuration, pr.pollResults, pr.escalations, pr.revisionsDetected, pr.pollRetries)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveCommand(subcommand string, d time.Duration, outcome Outcome) {
	if p == nil || p.commandDuration == nil {
		return
	}
	if outcome != OutcomeSpawnFailure {
		p.commandDuration.WithLabelValues(subcommand).Observe(d.Seconds())
	}
	p.commandResults.WithLabelValues(subcommand, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObservePoll(material string, d time.Duration, outcome Outcome) {
	if p == nil || p.pollDuration == nil {
		return
	}
	p.pollDuration.WithLabelValues(material).Observe(d.Seconds())
	p.pollResults.WithLabelValues(material, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncShallowEscalation(step string) {
	if p == nil || p.escalations == nil {
		return
	}
	p.escalations.WithLabelValues(step).Inc()
}

func (p *PrometheusRecorder) AddRevisionsDetected(material string, n int) {
	if p == nil || p.revisionsDetected == nil || n <= 0 {
		return
	}
	p.revisionsDetected.WithLabelValues(material).Add(float64(n))
}

func (p *PrometheusRecorder) IncPollRetry(material string) {
	if p == nil || p.pollRetries == nil {
		return
	}
	p.pollRetries.WithLabelValues(material).Inc()
}
