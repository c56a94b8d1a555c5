// Package metrics records assessment activity as Prometheus metrics.
//
// There is no HTTP listener: the CLI is short-lived, so metrics are written
// to a text exposition file for the node_exporter textfile collector.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/scoring"
)

// Compile-time interface check.
var _ assessment.Observer = (*Recorder)(nil)

// Recorder holds the posture metric set on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	// Counters
	answersTotal *prometheus.CounterVec
	savesTotal   *prometheus.CounterVec
	rendersTotal *prometheus.CounterVec

	// Gauges
	compliancePercent *prometheus.GaugeVec
	riskPoints        *prometheus.GaugeVec
	criticalFailures  *prometheus.GaugeVec
	answeredQuestions *prometheus.GaugeVec

	// Histograms
	renderSeconds *prometheus.HistogramVec
}

// New creates a recorder with all metrics registered.
func New() (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}
	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return r, nil
}

func (r *Recorder) initMetrics() error {
	r.answersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posture_answers_total",
			Help: "Answers recorded, by selected option",
		},
		[]string{"option"},
	)
	r.savesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posture_progress_saves_total",
			Help: "Progress file writes, by result",
		},
		[]string{"result"},
	)
	r.rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posture_renders_total",
			Help: "Documents rendered, by kind and result",
		},
		[]string{"kind", "result"},
	)

	r.compliancePercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "posture_compliance_percent",
			Help: "Compliance percentage of the last scored assessment",
		},
		[]string{"organization"},
	)
	r.riskPoints = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "posture_risk_points",
			Help: "Total risk points of the last scored assessment",
		},
		[]string{"organization", "risk_category"},
	)
	r.criticalFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "posture_critical_failures",
			Help: "Critical controls answered non-compliant",
		},
		[]string{"organization"},
	)
	r.answeredQuestions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "posture_answered_questions",
			Help: "Questions answered in the last scored assessment",
		},
		[]string{"organization"},
	)

	r.renderSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "posture_render_duration_seconds",
			Help:    "Document render time distribution in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"kind"},
	)

	collectors := []prometheus.Collector{
		r.answersTotal,
		r.savesTotal,
		r.rendersTotal,
		r.compliancePercent,
		r.riskPoints,
		r.criticalFailures,
		r.answeredQuestions,
		r.renderSeconds,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveAnswer counts one recorded answer.
func (r *Recorder) ObserveAnswer(option string) {
	if r == nil {
		return
	}
	r.answersTotal.WithLabelValues(optionLabel(option)).Inc()
}

// ObserveSave counts one progress save attempt.
func (r *Recorder) ObserveSave(err error) {
	if r == nil {
		return
	}
	r.savesTotal.WithLabelValues(result(err)).Inc()
}

// ObserveRender records one render of kind ("report", "checklist", "markdown").
func (r *Recorder) ObserveRender(kind string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.rendersTotal.WithLabelValues(kind, result(err)).Inc()
	if err == nil {
		r.renderSeconds.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// ObserveScore sets the score gauges for organization.
func (r *Recorder) ObserveScore(organization string, res scoring.Result) {
	if r == nil {
		return
	}
	// one risk series per organization
	r.riskPoints.DeletePartialMatch(prometheus.Labels{"organization": organization})

	r.compliancePercent.WithLabelValues(organization).Set(res.CompliancePct)
	r.riskPoints.WithLabelValues(organization, res.RiskCategory).Set(res.TotalScore)
	r.criticalFailures.WithLabelValues(organization).Set(float64(res.CriticalFailures))
	r.answeredQuestions.WithLabelValues(organization).Set(float64(res.Answered))
}

// WriteTextfile writes all metrics to path in the text exposition format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if filepath.Ext(path) != ".prom" {
		return fmt.Errorf("metrics: textfile %q must end in .prom", path)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

func optionLabel(option string) string {
	o := strings.ToLower(strings.TrimSpace(option))
	if o == "n/a" {
		return "na"
	}
	return o
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
