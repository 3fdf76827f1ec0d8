// Package metrics exports the outcome of an assignment run as Prometheus
// metrics, written to a node-exporter textfile.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/section-assign/section-assign/assign"
)

// Stage labels of the stage_duration_seconds gauge.
const (
	StageNormalize = "normalize"
	StageBuild     = "build"
	StageSolve     = "solve"
	StageDecode    = "decode"
)

// Outcome labels of the runs_total counter.
const (
	OutcomeSuccess    = "success"
	OutcomeInfeasible = "infeasible"
	OutcomeTimeout    = "timeout"
	OutcomeInput      = "invalid_input"
	OutcomeError      = "error"
)

// Recorder holds the gauges of one process. Each Recorder owns its registry.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	runs            *prometheus.CounterVec
	records         prometheus.Gauge
	entities        prometheus.Gauge
	rejected        prometheus.Gauge
	duplicates      prometheus.Gauge
	variables       prometheus.Gauge
	constraints     *prometheus.GaugeVec
	objective       prometheus.Gauge
	stageDuration   *prometheus.GaugeVec
	meanRank        prometheus.Gauge
	defaultRankHits prometheus.Gauge
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry registers the metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// NewRecorder creates a Recorder with its metrics registered.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{namespace: "section_assign"}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(r.registry)
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{Namespace: r.namespace, Name: name, Help: help})
	}
	r.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "runs_total",
		Help:      "Assignment runs by outcome",
	}, []string{"outcome"})
	r.records = gauge("roster_records", "Roster records read in the last run")
	r.entities = gauge("entities", "Entities in the normalized cohort")
	r.rejected = gauge("rejected_records", "Roster records rejected by the normalizer")
	r.duplicates = gauge("duplicate_records", "Records that replaced an earlier record of the same identity")
	r.variables = gauge("program_variables", "Binary variables of the optimization program")
	r.constraints = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "program_constraints",
		Help:      "Constraint rows of the optimization program by family",
	}, []string{"family"})
	r.objective = gauge("objective", "Objective value of the optimal solution")
	r.stageDuration = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall-clock time per pipeline stage",
	}, []string{"stage"})
	r.meanRank = gauge("mean_rank", "Mean preference rank of the placements")
	r.defaultRankHits = gauge("default_rank_placements", "Placements in groups the entity did not list")
	return r
}

// Registry returns the registry the metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveRun records whatever stages of res completed and counts the run
// under the outcome derived from err.
func (r *Recorder) ObserveRun(res *assign.Result, err error) {
	r.runs.WithLabelValues(Outcome(err)).Inc()
	if res == nil {
		return
	}
	if rep := res.Report; rep != nil {
		r.records.Set(float64(rep.Records))
		r.rejected.Set(float64(len(rep.Rejected)))
		r.duplicates.Set(float64(rep.Duplicates))
	}
	if res.Cohort != nil {
		r.entities.Set(float64(res.Cohort.Len()))
	}
	if p := res.Program; p != nil {
		r.variables.Set(float64(p.Layout.Len()))
		for _, f := range []assign.Family{assign.FamilyCapacity, assign.FamilyQuota, assign.FamilyExclusion} {
			r.constraints.WithLabelValues(f.String()).Set(float64(p.Count(f)))
		}
	}
	if res.Solution != nil {
		r.objective.Set(float64(res.Solution.Objective))
	}
	r.stageDuration.WithLabelValues(StageNormalize).Set(res.Timings.Normalize.Seconds())
	r.stageDuration.WithLabelValues(StageBuild).Set(res.Timings.Build.Seconds())
	r.stageDuration.WithLabelValues(StageSolve).Set(res.Timings.Solve.Seconds())
	r.stageDuration.WithLabelValues(StageDecode).Set(res.Timings.Decode.Seconds())
	if a := res.Analytics; a != nil {
		r.meanRank.Set(a.MeanRank)
		r.defaultRankHits.Set(float64(a.DefaultRankAssignments))
	}
}

// Outcome classifies a run error into a runs_total label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, assign.ErrInfeasible):
		return OutcomeInfeasible
	case errors.Is(err, assign.ErrSolverTimeout):
		return OutcomeTimeout
	case errors.Is(err, assign.ErrInputInvalid):
		return OutcomeInput
	}
	return OutcomeError
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, replacing the file atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
