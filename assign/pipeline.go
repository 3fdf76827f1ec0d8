package assign

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures one run of the pipeline.
type Options struct {
	RunID        string // attached to log lines; optional
	Seed         int64
	Normalize    NormalizeOptions
	Transform    string        // cost transform name, see ValidCostTransforms
	SolveTimeout time.Duration // 0 = no deadline beyond ctx
	Analyze      bool          // collect analytics and log every placement
	Solver       Solver        // nil = DefaultSolver()
}

// Timings records wall-clock time spent per stage.
type Timings struct {
	Normalize time.Duration
	Build     time.Duration
	Solve     time.Duration
	Decode    time.Duration
}

// Result holds the outputs of every completed stage.
// Assignment is non-nil only when the run succeeded.
type Result struct {
	Cohort     *Cohort
	Report     *InputReport
	Program    *Program
	Solution   *Solution
	Assignment *Assignment
	Analytics  *Analytics // nil unless Options.Analyze
	Timings    Timings
}

// Prepare runs normalize → build and stops before solving. The returned
// Result carries whatever stages completed, even on error.
func Prepare(records []Record, topo *Topology, opts Options) (*Result, error) {
	return prepare(logrus.WithField("run", opts.RunID), NewStreams(opts.Seed), records, topo, opts)
}

func prepare(log *logrus.Entry, rng *Streams, records []Record, topo *Topology, opts Options) (*Result, error) {
	res := &Result{}

	start := time.Now()
	cohort, report, err := Normalize(records, topo, opts.Normalize, rng.For(StreamRoster))
	res.Report = report
	res.Timings.Normalize = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("normalizing roster: %w", err)
	}
	res.Cohort = cohort
	log.Infof("normalized %d records into %d entities (%d rejected, %d replaced)",
		report.Records, cohort.Len(), len(report.Rejected), report.Duplicates)

	if need, have := cohort.TotalQuota(), topo.TotalCapacity(); need > have {
		return res, fmt.Errorf("%w: required quota %d exceeds pooled capacity %d", ErrInfeasible, need, have)
	}

	start = time.Now()
	cost, err := NewCostModel(opts.Transform, opts.Normalize.Prioritize, cohort)
	if err != nil {
		return res, err
	}
	program, err := Build(cohort, topo, cost)
	res.Timings.Build = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("building program: %w", err)
	}
	res.Program = program
	log.Infof("built program: %d variables, %d capacity / %d quota / %d exclusion rows",
		program.Layout.Len(), program.Count(FamilyCapacity), program.Count(FamilyQuota), program.Count(FamilyExclusion))
	return res, nil
}

// Run executes normalize → build → solve → decode → verify once.
//
// On error the returned Result carries the stages that completed (for
// reporting) and a nil Assignment. Infeasibility, solver timeout and
// capacity-accounting failure are distinguishable with errors.Is.
func Run(ctx context.Context, records []Record, topo *Topology, opts Options) (*Result, error) {
	log := logrus.WithField("run", opts.RunID)
	rng := NewStreams(opts.Seed)
	res, err := prepare(log, rng, records, topo, opts)
	if err != nil {
		return res, err
	}
	program, cohort := res.Program, res.Cohort

	solver := opts.Solver
	if solver == nil {
		if solver, err = DefaultSolver(); err != nil {
			return res, err
		}
	}
	start := time.Now()
	sol, err := SolveWithTimeout(ctx, solver, program, opts.SolveTimeout)
	res.Timings.Solve = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Solution = sol
	log.Infof("solved in %v, objective %d", res.Timings.Solve, sol.Objective)

	start = time.Now()
	decoder := NewDecoder(topo, rng.For(StreamDecoder))
	assignment, err := decoder.Decode(cohort, program.Layout, sol)
	res.Timings.Decode = time.Since(start)
	if err != nil {
		log.Errorf("decoding failed: %v", err)
		return res, err
	}
	if err := Verify(cohort, topo, assignment); err != nil {
		return res, err
	}
	res.Assignment = assignment

	if opts.Analyze {
		for _, p := range assignment.Placements {
			log.Debugf("%s ranked group %q as %d (slot %s)", p.Entity.Name, p.Label, p.Rank, p.Slot)
		}
		res.Analytics = Analyze(assignment)
	}
	return res, nil
}
