// Package pbsolver solves assignment programs with gophersat's
// pseudo-boolean optimizer.
//
// Every binary variable i of the program becomes the boolean variable i+1.
// A <= row becomes one LtEq constraint, an = row goes through Eq, and the
// objective becomes the solver's cost function.
package pbsolver

import (
	"context"
	"fmt"

	"github.com/crillab/gophersat/solver"
	"github.com/sirupsen/logrus"

	"github.com/section-assign/section-assign/assign"
)

// Solver is an assign.Solver backed by gophersat.
type Solver struct{}

// New returns a gophersat-backed solver.
func New() *Solver { return &Solver{} }

// Translate converts a program into gophersat's problem form.
func Translate(p *assign.Program) *solver.Problem {
	constrs := make([]solver.PBConstr, 0, len(p.Constraints)+p.Count(assign.FamilyQuota))
	for i := range p.Constraints {
		c := &p.Constraints[i]
		lits := make([]int, len(c.Terms))
		weights := make([]int, len(c.Terms))
		for j, t := range c.Terms {
			lits[j] = t.Var + 1
			weights[j] = t.Coeff
		}
		// LtEq and GtEq rewrite lits and weights in place.
		if c.Relation == assign.Equal {
			constrs = append(constrs, solver.Eq(lits, weights, c.Bound)...)
		} else {
			constrs = append(constrs, solver.LtEq(lits, weights, c.Bound))
		}
	}
	pb := solver.ParsePBConstrs(constrs)

	lits := make([]solver.Lit, len(p.Objective))
	for i := range p.Objective {
		lits[i] = solver.IntToLit(int32(i + 1))
	}
	pb.SetCostFunc(lits, p.Objective)
	return pb
}

// Solve implements assign.Solver.
//
// gophersat's Optimal ignores its stop channel. Solve instead hands it an
// unbuffered results channel and drains it while ctx is live; once ctx is
// done nothing reads the channel, so the search parks at its next improving
// solution and its goroutine stays blocked for the life of the process.
func (s *Solver) Solve(ctx context.Context, p *assign.Program) (*assign.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sat := solver.New(Translate(p))

	results := make(chan solver.Result)
	done := make(chan solver.Result, 1)
	go func() {
		done <- sat.Optimal(results, nil)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res, ok := <-results:
			if !ok {
				return decodeResult(<-done, p)
			}
			logrus.Tracef("gophersat improved to cost %d", res.Weight)
		}
	}
}

func decodeResult(res solver.Result, p *assign.Program) (*assign.Solution, error) {
	switch res.Status {
	case solver.Unsat:
		return nil, assign.ErrInfeasible
	case solver.Sat:
	default:
		return nil, fmt.Errorf("solver finished with status %v", res.Status)
	}
	n := p.Layout.Len()
	if len(res.Model) < n {
		return nil, fmt.Errorf("%w: model has %d variables, want %d", assign.ErrSolutionShape, len(res.Model), n)
	}
	values := make([]bool, n)
	copy(values, res.Model[:n])
	logrus.Debugf("gophersat optimum cost %d over %d variables", res.Weight, n)
	return &assign.Solution{Values: values, Objective: res.Weight}, nil
}
