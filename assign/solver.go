package assign

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Solution is an optimal binary vector for a Program, indexed by Layout.
type Solution struct {
	Values    []bool
	Objective int
}

// Solver finds a minimum-cost binary solution of a Program.
//
// Implementations return ErrInfeasible (wrapped) when no solution exists, and
// must return promptly with ctx.Err() when ctx is done.
type Solver interface {
	Solve(ctx context.Context, p *Program) (*Solution, error)
}

// NewSolverFunc constructs the default Solver.
// Set by assign/pbsolver's init(); nil until that package is imported.
var NewSolverFunc func() Solver

// DefaultSolver returns the registered solver.
func DefaultSolver() (Solver, error) {
	if NewSolverFunc == nil {
		return nil, fmt.Errorf("%w: no solver registered (import assign/pbsolver)", ErrSolverUnavailable)
	}
	return NewSolverFunc(), nil
}

// SolveWithTimeout runs s under an optional deadline (0 = none) and checks the
// returned vector against the program before handing it back.
//
// Outcomes: ErrSolverTimeout when the deadline passes, ErrInfeasible when the
// solver proves there is no solution, ErrSolverUnavailable for any other
// solver failure.
func SolveWithTimeout(ctx context.Context, s Solver, p *Program, timeout time.Duration) (*Solution, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	sol, err := s.Solve(ctx, p)
	if err != nil {
		switch {
		case errors.Is(err, ErrInfeasible), errors.Is(err, ErrSolverTimeout):
			return nil, err
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %v", ErrSolverTimeout, timeout)
		case errors.Is(err, context.Canceled):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSolverUnavailable, err)
	}
	if sol == nil {
		return nil, fmt.Errorf("%w: solver returned no solution", ErrSolverUnavailable)
	}
	objective, violated, err := p.Evaluate(sol.Values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSolverUnavailable, err)
	}
	if len(violated) > 0 {
		first := p.Constraints[violated[0]]
		return nil, fmt.Errorf("%w: solution violates %d constraint(s), first %s",
			ErrSolverUnavailable, len(violated), first.Name)
	}
	sol.Objective = objective
	return sol, nil
}
