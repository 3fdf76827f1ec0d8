// register.go wires the gophersat solver into assign.NewSolverFunc. This init()
// runs when any package imports assign/pbsolver, breaking the import cycle
// between assign/ (interface owner) and assign/pbsolver/ (implementation).
package pbsolver

import "github.com/section-assign/section-assign/assign"

func init() {
	assign.NewSolverFunc = func() assign.Solver {
		return New()
	}
}
