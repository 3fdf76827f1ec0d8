package assign

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// mustTopology parses a YAML topology or fails the test.
func mustTopology(t *testing.T, doc string) *Topology {
	t.Helper()
	topo, err := ParseTopology(strings.NewReader(doc))
	require.NoError(t, err)
	return topo
}

// twoByTwo has two groups of pooled capacity 2: MON (one slot of 2) and
// TUE (two slots of 1).
const twoByTwo = `
groups:
  - label: MON
    slots: [{id: "m1", capacity: 2}]
  - label: TUE
    slots: [{id: "t1", capacity: 1}, {id: "t2", capacity: 1}]
`

func rec(line int, name, id string, prefs ...string) Record {
	return Record{Line: line, Name: name, Contact: strings.ToLower(name) + "@x", ID: id, Preferences: prefs}
}

func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// bruteForceSolver enumerates every binary vector. Ties keep the
// lexicographically smallest vector. Only usable for tiny programs.
type bruteForceSolver struct{}

func (bruteForceSolver) Solve(ctx context.Context, p *Program) (*Solution, error) {
	n := p.Layout.Len()
	if n > 20 {
		panic("bruteForceSolver: program too large")
	}
	var best []bool
	bestObj := 0
	values := make([]bool, n)
	for mask := 0; mask < 1<<n; mask++ {
		if mask&0xfff == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for i := range values {
			values[i] = mask&(1<<i) != 0
		}
		obj, violated, err := p.Evaluate(values)
		if err != nil {
			return nil, err
		}
		if len(violated) == 0 && (best == nil || obj < bestObj) {
			best = append([]bool(nil), values...)
			bestObj = obj
		}
	}
	if best == nil {
		return nil, ErrInfeasible
	}
	return &Solution{Values: best, Objective: bestObj}, nil
}

// blockingSolver never finishes on its own.
type blockingSolver struct{}

func (blockingSolver) Solve(ctx context.Context, _ *Program) (*Solution, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// fixedSolver returns a canned vector regardless of the program.
type fixedSolver struct{ values []bool }

func (s fixedSolver) Solve(context.Context, *Program) (*Solution, error) {
	return &Solution{Values: append([]bool(nil), s.values...)}, nil
}
