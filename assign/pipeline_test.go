package assign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ThreeEntitiesTwoGroups_OptimalObjective(t *testing.T) {
	// GIVEN three entities over two groups of pooled capacity 2, where the
	// first choices fit without conflict
	topo := mustTopology(t, twoByTwo)
	records := []Record{
		rec(2, "Ada", "1", "MON", "TUE"),
		rec(3, "Bob", "2", "TUE", "MON"),
		rec(4, "Cy", "3", "MON", "TUE"),
	}

	// WHEN run with an exhaustive solver
	res, err := Run(context.Background(), records, topo, Options{
		Seed:      42,
		Normalize: NormalizeOptions{DefaultQuota: 1},
		Analyze:   true,
		Solver:    bruteForceSolver{},
	})

	// THEN every entity gets its first choice at total cost 3, the minimum
	require.NoError(t, err)
	assert.Equal(t, 3, res.Solution.Objective)
	assert.Equal(t, []SlotID{"m1"}, res.Cohort.Entities[0].Assigned)
	assert.Contains(t, []SlotID{"t1", "t2"}, res.Cohort.Entities[1].Assigned[0])
	assert.Equal(t, []SlotID{"m1"}, res.Cohort.Entities[2].Assigned)
	require.NotNil(t, res.Analytics)
	assert.Equal(t, 0, res.Analytics.MaxRank)
	assert.Len(t, res.Assignment.Placements, 3)
}

func TestRun_ContestedGroup_SecondChoiceCostsOneMore(t *testing.T) {
	// GIVEN three entities that all want MON first
	topo := mustTopology(t, twoByTwo)
	records := []Record{
		rec(2, "Ada", "1", "MON", "TUE"),
		rec(3, "Bob", "2", "MON", "TUE"),
		rec(4, "Cy", "3", "MON", "TUE"),
	}

	res, err := Run(context.Background(), records, topo, Options{
		Seed:      42,
		Normalize: NormalizeOptions{DefaultQuota: 1},
		Analyze:   true,
		Solver:    bruteForceSolver{},
	})

	// THEN two get MON and one gets TUE
	require.NoError(t, err)
	assert.Equal(t, 4, res.Solution.Objective)
	assert.Len(t, res.Assignment.BySlot()["m1"], 2)
	assert.Equal(t, 1, res.Analytics.RankHistogram[1])
}

func TestRun_SameSeedSameAssignment(t *testing.T) {
	// GIVEN a topology where every placement needs a sub-slot tie-break
	topo := mustTopology(t, `
default_capacity: 2
groups:
  - label: MON
    slots: [{id: m1}, {id: m2}, {id: m3}]
  - label: TUE
    slots: [{id: t1}, {id: t2}]
`)
	records := []Record{
		rec(2, "Ada", "1", "MON"), rec(3, "Bob", "2", "MON"), rec(4, "Cy", "3", "TUE"),
		rec(5, "Di", "4", "MON"), rec(6, "Ed", "5", "TUE"),
	}
	run := func(seed int64) []SlotID {
		res, err := Run(context.Background(), records, topo, Options{
			Seed:      seed,
			Normalize: NormalizeOptions{DefaultQuota: 1},
			Solver:    bruteForceSolver{},
		})
		require.NoError(t, err)
		var out []SlotID
		for _, ent := range res.Cohort.Entities {
			out = append(out, ent.Assigned...)
		}
		return out
	}

	// THEN two runs with one seed agree slot for slot
	assert.Equal(t, run(11), run(11))
}

func TestRun_QuotaAboveCapacityIsInfeasible(t *testing.T) {
	topo := mustTopology(t, twoByTwo)
	records := []Record{
		rec(2, "A", "1"), rec(3, "B", "2"), rec(4, "C", "3"), rec(5, "D", "4"), rec(6, "E", "5"),
	}
	res, err := Run(context.Background(), records, topo, Options{
		Normalize: NormalizeOptions{DefaultQuota: 1},
		Solver:    bruteForceSolver{},
	})
	assert.ErrorIs(t, err, ErrInfeasible)
	require.NotNil(t, res)
	assert.Nil(t, res.Assignment)
	assert.Equal(t, 5, res.Cohort.Len())
}

func TestRun_SolverProvesInfeasible(t *testing.T) {
	// GIVEN enough seats overall but an exclusion set that forbids any two-group combination
	topo := mustTopology(t, `
default_capacity: 1
groups:
  - {label: A, slots: [{id: a}]}
  - {label: B, slots: [{id: b}]}
exclusions:
  - [A, B]
`)
	r := rec(2, "Ada", "1", "A", "B")
	r.Quota = "2"

	_, err := Run(context.Background(), []Record{r}, topo, Options{
		Normalize: NormalizeOptions{DefaultQuota: 1},
		Solver:    bruteForceSolver{},
	})
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestRun_SolverTimeoutIsDistinct(t *testing.T) {
	topo := mustTopology(t, twoByTwo)
	start := time.Now()
	res, err := Run(context.Background(), []Record{rec(2, "Ada", "1", "MON")}, topo, Options{
		Normalize:    NormalizeOptions{DefaultQuota: 1},
		SolveTimeout: 20 * time.Millisecond,
		Solver:       blockingSolver{},
	})
	assert.ErrorIs(t, err, ErrSolverTimeout)
	assert.False(t, errors.Is(err, ErrInfeasible))
	assert.Less(t, time.Since(start), 5*time.Second)
	require.NotNil(t, res.Program, "stages before the solver are reported")
}

func TestRun_InvalidSolverOutputIsRejected(t *testing.T) {
	// GIVEN a solver that returns a vector breaking the quota rows
	topo := mustTopology(t, twoByTwo)
	_, err := Run(context.Background(), []Record{rec(2, "Ada", "1", "MON")}, topo, Options{
		Normalize: NormalizeOptions{DefaultQuota: 1},
		Solver:    fixedSolver{values: []bool{true, true}},
	})
	assert.ErrorIs(t, err, ErrSolverUnavailable)
}

func TestRun_NoSolverRegistered(t *testing.T) {
	saved := NewSolverFunc
	NewSolverFunc = nil
	defer func() { NewSolverFunc = saved }()

	topo := mustTopology(t, twoByTwo)
	_, err := Run(context.Background(), []Record{rec(2, "Ada", "1", "MON")}, topo, Options{
		Normalize: NormalizeOptions{DefaultQuota: 1},
	})
	assert.ErrorIs(t, err, ErrSolverUnavailable)
}

func TestPrepare_StopsBeforeSolving(t *testing.T) {
	topo := mustTopology(t, twoByTwo)
	res, err := Prepare([]Record{rec(2, "Ada", "1", "MON")}, topo, Options{
		Normalize: NormalizeOptions{DefaultQuota: 1},
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Program)
	assert.Nil(t, res.Solution)
}

func TestRun_StrictInputErrorStopsRun(t *testing.T) {
	topo := mustTopology(t, twoByTwo)
	res, err := Run(context.Background(), []Record{rec(2, "Ada", "1", "WED")}, topo, Options{
		Normalize: NormalizeOptions{DefaultQuota: 1, Strict: true},
		Solver:    bruteForceSolver{},
	})
	assert.ErrorIs(t, err, ErrInputInvalid)
	assert.Len(t, res.Report.Rejected, 1)
}
