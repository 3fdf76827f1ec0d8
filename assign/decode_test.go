package assign

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tueCohort(t *testing.T, topo *Topology, n int) *Cohort {
	t.Helper()
	prefs := make([][]string, n)
	quotas := make([]int, n)
	for i := range prefs {
		prefs[i] = []string{"TUE"}
		quotas[i] = 1
	}
	return buildCohort(t, topo, quotas, prefs...)
}

// allIn sets the variable of group g for every entity.
func allIn(layout Layout, g int) *Solution {
	values := make([]bool, layout.Len())
	for e := 0; e < layout.Entities; e++ {
		values[layout.Index(e, g)] = true
	}
	return &Solution{Values: values}
}

func TestDecode_SpreadsPooledGroupOverSubSlots(t *testing.T) {
	// GIVEN two entities placed in TUE, whose two slots hold one each
	topo := mustTopology(t, twoByTwo)
	cohort := tueCohort(t, topo, 2)
	layout := Layout{Entities: 2, Groups: 2}
	d := NewDecoder(topo, newRNG(1))

	// WHEN decoded
	a, err := d.Decode(cohort, layout, allIn(layout, 1))

	// THEN each slot is used exactly once and the counters reach zero
	require.NoError(t, err)
	require.Len(t, a.Placements, 2)
	got := []SlotID{cohort.Entities[0].Assigned[0], cohort.Entities[1].Assigned[0]}
	assert.ElementsMatch(t, []SlotID{"t1", "t2"}, got)
	assert.Equal(t, 0, d.Remaining("t1"))
	assert.Equal(t, 0, d.Remaining("t2"))
	assert.Equal(t, 2, d.Remaining("m1"))

	p := a.Placements[0]
	assert.Equal(t, "TUE", p.Label)
	assert.Equal(t, 0, p.Rank)
	assert.True(t, p.Requested)
	assert.Len(t, a.BySlot(), 2)
}

func TestDecode_OvercommittedGroupIsCapacityError(t *testing.T) {
	// GIVEN a vector putting three entities into TUE (pooled capacity 2)
	topo := mustTopology(t, twoByTwo)
	cohort := tueCohort(t, topo, 3)
	layout := Layout{Entities: 3, Groups: 2}

	// WHEN decoded
	_, err := NewDecoder(topo, newRNG(1)).Decode(cohort, layout, allIn(layout, 1))

	// THEN the failure carries entity, group and every remaining counter
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityAccounting)
	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "TUE", capErr.Group)
	assert.Equal(t, cohort.Entities[2].Identity, capErr.Entity)
	assert.Equal(t, map[SlotID]int{"m1": 2, "t1": 0, "t2": 0}, capErr.Remaining)
	assert.Contains(t, err.Error(), "m1=2 t1=0 t2=0")

	// AND no entity was partially assigned
	for _, ent := range cohort.Entities {
		assert.Empty(t, ent.Assigned)
	}
}

func TestDecode_SameSeedSameSlots(t *testing.T) {
	topo := mustTopology(t, twoByTwo)
	layout := Layout{Entities: 1, Groups: 2}

	decodeWith := func(seed int64) SlotID {
		cohort := tueCohort(t, topo, 1)
		_, err := NewDecoder(topo, newRNG(seed)).Decode(cohort, layout, allIn(layout, 1))
		require.NoError(t, err)
		return cohort.Entities[0].Assigned[0]
	}

	assert.Equal(t, decodeWith(5), decodeWith(5))

	// Across seeds both open sub-slots are chosen.
	seen := make(map[SlotID]bool)
	for seed := int64(0); seed < 64; seed++ {
		seen[decodeWith(seed)] = true
	}
	assert.True(t, seen["t1"] && seen["t2"], "tie-break never picked one of the sub-slots: %v", seen)
}

func TestDecode_RejectsShapeMismatch(t *testing.T) {
	topo := mustTopology(t, twoByTwo)
	cohort := tueCohort(t, topo, 2)
	d := NewDecoder(topo, newRNG(1))

	_, err := d.Decode(cohort, Layout{Entities: 3, Groups: 2}, &Solution{Values: make([]bool, 6)})
	assert.ErrorIs(t, err, ErrSolutionShape)

	_, err = d.Decode(cohort, Layout{Entities: 2, Groups: 2}, &Solution{Values: make([]bool, 3)})
	assert.ErrorIs(t, err, ErrSolutionShape)
}

func TestDecode_RejectsAlreadyAssignedEntity(t *testing.T) {
	topo := mustTopology(t, twoByTwo)
	cohort := tueCohort(t, topo, 1)
	cohort.Entities[0].Assigned = []SlotID{"m1"}
	layout := Layout{Entities: 1, Groups: 2}

	_, err := NewDecoder(topo, newRNG(1)).Decode(cohort, layout, allIn(layout, 1))
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}
