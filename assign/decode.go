package assign

import (
	"fmt"
	"math/rand"
)

// Placement is one resolved (entity, group, slot) choice.
type Placement struct {
	Entity    *Entity
	Group     int    // group index in the topology
	Label     string // group label
	Slot      SlotID
	Rank      int  // the entity's rank for the group
	Requested bool // false when the entity never listed the group
}

// Assignment is the decoded result of a run: placements in layout order.
type Assignment struct {
	Placements []Placement
}

// BySlot groups entities by the slot they were placed in.
func (a *Assignment) BySlot() map[SlotID][]*Entity {
	out := make(map[SlotID][]*Entity)
	for _, p := range a.Placements {
		out[p.Slot] = append(out[p.Slot], p.Entity)
	}
	return out
}

// Decoder maps a solution vector back onto concrete slots.
//
// It owns the per-slot remaining-capacity counters, seeded from declared
// capacities, and is not safe for concurrent use. A Decoder decodes one
// solution; create a new one per run.
type Decoder struct {
	topo      *Topology
	rng       *rand.Rand
	remaining map[SlotID]int
}

// NewDecoder creates a decoder whose tie-breaks draw from rng.
func NewDecoder(topo *Topology, rng *rand.Rand) *Decoder {
	remaining := make(map[SlotID]int)
	for _, g := range topo.Groups {
		for _, s := range g.Slots {
			remaining[s.ID] = s.Capacity
		}
	}
	return &Decoder{topo: topo, rng: rng, remaining: remaining}
}

// Remaining returns the live remaining capacity of a slot.
func (d *Decoder) Remaining(id SlotID) int {
	return d.remaining[id]
}

// Decode walks sol in layout order. Every set variable assigns its entity to
// the group, and the group is resolved to one member slot with remaining
// capacity, chosen uniformly at random. Entities' Assigned sets are written
// only when the whole vector decodes.
func (d *Decoder) Decode(cohort *Cohort, layout Layout, sol *Solution) (*Assignment, error) {
	if layout.Entities != cohort.Len() || layout.Groups != len(d.topo.Groups) {
		return nil, fmt.Errorf("%w: layout %dx%d, cohort %d x topology %d",
			ErrSolutionShape, layout.Entities, layout.Groups, cohort.Len(), len(d.topo.Groups))
	}
	if len(sol.Values) != layout.Len() {
		return nil, fmt.Errorf("%w: %d values for %d variables", ErrSolutionShape, len(sol.Values), layout.Len())
	}
	for _, ent := range cohort.Entities {
		if len(ent.Assigned) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyAssigned, ent.Identity)
		}
	}

	a := &Assignment{}
	slots := make([][]SlotID, cohort.Len())
	for i, set := range sol.Values {
		if !set {
			continue
		}
		e, g := layout.Split(i)
		ent := cohort.Entities[e]
		group := &d.topo.Groups[g]
		slot, err := d.pick(ent, group)
		if err != nil {
			return nil, err
		}
		slots[e] = append(slots[e], slot)
		a.Placements = append(a.Placements, Placement{
			Entity:    ent,
			Group:     g,
			Label:     group.Label,
			Slot:      slot,
			Rank:      ent.Ranks[g],
			Requested: ent.Requested(group.Label),
		})
	}
	for e, ent := range cohort.Entities {
		ent.Assigned = slots[e]
	}
	return a, nil
}

func (d *Decoder) pick(ent *Entity, group *SlotGroup) (SlotID, error) {
	open := make([]SlotID, 0, len(group.Slots))
	for _, s := range group.Slots {
		if d.remaining[s.ID] > 0 {
			open = append(open, s.ID)
		}
	}
	if len(open) == 0 {
		snapshot := make(map[SlotID]int, len(d.remaining))
		for id, n := range d.remaining {
			snapshot[id] = n
		}
		return "", &CapacityError{Entity: ent.Identity, Group: group.Label, Remaining: snapshot}
	}
	choice := open[0]
	if len(open) > 1 {
		choice = open[d.rng.Intn(len(open))]
	}
	d.remaining[choice]--
	return choice, nil
}
