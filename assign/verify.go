package assign

import (
	"fmt"

	"go.uber.org/multierr"
)

// Verify re-checks an assignment against the constraints it was built from:
// quota per entity, capacity per slot and per group, and mutual exclusion for
// entities with quota > 1. Every violation is reported; the combined error
// wraps ErrAssignmentInvalid.
func Verify(cohort *Cohort, topo *Topology, a *Assignment) error {
	var errs error

	groupOfSlot := make(map[SlotID]int)
	for gi, g := range topo.Groups {
		for _, s := range g.Slots {
			groupOfSlot[s.ID] = gi
		}
	}

	exclusions := topo.ExclusionIndices()
	slotLoad := make(map[SlotID]int)
	groupLoad := make([]int, len(topo.Groups))
	for _, ent := range cohort.Entities {
		if len(ent.Assigned) != ent.Quota {
			errs = multierr.Append(errs, fmt.Errorf("%s holds %d slots, quota %d", ent.Identity, len(ent.Assigned), ent.Quota))
		}
		held := make(map[int]bool)
		for _, id := range ent.Assigned {
			gi, ok := groupOfSlot[id]
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("%s holds unknown slot %q", ent.Identity, id))
				continue
			}
			if held[gi] {
				errs = multierr.Append(errs, fmt.Errorf("%s holds group %q twice", ent.Identity, topo.Groups[gi].Label))
			}
			held[gi] = true
			slotLoad[id]++
			groupLoad[gi]++
		}
		if ent.Quota <= 1 {
			continue
		}
		for x, set := range exclusions {
			n := 0
			for _, gi := range set {
				if held[gi] {
					n++
				}
			}
			if n > 1 {
				errs = multierr.Append(errs, fmt.Errorf("%s holds %d groups of exclusion set %d", ent.Identity, n, x))
			}
		}
	}

	for gi := range topo.Groups {
		g := &topo.Groups[gi]
		for _, s := range g.Slots {
			if slotLoad[s.ID] > s.Capacity {
				errs = multierr.Append(errs, fmt.Errorf("slot %q holds %d, capacity %d", s.ID, slotLoad[s.ID], s.Capacity))
			}
		}
		if groupLoad[gi] > g.Capacity() {
			errs = multierr.Append(errs, fmt.Errorf("group %q holds %d, pooled capacity %d", g.Label, groupLoad[gi], g.Capacity()))
		}
	}

	if a != nil && len(a.Placements) != cohort.TotalQuota() {
		errs = multierr.Append(errs, fmt.Errorf("%d placements for a total quota of %d", len(a.Placements), cohort.TotalQuota()))
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrAssignmentInvalid, errs)
	}
	return nil
}
