package assign

import (
	"fmt"
	"strconv"
)

// SlotID names one real, schedulable slot (e.g. a section number).
type SlotID string

// Slot is a schedulable unit with a fixed capacity.
type Slot struct {
	ID       SlotID `yaml:"id"`
	Capacity int    `yaml:"capacity,omitempty"` // 0 = topology default
}

// SlotGroup is a set of interchangeable slots that share one displayed time label.
// Preferences and the optimization are expressed per group; only the decoder
// picks a member slot.
type SlotGroup struct {
	Label string `yaml:"label"`
	Slots []Slot `yaml:"slots"`
}

// Capacity returns the pooled capacity of the group.
func (g *SlotGroup) Capacity() int {
	total := 0
	for _, s := range g.Slots {
		total += s.Capacity
	}
	return total
}

// ExclusionSet lists group labels that overlap in time. An entity may hold at
// most one of them.
type ExclusionSet []string

// Identity is the externally visible identity of an entity.
type Identity struct {
	Name    string
	Contact string
	ID      int64
}

// IdentityKey is the immutable deduplication key of an entity.
type IdentityKey struct {
	Name    string
	Contact string
	ID      int64
}

// Key returns the deduplication key for the identity.
func (id Identity) Key() IdentityKey {
	return IdentityKey{Name: id.Name, Contact: id.Contact, ID: id.ID}
}

func (id Identity) String() string {
	return fmt.Sprintf("%s <%s> #%s", id.Name, id.Contact, strconv.FormatInt(id.ID, 10))
}

// RankVector maps every group index of a topology to a rank. Lower is preferred.
type RankVector []int

// Entity is one member of the cohort being assigned.
//
// Everything but Assigned is fixed after normalization. Assigned is written
// once by the Decoder.
type Entity struct {
	Identity
	Ranks       RankVector
	Quota       int
	Priority    int
	Preferences []string // resolved group labels in stated order, duplicates removed
	Assigned    []SlotID
}

// Requested reports whether the entity listed the group itself rather than
// receiving the default rank for it.
func (e *Entity) Requested(label string) bool {
	for _, p := range e.Preferences {
		if p == label {
			return true
		}
	}
	return false
}

// Cohort is the ordered, deduplicated population for one run.
// Entity order defines the variable layout of the program.
type Cohort struct {
	Entities    []*Entity
	DefaultRank int
}

// Len returns the number of entities.
func (c *Cohort) Len() int { return len(c.Entities) }

// MaxPriority returns the highest priority tier in the cohort (0 if empty).
// Computed on demand so it always reflects the whole cohort.
func (c *Cohort) MaxPriority() int {
	maxP := 0
	for _, e := range c.Entities {
		if e.Priority > maxP {
			maxP = e.Priority
		}
	}
	return maxP
}

// TotalQuota returns the sum of required assignment counts.
func (c *Cohort) TotalQuota() int {
	total := 0
	for _, e := range c.Entities {
		total += e.Quota
	}
	return total
}
