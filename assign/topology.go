package assign

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Topology is the deployment-specific slot configuration: the ordered slot
// groups and the mutual-exclusion sets over their labels.
// Loaded from YAML via LoadTopology(path).
type Topology struct {
	DefaultCapacity int            `yaml:"default_capacity,omitempty"`
	Groups          []SlotGroup    `yaml:"groups"`
	Exclusions      []ExclusionSet `yaml:"exclusions,omitempty"`

	index map[string]int
}

// LoadTopology reads and parses a YAML topology file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	topo, err := ParseTopology(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return topo, nil
}

// ParseTopology decodes, defaults and validates a topology document.
func ParseTopology(r io.Reader) (*Topology, error) {
	var topo Topology
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&topo); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return &topo, nil
}

// Validate applies the default capacity and checks labels, slot IDs,
// capacities and exclusion references. It must be called before the topology
// is used; ParseTopology calls it.
func (t *Topology) Validate() error {
	if t.DefaultCapacity < 0 {
		return fmt.Errorf("%w: default_capacity must be non-negative, got %d", ErrInvalidTopology, t.DefaultCapacity)
	}
	if len(t.Groups) == 0 {
		return fmt.Errorf("%w: at least one group required", ErrInvalidTopology)
	}
	t.index = make(map[string]int, len(t.Groups))
	seenSlots := make(map[SlotID]string)
	for gi := range t.Groups {
		g := &t.Groups[gi]
		prefix := fmt.Sprintf("groups[%d]", gi)
		if g.Label == "" {
			return fmt.Errorf("%w: %s: label must not be empty", ErrInvalidTopology, prefix)
		}
		if _, dup := t.index[g.Label]; dup {
			return fmt.Errorf("%w: %s: duplicate label %q", ErrInvalidTopology, prefix, g.Label)
		}
		t.index[g.Label] = gi
		if len(g.Slots) == 0 {
			return fmt.Errorf("%w: %s (%q): at least one slot required", ErrInvalidTopology, prefix, g.Label)
		}
		for si := range g.Slots {
			s := &g.Slots[si]
			if s.ID == "" {
				return fmt.Errorf("%w: %s.slots[%d]: id must not be empty", ErrInvalidTopology, prefix, si)
			}
			if owner, dup := seenSlots[s.ID]; dup {
				return fmt.Errorf("%w: slot %q appears in both %q and %q", ErrInvalidTopology, s.ID, owner, g.Label)
			}
			seenSlots[s.ID] = g.Label
			if s.Capacity == 0 {
				s.Capacity = t.DefaultCapacity
			}
			if s.Capacity <= 0 {
				return fmt.Errorf("%w: slot %q: capacity must be positive, got %d", ErrInvalidTopology, s.ID, s.Capacity)
			}
		}
	}
	for xi, set := range t.Exclusions {
		seen := make(map[string]bool, len(set))
		for _, label := range set {
			if _, ok := t.index[label]; !ok {
				return fmt.Errorf("%w: exclusions[%d]: unknown group %q", ErrInvalidTopology, xi, label)
			}
			if seen[label] {
				return fmt.Errorf("%w: exclusions[%d]: group %q listed twice", ErrInvalidTopology, xi, label)
			}
			seen[label] = true
		}
		if len(set) < 2 {
			logrus.Warnf("exclusions[%d] has %d member(s) and constrains nothing", xi, len(set))
		}
	}
	return nil
}

// GroupIndex returns the position of the group with the given label.
func (t *Topology) GroupIndex(label string) (int, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	i, ok := t.index[label]
	return i, ok
}

func (t *Topology) buildIndex() {
	t.index = make(map[string]int, len(t.Groups))
	for i, g := range t.Groups {
		t.index[g.Label] = i
	}
}

// Labels returns group labels in topology order.
func (t *Topology) Labels() []string {
	labels := make([]string, len(t.Groups))
	for i, g := range t.Groups {
		labels[i] = g.Label
	}
	return labels
}

// TotalCapacity returns the sum of all pooled group capacities.
func (t *Topology) TotalCapacity() int {
	total := 0
	for i := range t.Groups {
		total += t.Groups[i].Capacity()
	}
	return total
}

// ExclusionIndices returns every exclusion set as group indices.
func (t *Topology) ExclusionIndices() [][]int {
	out := make([][]int, 0, len(t.Exclusions))
	for _, set := range t.Exclusions {
		idx := make([]int, 0, len(set))
		for _, label := range set {
			if gi, ok := t.GroupIndex(label); ok {
				idx = append(idx, gi)
			}
		}
		out = append(out, idx)
	}
	return out
}

// GroupOf returns the label of the group containing slot id.
func (t *Topology) GroupOf(id SlotID) (string, bool) {
	for _, g := range t.Groups {
		for _, s := range g.Slots {
			if s.ID == id {
				return g.Label, true
			}
		}
	}
	return "", false
}
