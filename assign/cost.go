package assign

import "fmt"

// Cost transform names.
const (
	TransformLinear    = "linear"
	TransformQuadratic = "quadratic"
	TransformCubic     = "cubic"
)

// ValidCostTransforms is the set of recognized cost transform names.
// Shared by config validation and NewCostTransform.
var ValidCostTransforms = map[string]bool{"": true, TransformLinear: true, TransformQuadratic: true, TransformCubic: true}

// CostTransform maps a rank to a strictly positive cost.
// Implementations MUST be strictly increasing in rank.
type CostTransform func(rank int) int

// PowerTransform returns (rank+1)^k.
func PowerTransform(k int) CostTransform {
	return func(rank int) int {
		base := rank + 1
		cost := 1
		for i := 0; i < k; i++ {
			cost *= base
		}
		return cost
	}
}

// NewCostTransform returns the named transform. Empty string selects linear.
func NewCostTransform(name string) (CostTransform, error) {
	switch name {
	case "", TransformLinear:
		return PowerTransform(1), nil
	case TransformQuadratic:
		return PowerTransform(2), nil
	case TransformCubic:
		return PowerTransform(3), nil
	default:
		return nil, fmt.Errorf("unknown cost transform %q", name)
	}
}

// CostModel computes objective coefficients.
//
// With Prioritize set the transform is scaled by PriorityMultiplier, so a
// higher tier pays less for the same rank. MaxPriority must be computed over
// the whole cohort.
type CostModel struct {
	Transform   CostTransform
	Prioritize  bool
	MaxPriority int
}

// NewCostModel builds a CostModel for a cohort.
func NewCostModel(transform string, prioritize bool, cohort *Cohort) (CostModel, error) {
	tf, err := NewCostTransform(transform)
	if err != nil {
		return CostModel{}, err
	}
	m := CostModel{Transform: tf, Prioritize: prioritize}
	if prioritize {
		m.MaxPriority = cohort.MaxPriority()
	}
	return m, nil
}

// Cost returns the objective coefficient for an entity with the given
// priority choosing a group at the given rank.
func (m CostModel) Cost(rank, priority int) int {
	c := m.Transform(rank)
	if m.Prioritize {
		c *= PriorityMultiplier(m.MaxPriority, priority)
	}
	return c
}

// PriorityMultiplier is maxPriority - priority + 1: 1 for the top tier,
// growing by one per tier below it.
func PriorityMultiplier(maxPriority, priority int) int {
	return maxPriority - priority + 1
}
