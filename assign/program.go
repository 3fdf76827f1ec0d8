package assign

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// === Layout ===

// Layout is the variable ordering shared by the Builder and the Decoder.
// Variable Index(e, g) is the binary decision "entity e takes group g";
// all groups of entity 0 come first, then all groups of entity 1, and so on.
// A solution vector carries no labels, so both sides MUST go through Layout.
type Layout struct {
	Entities int
	Groups   int
}

// Index returns the variable index for (entity, group).
func (l Layout) Index(entity, group int) int {
	return entity*l.Groups + group
}

// Split is the inverse of Index.
func (l Layout) Split(i int) (entity, group int) {
	return i / l.Groups, i % l.Groups
}

// Len returns the number of decision variables.
func (l Layout) Len() int {
	return l.Entities * l.Groups
}

// === Constraints ===

// Relation is the relational operator of a constraint row.
type Relation int

const (
	LessEq Relation = iota
	Equal
)

func (r Relation) String() string {
	if r == Equal {
		return "="
	}
	return "<="
}

// Family groups constraint rows by the rule they encode.
type Family int

const (
	FamilyCapacity Family = iota
	FamilyQuota
	FamilyExclusion
)

func (f Family) String() string {
	switch f {
	case FamilyCapacity:
		return "capacity"
	case FamilyQuota:
		return "quota"
	case FamilyExclusion:
		return "exclusion"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Term is one non-zero coefficient of a constraint row.
type Term struct {
	Var   int
	Coeff int
}

// Constraint is a sparse row: sum(Terms) Relation Bound.
type Constraint struct {
	Family   Family
	Name     string
	Terms    []Term
	Relation Relation
	Bound    int
}

// Holds reports whether the row is satisfied by values.
func (c *Constraint) Holds(values []bool) bool {
	lhs := 0
	for _, t := range c.Terms {
		if values[t.Var] {
			lhs += t.Coeff
		}
	}
	if c.Relation == Equal {
		return lhs == c.Bound
	}
	return lhs <= c.Bound
}

// === Program ===

// Program is a minimization over binary variables, ready for a Solver.
type Program struct {
	Layout      Layout
	Objective   []int
	Constraints []Constraint
}

// Build constructs the objective and the three constraint families for a cohort.
//
//   - capacity: per group, sum over entities <= pooled capacity
//   - quota: per entity, sum over groups = required count
//   - exclusion: per entity with quota > 1 and per exclusion set, sum over the set <= 1
func Build(cohort *Cohort, topo *Topology, cost CostModel) (*Program, error) {
	if cohort.Len() == 0 {
		return nil, errors.New("cannot build a program for an empty cohort")
	}
	layout := Layout{Entities: cohort.Len(), Groups: len(topo.Groups)}
	p := &Program{
		Layout:    layout,
		Objective: make([]int, layout.Len()),
	}

	for e, ent := range cohort.Entities {
		if len(ent.Ranks) != layout.Groups {
			return nil, fmt.Errorf("entity %s has %d ranks, topology has %d groups", ent.Identity, len(ent.Ranks), layout.Groups)
		}
		for g, rank := range ent.Ranks {
			c := cost.Cost(rank, ent.Priority)
			if c <= 0 {
				return nil, fmt.Errorf("non-positive cost %d for %s in group %q", c, ent.Identity, topo.Groups[g].Label)
			}
			p.Objective[layout.Index(e, g)] = c
		}
	}

	for g := range topo.Groups {
		terms := make([]Term, 0, layout.Entities)
		for e := 0; e < layout.Entities; e++ {
			terms = append(terms, Term{Var: layout.Index(e, g), Coeff: 1})
		}
		p.Constraints = append(p.Constraints, Constraint{
			Family:   FamilyCapacity,
			Name:     fmt.Sprintf("cap_%d", g),
			Terms:    terms,
			Relation: LessEq,
			Bound:    topo.Groups[g].Capacity(),
		})
	}

	for e, ent := range cohort.Entities {
		terms := make([]Term, 0, layout.Groups)
		for g := 0; g < layout.Groups; g++ {
			terms = append(terms, Term{Var: layout.Index(e, g), Coeff: 1})
		}
		p.Constraints = append(p.Constraints, Constraint{
			Family:   FamilyQuota,
			Name:     fmt.Sprintf("quota_%d", e),
			Terms:    terms,
			Relation: Equal,
			Bound:    ent.Quota,
		})
	}

	exclusions := topo.ExclusionIndices()
	for e, ent := range cohort.Entities {
		if ent.Quota <= 1 {
			continue
		}
		for x, set := range exclusions {
			terms := make([]Term, 0, len(set))
			for _, g := range set {
				terms = append(terms, Term{Var: layout.Index(e, g), Coeff: 1})
			}
			p.Constraints = append(p.Constraints, Constraint{
				Family:   FamilyExclusion,
				Name:     fmt.Sprintf("excl_%d_%d", e, x),
				Terms:    terms,
				Relation: LessEq,
				Bound:    1,
			})
		}
	}
	return p, nil
}

// Evaluate returns the objective value of values and the indices of the
// constraint rows they violate.
func (p *Program) Evaluate(values []bool) (objective int, violated []int, err error) {
	if len(values) != p.Layout.Len() {
		return 0, nil, fmt.Errorf("%w: %d values for %d variables", ErrSolutionShape, len(values), p.Layout.Len())
	}
	for i, v := range values {
		if v {
			objective += p.Objective[i]
		}
	}
	for i := range p.Constraints {
		if !p.Constraints[i].Holds(values) {
			violated = append(violated, i)
		}
	}
	return objective, violated, nil
}

// Count returns the number of rows per family.
func (p *Program) Count(f Family) int {
	n := 0
	for i := range p.Constraints {
		if p.Constraints[i].Family == f {
			n++
		}
	}
	return n
}

// Dense returns the program in plain numeric form: objective vector,
// constraint matrix (one row per constraint), operators and right-hand sides.
func (p *Program) Dense() (objective *mat.VecDense, a *mat.Dense, rel []Relation, b *mat.VecDense) {
	n := p.Layout.Len()
	obj := make([]float64, n)
	for i, c := range p.Objective {
		obj[i] = float64(c)
	}
	objective = mat.NewVecDense(n, obj)

	m := len(p.Constraints)
	a = mat.NewDense(m, n, nil)
	rhs := make([]float64, m)
	rel = make([]Relation, m)
	for r := range p.Constraints {
		c := &p.Constraints[r]
		for _, t := range c.Terms {
			a.Set(r, t.Var, float64(t.Coeff))
		}
		rhs[r] = float64(c.Bound)
		rel[r] = c.Relation
	}
	b = mat.NewVecDense(m, rhs)
	return objective, a, rel, b
}
