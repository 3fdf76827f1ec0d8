package assign

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Analytics aggregates preference satisfaction over an assignment.
// Ranks are 0-based like RankVector; unlisted groups count at the default rank.
type Analytics struct {
	Assignments            int         `yaml:"assignments"`
	MinRank                int         `yaml:"min_rank"`
	MaxRank                int         `yaml:"max_rank"`
	MeanRank               float64     `yaml:"mean_rank"`
	StdDevRank             float64     `yaml:"stddev_rank"`
	DefaultRankAssignments int         `yaml:"default_rank_assignments"` // placements in a group the entity never listed
	DefaultRankEntities    int         `yaml:"default_rank_entities"`    // entities holding at least one such placement
	RankHistogram          map[int]int `yaml:"rank_histogram"`           // rank → number of placements
}

// Analyze computes analytics for an assignment.
// Safe for nil or empty assignments (returns zero-value fields).
func Analyze(a *Assignment) *Analytics {
	s := &Analytics{RankHistogram: make(map[int]int)}
	if a == nil || len(a.Placements) == 0 {
		return s
	}

	ranks := make([]float64, len(a.Placements))
	unrequested := make(map[*Entity]bool)
	for i, p := range a.Placements {
		ranks[i] = float64(p.Rank)
		s.RankHistogram[p.Rank]++
		if !p.Requested {
			s.DefaultRankAssignments++
			unrequested[p.Entity] = true
		}
	}
	s.Assignments = len(ranks)
	s.DefaultRankEntities = len(unrequested)
	s.MinRank = int(floats.Min(ranks))
	s.MaxRank = int(floats.Max(ranks))
	s.MeanRank = stat.Mean(ranks, nil)
	if len(ranks) > 1 {
		s.StdDevRank = stat.StdDev(ranks, nil)
	}
	return s
}

// Print writes a human-readable summary.
func (s *Analytics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Assignment Analytics ===")
	fmt.Fprintf(w, "Placements           : %d\n", s.Assignments)
	if s.Assignments == 0 {
		return
	}
	fmt.Fprintf(w, "Rank min/max         : %d / %d\n", s.MinRank, s.MaxRank)
	fmt.Fprintf(w, "Rank mean (stddev)   : %.3f (%.3f)\n", s.MeanRank, s.StdDevRank)
	fmt.Fprintf(w, "Unrequested groups   : %d placements, %d entities\n", s.DefaultRankAssignments, s.DefaultRankEntities)

	ranks := make([]int, 0, len(s.RankHistogram))
	for r := range s.RankHistogram {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	for _, r := range ranks {
		fmt.Fprintf(w, "  rank %-3d           : %d\n", r, s.RankHistogram[r])
	}
}

// TopChoiceDemand counts, per group label, how many entities listed the group
// among their first k choices. Useful to spot oversubscribed times before solving.
func TopChoiceDemand(cohort *Cohort, k int) map[string]int {
	demand := make(map[string]int)
	for _, ent := range cohort.Entities {
		for i, label := range ent.Preferences {
			if i >= k {
				break
			}
			demand[label]++
		}
	}
	return demand
}
