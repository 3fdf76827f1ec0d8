package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/section-assign/section-assign/assign"
)

// WriteAssignmentCSV writes one row per entity: name, contact, ID, then the
// assigned slots in placement order.
func WriteAssignmentCSV(w io.Writer, cohort *assign.Cohort) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "contact", "id", "slots"}); err != nil {
		return err
	}
	for _, ent := range cohort.Entities {
		row := []string{ent.Name, ent.Contact, strconv.FormatInt(ent.ID, 10)}
		for _, s := range ent.Assigned {
			row = append(row, string(s))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSlotRosters writes <dir>/<slot>.csv for every slot that received
// entities, each row holding name and contact.
func WriteSlotRosters(dir string, a *assign.Assignment) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	bySlot := a.BySlot()
	ids := make([]string, 0, len(bySlot))
	for id := range bySlot {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := writeSlotFile(filepath.Join(dir, id+".csv"), bySlot[assign.SlotID(id)]); err != nil {
			return err
		}
	}
	return nil
}

func writeSlotFile(path string, entities []*assign.Entity) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	cw := csv.NewWriter(f)
	for _, ent := range entities {
		if err := cw.Write([]string{ent.Name, ent.Contact}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary is the YAML report of a finished run.
type Summary struct {
	RunID     string            `yaml:"run_id"`
	Seed      int64             `yaml:"seed"`
	Objective int               `yaml:"objective"`
	Entities  []EntitySummary   `yaml:"entities"`
	Analytics *assign.Analytics `yaml:"analytics,omitempty"`
	Demand    map[string]int    `yaml:"top_choice_demand,omitempty"`
}

// EntitySummary is one entity's line in a Summary.
type EntitySummary struct {
	Name    string   `yaml:"name"`
	Contact string   `yaml:"contact"`
	ID      int64    `yaml:"id"`
	Slots   []string `yaml:"slots"`
	Groups  []string `yaml:"groups"`
}

// NewSummary collects a Summary from a decoded run.
func NewSummary(runID string, seed int64, res *assign.Result, topo *assign.Topology) *Summary {
	s := &Summary{RunID: runID, Seed: seed, Analytics: res.Analytics}
	if res.Solution != nil {
		s.Objective = res.Solution.Objective
	}
	if res.Analytics != nil {
		s.Demand = assign.TopChoiceDemand(res.Cohort, 2)
	}
	for _, ent := range res.Cohort.Entities {
		es := EntitySummary{Name: ent.Name, Contact: ent.Contact, ID: ent.ID}
		for _, id := range ent.Assigned {
			es.Slots = append(es.Slots, string(id))
			if label, ok := topo.GroupOf(id); ok {
				es.Groups = append(es.Groups, label)
			}
		}
		s.Entities = append(s.Entities, es)
	}
	return s
}

// WriteSummaryYAML marshals s to w.
func WriteSummaryYAML(w io.Writer, s *Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return enc.Close()
}
