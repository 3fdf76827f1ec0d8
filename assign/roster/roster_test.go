package roster

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/section-assign/section-assign/assign"
)

const twoGroupTopology = `
default_capacity: 2
groups:
  - label: MON
    slots: [{id: "101"}, {id: "102"}]
  - label: TUE
    slots: [{id: "201"}]
`

func testTopology(t *testing.T) *assign.Topology {
	t.Helper()
	topo, err := assign.ParseTopology(strings.NewReader(twoGroupTopology))
	require.NoError(t, err)
	return topo
}

func TestReadCSV_DefaultLayout_SkipsHeaderAndSplitsPreferences(t *testing.T) {
	// GIVEN a form export with a header and ragged rows
	input := "Timestamp,Name,Email,ID,First,Second\n" +
		"t,Ada Lovelace,ada@,7,MON,TUE\n" +
		"t,Alan Turing,alan\n"

	// WHEN read with the default layout
	records, err := ReadCSV(strings.NewReader(input), DefaultLayout())

	// THEN every data row becomes a record, missing cells are empty
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, "Ada Lovelace", records[0].Name)
	assert.Equal(t, "ada@", records[0].Contact)
	assert.Equal(t, "7", records[0].ID)
	assert.Equal(t, []string{"MON", "TUE"}, records[0].Preferences)
	assert.Equal(t, "", records[1].ID)
	assert.Empty(t, records[1].Preferences)
}

func TestReadCSV_QuotaAndPriorityColumns_EndPreferenceSpan(t *testing.T) {
	// GIVEN a layout with trailing quota and priority columns
	layout := DefaultLayout()
	layout.UseQuotaColumn = true
	layout.QuotaColumn = -2
	layout.UsePriorityColumn = true
	layout.PriorityColumn = -1
	input := "h\nt,Ada,ada@x,1,MON,TUE,2,3\n"

	// WHEN read
	records, err := ReadCSV(strings.NewReader(input), layout)

	// THEN quota and priority are split off the preference list
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"MON", "TUE"}, records[0].Preferences)
	assert.Equal(t, "2", records[0].Quota)
	assert.Equal(t, "3", records[0].Priority)
}

func TestReadCSV_MalformedQuoting_ReturnsError(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("h\nt,\"Ada,x,1\n"), DefaultLayout())
	assert.Error(t, err)
}

func TestLayout_Validate_RejectsOverlappingColumns(t *testing.T) {
	layout := DefaultLayout()
	layout.IDColumn = 4
	assert.Error(t, layout.Validate())

	layout = DefaultLayout()
	layout.HeaderRows = -1
	assert.Error(t, layout.Validate())
}

func TestReadFile_MissingFile_ReturnsError(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.csv"), DefaultLayout())
	assert.Error(t, err)
}

func TestGenerate_RoundTripsThroughReaderAndNormalizer(t *testing.T) {
	// GIVEN a generated roster written in form layout
	topo := testTopology(t)
	records, err := Generate(rand.New(rand.NewSource(7)), topo, 20, 2)
	require.NoError(t, err)
	require.Len(t, records, 20)
	var buf bytes.Buffer
	require.NoError(t, WriteRecordsCSV(&buf, records, 2))

	// WHEN read back and normalized
	read, err := ReadCSV(&buf, DefaultLayout())
	require.NoError(t, err)
	cohort, report, err := assign.Normalize(read, topo,
		assign.NormalizeOptions{DefaultQuota: 1, Strict: true}, nil)

	// THEN every record is accepted (IDs may collide but names differ)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Accepted)
	assert.Empty(t, report.Rejected)
	assert.LessOrEqual(t, cohort.Len(), 20)
	for _, rec := range read {
		assert.True(t, strings.HasSuffix(rec.Contact, "@example.edu"))
	}
}

func TestGenerate_RepeatedLabelsAreAccepted(t *testing.T) {
	// GIVEN more preferences per record than there are groups
	topo := testTopology(t)
	records, err := Generate(rand.New(rand.NewSource(7)), topo, 50, 5)
	require.NoError(t, err)

	// WHEN normalized with the automatic default rank
	_, report, err := assign.Normalize(records, topo, assign.NormalizeOptions{DefaultQuota: 1}, nil)

	// THEN no generated record is rejected
	require.NoError(t, err)
	assert.Equal(t, 50, report.Accepted)
	assert.Empty(t, report.Rejected)
}

func TestGenerate_SameSeed_SameRecords(t *testing.T) {
	topo := testTopology(t)
	a, err := Generate(rand.New(rand.NewSource(42)), topo, 5, 2)
	require.NoError(t, err)
	b, err := Generate(rand.New(rand.NewSource(42)), topo, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_InvalidArguments(t *testing.T) {
	topo := testTopology(t)
	_, err := Generate(rand.New(rand.NewSource(1)), topo, 3, 0)
	assert.ErrorIs(t, err, assign.ErrInputInvalid)
}

func decodedCohort(t *testing.T) (*assign.Cohort, *assign.Assignment, *assign.Topology) {
	t.Helper()
	topo := testTopology(t)
	ada := &assign.Entity{Identity: assign.Identity{Name: "Ada", Contact: "ada@x", ID: 1}, Quota: 1,
		Ranks: assign.RankVector{0, 1}, Preferences: []string{"MON", "TUE"}, Assigned: []assign.SlotID{"102"}}
	bob := &assign.Entity{Identity: assign.Identity{Name: "Bob", Contact: "bob@x", ID: 2}, Quota: 1,
		Ranks: assign.RankVector{1, 0}, Preferences: []string{"TUE", "MON"}, Assigned: []assign.SlotID{"201"}}
	cohort := &assign.Cohort{Entities: []*assign.Entity{ada, bob}, DefaultRank: 2}
	a := &assign.Assignment{Placements: []assign.Placement{
		{Entity: ada, Group: 0, Label: "MON", Slot: "102", Rank: 0, Requested: true},
		{Entity: bob, Group: 1, Label: "TUE", Slot: "201", Rank: 0, Requested: true},
	}}
	return cohort, a, topo
}

func TestWriteAssignmentCSV_OneRowPerEntity(t *testing.T) {
	cohort, _, _ := decodedCohort(t)
	var buf bytes.Buffer
	require.NoError(t, WriteAssignmentCSV(&buf, cohort))
	assert.Equal(t, "name,contact,id,slots\nAda,ada@x,1,102\nBob,bob@x,2,201\n", buf.String())
}

func TestWriteSlotRosters_WritesNonEmptySlotsOnly(t *testing.T) {
	_, a, _ := decodedCohort(t)
	dir := filepath.Join(t.TempDir(), "slots")
	require.NoError(t, WriteSlotRosters(dir, a))

	data, err := os.ReadFile(filepath.Join(dir, "102.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Ada,ada@x\n", string(data))
	_, err = os.Stat(filepath.Join(dir, "101.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteSummaryYAML_IncludesGroupsAndAnalytics(t *testing.T) {
	cohort, a, topo := decodedCohort(t)
	res := &assign.Result{Cohort: cohort, Assignment: a, Solution: &assign.Solution{Objective: 2},
		Analytics: assign.Analyze(a)}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryYAML(&buf, NewSummary("run-1", 42, res, topo)))

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, 2, got["objective"])
	entities := got["entities"].([]interface{})
	require.Len(t, entities, 2)
	first := entities[0].(map[string]interface{})
	assert.Equal(t, []interface{}{"MON"}, first["groups"])
	analytics := got["analytics"].(map[string]interface{})
	assert.Equal(t, 2, analytics["assignments"])
}
