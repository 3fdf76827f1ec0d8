package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/section-assign/section-assign/assign"
)

const (
	generatedTimestamp = "8/8/2008 20:08:08"
	generatedDomain    = "example.edu"
	maxGeneratedID     = 99999999
)

// Generate builds n synthetic records against topo, each listing up to prefs
// group labels. Popularity is skewed by duplicating a handful of labels in the
// draw pool, so records may repeat a label; the normalizer keeps the first.
func Generate(rng *rand.Rand, topo *assign.Topology, n, prefs int) ([]assign.Record, error) {
	labels := topo.Labels()
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: topology has no groups", assign.ErrInvalidTopology)
	}
	if n < 0 || prefs < 1 {
		return nil, fmt.Errorf("%w: need n >= 0 and prefs >= 1, got n=%d prefs=%d", assign.ErrInputInvalid, n, prefs)
	}

	pool := make([]int, len(labels))
	for i := range pool {
		pool[i] = i
	}
	for round := 0; round < 5; round++ {
		extra := 1 + rng.Intn(4)
		for j := 0; j < extra; j++ {
			pool = append(pool, pool[rng.Intn(len(pool))])
		}
	}

	records := make([]assign.Record, 0, n)
	for i := 0; i < n; i++ {
		rng.Shuffle(len(pool), func(a, b int) { pool[a], pool[b] = pool[b], pool[a] })
		k := prefs
		if k > len(pool) {
			k = len(pool)
		}
		choices := make([]string, k)
		for j := 0; j < k; j++ {
			choices[j] = labels[pool[j]]
		}
		name := randomName(rng)
		records = append(records, assign.Record{
			Line:        i + 2,
			Name:        name,
			Contact:     name + "@" + generatedDomain,
			ID:          strconv.Itoa(rng.Intn(maxGeneratedID + 1)),
			Preferences: choices,
		})
	}
	return records, nil
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomName(rng *rand.Rand) string {
	b := make([]byte, 5+rng.Intn(11))
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

// WriteRecordsCSV writes records in DefaultLayout form with a header row.
func WriteRecordsCSV(w io.Writer, records []assign.Record, prefs int) error {
	cw := csv.NewWriter(w)
	header := []string{"Timestamp", "Name", "Email", "ID"}
	for i := 1; i <= prefs; i++ {
		header = append(header, "Choice "+strconv.Itoa(i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		row := append([]string{generatedTimestamp, rec.Name, rec.Contact, rec.ID}, rec.Preferences...)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
