// Package roster reads preference rosters exported from a sign-up form and
// writes finished assignments back out as CSV and YAML.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/section-assign/section-assign/assign"
)

// Layout locates fields in a roster row. Columns are 0-based; a negative
// column counts from the end of the row (-1 is the last cell).
//
// Preferences run from PreferenceStart up to the first quota/priority column
// that follows it, or to the end of the row.
type Layout struct {
	HeaderRows        int  `koanf:"header_rows"`
	NameColumn        int  `koanf:"name_column"`
	ContactColumn     int  `koanf:"contact_column"`
	IDColumn          int  `koanf:"id_column"`
	PreferenceStart   int  `koanf:"preference_start"`
	UseQuotaColumn    bool `koanf:"use_quota_column"`
	QuotaColumn       int  `koanf:"quota_column"`
	UsePriorityColumn bool `koanf:"use_priority_column"`
	PriorityColumn    int  `koanf:"priority_column"`
}

// DefaultLayout matches the sign-up form export:
// timestamp, name, email, ID, then preferences.
func DefaultLayout() Layout {
	return Layout{
		HeaderRows:      1,
		NameColumn:      1,
		ContactColumn:   2,
		IDColumn:        3,
		PreferenceStart: 4,
	}
}

// Validate rejects layouts whose fixed columns are negative or overlap the
// preference span start.
func (l Layout) Validate() error {
	if l.HeaderRows < 0 {
		return fmt.Errorf("header_rows must be non-negative, got %d", l.HeaderRows)
	}
	for name, col := range map[string]int{"name_column": l.NameColumn, "contact_column": l.ContactColumn, "id_column": l.IDColumn} {
		if col < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, col)
		}
		if col >= l.PreferenceStart {
			return fmt.Errorf("%s (%d) must precede preference_start (%d)", name, col, l.PreferenceStart)
		}
	}
	return nil
}

// ReadFile opens path and reads it with ReadCSV.
func ReadFile(path string, layout Layout) ([]assign.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file
	records, err := ReadCSV(f, layout)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return records, nil
}

// ReadCSV parses roster rows into records. Only CSV syntax errors fail the
// read; missing or malformed cells are passed through so the normalizer can
// report them per record.
func ReadCSV(r io.Reader, layout Layout) ([]assign.Record, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []assign.Record
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line+1, err)
		}
		line++
		if line <= layout.HeaderRows {
			continue
		}
		records = append(records, parseRow(row, line, layout))
	}
	return records, nil
}

func parseRow(row []string, line int, layout Layout) assign.Record {
	rec := assign.Record{
		Line:    line,
		Name:    cell(row, layout.NameColumn),
		Contact: cell(row, layout.ContactColumn),
		ID:      cell(row, layout.IDColumn),
	}
	end := len(row)
	if layout.UseQuotaColumn {
		idx := resolve(row, layout.QuotaColumn)
		rec.Quota = cell(row, idx)
		if idx >= layout.PreferenceStart && idx < end {
			end = idx
		}
	}
	if layout.UsePriorityColumn {
		idx := resolve(row, layout.PriorityColumn)
		rec.Priority = cell(row, idx)
		if idx >= layout.PreferenceStart && idx < end {
			end = idx
		}
	}
	if layout.PreferenceStart < end {
		rec.Preferences = append([]string(nil), row[layout.PreferenceStart:end]...)
	}
	return rec
}

func resolve(row []string, col int) int {
	if col < 0 {
		return len(row) + col
	}
	return col
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
