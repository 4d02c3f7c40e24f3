package pandda

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"panddamaps/internal/models"
)

// Column names of the inspect-events results table. Extra columns are
// ignored; these three are required.
const (
	colDtag     = "dtag"
	colBDC      = "1-BDC"
	colEventIdx = "event_idx"
)

// LoadEventTable reads the inspect-events results table, one record per
// detected event. A missing file, a missing required column, or an
// unparseable value is fatal: no reconstruction can proceed without a
// trustworthy table.
func LoadEventTable(path string) ([]models.EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read results table header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{colDtag, colBDC, colEventIdx} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("results table %s is missing required column %q", path, required)
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read results table rows: %w", err)
	}

	records := make([]models.EventRecord, 0, len(rows))
	for i, row := range rows {
		bdc, err := strconv.ParseFloat(row[cols[colBDC]], 64)
		if err != nil {
			return nil, fmt.Errorf("results table row %d: bad %s value %q: %w", i+2, colBDC, row[cols[colBDC]], err)
		}
		idx, err := parseEventIdx(row[cols[colEventIdx]])
		if err != nil {
			return nil, fmt.Errorf("results table row %d: bad %s value %q: %w", i+2, colEventIdx, row[cols[colEventIdx]], err)
		}
		records = append(records, models.EventRecord{
			Dtag:     row[cols[colDtag]],
			EventIdx: idx,
			BDC:      bdc,
		})
	}
	return records, nil
}

// parseEventIdx accepts both plain integers and the float renderings
// ("1.0") that dataframe-written tables sometimes carry.
func parseEventIdx(s string) (int, error) {
	if idx, err := strconv.Atoi(s); err == nil {
		return idx, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("event index %g is not an integer", f)
	}
	return int(f), nil
}
