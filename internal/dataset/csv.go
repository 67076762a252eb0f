package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/schema"
)

// LoadCSV reads an observation table from a headered CSV file. Only columns
// whose header matches the schema are kept; unparseable numeric cells become
// missing markers, and rows whose timestamp does not parse keep a zero time.
// The file is assumed sorted ascending by time, as produced upstream.
func LoadCSV(path string) (*frame.Frame, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer fd.Close()
	return readCSV(fd)
}

func readCSV(r io.Reader) (*frame.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}

	inSchema := make(map[string]bool, len(schema.Ordered))
	for _, name := range schema.Ordered {
		inSchema[name] = true
	}
	keep := make([]int, 0, len(header)) // column indices to retain
	names := make([]string, 0, len(header))
	for i, h := range header {
		if inSchema[h] {
			keep = append(keep, i)
			names = append(names, h)
		}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset row: %w", err)
		}
		row := make([]string, len(keep))
		for j, idx := range keep {
			if idx < len(rec) {
				row[j] = rec[idx]
			}
		}
		rows = append(rows, row)
	}

	f := frame.New(len(rows))
	for j, name := range names {
		if err := setCSVColumn(f, name, rows, j); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func setCSVColumn(f *frame.Frame, name string, rows [][]string, j int) error {
	switch schema.KindOf(name) {
	case frame.Timestamp:
		times := make([]time.Time, len(rows))
		for i := range rows {
			if t, err := ParseTime(rows[i][j]); err == nil {
				times[i] = t
			}
		}
		return f.SetTimestamp(name, times)
	case frame.Categorical:
		vals := make([]string, len(rows))
		for i := range rows {
			vals[i] = strings.TrimSpace(rows[i][j])
		}
		return f.SetCategorical(name, vals)
	default:
		vals := make([]float64, len(rows))
		for i := range rows {
			vals[i] = parseFloatOrNaN(rows[i][j])
		}
		return f.SetNumeric(name, vals)
	}
}
