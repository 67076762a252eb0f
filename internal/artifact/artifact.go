// Package artifact loads the fitted parameters the pipeline stages consume.
// Artifacts are produced by an offline fitting phase, serialized as JSON, and
// are immutable for the lifetime of the process: concurrent pipeline runs
// share one copy without locking.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Standard artifact file names inside the artifact directory.
const (
	ImputerFile = "imputer.json"
	OutlierFile = "outlier.json"
	RankFile    = "rank.json"
	ScalerFile  = "scaler.json"
)

// Imputer holds the per-column, per-hour ranked category modes used as the
// diurnal fallback when local-window imputation finds no context.
type Imputer struct {
	// MostCommonPerHour maps column -> hour of day (0-23) -> categories
	// ranked by historical frequency.
	MostCommonPerHour map[string]map[int][]string `json:"most_common_per_hour"`
}

// Outlier holds the first and third quartiles of each column's fitted
// remainder distribution. Columns absent from both maps are skipped by the
// outlier remover.
type Outlier struct {
	Q1 map[string]float64 `json:"q1"`
	Q3 map[string]float64 `json:"q3"`
}

// Rank holds the learned category-to-rank maps, keyed by the derived column
// name "<categorical>_<target>".
type Rank struct {
	RankMaps map[string]map[string]float64 `json:"rank_maps"`
}

// Scaler holds per-column min/max bounds for unit-interval rescaling.
type Scaler struct {
	Min map[string]float64 `json:"min"`
	Max map[string]float64 `json:"max"`
}

// Set bundles every stage artifact. A Set is loaded once at startup and never
// mutated afterwards.
type Set struct {
	Imputer Imputer
	Outlier Outlier
	Rank    Rank
	Scaler  Scaler
}

// LoadSet reads all four stage artifacts from dir. Any missing or malformed
// file fails the whole load; partial artifact sets are not served.
func LoadSet(dir string) (*Set, error) {
	var s Set
	if err := loadJSON(filepath.Join(dir, ImputerFile), &s.Imputer); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(dir, OutlierFile), &s.Outlier); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(dir, RankFile), &s.Rank); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(dir, ScalerFile), &s.Scaler); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSON serializes an artifact value to path with indentation. Used by
// the genartifacts tool and tests.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
