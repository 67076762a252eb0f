// Package model defines the downstream regression collaborators. The
// pipeline's contract with them is narrow: they take a named feature vector
// and return one forecast per horizon. The JSON linear form here mirrors the
// artifact layout the fitting phase exports; any regressor honoring the
// Model interface can stand in.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Model produces one forecast per consecutive horizon from a named feature
// vector.
type Model interface {
	Predict(features map[string]float64) ([]float64, error)
	Horizons() int
}

// Linear is a per-horizon linear regressor with feature-name-keyed weights.
type Linear struct {
	Name  string    `json:"name"`
	Steps []Horizon `json:"horizons"`
}

// Horizon holds the coefficients for one forecast step.
type Horizon struct {
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
}

// LoadLinear reads a linear model artifact from path.
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Linear
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", filepath.Base(path), err)
	}
	if len(m.Steps) == 0 {
		return nil, fmt.Errorf("model %s: no horizons", filepath.Base(path))
	}
	return &m, nil
}

// Horizons returns the number of forecast steps the model produces.
func (m *Linear) Horizons() int { return len(m.Steps) }

// Predict evaluates every horizon against the feature vector. A weighted
// feature that is absent or missing (NaN) in the vector is a contract
// violation between pipeline and model and returns an error.
func (m *Linear) Predict(features map[string]float64) ([]float64, error) {
	out := make([]float64, len(m.Steps))
	for h, hm := range m.Steps {
		y := hm.Intercept
		for name, w := range hm.Weights {
			v, ok := features[name]
			if !ok {
				return nil, fmt.Errorf("model %s: feature %q missing from input", m.Name, name)
			}
			if math.IsNaN(v) {
				return nil, fmt.Errorf("model %s: feature %q is NaN", m.Name, name)
			}
			y += w * v
		}
		out[h] = y
	}
	return out, nil
}
