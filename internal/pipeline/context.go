// Package pipeline composes the feature-engineering stages into one
// inference pass: align, impute, repair, correct, encode, extract, scale,
// synthesize, then hand the most recent feature row to the downstream models.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/airsense/pm-forecast-service/internal/artifact"
	"github.com/airsense/pm-forecast-service/internal/model"
)

// Standard model artifact file names inside the artifact directory.
const (
	PM25ModelFile = "model_pm2_5.json"
	PM10ModelFile = "model_pm10.json"
)

// Context bundles everything a pipeline run reads but never writes: the
// fitted stage artifacts and the two downstream models. It is constructed
// once at startup and shared by all concurrent runs.
type Context struct {
	Artifacts *artifact.Set
	PM25      model.Model
	PM10      model.Model
}

// NewContext loads all stage artifacts and both models from dir. Any single
// failure fails the whole load: the service never runs on a partial
// artifact set.
func NewContext(dir string) (*Context, error) {
	set, err := artifact.LoadSet(dir)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	pm25, err := model.LoadLinear(filepath.Join(dir, PM25ModelFile))
	if err != nil {
		return nil, fmt.Errorf("load pm2_5 model: %w", err)
	}
	pm10, err := model.LoadLinear(filepath.Join(dir, PM10ModelFile))
	if err != nil {
		return nil, fmt.Errorf("load pm10 model: %w", err)
	}
	return &Context{Artifacts: set, PM25: pm25, PM10: pm10}, nil
}
