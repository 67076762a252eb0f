// Package stage implements the transformation stages of the feature pipeline.
// Each stage is a total function from frame to frame: ordinary data problems
// (missing columns, short series, absent fitted parameters) degrade silently,
// and only unexpected computation failures return an error. Stages mutate the
// frame they are given; the orchestrator clones the input once per run.
package stage

import (
	"fmt"

	"github.com/airsense/pm-forecast-service/internal/frame"
)

// Stage is one unit of transformation. The variant set is closed: the
// pipeline order and membership are fixed at design time.
type Stage interface {
	Name() string
	Transform(f *frame.Frame) (*frame.Frame, error)
}

// Pipeline applies an ordered sequence of stages. Order is semantically
// meaningful: outlier repair must follow imputation and precede skew
// correction and rank encoding.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline over the given stages, applied in order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Stages returns the ordered stage list.
func (p *Pipeline) Stages() []Stage { return p.stages }

// Run applies every stage in order. The first stage error aborts the run,
// wrapped with the stage name.
func (p *Pipeline) Run(f *frame.Frame) (*frame.Frame, error) {
	var err error
	for _, s := range p.stages {
		f, err = s.Transform(f)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.Name(), err)
		}
	}
	return f, nil
}
