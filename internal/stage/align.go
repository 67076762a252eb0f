package stage

import (
	"time"

	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/schema"
)

// Aligner projects the input onto the fixed column schema: schema columns
// absent from the input are added filled with missing markers, input columns
// outside the schema are dropped, and the survivors are reordered. Aligning
// an already-aligned frame is the identity.
type Aligner struct {
	columns []string
}

// NewAligner creates an Aligner over the given ordered column names.
func NewAligner(columns []string) *Aligner {
	return &Aligner{columns: columns}
}

func (a *Aligner) Name() string { return "schema_align" }

func (a *Aligner) Transform(f *frame.Frame) (*frame.Frame, error) {
	n := f.NumRows()
	out := frame.New(n)
	for _, name := range a.columns {
		if c := f.Col(name); c != nil {
			if err := out.Set(c); err != nil {
				return nil, err
			}
			continue
		}
		if err := out.Set(missingColumn(name, n)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func missingColumn(name string, n int) *frame.Column {
	switch schema.KindOf(name) {
	case frame.Categorical:
		return &frame.Column{Name: name, Kind: frame.Categorical, Strings: make([]string, n)}
	case frame.Timestamp:
		return &frame.Column{Name: name, Kind: frame.Timestamp, Times: make([]time.Time, n)}
	default:
		return &frame.Column{Name: name, Kind: frame.Numeric, Floats: frame.MissingFloats(n)}
	}
}
