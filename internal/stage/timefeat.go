package stage

import (
	"math"

	"github.com/airsense/pm-forecast-service/internal/frame"
)

// TimeExtractor decomposes the timestamp column into integer sub-fields
// (year, month, day, dayofweek, hour) and drops the original column.
// dayofweek counts from Monday = 0. A frame without the timestamp column
// passes through unchanged.
type TimeExtractor struct {
	timeCol string
}

// NewTimeExtractor creates a TimeExtractor for the named timestamp column.
func NewTimeExtractor(timeCol string) *TimeExtractor {
	return &TimeExtractor{timeCol: timeCol}
}

func (te *TimeExtractor) Name() string { return "time_extract" }

func (te *TimeExtractor) Transform(f *frame.Frame) (*frame.Frame, error) {
	c := f.Col(te.timeCol)
	if c == nil || c.Kind != frame.Timestamp {
		return f, nil
	}

	n := f.NumRows()
	year := make([]float64, n)
	month := make([]float64, n)
	day := make([]float64, n)
	dow := make([]float64, n)
	hour := make([]float64, n)
	for i, t := range c.Times {
		if t.IsZero() {
			year[i], month[i], day[i], dow[i], hour[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
			continue
		}
		year[i] = float64(t.Year())
		month[i] = float64(int(t.Month()))
		day[i] = float64(t.Day())
		dow[i] = float64((int(t.Weekday()) + 6) % 7)
		hour[i] = float64(t.Hour())
	}

	if err := f.SetNumeric("year", year); err != nil {
		return nil, err
	}
	if err := f.SetNumeric("month", month); err != nil {
		return nil, err
	}
	if err := f.SetNumeric("day", day); err != nil {
		return nil, err
	}
	if err := f.SetNumeric("dayofweek", dow); err != nil {
		return nil, err
	}
	if err := f.SetNumeric("hour", hour); err != nil {
		return nil, err
	}
	f.Drop(te.timeCol)
	return f, nil
}
