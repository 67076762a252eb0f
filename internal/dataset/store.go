package dataset

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/schema"
)

// Store holds the observation table, guarded for concurrent request-time
// reads and ingestion-time appends. Target columns of appended rows are
// always missing: live observations carry no future labels.
type Store struct {
	mu sync.RWMutex
	f  *frame.Frame
}

// NewStore creates a Store around an existing frame (typically from LoadCSV).
func NewStore(f *frame.Frame) *Store {
	return &Store{f: f}
}

// Empty creates a Store with zero rows over the full schema.
func Empty() *Store {
	f := frame.New(0)
	for _, name := range schema.Ordered {
		switch schema.KindOf(name) {
		case frame.Timestamp:
			_ = f.SetTimestamp(name, nil)
		case frame.Categorical:
			_ = f.SetCategorical(name, nil)
		default:
			_ = f.SetNumeric(name, nil)
		}
	}
	return &Store{f: f}
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.f.NumRows()
}

// LatestTime returns the timestamp of the last row, or the zero time when the
// store is empty or carries no timestamp column.
func (s *Store) LatestTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.f.Col(schema.TimeColumn)
	if c == nil || c.Kind != frame.Timestamp || len(c.Times) == 0 {
		return time.Time{}
	}
	return c.Times[len(c.Times)-1]
}

// Window returns a deep copy of the most recent n rows. The copy is the
// caller's to mutate; pipeline runs never see later appends.
func (s *Store) Window(n int) *frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.f.Tail(n)
}

// Append adds observations to the end of the table in the order given.
// Observations are assumed to arrive in ascending time order.
func (s *Store) Append(obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.f.NumRows()
	grown := frame.New(n + len(obs))
	for _, name := range s.f.Names() {
		c := s.f.Col(name)
		nc := &frame.Column{Name: c.Name, Kind: c.Kind}
		switch c.Kind {
		case frame.Timestamp:
			nc.Times = append(append([]time.Time(nil), c.Times...), timesOf(obs)...)
		case frame.Categorical:
			nc.Strings = append(append([]string(nil), c.Strings...), stringsOf(name, obs)...)
		default:
			nc.Floats = append(append([]float64(nil), c.Floats...), floatsOf(name, obs)...)
		}
		if err := grown.Set(nc); err != nil {
			return fmt.Errorf("append observations: %w", err)
		}
	}
	s.f = grown
	return nil
}

func timesOf(obs []Observation) []time.Time {
	out := make([]time.Time, len(obs))
	for i, o := range obs {
		out[i] = o.Time
	}
	return out
}

func stringsOf(name string, obs []Observation) []string {
	out := make([]string, len(obs))
	if name != schema.WeatherColumn {
		return out
	}
	for i, o := range obs {
		out[i] = o.Weather
	}
	return out
}

func floatsOf(name string, obs []Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		if v, ok := o.Numeric[name]; ok {
			out[i] = v
		} else {
			out[i] = math.NaN() // targets and unreported readings
		}
	}
	return out
}
