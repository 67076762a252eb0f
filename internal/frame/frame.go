package frame

import (
	"fmt"
	"math"
	"time"
)

// Kind identifies the value type stored in a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column holds one named series. Exactly one of the data slices is populated,
// selected by Kind. Missing markers: NaN for numeric, "" for categorical,
// the zero time for timestamps.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Times   []time.Time
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Numeric:
		return len(c.Floats)
	case Categorical:
		return len(c.Strings)
	case Timestamp:
		return len(c.Times)
	default:
		return 0
	}
}

// Missing reports whether the value at row i carries the missing marker.
func (c *Column) Missing(i int) bool {
	switch c.Kind {
	case Numeric:
		return math.IsNaN(c.Floats[i])
	case Categorical:
		return c.Strings[i] == ""
	case Timestamp:
		return c.Times[i].IsZero()
	default:
		return true
	}
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Times != nil {
		out.Times = append([]time.Time(nil), c.Times...)
	}
	return out
}

// Frame is an ordered collection of equal-length columns. Row order is
// temporal (ascending) and must be preserved by every transformation.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New creates an empty frame that will hold n rows.
func New(n int) *Frame {
	return &Frame{index: make(map[string]int), rows: n}
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.rows }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Col returns the named column, or nil if absent.
func (f *Frame) Col(name string) *Column {
	i, ok := f.index[name]
	if !ok {
		return nil
	}
	return f.cols[i]
}

// Has reports whether the named column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Set adds the column at the end of the order, or replaces an existing column
// of the same name in place. The column length must match the frame.
func (f *Frame) Set(c *Column) error {
	if c.Len() != f.rows {
		return fmt.Errorf("column %q has %d rows, frame has %d", c.Name, c.Len(), f.rows)
	}
	if i, ok := f.index[c.Name]; ok {
		f.cols[i] = c
		return nil
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// SetNumeric is a convenience wrapper for Set with a numeric column.
func (f *Frame) SetNumeric(name string, vals []float64) error {
	return f.Set(&Column{Name: name, Kind: Numeric, Floats: vals})
}

// SetCategorical is a convenience wrapper for Set with a categorical column.
func (f *Frame) SetCategorical(name string, vals []string) error {
	return f.Set(&Column{Name: name, Kind: Categorical, Strings: vals})
}

// SetTimestamp is a convenience wrapper for Set with a timestamp column.
func (f *Frame) SetTimestamp(name string, vals []time.Time) error {
	return f.Set(&Column{Name: name, Kind: Timestamp, Times: vals})
}

// Drop removes the named column if present.
func (f *Frame) Drop(name string) {
	i, ok := f.index[name]
	if !ok {
		return
	}
	f.cols = append(f.cols[:i], f.cols[i+1:]...)
	delete(f.index, name)
	for j := i; j < len(f.cols); j++ {
		f.index[f.cols[j].Name] = j
	}
}

// Clone deep-copies the frame. Stages mutate frames in place; callers that
// need the input preserved clone first.
func (f *Frame) Clone() *Frame {
	out := New(f.rows)
	for _, c := range f.cols {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c.clone())
	}
	return out
}

// Tail returns a deep copy of the last n rows (all rows when n >= NumRows).
func (f *Frame) Tail(n int) *Frame {
	if n >= f.rows {
		return f.Clone()
	}
	start := f.rows - n
	out := New(n)
	for _, c := range f.cols {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		switch c.Kind {
		case Numeric:
			nc.Floats = append([]float64(nil), c.Floats[start:]...)
		case Categorical:
			nc.Strings = append([]string(nil), c.Strings[start:]...)
		case Timestamp:
			nc.Times = append([]time.Time(nil), c.Times[start:]...)
		}
		out.index[nc.Name] = len(out.cols)
		out.cols = append(out.cols, nc)
	}
	return out
}

// NumericRow extracts row i of every numeric column, keyed by column name.
// This is the shape downstream models consume.
func (f *Frame) NumericRow(i int) map[string]float64 {
	row := make(map[string]float64)
	for _, c := range f.cols {
		if c.Kind == Numeric {
			row[c.Name] = c.Floats[i]
		}
	}
	return row
}

// MissingFloats returns a numeric slice of n rows filled with NaN.
func MissingFloats(n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return vals
}
