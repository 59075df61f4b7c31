// Package frame is the column-oriented dataset passed between pipeline stages.
//
// Numeric columns hold float64 with NaN marking a missing value; string
// columns use the empty string. Column order is preserved on every
// operation so written artifacts keep a stable header.
package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ErrColumnNotFound is wrapped by lookups on absent columns.
var ErrColumnNotFound = errors.New("column not found")

// Kind is the storage type of a column.
type Kind int

const (
	Numeric Kind = iota
	String
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "string"
}

// Column is a named vector of cells.
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Str  []string
}

// NumericColumn builds a numeric column without copying v.
func NumericColumn(name string, v []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Num: v}
}

// StringColumn builds a string column without copying v.
func StringColumn(name string, v []string) *Column {
	return &Column{Name: name, Kind: String, Str: v}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Num)
	}
	return len(c.Str)
}

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Num[i])
	}
	return c.Str[i] == ""
}

// Text returns cell i as it is written to CSV.
func (c *Column) Text(i int) string {
	if c.Kind == Numeric {
		return FormatFloat(c.Num[i])
	}
	return c.Str[i]
}

// Count returns the number of non-missing cells.
func (c *Column) Count() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			n++
		}
	}
	return n
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Num = append([]float64(nil), c.Num...)
	} else {
		out.Str = append([]string(nil), c.Str...)
	}
	return out
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Num = make([]float64, len(idx))
		for j, i := range idx {
			out.Num[j] = c.Num[i]
		}
	} else {
		out.Str = make([]string, len(idx))
		for j, i := range idx {
			out.Str[j] = c.Str[i]
		}
	}
	return out
}

// FormatFloat renders a cell value. NaN is empty and integral values carry no decimals.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Frame is an ordered set of equal-length columns.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New returns an empty frame with the given row count.
func New(rows int) *Frame {
	return &Frame{index: make(map[string]int), rows: rows}
}

// FromColumns assembles a frame; all columns must share a length.
func FromColumns(cols ...*Column) (*Frame, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	f := New(rows)
	for _, c := range cols {
		if c.Len() != rows {
			return nil, fmt.Errorf("column %s has %d rows, want %d", c.Name, c.Len(), rows)
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %s", c.Name)
		}
		f.index[c.Name] = len(f.cols)
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// MustFromColumns is FromColumns that panics on error. Intended for tests and literals.
func MustFromColumns(cols ...*Column) *Frame {
	f, err := FromColumns(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Frame) Rows() int  { return f.rows }
func (f *Frame) Width() int { return len(f.cols) }

// Names returns column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the underlying columns in order.
func (f *Frame) Columns() []*Column { return f.cols }

func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return f.cols[i], nil
}

// Num returns the values of a numeric column. The slice is shared with the frame.
func (f *Frame) Num(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok || f.cols[i].Kind != Numeric {
		return nil, false
	}
	return f.cols[i].Num, true
}

// Str returns the cells of a column as text; numeric columns are formatted.
func (f *Frame) Str(name string) ([]string, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	c := f.cols[i]
	if c.Kind == String {
		return c.Str, true
	}
	out := make([]string, c.Len())
	for j := range out {
		out[j] = c.Text(j)
	}
	return out, true
}

// Set replaces the column with the same name, or appends it.
// It panics when the column length does not match the frame.
func (f *Frame) Set(c *Column) {
	if c.Len() != f.rows {
		if len(f.cols) == 0 {
			f.rows = c.Len()
		} else {
			panic(fmt.Sprintf("frame: column %s has %d rows, frame has %d", c.Name, c.Len(), f.rows))
		}
	}
	if i, ok := f.index[c.Name]; ok {
		f.cols[i] = c
		return
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
}

// SetNum is Set for a numeric column.
func (f *Frame) SetNum(name string, v []float64) { f.Set(NumericColumn(name, v)) }

// SetStr is Set for a string column.
func (f *Frame) SetStr(name string, v []string) { f.Set(StringColumn(name, v)) }

// Drop removes the named columns that exist and returns those removed, in request order.
func (f *Frame) Drop(names ...string) []string {
	remove := make(map[string]bool, len(names))
	var dropped []string
	for _, n := range names {
		if f.Has(n) && !remove[n] {
			remove[n] = true
			dropped = append(dropped, n)
		}
	}
	if len(dropped) == 0 {
		return nil
	}
	kept := f.cols[:0:0]
	for _, c := range f.cols {
		if !remove[c.Name] {
			kept = append(kept, c)
		}
	}
	f.cols = kept
	f.reindex()
	return dropped
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		f.index[c.Name] = i
	}
}

// Select returns a new frame with the named existing columns in the given order.
// Columns are shared, not copied.
func (f *Frame) Select(names ...string) *Frame {
	out := New(f.rows)
	for _, n := range names {
		i, ok := f.index[n]
		if !ok || out.Has(n) {
			continue
		}
		out.index[n] = len(out.cols)
		out.cols = append(out.cols, f.cols[i])
	}
	return out
}

// Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	out := New(f.rows)
	for _, c := range f.cols {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c.clone())
	}
	return out
}

// Take returns a new frame holding rows idx in that order.
func (f *Frame) Take(idx []int) *Frame {
	out := New(len(idx))
	for _, c := range f.cols {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c.take(idx))
	}
	return out
}

// Filter keeps rows where keep is true.
func (f *Frame) Filter(keep []bool) *Frame {
	idx := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// NumericNames lists numeric columns in order.
func (f *Frame) NumericNames() []string {
	var out []string
	for _, c := range f.cols {
		if c.Kind == Numeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Row returns row i as text cells.
func (f *Frame) Row(i int) []string {
	out := make([]string, len(f.cols))
	for j, c := range f.cols {
		out[j] = c.Text(i)
	}
	return out
}

// Unique returns the distinct non-missing text values of a column, sorted.
func (f *Frame) Unique(name string) []string {
	vals, ok := f.Str(name)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
