// Package metadata profiles the raw PD variables, detects duplicate columns
// and writes the variable dictionary.
package metadata

import (
	"context"
	"sort"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// MissingLabel stands for missing cells in frequency tables.
const MissingLabel = "(missing)"

type Options struct {
	HighMissingPct  float64
	SampleSize      int
	Seed            uint64
	CategoricalVars []string
	DescribeVars    []string
	CustomerKey     string
	Workers         int
}

func DefaultOptions() Options {
	return Options{
		HighMissingPct:  30,
		SampleSize:      1000,
		Seed:            42,
		CategoricalVars: []string{"gender", "marital_status", "residence_type"},
		DescribeVars:    []string{"bureau_score", "emi_to_income_ratio", "monthly_income"},
		CustomerKey:     "cust_id",
	}
}

// VarSummary is the count and missingness of a numeric variable.
type VarSummary struct {
	Variable   string
	N          int
	NMiss      int
	PctMissing float64
}

// Summaries counts present and missing cells of every numeric column.
// Pct_Missing is relative to the row count and rounded to 2 decimals.
func Summaries(f *frame.Frame) []VarSummary {
	var out []VarSummary
	for _, c := range f.Columns() {
		if c.Kind != frame.Numeric {
			continue
		}
		s := VarSummary{Variable: c.Name, N: c.Count()}
		s.NMiss = f.Rows() - s.N
		if f.Rows() > 0 {
			s.PctMissing = stats.Round(float64(s.NMiss)/float64(f.Rows())*100, 2)
		}
		out = append(out, s)
	}
	return out
}

// HighMissing returns summaries with Pct_Missing strictly above threshold.
func HighMissing(s []VarSummary, threshold float64) []VarSummary {
	var out []VarSummary
	for _, v := range s {
		if v.PctMissing > threshold {
			out = append(out, v)
		}
	}
	return out
}

// FreqTable holds value counts of one column, missing cells included.
type FreqTable struct {
	Variable string
	Values   []string
	Counts   []int
}

// Frequencies counts values of name ordered by descending count. It returns
// an empty table when the column is absent.
func Frequencies(f *frame.Frame, name string) FreqTable {
	t := FreqTable{Variable: name}
	c, err := f.Column(name)
	if err != nil {
		return t
	}
	counts := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		v := MissingLabel
		if !c.IsMissing(i) {
			v = c.Text(i)
		}
		counts[v]++
	}
	for v := range counts {
		t.Values = append(t.Values, v)
	}
	sort.Slice(t.Values, func(a, b int) bool {
		ca, cb := counts[t.Values[a]], counts[t.Values[b]]
		if ca != cb {
			return ca > cb
		}
		return t.Values[a] < t.Values[b]
	})
	for _, v := range t.Values {
		t.Counts = append(t.Counts, counts[v])
	}
	return t
}

// Frame renders the table as (variable, Count, Frequency).
func (t FreqTable) Frame() *frame.Frame {
	counts := make([]float64, len(t.Counts))
	for i, c := range t.Counts {
		counts[i] = float64(c)
	}
	return frame.MustFromColumns(
		frame.StringColumn(t.Variable, t.Values),
		frame.NumericColumn("Count", counts),
		frame.NumericColumn("Frequency", append([]float64(nil), counts...)),
	)
}

// DescRow holds descriptive statistics of one variable.
type DescRow struct {
	Variable string
	N        int
	Mean     float64
	Std      float64
	Min      float64
	Max      float64
}

// Describe summarises the listed numeric variables that exist, rounding
// mean and standard deviation to 2 decimals.
func Describe(f *frame.Frame, vars []string) []DescRow {
	var out []DescRow
	for _, v := range vars {
		x, ok := f.Num(v)
		if !ok {
			continue
		}
		out = append(out, DescRow{
			Variable: v,
			N:        stats.Count(x),
			Mean:     stats.Round(stats.Mean(x), 2),
			Std:      stats.Round(stats.Std(x), 2),
			Min:      stats.Min(x),
			Max:      stats.Max(x),
		})
	}
	return out
}

// Orphans returns rows of f whose key has no match in master. The result is
// empty (with f's columns) when master is nil or either side lacks the key.
func Orphans(f, master *frame.Frame, key string) *frame.Frame {
	none := f.Take(nil)
	if master == nil {
		return none
	}
	left, err := f.Column(key)
	if err != nil {
		return none
	}
	right, err := master.Column(key)
	if err != nil {
		return none
	}
	known := make(map[string]bool, right.Len())
	for i := 0; i < right.Len(); i++ {
		if !right.IsMissing(i) {
			known[right.Text(i)] = true
		}
	}
	var idx []int
	for i := 0; i < left.Len(); i++ {
		if left.IsMissing(i) || !known[left.Text(i)] {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// Result gathers every metadata step.
type Result struct {
	Summaries   []VarSummary
	HighMissing []VarSummary
	Frequencies []FreqTable
	Describe    []DescRow
	Duplicates  []Duplicate
	Dropped     []string
	Legacy      LegacyComparison
	Output      *frame.Frame
	Dictionary  *frame.Frame
	Orphans     *frame.Frame
}

// Run profiles in, removes duplicate columns and builds the dictionary.
// master may be nil.
func Run(ctx context.Context, in, master *frame.Frame, opt Options) (*Result, error) {
	log := logging.FromContext(ctx)
	res := &Result{Summaries: Summaries(in)}
	res.HighMissing = HighMissing(res.Summaries, opt.HighMissingPct)
	log.Info("missing values profiled", "numeric", len(res.Summaries), "high_missing", len(res.HighMissing))

	for _, v := range opt.CategoricalVars {
		res.Frequencies = append(res.Frequencies, Frequencies(in, v))
	}
	res.Describe = Describe(in, opt.DescribeVars)

	dups, err := DuplicateColumns(ctx, in, opt)
	if err != nil {
		return nil, err
	}
	res.Duplicates = dups
	res.Output = in.Select(in.Names()...)
	res.Dropped = res.Output.Drop(DropList(dups)...)
	res.Legacy = CompareLegacy(res.Dropped)
	log.Info("duplicate columns removed", "groups", countGroups(dups), "dropped", len(res.Dropped),
		"matching_legacy", len(res.Legacy.Both))

	res.Dictionary = Dictionary(in, res)
	res.Orphans = Orphans(in, master, opt.CustomerKey)
	if master != nil {
		log.Info("orphan records", "rows", res.Orphans.Rows())
	}
	return res, nil
}
