// Package analysis profiles tabular datasets for a quick markdown summary.
package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Options controls analysis behavior for tabular data.
type Options struct {
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Sheet selects an XLSX sheet by name.
	Sheet string
	// GroupBy computes per-group numeric summaries, e.g. by the target flag.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// OutlierThreshold is the robust |z| (MAD) above which a value counts as
	// an outlier. 0 disables outlier counting.
	OutlierThreshold float64
	// MaxCategories is the cardinality up to which a string column is
	// reported as categorical rather than text.
	MaxCategories int
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		SampleRows:       5,
		OutlierThreshold: 3.5,
		MaxCategories:    50,
	}
}

// Report is a markdown-friendly analysis of a tabular dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Groups   []GroupResult
	Corr     *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|empty
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Column  string
	Key     string
	Size    int
	Metrics map[string]NumSummary
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Analyze reads a CSV or XLSX file and profiles it.
func Analyze(path string, opt Options) (*Report, error) {
	f, err := frame.Read(path, frame.ReadOptions{Sheet: opt.Sheet, MaxRows: opt.MaxRows})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", filepath.Base(path), err)
	}
	rep := Profile(filepath.Base(path), f, opt)
	if opt.MaxRows > 0 && f.Rows() >= opt.MaxRows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only the first %d rows due to MaxRows", opt.MaxRows))
	}
	return rep, nil
}

// Profile summarises every column of f.
func Profile(name string, f *frame.Frame, opt Options) *Report {
	rep := &Report{Name: name, Rows: f.Rows()}
	for _, c := range f.Columns() {
		rep.Cols = append(rep.Cols, summarize(f, c, opt))
	}

	n := opt.SampleRows
	if n > f.Rows() {
		n = f.Rows()
	}
	for i := 0; i < n; i++ {
		rep.Samples = append(rep.Samples, f.Row(i))
	}

	for _, g := range opt.GroupBy {
		groups, err := groupBy(f, g)
		if err != nil {
			rep.Warnings = append(rep.Warnings, err.Error())
			continue
		}
		rep.Groups = append(rep.Groups, groups...)
	}

	if opt.Correlations {
		names := f.NumericNames()
		if len(names) >= 2 {
			cols := make([][]float64, len(names))
			for i, n := range names {
				cols[i], _ = f.Num(n)
			}
			rep.Corr = &CorrMatrix{Columns: names, Values: stats.CorrMatrix(cols)}
		}
	}
	return rep
}

func summarize(f *frame.Frame, c *frame.Column, opt Options) ColumnSummary {
	s := ColumnSummary{Name: c.Name, NonNull: c.Count()}
	s.Missing = c.Len() - s.NonNull
	if s.NonNull == 0 {
		s.Kind = "empty"
		return s
	}
	if c.Kind == frame.Numeric {
		s.Kind = "numeric"
		s.Min, s.Max = stats.Min(c.Num), stats.Max(c.Num)
		s.Mean = stats.Mean(c.Num)
		if s.NonNull > 1 {
			s.Std = stats.Std(c.Num)
		}
		s.Unique = distinct(c)
		if opt.OutlierThreshold > 0 && s.NonNull >= 8 {
			s.OutlierThreshold = opt.OutlierThreshold
			s.OutliersCount, s.OutliersMaxAbsZ = outliers(c.Num, opt.OutlierThreshold)
		}
		return s
	}

	if _, ok, _ := f.Dates(c.Name); allDates(c, ok) {
		s.Kind = "datetime"
		s.Unique = distinct(c)
		return s
	}

	counts := map[string]int{}
	for _, v := range c.Str {
		if v != "" {
			counts[v]++
		}
	}
	s.Unique = len(counts)
	if s.Unique <= opt.MaxCategories || opt.MaxCategories <= 0 {
		s.Kind = "categorical"
		tops := make([]CategoryCount, 0, len(counts))
		for k, v := range counts {
			tops = append(tops, CategoryCount{Value: k, Count: v})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > 8 {
			tops = tops[:8]
		}
		s.TopValues = tops
		return s
	}
	s.Kind = "text"
	for _, v := range c.Str {
		if v != "" && len(s.ExampleTexts) < 3 {
			s.ExampleTexts = append(s.ExampleTexts, v)
		}
	}
	return s
}

func allDates(c *frame.Column, ok []bool) bool {
	for i, v := range c.Str {
		if v != "" && !ok[i] {
			return false
		}
	}
	return true
}

func distinct(c *frame.Column) int {
	seen := map[string]bool{}
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			seen[c.Text(i)] = true
		}
	}
	return len(seen)
}

// outliers counts values whose robust z-score exceeds thr.
func outliers(x []float64, thr float64) (int, float64) {
	median, mad := stats.MedianMAD(x)
	if !(mad > 0) {
		return 0, 0
	}
	var cnt int
	maxAbsZ := 0.0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			cnt++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return cnt, maxAbsZ
}

func groupBy(f *frame.Frame, name string) ([]GroupResult, error) {
	key, err := f.Column(name)
	if err != nil {
		return nil, fmt.Errorf("group by: %w", err)
	}
	rows := map[string][]int{}
	for i := 0; i < f.Rows(); i++ {
		k := key.Text(i)
		if k == "" {
			k = "(missing)"
		}
		rows[k] = append(rows[k], i)
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]GroupResult, 0, len(keys))
	for _, k := range keys {
		g := GroupResult{Column: name, Key: k, Size: len(rows[k]), Metrics: map[string]NumSummary{}}
		for _, col := range f.NumericNames() {
			if col == name {
				continue
			}
			all, _ := f.Num(col)
			vals := make([]float64, len(rows[k]))
			for j, i := range rows[k] {
				vals[j] = all[i]
			}
			if n := stats.Count(vals); n > 0 {
				g.Metrics[col] = NumSummary{Count: n, Min: stats.Min(vals), Max: stats.Max(vals), Mean: stats.Mean(vals)}
			}
		}
		out = append(out, g)
	}
	return out, nil
}

// TopPairs returns up to n column pairs ordered by |r|, skipping undefined correlations.
func (m *CorrMatrix) TopPairs(n int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if r := m.Values[i][j]; !math.IsNaN(r) {
				pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}
