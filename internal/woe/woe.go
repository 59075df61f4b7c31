// Package woe computes weight-of-evidence binning and information value
// for numeric predictors of a binary default target.
package woe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

var (
	// ErrNoTarget is returned when the target column is absent or not numeric.
	ErrNoTarget = errors.New("target column missing or not numeric")
	// ErrTargetNotBinary is returned when the target holds values other than 0 and 1.
	ErrTargetNotBinary = errors.New("target must be 0/1")
)

// Options controls binning and the IV filter.
type Options struct {
	Target string
	// Bins is the number of quantile bins per variable.
	Bins int
	// Smoothing replaces zero class shares inside the WoE and IV terms.
	Smoothing float64
	// ManualVar is binned on ManualEdges instead of quantiles.
	ManualVar   string
	ManualEdges []float64
	IVMin       float64
	IVMax       float64
	KeepVars    []string
	// Workers bounds concurrent variables; 0 means GOMAXPROCS.
	Workers int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Target:      "default_flag",
		Bins:        10,
		Smoothing:   0.0001,
		ManualVar:   "bureau_score",
		ManualEdges: []float64{400, 500, 600, 700},
		IVMin:       0.015,
		IVMax:       5.0,
	}
}

// BinStat is one row of the WoE statistics table.
type BinStat struct {
	Bin         int
	Label       string
	Bad         float64
	Total       float64
	Good        float64
	PctGood     float64
	PctBad      float64
	WoE         float64
	IVComponent float64
}

// VariableResult holds the binning of one variable.
type VariableResult struct {
	Variable string
	IV       float64
	Bins     []BinStat
	// rowBin is the bin of every input row, stats.Missing when unbinned.
	rowBin []int
}

// WoEOf returns the WoE for a bin id, NaN when the bin is unknown.
func (r *VariableResult) WoEOf(bin int) float64 {
	for _, b := range r.Bins {
		if b.Bin == bin {
			return b.WoE
		}
	}
	return math.NaN()
}

// Variables lists numeric columns other than the target, compared case-insensitively.
func Variables(f *frame.Frame, target string) []string {
	var out []string
	for _, n := range f.NumericNames() {
		if strings.EqualFold(n, target) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// TargetValues returns the target column after checking it is 0/1 (missing allowed).
func TargetValues(f *frame.Frame, target string) ([]float64, error) {
	y, ok := f.Num(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTarget, target)
	}
	for i, v := range y {
		if !math.IsNaN(v) && v != 0 && v != 1 {
			return nil, fmt.Errorf("%w: row %d has %v", ErrTargetNotBinary, i+1, v)
		}
	}
	return y, nil
}

// ComputeVariable bins x against target y. Rows with missing x are ignored;
// a missing target counts toward the bin total but not as a bad.
func ComputeVariable(name string, x, y []float64, opt Options) VariableResult {
	res := VariableResult{Variable: name, rowBin: make([]int, len(x))}
	for i := range res.rowBin {
		res.rowBin[i] = stats.Missing
	}

	idx := make([]int, 0, len(x))
	vals := make([]float64, 0, len(x))
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		idx = append(idx, i)
		vals = append(vals, v)
	}

	var labels []int
	var names []string
	if name == opt.ManualVar && len(opt.ManualEdges) > 0 {
		labels = stats.CutLeft(vals, opt.ManualEdges)
		names = stats.LeftLabels(opt.ManualEdges)
	} else {
		labels = stats.QCutOrRank(vals, opt.Bins)
	}

	agg := map[int]*BinStat{}
	for k, i := range idx {
		b := labels[k]
		if b < 0 {
			continue
		}
		res.rowBin[i] = b
		s, ok := agg[b]
		if !ok {
			s = &BinStat{Bin: b, Label: strconv.Itoa(b)}
			if b < len(names) {
				s.Label = names[b]
			}
			agg[b] = s
		}
		s.Total++
		if !math.IsNaN(y[i]) {
			s.Bad += y[i]
		}
	}

	var totGood, totBad float64
	for _, s := range agg {
		s.Good = s.Total - s.Bad
		totGood += s.Good
		totBad += s.Bad
	}
	for _, s := range agg {
		res.Bins = append(res.Bins, *s)
	}
	sort.Slice(res.Bins, func(a, b int) bool { return res.Bins[a].Bin < res.Bins[b].Bin })

	if totGood == 0 || totBad == 0 {
		return res
	}
	for k := range res.Bins {
		b := &res.Bins[k]
		b.PctGood = b.Good / totGood
		b.PctBad = b.Bad / totBad
		pg, pb := smooth(b.PctGood, opt.Smoothing), smooth(b.PctBad, opt.Smoothing)
		b.WoE = math.Log(pg / pb)
		b.IVComponent = (pg - pb) * b.WoE
		res.IV += b.IVComponent
	}
	return res
}

func smooth(p, eps float64) float64 {
	if p == 0 {
		return eps
	}
	return p
}

// ComputeAll bins every variable concurrently and returns results ordered
// by IV descending, then name.
func ComputeAll(ctx context.Context, f *frame.Frame, opt Options) ([]VariableResult, error) {
	y, err := TargetValues(f, opt.Target)
	if err != nil {
		return nil, err
	}
	vars := Variables(f, opt.Target)
	results := make([]VariableResult, len(vars))

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range vars {
		x, _ := f.Num(name)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ComputeVariable(name, x, y, opt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].IV != results[b].IV {
			return results[a].IV > results[b].IV
		}
		return results[a].Variable < results[b].Variable
	})
	return results, nil
}

// Transform returns a copy of f with every binned variable replaced by the
// WoE of its bin. Unbinned cells become NaN.
func Transform(f *frame.Frame, results []VariableResult) *frame.Frame {
	out := f.Clone()
	for i := range results {
		r := &results[i]
		if len(r.rowBin) != f.Rows() {
			continue
		}
		woeByBin := make(map[int]float64, len(r.Bins))
		for _, b := range r.Bins {
			woeByBin[b.Bin] = b.WoE
		}
		col := make([]float64, f.Rows())
		for row, b := range r.rowBin {
			w, ok := woeByBin[b]
			if !ok {
				w = math.NaN()
			}
			col[row] = w
		}
		out.SetNum(r.Variable, col)
	}
	return out
}

// SummaryFrame is the variable/IV table.
func SummaryFrame(results []VariableResult) *frame.Frame {
	names := make([]string, len(results))
	iv := make([]float64, len(results))
	for i, r := range results {
		names[i] = r.Variable
		iv[i] = r.IV
	}
	return frame.MustFromColumns(frame.StringColumn("variable", names), frame.NumericColumn("IV", iv))
}

// StatisticsFrame flattens per-bin statistics of all variables.
func StatisticsFrame(results []VariableResult) *frame.Frame {
	var (
		bin, variable                                  []string
		bad, total, good, pctGood, pctBad, woe, ivComp []float64
	)
	for _, r := range results {
		for _, b := range r.Bins {
			bin = append(bin, b.Label)
			bad = append(bad, b.Bad)
			total = append(total, b.Total)
			good = append(good, b.Good)
			pctGood = append(pctGood, b.PctGood)
			pctBad = append(pctBad, b.PctBad)
			woe = append(woe, b.WoE)
			ivComp = append(ivComp, b.IVComponent)
			variable = append(variable, r.Variable)
		}
	}
	return frame.MustFromColumns(
		frame.StringColumn("bin", bin),
		frame.NumericColumn("bad", bad),
		frame.NumericColumn("total", total),
		frame.NumericColumn("good", good),
		frame.NumericColumn("pct_good", pctGood),
		frame.NumericColumn("pct_bad", pctBad),
		frame.NumericColumn("woe", woe),
		frame.NumericColumn("iv_component", ivComp),
		frame.StringColumn("variable", variable),
	)
}
