// Package collinear removes redundant predictors by pairwise correlation
// and variance inflation.
package collinear

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Options holds the correlation and VIF thresholds.
type Options struct {
	Target         string
	PairThreshold  float64
	DropAbove      float64
	DropAboveLowIV float64
	MinIV          float64
	VIFThreshold   float64
	Exclude        []string
	Protected      []string
	// FinalKeep, when non-empty, is the reviewed list the output is restricted to.
	FinalKeep []string
	Workers   int
}

// DefaultOptions mirrors the configuration defaults without lists.
func DefaultOptions() Options {
	return Options{
		Target:         "default_flag",
		PairThreshold:  0.90,
		DropAbove:      0.98,
		DropAboveLowIV: 0.95,
		MinIV:          0.02,
		VIFThreshold:   10,
	}
}

// Pair is a pair of variables with correlation at or above the threshold.
type Pair struct {
	Var1 string
	Var2 string
	Corr float64
}

func nameSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = true
	}
	return m
}

// candidates lists numeric columns other than the target and excluded names.
func candidates(f *frame.Frame, opt Options) []string {
	skip := nameSet(opt.Exclude)
	skip[strings.ToLower(opt.Target)] = true
	var out []string
	for _, n := range f.NumericNames() {
		if !skip[strings.ToLower(n)] {
			out = append(out, n)
		}
	}
	return out
}

// HighPairs returns pairs (i<j in column order) with signed correlation >= threshold.
func HighPairs(f *frame.Frame, vars []string, threshold float64) []Pair {
	cols := make([][]float64, len(vars))
	for i, v := range vars {
		cols[i], _ = f.Num(v)
	}
	m := stats.CorrMatrix(cols)
	var out []Pair
	for i := range vars {
		for j := i + 1; j < len(vars); j++ {
			if r := m[i][j]; !math.IsNaN(r) && r >= threshold {
				out = append(out, Pair{Var1: vars[i], Var2: vars[j], Corr: r})
			}
		}
	}
	return out
}

// CorrelationDrops picks the second variable of each pair when the
// correlation exceeds DropAbove, or exceeds DropAboveLowIV while that
// variable's IV is below MinIV. Variables without an IV count as 0.
func CorrelationDrops(pairs []Pair, iv map[string]float64, opt Options) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range pairs {
		drop := p.Corr > opt.DropAbove || (p.Corr > opt.DropAboveLowIV && iv[p.Var2] < opt.MinIV)
		if drop && !seen[p.Var2] {
			seen[p.Var2] = true
			out = append(out, p.Var2)
		}
	}
	return out
}

// IVMap reads a variable/IV table.
func IVMap(f *frame.Frame) map[string]float64 {
	out := make(map[string]float64)
	if f == nil {
		return out
	}
	names, ok1 := f.Str("variable")
	iv, ok2 := f.Num("IV")
	if !ok1 || !ok2 {
		return out
	}
	for i, n := range names {
		out[n] = iv[i]
	}
	return out
}

// VIFDrops lists variables above the VIF threshold that are not protected.
func VIFDrops(rows []VIFRow, opt Options) []string {
	protected := nameSet(opt.Protected)
	var out []string
	for _, r := range rows {
		if r.VIF > opt.VIFThreshold && !protected[strings.ToLower(r.Variable)] {
			out = append(out, r.Variable)
		}
	}
	return out
}

// Result bundles the outputs of a collinearity run.
type Result struct {
	Pairs     []Pair
	CorrDrops []string
	VIF       []VIFRow
	VIFDrops  []string
	// Flagged lists reviewed variables removed by the correlation or VIF rules.
	Flagged []string
	Final   *frame.Frame
}

// Run drops correlated variables, then computes VIF on the survivors and
// drops inflated ones. A reviewed keep list restricts what remains; it never
// brings back a dropped variable.
func Run(ctx context.Context, in *frame.Frame, ivTable *frame.Frame, opt Options) (*Result, error) {
	log := logging.FromContext(ctx)
	vars := candidates(in, opt)

	pairs := HighPairs(in, vars, opt.PairThreshold)
	corrDrops := CorrelationDrops(pairs, IVMap(ivTable), opt)
	f := in.Select(in.Names()...)
	f.Drop(corrDrops...)
	log.Info("correlation screen", "pairs", len(pairs), "drops", len(corrDrops), "remaining", f.Width())

	vif, err := VIF(ctx, f, opt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		log.Warn("vif calculation failed", "err", err)
		vif = nil
	}
	vifDrops := VIFDrops(vif, opt)
	f.Drop(vifDrops...)
	log.Info("vif screen", "variables", len(vif), "drops", len(vifDrops), "remaining", f.Width())

	res := &Result{Pairs: pairs, CorrDrops: corrDrops, VIF: vif, VIFDrops: vifDrops}
	var keep []string
	if len(opt.FinalKeep) > 0 {
		for _, v := range opt.FinalKeep {
			if strings.EqualFold(v, opt.Target) {
				continue
			}
			switch {
			case f.Has(v):
				keep = append(keep, v)
			case in.Has(v):
				res.Flagged = append(res.Flagged, v)
			}
		}
	} else {
		for _, v := range f.Names() {
			if !strings.EqualFold(v, opt.Target) {
				keep = append(keep, v)
			}
		}
	}
	if len(res.Flagged) > 0 {
		sort.Strings(res.Flagged)
		log.Warn("reviewed variables removed by collinearity rules", "variables", strings.Join(res.Flagged, ","))
	}
	if in.Has(opt.Target) {
		keep = append(keep, opt.Target)
	}
	res.Final = f.Select(keep...)
	return res, nil
}

// PairsFrame is the var1, var2, correlation table.
func PairsFrame(pairs []Pair) *frame.Frame {
	v1 := make([]string, len(pairs))
	v2 := make([]string, len(pairs))
	r := make([]float64, len(pairs))
	for i, p := range pairs {
		v1[i], v2[i], r[i] = p.Var1, p.Var2, p.Corr
	}
	return frame.MustFromColumns(
		frame.StringColumn("var1", v1),
		frame.StringColumn("var2", v2),
		frame.NumericColumn("correlation", r),
	)
}
