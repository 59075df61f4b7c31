// Package features filters the observation window, derives behavioural
// features and treats missing values and outliers before binning.
package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

type Options struct {
	Target          string
	ObsStart        time.Time
	ObsEnd          time.Time
	MinTenureMonths float64
	CapVars         []string
	LowerPct        float64
	UpperPct        float64
	Deciles         int
}

func DefaultOptions() Options {
	return Options{
		Target:          "default_flag",
		ObsStart:        time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		ObsEnd:          time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
		MinTenureMonths: 3,
		CapVars:         []string{"bureau_score", "total_emi", "monthly_income"},
		LowerPct:        0.01,
		UpperPct:        0.99,
		Deciles:         10,
	}
}

// FilterWindow keeps rows whose snapshot_date lies within [start, end].
// Rows with an unreadable date are dropped. Frames without the column pass
// through unchanged.
func FilterWindow(f *frame.Frame, start, end time.Time) *frame.Frame {
	ts, ok, found := f.Dates("snapshot_date")
	if !found {
		return f
	}
	keep := make([]bool, len(ts))
	for i, t := range ts {
		keep[i] = ok[i] && !t.Before(start) && !t.After(end)
	}
	return f.Filter(keep)
}

// Exclude drops written-off accounts, non-positive incomes, applications
// dated after the snapshot and tenures below the minimum. It returns the
// kept rows and the excluded count.
func Exclude(f *frame.Frame, minTenure float64) (*frame.Frame, int) {
	keep := make([]bool, f.Rows())
	for i := range keep {
		keep[i] = true
	}
	rule := func(name string, pass func(v float64) bool) {
		x, ok := f.Num(name)
		if !ok {
			return
		}
		for i, v := range x {
			keep[i] = keep[i] && pass(v)
		}
	}
	rule("write_off_flag", func(v float64) bool { return v != 1 })
	rule("monthly_income", func(v float64) bool { return v > 0 })
	rule("tenure_months", func(v float64) bool { return v >= minTenure })

	app, appOK, hasApp := f.Dates("application_date")
	snap, snapOK, hasSnap := f.Dates("snapshot_date")
	if hasApp && hasSnap {
		for i := range keep {
			keep[i] = keep[i] && appOK[i] && snapOK[i] && !app[i].After(snap[i])
		}
	}
	out := f.Filter(keep)
	return out, f.Rows() - out.Rows()
}

// existing returns the columns prefix1..prefixN that are present.
func existing(f *frame.Frame, prefix string, n int) [][]float64 {
	var out [][]float64
	for i := 1; i <= n; i++ {
		if x, ok := f.Num(fmt.Sprintf("%s%d", prefix, i)); ok {
			out = append(out, x)
		}
	}
	return out
}

// rowReduce folds the non-NaN values of each row across cols. Rows with no
// values get empty.
func rowReduce(rows int, cols [][]float64, empty float64, fold func(acc, v float64, n int) float64) []float64 {
	out := make([]float64, rows)
	for i := range out {
		acc, n := empty, 0
		for _, c := range cols {
			if v := c[i]; !math.IsNaN(v) {
				n++
				acc = fold(acc, v, n)
			}
		}
		out[i] = acc
	}
	return out
}

func rowMax(rows int, cols [][]float64) []float64 {
	return rowReduce(rows, cols, math.NaN(), func(acc, v float64, n int) float64 {
		if n == 1 || v > acc {
			return v
		}
		return acc
	})
}

func rowSum(rows int, cols [][]float64) []float64 {
	return rowReduce(rows, cols, 0, func(acc, v float64, _ int) float64 { return acc + v })
}

func rowMean(rows int, cols [][]float64) []float64 {
	return rowReduce(rows, cols, math.NaN(), func(acc, v float64, n int) float64 {
		if n == 1 {
			return v
		}
		return acc + (v-acc)/float64(n)
	})
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// cutRight labels values by right-closed intervals (-inf, e0], (e0, e1], ...
func cutRight(x, edges []float64, labels []string) []string {
	out := make([]string, len(x))
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		out[i] = labels[sort.SearchFloat64s(edges, v)]
	}
	return out
}

// Derive adds the delinquency, utilisation, affordability and demographic
// features to a copy of f.
func Derive(f *frame.Frame) *frame.Frame {
	out := f.Select(f.Names()...)
	n := f.Rows()
	nan := func() []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = math.NaN()
		}
		return v
	}

	dpd := existing(f, "dpd_m", 12)
	f0, f31, f61 := make([]float64, n), make([]float64, n), make([]float64, n)
	for _, c := range dpd {
		for i, v := range c {
			switch {
			case v >= 1 && v <= 30:
				f0[i]++
			case v >= 31 && v <= 60:
				f31[i]++
			case v >= 61:
				f61[i]++
			}
		}
	}
	out.SetNum("dpd_0to30_freq", f0)
	out.SetNum("dpd_31to60_freq", f31)
	out.SetNum("dpd_61plus_freq", f61)

	recent := make([]float64, n)
	if cols := existing(f, "dpd_m", 3); len(cols) > 0 {
		for i, m := range rowMax(n, cols) {
			recent[i] = flag(m > 0)
		}
	}
	out.SetNum("dpd_recent_flag", recent)

	worsening := make([]float64, n)
	m1, ok1 := f.Num("dpd_m1")
	m2, ok2 := f.Num("dpd_m2")
	m3, ok3 := f.Num("dpd_m3")
	if ok1 && ok2 && ok3 {
		for i := range worsening {
			worsening[i] = flag(m1[i] > m2[i] && m2[i] > m3[i])
		}
	}
	out.SetNum("dpd_worsening_flag", worsening)

	if cols := existing(f, "util_m", 3); len(cols) > 0 {
		out.SetNum("avg_util_3m", rowMean(n, cols))
	} else {
		out.SetNum("avg_util_3m", nan())
	}

	ratio := nan()
	emi, okE := f.Num("total_emi")
	income, okI := f.Num("monthly_income")
	if okE && okI {
		for i := range ratio {
			if income[i] != 0 {
				ratio[i] = emi[i] / income[i]
			}
		}
	}
	out.SetNum("emi_to_income_ratio", ratio)

	if x, ok := f.Num("loan_tenure"); ok {
		out.SetStr("loan_tenure_bucket", cutRight(x, []float64{12, 36}, []string{"Short", "Medium", "Long"}))
	} else {
		out.SetStr("loan_tenure_bucket", make([]string, n))
	}
	if x, ok := f.Num("age"); ok {
		out.SetStr("age_band", cutRight(x, []float64{25, 35, 50}, []string{"<25", "25-35", "36-50", "50+"}))
	} else {
		out.SetStr("age_band", make([]string, n))
	}

	salary := make([]float64, n)
	if cols := existing(f, "salary_credit_m", 3); len(cols) > 0 {
		for i, s := range rowSum(n, cols) {
			salary[i] = flag(s > 0)
		}
	}
	out.SetNum("salary_credit_flag", salary)

	if cols := existing(f, "bounce_m", 3); len(cols) > 0 {
		out.SetNum("bounce_3m_count", rowSum(n, cols))
	} else {
		out.SetNum("bounce_3m_count", make([]float64, n))
	}

	toBureau := nan()
	if bureau, ok := f.Num("bureau_score"); ok && len(dpd) > 0 {
		for i, m := range rowMax(n, dpd) {
			if bureau[i] != 0 {
				toBureau[i] = m / (900 - bureau[i])
			}
		}
	}
	out.SetNum("dpd_to_bureau_ratio", toBureau)
	return out
}

// Treatment records how one variable was imputed and capped.
type Treatment struct {
	Variable string
	Mean     float64
	Median   float64
	Lower    float64
	Upper    float64
	Missing  int
}

// Treat adds <var>_miss_flag, fills missing values with the median and
// clips to the [lower, upper] percentiles. Statistics come from the
// untreated values.
func Treat(f *frame.Frame, vars []string, lower, upper float64) (*frame.Frame, []Treatment) {
	out := f.Select(f.Names()...)
	var ts []Treatment
	for _, v := range vars {
		x, ok := f.Num(v)
		if !ok {
			continue
		}
		t := Treatment{
			Variable: v,
			Mean:     stats.Mean(x),
			Median:   stats.Median(x),
			Lower:    stats.Quantile(x, lower),
			Upper:    stats.Quantile(x, upper),
		}
		miss := make([]float64, len(x))
		y := make([]float64, len(x))
		for i, val := range x {
			if math.IsNaN(val) {
				miss[i] = 1
				t.Missing++
				val = t.Median
			}
			if !math.IsNaN(t.Lower) && val < t.Lower {
				val = t.Lower
			}
			if !math.IsNaN(t.Upper) && val > t.Upper {
				val = t.Upper
			}
			y[i] = val
		}
		out.SetNum(v+"_miss_flag", miss)
		out.SetNum(v, y)
		ts = append(ts, t)
	}
	return out, ts
}

// DecileCount is the bad and good count of one bureau score decile.
type DecileCount struct {
	Decile int
	Bad    int
	Good   int
}

// BureauDeciles adds bureau_decile (Missing when unassigned) to a copy of f
// and counts bads and goods per decile.
func BureauDeciles(f *frame.Frame, target string, q int) (*frame.Frame, []DecileCount) {
	x, ok := f.Num("bureau_score")
	if !ok {
		return f, nil
	}
	labels := stats.QCutOrRank(x, q)
	dec := make([]float64, len(labels))
	for i, l := range labels {
		dec[i] = float64(l)
	}
	out := f.Select(f.Names()...)
	out.SetNum("bureau_decile", dec)

	y, ok := f.Num(target)
	if !ok {
		return out, nil
	}
	byDecile := map[int]*DecileCount{}
	for i, l := range labels {
		if l == stats.Missing {
			continue
		}
		c, ok := byDecile[l]
		if !ok {
			c = &DecileCount{Decile: l}
			byDecile[l] = c
		}
		if y[i] == 1 {
			c.Bad++
		} else {
			c.Good++
		}
	}
	counts := make([]DecileCount, 0, len(byDecile))
	for _, c := range byDecile {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(a, b int) bool { return counts[a].Decile < counts[b].Decile })
	return out, counts
}

func DecileFrame(counts []DecileCount) *frame.Frame {
	dec, bad, good := make([]float64, len(counts)), make([]float64, len(counts)), make([]float64, len(counts))
	for i, c := range counts {
		dec[i], bad[i], good[i] = float64(c.Decile), float64(c.Bad), float64(c.Good)
	}
	return frame.MustFromColumns(
		frame.NumericColumn("bureau_decile", dec),
		frame.NumericColumn("bad", bad),
		frame.NumericColumn("good", good),
	)
}

// Result holds the treated data and the binning-ready data.
type Result struct {
	Windowed   int
	Excluded   int
	Treated    *frame.Frame
	WoEReady   *frame.Frame
	Treatments []Treatment
	Deciles    []DecileCount
}

// Run applies the window, exclusions, derivations, treatment and deciles.
func Run(ctx context.Context, in *frame.Frame, opt Options) *Result {
	log := logging.FromContext(ctx)
	f := FilterWindow(in, opt.ObsStart, opt.ObsEnd)
	res := &Result{Windowed: f.Rows()}
	log.Info("observation window applied", "rows", f.Rows(), "outside", in.Rows()-f.Rows())

	f, res.Excluded = Exclude(f, opt.MinTenureMonths)
	log.Info("exclusions applied", "excluded", res.Excluded, "remaining", f.Rows())

	derived := Derive(f)
	log.Info("features derived", "added", derived.Width()-f.Width())

	res.Treated, res.Treatments = Treat(derived, opt.CapVars, opt.LowerPct, opt.UpperPct)
	for _, t := range res.Treatments {
		log.Debug("variable treated", "variable", t.Variable, "missing", t.Missing,
			"median", t.Median, "p_lower", t.Lower, "p_upper", t.Upper)
	}
	res.WoEReady, res.Deciles = BureauDeciles(res.Treated, opt.Target, opt.Deciles)
	return res
}
