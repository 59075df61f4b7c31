package reduce

import "github.com/KaramelBytes/scoreloom-cli/internal/frame"

// DropLogFrame lists every removed column with its stage and reason.
func DropLogFrame(drops []Drop) *frame.Frame {
	stage := make([]float64, len(drops))
	vars := make([]string, len(drops))
	reason := make([]string, len(drops))
	for i, d := range drops {
		stage[i] = float64(d.Stage)
		vars[i] = d.Variable
		reason[i] = d.Reason
	}
	return frame.MustFromColumns(
		frame.NumericColumn("stage", stage),
		frame.StringColumn("variable", vars),
		frame.StringColumn("reason", reason),
	)
}

// ComparisonFrame writes the comparison as (category, variable) rows.
func ComparisonFrame(c Comparison) *frame.Frame {
	var cat, vars []string
	add := func(name string, vs []string) {
		for _, v := range vs {
			cat = append(cat, name)
			vars = append(vars, v)
		}
	}
	add("in_correlation_not_hardcoded", c.CorrelationOnly)
	add("in_hardcoded_not_correlation", c.HardcodedOnly)
	add("in_both", c.Both)
	return frame.MustFromColumns(
		frame.StringColumn("category", cat),
		frame.StringColumn("variable", vars),
	)
}

func VarianceFrame(rows []VarianceRow) *frame.Frame {
	n := len(rows)
	vars := make([]string, n)
	std, lo, hi, cnt, miss, dropped := make([]float64, n), make([]float64, n), make([]float64, n),
		make([]float64, n), make([]float64, n), make([]float64, n)
	for i, r := range rows {
		vars[i] = r.Variable
		std[i], lo[i], hi[i] = r.Std, r.Min, r.Max
		cnt[i], miss[i] = float64(r.N), float64(r.NMiss)
		if r.Dropped {
			dropped[i] = 1
		}
	}
	return frame.MustFromColumns(
		frame.StringColumn("variable", vars),
		frame.NumericColumn("std", std),
		frame.NumericColumn("min", lo),
		frame.NumericColumn("max", hi),
		frame.NumericColumn("n", cnt),
		frame.NumericColumn("nmiss", miss),
		frame.NumericColumn("dropped", dropped),
	)
}

func MissingFrame(rows []MissingRow) *frame.Frame {
	n := len(rows)
	vars := make([]string, n)
	cnt, miss, pct := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, r := range rows {
		vars[i] = r.Variable
		cnt[i], miss[i], pct[i] = float64(r.N), float64(r.NMiss), r.MissingPct
	}
	return frame.MustFromColumns(
		frame.StringColumn("varname", vars),
		frame.NumericColumn("n", cnt),
		frame.NumericColumn("nmiss", miss),
		frame.NumericColumn("missing_pct", pct),
	)
}
