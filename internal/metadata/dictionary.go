package metadata

import (
	"math"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Dictionary describes every input column with the findings of res.
func Dictionary(in *frame.Frame, res *Result) *frame.Frame {
	dropped := make(map[string]bool, len(res.Dropped))
	for _, v := range res.Dropped {
		dropped[v] = true
	}
	categorical := make(map[string]bool, len(res.Frequencies))
	for _, t := range res.Frequencies {
		categorical[t.Variable] = true
	}
	described := make(map[string]DescRow, len(res.Describe))
	for _, d := range res.Describe {
		described[d.Variable] = d
	}

	n := in.Width()
	names, kinds := make([]string, n), make([]string, n)
	isDup, isDropped, isCat := make([]string, n), make([]string, n), make([]string, n)
	count, miss, pct := make([]float64, n), make([]float64, n), make([]float64, n)
	mean, std, lo, hi, unique := make([]float64, n), make([]float64, n), make([]float64, n),
		make([]float64, n), make([]float64, n)

	for i, c := range in.Columns() {
		names[i] = c.Name
		numeric := c.Kind == frame.Numeric
		kinds[i] = "Categorical"
		if numeric {
			kinds[i] = "Numeric"
		}
		count[i] = float64(c.Count())
		miss[i] = float64(in.Rows() - c.Count())
		if in.Rows() > 0 {
			pct[i] = stats.Round(miss[i]/float64(in.Rows())*100, 2)
		}
		isDup[i] = yesNo(dropped[c.Name])
		isDropped[i] = yesNo(dropped[c.Name])
		isCat[i] = yesNo(categorical[c.Name])

		mean[i], std[i], lo[i], hi[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		if d, ok := described[c.Name]; ok {
			mean[i], std[i], lo[i], hi[i] = d.Mean, d.Std, d.Min, d.Max
		} else if numeric {
			mean[i] = stats.Round(stats.Mean(c.Num), 2)
			std[i] = stats.Round(stats.Std(c.Num), 2)
			lo[i], hi[i] = stats.Min(c.Num), stats.Max(c.Num)
		}
		unique[i] = math.NaN()
		if categorical[c.Name] || !numeric {
			unique[i] = float64(len(in.Unique(c.Name)))
		}
	}
	return frame.MustFromColumns(
		frame.StringColumn("Variable", names),
		frame.StringColumn("Data_Type", kinds),
		frame.NumericColumn("N", count),
		frame.NumericColumn("NMiss", miss),
		frame.NumericColumn("Pct_Missing", pct),
		frame.StringColumn("Is_Duplicate", isDup),
		frame.StringColumn("Is_Dropped", isDropped),
		frame.StringColumn("Is_Categorical", isCat),
		frame.NumericColumn("Mean", mean),
		frame.NumericColumn("Std", std),
		frame.NumericColumn("Min", lo),
		frame.NumericColumn("Max", hi),
		frame.NumericColumn("Unique_Values", unique),
	)
}

// SummaryFrame is the Variable, N, NMiss, Pct_Missing table with a TOTAL row.
func SummaryFrame(s []VarSummary) *frame.Frame {
	names := make([]string, 0, len(s)+1)
	count, miss, pct := make([]float64, 0, len(s)+1), make([]float64, 0, len(s)+1), make([]float64, 0, len(s)+1)
	var totalN, totalMiss int
	for _, v := range s {
		names = append(names, v.Variable)
		count = append(count, float64(v.N))
		miss = append(miss, float64(v.NMiss))
		pct = append(pct, v.PctMissing)
		totalN += v.N
		totalMiss += v.NMiss
	}
	names = append(names, "TOTAL")
	count = append(count, float64(totalN))
	miss = append(miss, float64(totalMiss))
	pct = append(pct, math.NaN())
	return frame.MustFromColumns(
		frame.StringColumn("Variable", names),
		frame.NumericColumn("N", count),
		frame.NumericColumn("NMiss", miss),
		frame.NumericColumn("Pct_Missing", pct),
	)
}
