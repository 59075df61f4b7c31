package model

import (
	"math"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// DecileRow summarises one probability group.
type DecileRow struct {
	Decile      int
	TotalObs    int
	Defaults    int
	DefaultRate float64
	AvgPredProb float64
}

// Metrics are the discrimination statistics of one scored sample.
type Metrics struct {
	Rows     int     `yaml:"rows"`
	Defaults int     `yaml:"defaults"`
	AUC      float64 `yaml:"auc"`
	KS       float64 `yaml:"ks_statistic"`
	KSPValue float64 `yaml:"ks_p_value"`
}

// Deciles groups probabilities into at most q equal-frequency groups.
// Every row receives a group, so tied probabilities share group 0.
func Deciles(p []float64, q int) []int {
	labels, _, err := stats.QCut(p, q)
	if err != nil {
		return make([]int, len(p))
	}
	for i, l := range labels {
		if l == stats.Missing {
			labels[i] = 0
		}
	}
	return labels
}

// Performance aggregates targets and probabilities by decile, ascending.
func Performance(p, y []float64, q int) []DecileRow {
	groups := Deciles(p, q)
	top := -1
	for _, g := range groups {
		if g > top {
			top = g
		}
	}
	rows := make([]DecileRow, top+1)
	for i := range rows {
		rows[i].Decile = i
	}
	for i, g := range groups {
		r := &rows[g]
		r.TotalObs++
		if y[i] == 1 {
			r.Defaults++
		}
		r.AvgPredProb += p[i]
	}
	out := rows[:0]
	for _, r := range rows {
		if r.TotalObs == 0 {
			continue
		}
		r.DefaultRate = float64(r.Defaults) / float64(r.TotalObs)
		r.AvgPredProb /= float64(r.TotalObs)
		out = append(out, r)
	}
	return out
}

// Evaluate computes AUC and the KS statistic between the good and bad
// probability distributions.
func Evaluate(p, y []float64) (Metrics, stats.Curve) {
	m := Metrics{Rows: len(p)}
	positive := make([]bool, len(y))
	var good, bad []float64
	for i, v := range y {
		positive[i] = v == 1
		if positive[i] {
			m.Defaults++
			bad = append(bad, p[i])
		} else {
			good = append(good, p[i])
		}
	}
	curve := stats.ROC(p, positive)
	m.AUC = curve.AUC()
	m.KS, m.KSPValue = stats.KS(good, bad)
	return m, curve
}

func PerformanceFrame(rows []DecileRow) *frame.Frame {
	n := len(rows)
	dec, total, defaults, rate, avg := make([]float64, n), make([]float64, n), make([]float64, n),
		make([]float64, n), make([]float64, n)
	for i, r := range rows {
		dec[i] = float64(r.Decile)
		total[i] = float64(r.TotalObs)
		defaults[i] = float64(r.Defaults)
		rate[i] = r.DefaultRate
		avg[i] = r.AvgPredProb
	}
	return frame.MustFromColumns(
		frame.NumericColumn("decile", dec),
		frame.NumericColumn("total_obs", total),
		frame.NumericColumn("defaults", defaults),
		frame.NumericColumn("default_rate", rate),
		frame.NumericColumn("avg_pred_prob", avg),
	)
}

// CoefficientsFrame lists features by descending absolute coefficient.
func CoefficientsFrame(m *Logistic) *frame.Frame {
	idx := make([]int, len(m.Coef))
	for i := range idx {
		idx[i] = i
	}
	sortByAbs(idx, m.Coef)
	names := make([]string, len(idx))
	coef, abs := make([]float64, len(idx)), make([]float64, len(idx))
	for i, j := range idx {
		names[i] = m.Features[j]
		coef[i] = m.Coef[j]
		abs[i] = math.Abs(m.Coef[j])
	}
	return frame.MustFromColumns(
		frame.StringColumn("feature", names),
		frame.NumericColumn("coefficient", coef),
		frame.NumericColumn("abs_coefficient", abs),
	)
}
