package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// KS is the two-sample Kolmogorov-Smirnov statistic between a and b with
// its two-sided asymptotic p-value. NaN values are ignored.
func KS(a, b []float64) (d, p float64) {
	x, y := DropNaN(a), DropNaN(b)
	if len(x) == 0 || len(y) == 0 {
		return math.NaN(), math.NaN()
	}
	sort.Float64s(x)
	sort.Float64s(y)
	d = stat.KolmogorovSmirnov(x, nil, y, nil)
	n1, n2 := float64(len(x)), float64(len(y))
	en := math.Sqrt(n1 * n2 / (n1 + n2))
	return d, kolmogorovQ((en + 0.12 + 0.11/en) * d)
}

// kolmogorovQ is the survival function of the Kolmogorov distribution.
func kolmogorovQ(lambda float64) float64 {
	if lambda < 1e-6 {
		return 1
	}
	const eps1, eps2 = 1e-6, 1e-16
	a2 := -2 * lambda * lambda
	fac, sum, prev := 2.0, 0.0, 0.0
	for j := 1; j <= 100; j++ {
		term := fac * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= eps1*prev || math.Abs(term) <= eps2*sum {
			return math.Min(1, math.Max(0, sum))
		}
		fac = -fac
		prev = math.Abs(term)
	}
	return 1
}

// Curve is a receiver operating characteristic curve ordered by increasing
// false positive rate.
type Curve struct {
	FPR       []float64
	TPR       []float64
	Threshold []float64
}

// ROC computes the curve for scores where positive[i] marks the event
// class. Rows with NaN scores are skipped.
func ROC(scores []float64, positive []bool) Curve {
	y := make([]float64, 0, len(scores))
	cls := make([]bool, 0, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		y = append(y, s)
		cls = append(cls, positive[i])
	}
	if len(y) == 0 {
		return Curve{}
	}
	stat.SortWeightedLabeled(y, cls, nil)
	tpr, fpr, thr := stat.ROC(nil, y, cls, nil)
	return Curve{FPR: fpr, TPR: tpr, Threshold: thr}
}

// AUC integrates the curve with the trapezoidal rule. It is NaN when
// either class is absent.
func (c Curve) AUC() float64 {
	if len(c.FPR) < 2 {
		return math.NaN()
	}
	for i := range c.FPR {
		if math.IsNaN(c.FPR[i]) || math.IsNaN(c.TPR[i]) {
			return math.NaN()
		}
	}
	return integrate.Trapezoidal(c.FPR, c.TPR)
}
