// Package stats holds the NaN-aware descriptive statistics and binning
// helpers shared by the scorecard stages. Missing values are NaN and are
// skipped unless a function says otherwise.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyInput is returned when a computation has no usable observations.
var ErrEmptyInput = errors.New("no non-missing observations")

// DropNaN returns the non-NaN values of x in order.
func DropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of non-NaN values.
func Count(x []float64) int {
	n := 0
	for _, v := range x {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Sum adds the non-NaN values.
func Sum(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		if !math.IsNaN(v) {
			s += v
		}
	}
	return s
}

// Mean of the non-NaN values; NaN when there are none.
func Mean(x []float64) float64 {
	c := DropNaN(x)
	if len(c) == 0 {
		return math.NaN()
	}
	return stat.Mean(c, nil)
}

// Std is the sample standard deviation (n-1) of the non-NaN values.
func Std(x []float64) float64 {
	c := DropNaN(x)
	if len(c) < 2 {
		return math.NaN()
	}
	return stat.StdDev(c, nil)
}

// PopStd is the population standard deviation (n) of the non-NaN values.
func PopStd(x []float64) float64 {
	c := DropNaN(x)
	if len(c) == 0 {
		return math.NaN()
	}
	_, v := stat.PopMeanVariance(c, nil)
	return math.Sqrt(v)
}

// Variance is the sample variance of the non-NaN values.
func Variance(x []float64) float64 {
	c := DropNaN(x)
	if len(c) < 2 {
		return math.NaN()
	}
	return stat.Variance(c, nil)
}

// Min of the non-NaN values; NaN when there are none.
func Min(x []float64) float64 {
	m, seen := math.Inf(1), false
	for _, v := range x {
		if !math.IsNaN(v) {
			seen = true
			if v < m {
				m = v
			}
		}
	}
	if !seen {
		return math.NaN()
	}
	return m
}

// Max of the non-NaN values; NaN when there are none.
func Max(x []float64) float64 {
	m, seen := math.Inf(-1), false
	for _, v := range x {
		if !math.IsNaN(v) {
			seen = true
			if v > m {
				m = v
			}
		}
	}
	if !seen {
		return math.NaN()
	}
	return m
}

// Quantile returns the q-th quantile (0..1) of the non-NaN values using
// linear interpolation between closest ranks.
func Quantile(x []float64, q float64) float64 {
	c := DropNaN(x)
	if len(c) == 0 {
		return math.NaN()
	}
	sort.Float64s(c)
	return quantileSorted(c, q)
}

// Median is Quantile(x, 0.5).
func Median(x []float64) float64 { return Quantile(x, 0.5) }

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Clip bounds v to [lo, hi]; NaN passes through.
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// MedianMAD returns the median and the median absolute deviation.
func MedianMAD(x []float64) (median, mad float64) {
	c := DropNaN(x)
	if len(c) == 0 {
		return math.NaN(), math.NaN()
	}
	sort.Float64s(c)
	median = quantileSorted(c, 0.5)
	dev := make([]float64, len(c))
	for i, v := range c {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, quantileSorted(dev, 0.5)
}

// Pearson computes the correlation over rows where both x and y are present.
// It is NaN with fewer than two such rows or a constant input.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 || isConstant(xs) || isConstant(ys) {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// CorrMatrix returns the symmetric pairwise Pearson matrix of cols.
func CorrMatrix(cols [][]float64) [][]float64 {
	k := len(cols)
	m := make([][]float64, k)
	for i := range m {
		m[i] = make([]float64, k)
	}
	for i := 0; i < k; i++ {
		m[i][i] = 1
		if Count(cols[i]) < 2 || isConstant(DropNaN(cols[i])) {
			m[i][i] = math.NaN()
		}
		for j := i + 1; j < k; j++ {
			r := Pearson(cols[i], cols[j])
			m[i][j], m[j][i] = r, r
		}
	}
	return m
}
