package stats

import (
	"fmt"
	"math"
	"sort"
)

// Missing is the bin label of values that fall in no bin.
const Missing = -1

// QuantileEdges returns the q+1 quantile edges of the non-NaN values with
// duplicate edges removed.
func QuantileEdges(x []float64, q int) ([]float64, error) {
	if q < 1 {
		return nil, fmt.Errorf("quantile count must be positive, got %d", q)
	}
	c := DropNaN(x)
	if len(c) == 0 {
		return nil, ErrEmptyInput
	}
	sort.Float64s(c)
	edges := make([]float64, 0, q+1)
	for i := 0; i <= q; i++ {
		e := quantileSorted(c, float64(i)/float64(q))
		if len(edges) > 0 && e == edges[len(edges)-1] {
			continue
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// Assign maps each value to its bin among right-closed intervals
// (e[i], e[i+1]], the first interval also including e[0]. Values outside
// the edges, NaN values and degenerate edge sets map to Missing.
func Assign(x, edges []float64) []int {
	out := make([]int, len(x))
	for i, v := range x {
		out[i] = Missing
		if math.IsNaN(v) || len(edges) < 2 {
			continue
		}
		id := sort.SearchFloat64s(edges, v)
		if v == edges[0] {
			id = 1
		}
		if id == 0 || id == len(edges) {
			continue
		}
		out[i] = id - 1
	}
	return out
}

// QCut splits x into at most q equal-frequency bins, dropping duplicate edges.
func QCut(x []float64, q int) ([]int, []float64, error) {
	edges, err := QuantileEdges(x, q)
	if err != nil {
		return nil, nil, err
	}
	return Assign(x, edges), edges, nil
}

// RankFirst ranks values 1..n in ascending order, breaking ties by
// position. NaN values keep a NaN rank.
func RankFirst(x []float64) []float64 {
	idx := make([]int, 0, len(x))
	for i, v := range x {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	for r, i := range idx {
		out[i] = float64(r + 1)
	}
	return out
}

// QCutOrRank is QCut falling back to cutting the first-method ranks of x
// when the quantile cut fails.
func QCutOrRank(x []float64, q int) []int {
	if labels, _, err := QCut(x, q); err == nil {
		return labels
	}
	if labels, _, err := QCut(RankFirst(x), q); err == nil {
		return labels
	}
	out := make([]int, len(x))
	for i := range out {
		out[i] = Missing
	}
	return out
}

// CutLeft maps values to left-closed intervals [e[i-1], e[i]) over the
// open-ended edges: bin 0 is below edges[0], bin len(edges) is at or above
// the last edge. NaN maps to Missing.
func CutLeft(x, edges []float64) []int {
	out := make([]int, len(x))
	for i, v := range x {
		if math.IsNaN(v) {
			out[i] = Missing
			continue
		}
		out[i] = sort.Search(len(edges), func(j int) bool { return edges[j] > v })
	}
	return out
}

// LeftLabels names the CutLeft bins: "<e0", "e0-e1", ..., ">=en".
func LeftLabels(edges []float64) []string {
	if len(edges) == 0 {
		return []string{"all"}
	}
	out := make([]string, 0, len(edges)+1)
	out = append(out, "<"+fmtEdge(edges[0]))
	for i := 1; i < len(edges); i++ {
		out = append(out, fmtEdge(edges[i-1])+"-"+fmtEdge(edges[i]))
	}
	return append(out, ">="+fmtEdge(edges[len(edges)-1]))
}

func fmtEdge(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%g", v)
}

// IntervalLabel names bin i of right-closed quantile edges the way the
// binning report shows it, e.g. "(600, 650]".
func IntervalLabel(edges []float64, i int) string {
	if i < 0 || i+1 >= len(edges) {
		return "missing"
	}
	open := "("
	if i == 0 {
		open = "["
	}
	return fmt.Sprintf("%s%g, %g]", open, edges[i], edges[i+1])
}
