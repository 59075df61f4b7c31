package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func TestDescriptiveSkipNaN(t *testing.T) {
	x := []float64{1, nan, 2, 3, 4}
	assert.Equal(t, 4, Count(x))
	assert.InDelta(t, 2.5, Mean(x), 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), Std(x), 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), PopStd(x), 1e-12)
	assert.Equal(t, 1.0, Min(x))
	assert.Equal(t, 4.0, Max(x))
	assert.InDelta(t, 2.5, Median(x), 1e-12)
	assert.True(t, math.IsNaN(Mean([]float64{nan})))
}

func TestQuantileLinear(t *testing.T) {
	x := []float64{10, 20, 30, 40, 50}
	assert.InDelta(t, 14, Quantile(x, 0.1), 1e-12)
	assert.InDelta(t, 50, Quantile(x, 1), 1e-12)
	assert.InDelta(t, 49.6, Quantile(x, 0.99), 1e-12)
}

func TestQCutDecilesPreserveRows(t *testing.T) {
	x := make([]float64, 95)
	for i := range x {
		x[i] = float64(i % 37)
	}
	labels, edges, err := QCut(x, 10)
	require.NoError(t, err)
	require.Len(t, labels, len(x))
	groups := map[int]int{}
	for _, l := range labels {
		require.GreaterOrEqual(t, l, 0)
		groups[l]++
	}
	assert.LessOrEqual(t, len(groups), 10)
	assert.Equal(t, len(edges)-1, len(groups))
	total := 0
	for _, n := range groups {
		total += n
	}
	assert.Equal(t, len(x), total)
}

func TestQCutDropsDuplicateEdges(t *testing.T) {
	x := []float64{0, 0, 0, 0, 0, 0, 0, 1, 2, 3}
	labels, edges, err := QCut(x, 10)
	require.NoError(t, err)
	assert.Less(t, len(edges), 11)
	assert.Equal(t, 0, labels[0])
	assert.Equal(t, labels[0], labels[6])
}

func TestQCutConstantIsUnbinned(t *testing.T) {
	labels := QCutOrRank([]float64{5, 5, 5, nan}, 10)
	assert.Equal(t, []int{Missing, Missing, Missing, Missing}, labels)
}

func TestQCutOrRankFallsBackOnEmptyQuantiles(t *testing.T) {
	labels := QCutOrRank([]float64{nan, nan}, 10)
	assert.Equal(t, []int{Missing, Missing}, labels)
}

func TestRankFirstBreaksTiesByPosition(t *testing.T) {
	assert.Equal(t, []float64{2, 3, 1}, RankFirst([]float64{5, 5, 1}))
	r := RankFirst([]float64{nan, 2})
	assert.True(t, math.IsNaN(r[0]))
	assert.Equal(t, 1.0, r[1])
}

func TestCutLeftManualEdges(t *testing.T) {
	edges := []float64{400, 500, 600, 700}
	got := CutLeft([]float64{350, 400, 599.9, 700, 820, nan}, edges)
	assert.Equal(t, []int{0, 1, 2, 4, 4, Missing}, got)
	assert.Equal(t, []string{"<400", "400-500", "500-600", "600-700", ">=700"}, LeftLabels(edges))
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, nan}
	y := []float64{2, 4, 6, 8, 1}
	assert.InDelta(t, 1, Pearson(x, y), 1e-12)
	assert.InDelta(t, -1, Pearson(x, []float64{4, 3, 2, 1, 0}), 1e-12)
	assert.True(t, math.IsNaN(Pearson(x, []float64{1, 1, 1, 1, 1})))

	m := CorrMatrix([][]float64{x, y})
	assert.InDelta(t, 1, m[0][1], 1e-12)
	assert.Equal(t, m[0][1], m[1][0])
}

func TestKSSeparatedSamples(t *testing.T) {
	a := []float64{0.1, 0.2, 0.3, 0.4}
	b := []float64{0.6, 0.7, 0.8, 0.9}
	d, p := KS(a, b)
	assert.InDelta(t, 1, d, 1e-12)
	assert.Less(t, p, 0.05)

	d, p = KS(a, a)
	assert.InDelta(t, 0, d, 1e-12)
	assert.InDelta(t, 1, p, 1e-9)
}

func TestROCAndAUC(t *testing.T) {
	scores := []float64{0, 3, 5, 6, 7.5, 8}
	pos := []bool{false, true, false, true, true, true}
	c := ROC(scores, pos)
	require.NotEmpty(t, c.FPR)
	assert.InDelta(t, 0.875, c.AUC(), 1e-12)

	perfect := ROC([]float64{0.1, 0.2, 0.8, 0.9}, []bool{false, false, true, true})
	assert.InDelta(t, 1, perfect.AUC(), 1e-12)

	single := ROC([]float64{0.1, 0.2}, []bool{false, false})
	assert.True(t, math.IsNaN(single.AUC()))
}

func TestMedianMAD(t *testing.T) {
	med, mad := MedianMAD([]float64{1, 2, 3, 4, 100})
	assert.Equal(t, 3.0, med)
	assert.Equal(t, 1.0, mad)
}
