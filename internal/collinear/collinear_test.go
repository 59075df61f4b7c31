package collinear

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/testutil"
)

// series returns x = i and x plus an alternating ±amp perturbation.
func series(n int, amp float64) (x, y []float64) {
	x = make([]float64, n)
	y = make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		e := amp
		if i%2 == 1 {
			e = -amp
		}
		y[i] = x[i] + e
	}
	return x, y
}

func target(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		if i%3 == 0 {
			t[i] = 1
		}
	}
	return t
}

func TestVeryHighCorrelationDropsExactlyOne(t *testing.T) {
	x, z := series(100, 2)
	f := frame.MustFromColumns(
		frame.NumericColumn("x", x),
		frame.NumericColumn("z", z),
		frame.NumericColumn("default_flag", target(100)),
	)
	opt := DefaultOptions()
	pairs := HighPairs(f, candidates(f, opt), opt.PairThreshold)
	require.Len(t, pairs, 1)
	assert.Greater(t, pairs[0].Corr, 0.98)
	drops := CorrelationDrops(pairs, map[string]float64{"x": 1, "z": 1}, opt)
	assert.Equal(t, []string{"z"}, drops)
}

func TestModerateCorrelationUsesIV(t *testing.T) {
	x, y := series(100, 8)
	f := frame.MustFromColumns(frame.NumericColumn("x", x), frame.NumericColumn("y", y))
	opt := DefaultOptions()
	pairs := HighPairs(f, []string{"x", "y"}, opt.PairThreshold)
	require.Len(t, pairs, 1)
	assert.Greater(t, pairs[0].Corr, 0.95)
	assert.LessOrEqual(t, pairs[0].Corr, 0.98)

	assert.Equal(t, []string{"y"}, CorrelationDrops(pairs, map[string]float64{"y": 0.01}, opt))
	assert.Empty(t, CorrelationDrops(pairs, map[string]float64{"y": 0.5}, opt))
	// Missing IV counts as zero.
	assert.Equal(t, []string{"y"}, CorrelationDrops(pairs, nil, opt))
}

func TestDropListHasNoDuplicates(t *testing.T) {
	pairs := []Pair{{"a", "c", 0.99}, {"b", "c", 0.995}}
	assert.Equal(t, []string{"c"}, CorrelationDrops(pairs, nil, DefaultOptions()))
}

func collinearFrame(n int) *frame.Frame {
	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = float64(i)
		b[i] = 2*float64(i) + 1
		c[i] = float64((i * 7) % 13)
	}
	a[5] = math.NaN()
	b[5] = 2*stat(a) + 1
	return frame.MustFromColumns(
		frame.NumericColumn("a", a),
		frame.NumericColumn("b", b),
		frame.NumericColumn("c", c),
		frame.NumericColumn("default_flag", target(n)),
	)
}

// stat is the mean a's missing cell is filled with.
func stat(a []float64) float64 {
	s, k := 0.0, 0
	for _, v := range a {
		if !math.IsNaN(v) {
			s += v
			k++
		}
	}
	return s / float64(k)
}

func TestPerfectCollinearityInflatesVIF(t *testing.T) {
	f := collinearFrame(60)
	rows, err := VIF(context.Background(), f, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	byName := map[string]float64{}
	for _, r := range rows {
		byName[r.Variable] = r.VIF
	}
	assert.Greater(t, byName["a"], 1e6)
	assert.Greater(t, byName["b"], 1e6)
	assert.Less(t, byName["c"], 10.0)
	assert.NotContains(t, byName, "default_flag")

	opt := DefaultOptions()
	assert.ElementsMatch(t, []string{"a", "b"}, VIFDrops(rows, opt))
	opt.Protected = []string{"A"}
	assert.Equal(t, []string{"b"}, VIFDrops(rows, opt))
}

func TestVIFNeedsTwoFeatures(t *testing.T) {
	f := frame.MustFromColumns(frame.NumericColumn("a", []float64{1, 2, 3}), frame.NumericColumn("default_flag", []float64{0, 1, 0}))
	_, err := VIF(context.Background(), f, DefaultOptions())
	assert.ErrorIs(t, err, ErrTooFewFeatures)
}

func TestRunWithoutReviewedList(t *testing.T) {
	res, err := Run(testutil.Context(t), collinearFrame(60), nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, res.CorrDrops)
	assert.Empty(t, res.VIFDrops)
	assert.Equal(t, []string{"a", "c", "default_flag"}, res.Final.Names())
	assert.Equal(t, 2, VIFFrame(res.VIF).Rows())
	assert.Equal(t, 1, PairsFrame(res.Pairs).Rows())
}

func TestRunWithReviewedList(t *testing.T) {
	opt := DefaultOptions()
	opt.FinalKeep = []string{"c", "b", "a", "not_there", "default_flag"}
	iv := frame.MustFromColumns(
		frame.StringColumn("variable", []string{"a", "b"}),
		frame.NumericColumn("IV", []float64{0.3, 0.01}),
	)
	res, err := Run(testutil.Context(t), collinearFrame(60), iv, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "default_flag"}, res.Final.Names())
	assert.Equal(t, []string{"b"}, res.Flagged)
}

func TestRunKeepsExactlyOneOfCollinearPair(t *testing.T) {
	x, z := series(100, 2)
	w := make([]float64, len(x))
	for i := range w {
		w[i] = float64((i * 7) % 11)
	}
	f := frame.MustFromColumns(
		frame.NumericColumn("x", x),
		frame.NumericColumn("z", z),
		frame.NumericColumn("w", w),
		frame.NumericColumn("default_flag", target(100)),
	)
	for _, tc := range []struct {
		name string
		keep []string
	}{
		{"no reviewed list", nil},
		{"both reviewed", []string{"x", "z", "w"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opt := DefaultOptions()
			opt.FinalKeep = tc.keep
			res, err := Run(testutil.Context(t), f, nil, opt)
			require.NoError(t, err)
			survivors := 0
			for _, v := range []string{"x", "z"} {
				if res.Final.Has(v) {
					survivors++
				}
			}
			assert.Equal(t, 1, survivors, "final columns %v", res.Final.Names())
			assert.True(t, res.Final.Has("w"))
			for _, r := range res.VIF {
				assert.Less(t, r.VIF, opt.VIFThreshold, r.Variable)
			}
		})
	}
}

func TestRunDropsPairMissedByCorrelationViaVIF(t *testing.T) {
	// r is about 0.96 and both IVs are high, so only VIF can remove one.
	x, y := series(100, 8)
	w := make([]float64, len(x))
	for i := range w {
		w[i] = float64((i * 7) % 11)
	}
	f := frame.MustFromColumns(
		frame.NumericColumn("x", x),
		frame.NumericColumn("y", y),
		frame.NumericColumn("w", w),
		frame.NumericColumn("default_flag", target(100)),
	)
	iv := frame.MustFromColumns(
		frame.StringColumn("variable", []string{"x", "y"}),
		frame.NumericColumn("IV", []float64{0.4, 0.4}),
	)
	opt := DefaultOptions()
	opt.Protected = []string{"x"}
	res, err := Run(testutil.Context(t), f, iv, opt)
	require.NoError(t, err)
	assert.Empty(t, res.CorrDrops)
	assert.Equal(t, []string{"y"}, res.VIFDrops)
	assert.Equal(t, []string{"x", "w", "default_flag"}, res.Final.Names())
}

func TestRunSurvivesVIFFailure(t *testing.T) {
	f := frame.MustFromColumns(
		frame.NumericColumn("a", []float64{1, 2, 3, 4}),
		frame.NumericColumn("default_flag", []float64{0, 1, 0, 1}),
	)
	res, err := Run(testutil.Context(t), f, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.VIF)
	assert.Equal(t, []string{"a", "default_flag"}, res.Final.Names())
}
