package model

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/testutil"
)

// simulate draws y from a logistic model with slope 2 over x in [-3, 3].
func simulate(n int) (x, y []float64) {
	rng := rand.New(rand.NewPCG(1, 2))
	x = make([]float64, n)
	y = make([]float64, n)
	for i := range x {
		x[i] = -3 + 6*float64(i)/float64(n-1)
		if rng.Float64() < sigmoid(2*x[i]) {
			y[i] = 1
		}
	}
	return x, y
}

func TestFitRecoversSlope(t *testing.T) {
	x, y := simulate(400)
	m, err := Fit([]string{"x"}, [][]float64{x}, y, FitOptions{C: 1, MaxIter: 100})
	require.NoError(t, err)
	assert.True(t, m.Converged)
	assert.Greater(t, m.Coef[0], 1.0)
	assert.Less(t, m.Coef[0], 3.5)

	p := m.Predict([][]float64{x})
	for _, v := range p {
		assert.True(t, v > 0 && v < 1)
	}
	metrics, _ := Evaluate(p, y)
	assert.Greater(t, metrics.AUC, 0.8)
}

func TestInterceptIsNotPenalised(t *testing.T) {
	y := make([]float64, 80)
	for i := 0; i < 20; i++ {
		y[i] = 1
	}
	zero := make([]float64, 80)
	m, err := Fit([]string{"zero"}, [][]float64{zero}, y, FitOptions{C: 0.01, MaxIter: 100})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(20.0/60.0), m.Intercept, 1e-6)
	assert.InDelta(t, 0, m.Coef[0], 1e-9)
}

func TestPenaltyShrinksCoefficients(t *testing.T) {
	x, y := simulate(200)
	loose, err := Fit([]string{"x"}, [][]float64{x}, y, FitOptions{C: 1e6, MaxIter: 100})
	require.NoError(t, err)
	tight, err := Fit([]string{"x"}, [][]float64{x}, y, FitOptions{C: 0.01, MaxIter: 100})
	require.NoError(t, err)
	assert.Less(t, math.Abs(tight.Coef[0]), math.Abs(loose.Coef[0]))
}

func TestFitRejectsSingleClass(t *testing.T) {
	_, err := Fit([]string{"x"}, [][]float64{{1, 2, 3}}, []float64{0, 0, 0}, FitOptions{C: 1})
	assert.ErrorIs(t, err, ErrSingleClass)
}

func TestSplitIsStratified(t *testing.T) {
	n := 100
	y := make([]float64, n)
	id := make([]float64, n)
	for i := range y {
		id[i] = float64(i)
		if i%5 == 0 {
			y[i] = 1
		}
	}
	f := frame.MustFromColumns(frame.NumericColumn("id", id), frame.NumericColumn("default_flag", y))
	train, valid := Split(f, "default_flag", 0.3, 12345)
	assert.Equal(t, 70, train.Rows())
	assert.Equal(t, 30, valid.Rows())

	count := func(f *frame.Frame) int {
		v, _ := f.Num("default_flag")
		var c int
		for _, x := range v {
			c += int(x)
		}
		return c
	}
	assert.Equal(t, 14, count(train))
	assert.Equal(t, 6, count(valid))

	seen := map[float64]bool{}
	for _, part := range []*frame.Frame{train, valid} {
		ids, _ := part.Num("id")
		for _, v := range ids {
			assert.False(t, seen[v], "row %v in both samples", v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, n)

	again, _ := Split(f, "default_flag", 0.3, 12345)
	a, _ := train.Num("id")
	b, _ := again.Num("id")
	assert.Equal(t, a, b)
}

func TestPrepare(t *testing.T) {
	in := frame.MustFromColumns(
		frame.NumericColumn("dpd_max", []float64{0, 30, 60, 90}),
		frame.NumericColumn("emi_to_income_ratio", []float64{1, 2, 3, 4}),
		frame.NumericColumn("default_flag", []float64{0, 0, 1, 1}),
	)
	out := Prepare(in, 12345)
	assert.Equal(t, []string{"default_flag", "dpd_max_adj"}, out.Names())
	assert.True(t, in.Has("dpd_max"))

	adj, _ := out.Num("dpd_max_adj")
	want := []float64{-1.3416, -0.4472, 0.4472, 1.3416}
	for i := range want {
		assert.InDelta(t, want[i], adj[i], 0.011)
		assert.GreaterOrEqual(t, adj[i], want[i]-1e-4)
	}
}

func TestPerformanceKeepsEveryRow(t *testing.T) {
	p := []float64{0.1, 0.2, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99}
	y := []float64{0, 0, 0, 0, 1, 0, 0, 1, 1, 0, 1, 1}
	rows := Performance(p, y, 10)
	assert.LessOrEqual(t, len(rows), 10)
	var total, defaults int
	for _, r := range rows {
		total += r.TotalObs
		defaults += r.Defaults
	}
	assert.Equal(t, len(p), total)
	assert.Equal(t, 5, defaults)

	flat := Performance([]float64{0.5, 0.5, 0.5}, []float64{0, 1, 0}, 10)
	require.Len(t, flat, 1)
	assert.Equal(t, 3, flat[0].TotalObs)
}

func modelFrame(n int) *frame.Frame {
	rng := rand.New(rand.NewPCG(7, 7))
	risk := make([]float64, n)
	noise := make([]float64, n)
	dpd := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		risk[i] = float64(i%20) / 20
		noise[i] = rng.Float64()
		dpd[i] = float64((i * 7) % 4 * 30)
		if rng.Float64() < 0.1+0.6*risk[i] {
			y[i] = 1
		}
	}
	return frame.MustFromColumns(
		frame.NumericColumn("risk_score", risk),
		frame.NumericColumn("noise", noise),
		frame.NumericColumn("dpd_max", dpd),
		frame.NumericColumn("default_flag", y),
	)
}

func TestRun(t *testing.T) {
	res, err := Run(testutil.Context(t), modelFrame(300), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"risk_score", "noise", "dpd_max_adj"}, res.Model.Features)
	assert.Equal(t, 300, res.Train.Rows()+res.Valid.Rows())
	assert.True(t, res.Valid.Has(ProbColumn))
	assert.Greater(t, res.Model.Coef[0], 0.0)
	assert.Greater(t, res.TrainMetrics.AUC, 0.6)
	assert.NotEmpty(t, res.ValidCurve.FPR)

	coef := CoefficientsFrame(res.Model)
	abs, _ := coef.Num("abs_coefficient")
	for i := 1; i < len(abs); i++ {
		assert.GreaterOrEqual(t, abs[i-1], abs[i])
	}
	assert.Equal(t, res.Model.Features, res.Summary().Features)
}

func TestRunUsesRequestedFeatures(t *testing.T) {
	opt := DefaultOptions()
	opt.Features = []string{"risk_score", "missing_var"}
	res, err := Run(testutil.Context(t), modelFrame(200), opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"risk_score"}, res.Model.Features)

	opt.Features = []string{"missing_var"}
	_, err = Run(testutil.Context(t), modelFrame(200), opt)
	assert.ErrorIs(t, err, ErrNoFeatures)
}

func TestRunErrors(t *testing.T) {
	f := frame.MustFromColumns(
		frame.NumericColumn("x", []float64{1, 2, 3, 4}),
		frame.NumericColumn("default_flag", []float64{0, 0, 0, 0}),
	)
	_, err := Run(testutil.Context(t), f, DefaultOptions())
	assert.True(t, errors.Is(err, ErrSingleClass))

	_, err = Run(testutil.Context(t), f.Select("x"), DefaultOptions())
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}
