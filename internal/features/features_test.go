package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/testutil"
)

func TestFilterWindow(t *testing.T) {
	f := frame.MustFromColumns(
		frame.StringColumn("snapshot_date", []string{"2021-12-31", "2022-01-01", "2022-06-15", "2022-12-31", "2023-01-01", "bad"}),
		frame.NumericColumn("id", []float64{1, 2, 3, 4, 5, 6}),
	)
	opt := DefaultOptions()
	out := FilterWindow(f, opt.ObsStart, opt.ObsEnd)
	ids, _ := out.Num("id")
	assert.Equal(t, []float64{2, 3, 4}, ids)

	noDate := frame.MustFromColumns(frame.NumericColumn("id", []float64{1}))
	assert.Same(t, noDate, FilterWindow(noDate, opt.ObsStart, opt.ObsEnd))
}

func TestExclude(t *testing.T) {
	nan := math.NaN()
	f := frame.MustFromColumns(
		frame.NumericColumn("write_off_flag", []float64{0, 1, nan, 0, 0}),
		frame.NumericColumn("monthly_income", []float64{5000, 5000, 4000, 0, 3000}),
		frame.NumericColumn("tenure_months", []float64{12, 12, 6, 12, 2}),
		frame.StringColumn("application_date", []string{"2022-01-01", "2022-01-01", "2022-02-01", "2022-01-01", "2022-01-01"}),
		frame.StringColumn("snapshot_date", []string{"2022-03-01", "2022-03-01", "2022-03-01", "2022-03-01", "2022-03-01"}),
	)
	out, excluded := Exclude(f, 3)
	assert.Equal(t, 2, out.Rows())
	assert.Equal(t, 3, excluded)
}

func TestDerive(t *testing.T) {
	nan := math.NaN()
	f := frame.MustFromColumns(
		frame.NumericColumn("dpd_m1", []float64{90, 0}),
		frame.NumericColumn("dpd_m2", []float64{45, 0}),
		frame.NumericColumn("dpd_m3", []float64{10, 0}),
		frame.NumericColumn("dpd_m4", []float64{0, nan}),
		frame.NumericColumn("util_m1", []float64{0.2, nan}),
		frame.NumericColumn("util_m2", []float64{0.4, nan}),
		frame.NumericColumn("total_emi", []float64{1000, 500}),
		frame.NumericColumn("monthly_income", []float64{4000, 0}),
		frame.NumericColumn("loan_tenure", []float64{12, 48}),
		frame.NumericColumn("age", []float64{25, 51}),
		frame.NumericColumn("bureau_score", []float64{700, 650}),
	)
	out := Derive(f)
	get := func(name string) []float64 {
		v, ok := out.Num(name)
		require.True(t, ok, name)
		return v
	}
	assert.Equal(t, []float64{1, 0}, get("dpd_0to30_freq"))
	assert.Equal(t, []float64{1, 0}, get("dpd_31to60_freq"))
	assert.Equal(t, []float64{1, 0}, get("dpd_61plus_freq"))
	assert.Equal(t, []float64{1, 0}, get("dpd_recent_flag"))
	assert.Equal(t, []float64{1, 0}, get("dpd_worsening_flag"))

	util := get("avg_util_3m")
	assert.InDelta(t, 0.3, util[0], 1e-12)
	assert.True(t, math.IsNaN(util[1]))

	ratio := get("emi_to_income_ratio")
	assert.Equal(t, 0.25, ratio[0])
	assert.True(t, math.IsNaN(ratio[1]))

	tenure, _ := out.Str("loan_tenure_bucket")
	assert.Equal(t, []string{"Short", "Long"}, tenure)
	age, _ := out.Str("age_band")
	assert.Equal(t, []string{"<25", "50+"}, age)

	assert.Equal(t, []float64{0, 0}, get("salary_credit_flag"))
	assert.Equal(t, []float64{0, 0}, get("bounce_3m_count"))
	toBureau := get("dpd_to_bureau_ratio")
	assert.InDelta(t, 0.45, toBureau[0], 1e-12)
	assert.Equal(t, 0.0, toBureau[1])
}

func TestTreat(t *testing.T) {
	x := make([]float64, 101)
	for i := range x {
		x[i] = float64(i)
	}
	x[50] = math.NaN()
	x[100] = 10000
	f := frame.MustFromColumns(frame.NumericColumn("monthly_income", x))
	out, ts := Treat(f, []string{"monthly_income", "absent"}, 0.01, 0.99)
	require.Len(t, ts, 1)
	assert.Equal(t, 1, ts[0].Missing)

	y, _ := out.Num("monthly_income")
	miss, _ := out.Num("monthly_income_miss_flag")
	assert.Equal(t, 1.0, miss[50])
	assert.Equal(t, ts[0].Median, y[50])
	assert.Equal(t, ts[0].Upper, y[100])
	assert.Less(t, y[100], 10000.0)
	assert.Equal(t, ts[0].Lower, y[0])
	assert.Equal(t, 10000.0, x[100], "input untouched")
}

func TestBureauDeciles(t *testing.T) {
	n := 100
	score := make([]float64, n)
	y := make([]float64, n)
	for i := range score {
		score[i] = 500 + float64(i)*3
		if i < 20 {
			y[i] = 1
		}
	}
	f := frame.MustFromColumns(
		frame.NumericColumn("bureau_score", score),
		frame.NumericColumn("default_flag", y),
	)
	out, counts := BureauDeciles(f, "default_flag", 10)
	require.True(t, out.Has("bureau_decile"))
	require.Len(t, counts, 10)
	assert.Equal(t, DecileCount{Decile: 0, Bad: 10, Good: 0}, counts[0])
	assert.Equal(t, DecileCount{Decile: 9, Bad: 0, Good: 10}, counts[9])
	assert.Equal(t, 10, DecileFrame(counts).Rows())
}

func TestRun(t *testing.T) {
	f := frame.MustFromColumns(
		frame.StringColumn("snapshot_date", []string{"2022-03-01", "2022-04-01", "2023-04-01", "2022-05-01"}),
		frame.NumericColumn("monthly_income", []float64{4000, math.NaN(), 5000, 6000}),
		frame.NumericColumn("bureau_score", []float64{650, 700, 720, math.NaN()}),
		frame.NumericColumn("default_flag", []float64{1, 0, 0, 0}),
	)
	opt := DefaultOptions()
	opt.ObsEnd = time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)
	res := Run(testutil.Context(t), f, opt)
	assert.Equal(t, 3, res.Windowed)
	assert.Equal(t, 1, res.Excluded)
	assert.Equal(t, 2, res.WoEReady.Rows())
	assert.True(t, res.WoEReady.Has("bureau_score_miss_flag"))
	assert.True(t, res.WoEReady.Has("bureau_decile"))
	assert.False(t, res.Treated.Has("bureau_decile"))
}
