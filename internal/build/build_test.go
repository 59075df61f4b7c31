package build

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	"github.com/KaramelBytes/scoreloom-cli/internal/testutil"
)

var asOf = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

func newDeriver(t *testing.T, f *frame.Frame) *deriver {
	t.Helper()
	return &deriver{f: f, log: logging.FromContext(testutil.Context(t)), asOf: asOf, stage: t.Name()}
}

func num(t *testing.T, f *frame.Frame, name string) []float64 {
	t.Helper()
	v, ok := f.Num(name)
	require.True(t, ok, "numeric column %s", name)
	return v
}

func str(t *testing.T, f *frame.Frame, name string) []string {
	t.Helper()
	v, ok := f.Str(name)
	require.True(t, ok, "string column %s", name)
	return v
}

func rawFrame(rows int) *frame.Frame {
	col := func(name string, fn func(i int) float64) *frame.Column {
		v := make([]float64, rows)
		for i := range v {
			v[i] = fn(i)
		}
		return frame.NumericColumn(name, v)
	}
	dates := func(name string, day int) *frame.Column {
		v := make([]string, rows)
		for i := range v {
			v[i] = time.Date(2023, 1, day+i%5, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		}
		return frame.StringColumn(name, v)
	}
	channels := make([]string, rows)
	for i := range channels {
		channels[i] = []string{"Online", "Mobile", "Branch", "Agent"}[i%4]
	}
	return frame.MustFromColumns(
		col("customer_id", func(i int) float64 { return float64(1000 + i) }),
		col("bureau_score", func(i int) float64 { return float64(560 + 13*i) }),
		col("overdue_accounts", func(i int) float64 { return float64(i % 3) }),
		col("total_accounts", func(i int) float64 { return float64(3 + i%4) }),
		col("active_accounts", func(i int) float64 { return float64(1 + i%3) }),
		col("recent_enquiries_6m", func(i int) float64 { return float64(i % 5) }),
		col("emi_amount", func(i int) float64 { return float64(4000 + 250*i) }),
		col("monthly_income", func(i int) float64 { return float64(18000 + 1500*i) }),
		col("write_off_flag", func(i int) float64 { return float64(i % 7 / 6) }),
		col("legal_case_flag", func(i int) float64 { return float64(i % 5 / 4) }),
		col("broken_ptp_flag", func(i int) float64 { return float64(i % 2) }),
		col("ptp_kept_ratio", func(i int) float64 { return float64(i%10) / 10 }),
		col("repayment_to_due_ratio", func(i int) float64 { return float64(10-i%10) / 10 }),
		col("tenure_months", func(i int) float64 { return float64(6 + 6*(i%10)) }),
		col("requested_amount", func(i int) float64 { return float64(20000 + 15000*i) }),
		col("credit_card_utilization_pct", func(i int) float64 { return float64(5 + 9*(i%11)) }),
		dates("application_date", 1),
		dates("account_open_date", 3),
		frame.StringColumn("channel", channels),
	)
}

func TestBureau(t *testing.T) {
	f := frame.MustFromColumns(
		frame.NumericColumn("bureau_score", []float64{600, 650, 700, 760}),
		frame.NumericColumn("overdue_accounts", []float64{0, 2, 1, 0}),
		frame.NumericColumn("total_accounts", []float64{4, 5, 2, 3}),
		frame.NumericColumn("active_accounts", []float64{2, 5, 1, 3}),
		frame.NumericColumn("recent_enquiries_6m", []float64{3, 3, 4, 1}),
	)
	d := newDeriver(t, f)
	bureau(d)

	assert.Equal(t, []float64{1, 0, 0, 0}, num(t, d.f, "bureau_score_flag"))
	assert.Equal(t, []string{"Very Low", "Low", "Medium", "Very High"}, str(t, d.f, "risk_score_band"))
	assert.Equal(t, []float64{1, 0, 0, 0}, num(t, d.f, "high_enquiry_interaction"))
	assert.Equal(t, []string{"B4", "B5", "B2", "B3"}, str(t, d.f, "total_account_bucket"))
	assert.Equal(t, []float64{0, 0, 0, 1}, num(t, d.f, "low_risk_band_flag"))
	assert.Equal(t, []float64{1, 1, 0, 0}, num(t, d.f, "high_risk_band_flag"))
	assert.Equal(t, []float64{600, 650, 700, 750}, num(t, d.f, "bureau_score_bucket"))
	assert.InDeltaSlice(t, []float64{0, 0.5, 0.2, 0}, num(t, d.f, "overdue_normalized"), 1e-12)
	assert.Equal(t, num(t, d.f, "overdue_to_total_ratio"), num(t, d.f, "dpd_ratio"))
	assert.Equal(t, 20, d.added)
	assert.Empty(t, d.skipped)
}

func TestMissingInputsAreSkipped(t *testing.T) {
	d := newDeriver(t, frame.MustFromColumns(frame.NumericColumn("id", []float64{1, 2})))
	bureau(d)
	assert.Equal(t, []string{"id"}, d.f.Names())
	assert.Contains(t, d.skipped, "bureau_score_flag")
	assert.Contains(t, d.skipped, "dpd_ratio")
}

func TestCBSKeepsExistingBalances(t *testing.T) {
	f := frame.MustFromColumns(
		frame.NumericColumn("average_balance", []float64{4000, 120000}),
		frame.NumericColumn("emi_amount", []float64{2000, 12000}),
		frame.NumericColumn("monthly_income", []float64{10000, 20000}),
	)
	d := newDeriver(t, f)
	cbs(d)
	assert.Equal(t, []float64{4000, 120000}, num(t, d.f, "average_balance"))
	assert.Equal(t, []float64{8000, 8000}, num(t, d.f, "minimum_balance"))
	assert.Equal(t, []float64{1, 0}, num(t, d.f, "avg_balance_flag"))
	assert.Equal(t, []float64{0, 1}, num(t, d.f, "high_balance_flag"))
	assert.Equal(t, []float64{0, 1}, num(t, d.f, "emi_high_flag"))
	assert.Equal(t, []float64{2, 2}, num(t, d.f, "tenure_bucket"))
	assert.InDeltaSlice(t, []float64{0.2, 0.6}, num(t, d.f, "emi_income_ratio"), 1e-12)
}

func TestDPDDefaults(t *testing.T) {
	d := newDeriver(t, frame.MustFromColumns(frame.NumericColumn("id", []float64{1, 2})))
	dpd(d)

	assert.Equal(t, []float64{90, 90}, num(t, d.f, "dpd_max_days"))
	assert.Equal(t, []float64{180, 180}, num(t, d.f, "dpd_sum_total"))
	assert.Equal(t, []float64{30, 30}, num(t, d.f, "dpd_avg"))
	assert.InDelta(t, math.Sqrt(1440), num(t, d.f, "dpd_std_dev")[0], 1e-9)
	assert.Equal(t, []float64{3, 3}, num(t, d.f, "dpd_count_30_plus"))
	assert.Equal(t, []float64{2, 2}, num(t, d.f, "dpd_count_60_plus"))
	assert.Equal(t, []float64{1, 1}, num(t, d.f, "dpd_90_flag"))
	assert.Equal(t, []float64{0, 0}, num(t, d.f, "months_since_last_dpd"))
	assert.Equal(t, []float64{150, 150}, num(t, d.f, "dpd_rolling_3_months"))
	assert.Equal(t, []float64{0, 0}, num(t, d.f, "dpd_escalation_flag"))
	assert.Equal(t, []string{"JUN", "JUN"}, str(t, d.f, "dpd_peak_month"))
	assert.Equal(t, []string{"MAR", "MAR"}, str(t, d.f, "dpd_month3"))
}

func TestDPDPeakIsFirstMaximum(t *testing.T) {
	f := frame.MustFromColumns(
		frame.NumericColumn("dpd_m1", []float64{0}),
		frame.NumericColumn("dpd_m2", []float64{60}),
		frame.NumericColumn("dpd_m3", []float64{10}),
		frame.NumericColumn("dpd_m4", []float64{20}),
		frame.NumericColumn("dpd_m5", []float64{30}),
		frame.NumericColumn("dpd_m6", []float64{60}),
	)
	d := newDeriver(t, f)
	dpd(d)
	assert.Equal(t, []string{"FEB"}, str(t, d.f, "dpd_peak_month"))
	assert.Equal(t, []float64{1}, num(t, d.f, "dpd_escalation_flag"))
}

func TestDisbursal(t *testing.T) {
	f := frame.MustFromColumns(
		frame.StringColumn("application_date", []string{"2023-01-01", "2023-01-01", "bad"}),
		frame.StringColumn("account_open_date", []string{"2023-01-05", "2023-01-20", "2023-01-02"}),
		frame.StringColumn("channel", []string{"Online", "Branch", ""}),
		frame.NumericColumn("tenure_months", []float64{36, 6, 120}),
		frame.NumericColumn("requested_amount", []float64{30000, 250000, 10000}),
	)
	d := newDeriver(t, f)
	disbursal(d)

	gap := num(t, d.f, "disbursal_gap_days")
	assert.Equal(t, []float64{4, 19}, gap[:2])
	assert.True(t, math.IsNaN(gap[2]))
	assert.Equal(t, []string{"Moderate", "Slow", ""}, str(t, d.f, "disbursal_gap_category"))
	assert.Equal(t, []float64{0, 1, 0}, num(t, d.f, "very_slow_disbursal_flag"))
	assert.Equal(t, []float64{1, 0, 0}, num(t, d.f, "digital_channel_flag"))
	assert.Equal(t, []string{"1", "3", "0"}, str(t, d.f, "channel_code"))
	assert.Equal(t, []string{"Medium", "Short", "Long"}, str(t, d.f, "tenure_category"))
	assert.Equal(t, []float64{12, 11, 12}, num(t, d.f, "active_tenure_months"))
	assert.Equal(t, []string{"Early", "Late", "Early"}, str(t, d.f, "loan_cycle_position"))
	assert.Equal(t, []float64{0, 1, 0}, num(t, d.f, "high_requested_flag"))
}

func TestRun(t *testing.T) {
	ctx := testutil.Context(t)
	in := rawFrame(40)
	opt := Options{Seed: 7, AsOf: asOf}

	res, err := Run(ctx, in, opt)
	require.NoError(t, err)
	require.Len(t, res.Stages, len(StageNames()))
	assert.Equal(t, 0, res.Dropped)
	assert.Equal(t, 40, res.Frame.Rows())
	assert.Equal(t, 19, in.Width(), "input is not modified")

	for _, v := range num(t, res.Frame, DefaultFlag) {
		assert.Contains(t, []float64{0, 1}, v)
	}
	for _, v := range num(t, res.Frame, "dpd_m9") {
		assert.True(t, v >= 0 && v < 120)
	}
	for _, v := range num(t, res.Frame, "pos_transaction_volume") {
		assert.True(t, v >= 50 && v <= 500)
	}
	assert.Equal(t, []string{"Low", "Medium", "High"}, uniqueIn(str(t, res.Frame, "risk_score_band"), "Low", "Medium", "High"))
	assert.Equal(t, num(t, res.Frame, "internal_behavior_score"), num(t, res.Frame, "behavior_risk_score"))

	again, err := Run(ctx, in, opt)
	require.NoError(t, err)
	assert.Equal(t, num(t, res.Frame, "internal_behavior_score"), num(t, again.Frame, "internal_behavior_score"))
	assert.Equal(t, num(t, res.Frame, DefaultFlag), num(t, again.Frame, DefaultFlag))

	other, err := Run(ctx, in, Options{Seed: 8, AsOf: asOf})
	require.NoError(t, err)
	assert.NotEqual(t, num(t, res.Frame, "internal_behavior_score"), num(t, other.Frame, "internal_behavior_score"))

	report := ReportFrame(res.Stages)
	assert.Equal(t, len(res.Stages), report.Rows())
}

func uniqueIn(v []string, order ...string) []string {
	seen := map[string]bool{}
	for _, s := range v {
		seen[s] = true
	}
	var out []string
	for _, s := range order {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

func TestRunDropsIncompleteWindows(t *testing.T) {
	in := rawFrame(4)
	in.Set(frame.NumericColumn("dpd_f3", []float64{100, math.NaN(), 0, 0}))
	in.Set(frame.NumericColumn("dpd_m8", []float64{0, 0, 0, math.NaN()}))

	res, err := Run(testutil.Context(t), in, Options{Seed: 1, AsOf: asOf})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, []float64{1000, 1002}, num(t, res.Frame, "customer_id"))
	assert.Equal(t, 1.0, num(t, res.Frame, DefaultFlag)[0])
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.Context(t))
	cancel()
	_, err := Run(ctx, rawFrame(3), DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}
