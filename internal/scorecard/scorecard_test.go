package scorecard

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/testutil"
)

func TestPoints(t *testing.T) {
	assert.InDelta(t, 600, Points(0.5, 600, 20), 1e-6)
	// Halving the odds adds pdo points.
	assert.InDelta(t, 620, Points(1.0/3, 600, 20), 1e-6)
	assert.Greater(t, Points(0.01, 600, 20), Points(0.2, 600, 20))
	assert.False(t, math.IsInf(Points(1, 600, 20), 0))
}

func TestBandsAndDecisions(t *testing.T) {
	cases := []struct {
		score    float64
		band     string
		decision string
		approve  string
	}{
		{579.9, VeryHighRisk, Reject, Decline},
		{580, HighRisk, Refer, Decline},
		{619.9, HighRisk, Refer, Decline},
		{620, MediumRisk, Refer, Approve},
		{660, LowRisk, Accept, Approve},
		{700, VeryLowRisk, Accept, Approve},
	}
	for _, c := range cases {
		assert.Equal(t, c.band, Band(c.score), "score %v", c.score)
		assert.Equal(t, c.decision, Decision(c.score), "score %v", c.score)
		assert.Equal(t, c.approve, ApproveDecision(Band(c.score)), "score %v", c.score)
	}
}

func sampleScored() *frame.Frame {
	return frame.MustFromColumns(
		frame.NumericColumn("P_1", []float64{0.02, 0.05, 0.3, 0.6, 0.9, 0.04}),
		frame.NumericColumn("risk_score", []float64{720, 700, 640, 600, math.NaN(), 710}),
		frame.NumericColumn("dpd_max_adj", []float64{0, 0.1, 1.2, 2.5, 3, 0}),
		frame.NumericColumn("default_flag", []float64{0, 0, 1, 1, 1, 1}),
	)
}

func TestRunSummaryUsesLendingOrientation(t *testing.T) {
	factors := []Factor{{"dpd_max_adj", 0.8}, {"risk_score", -1.2}, {"unused", 0.1}, {"tiny", 0.01}}
	res, err := Run(testutil.Context(t), sampleScored(), factors, DefaultOptions())
	require.NoError(t, err)

	// Scores: p=0.3 -> 624 (Medium, Approve); p=0.6 -> 588 (High, Decline).
	approve, _ := res.Scored.Str("approve_decision")
	assert.Equal(t, []string{Approve, Approve, Approve, Decline, Decline, Approve}, approve)

	perf := res.Summary.Performance
	require.NotNil(t, perf)
	assert.Equal(t, 2, perf.TruePositives)
	assert.Equal(t, 2, perf.TrueNegatives)
	assert.Equal(t, 0, perf.FalsePositives)
	assert.Equal(t, 2, perf.FalseNegatives)
	assert.Equal(t, [][]int{{2, 0}, {2, 2}}, perf.ConfusionMatrix)
	assert.InDelta(t, 0.5, perf.Sensitivity, 1e-9)
	assert.InDelta(t, 1, perf.Precision, 1e-9)
	assert.InDelta(t, 4.0/6, perf.Accuracy, 1e-9)
	assert.Equal(t, "approve_decision", perf.PredictionMethod)
	assert.Equal(t, 6, res.Summary.TotalApplicants)

	require.NotNil(t, res.FalsePredictions)
	assert.Equal(t, 2, res.FalsePredictions.Rows())
	kinds, _ := res.FalsePredictions.Str("error_type")
	assert.Equal(t, []string{"false_negative", "false_negative"}, kinds)

	bands, _ := res.Bands.Str("risk_band")
	assert.Equal(t, VeryHighRisk, bands[0])
}

func TestExplanations(t *testing.T) {
	factors := FactorsFromFrame(frame.MustFromColumns(
		frame.StringColumn("feature", []string{"dpd_max_adj", "risk_score"}),
		frame.NumericColumn("coefficient", []float64{0.8, -1.2}),
	))
	require.Len(t, factors, 2)
	assert.Equal(t, "risk_score", factors[0].Feature)

	res, err := Run(testutil.Context(t), sampleScored(), factors, DefaultOptions())
	require.NoError(t, err)
	text, _ := res.Scored.Str("decision_explanation")

	assert.True(t, strings.HasPrefix(text[0], "APPROVED: Applicant assigned to 'Very Low Risk' category with a credit score of "))
	assert.Contains(t, text[0], "(default probability: 2.0%)")
	assert.Contains(t, text[0], "Key factors considered: Risk Score (720.00), Dpd Max Adj (0.00).")
	assert.True(t, strings.HasSuffix(text[0], "this application is approved."))

	assert.True(t, strings.HasPrefix(text[4], "DECLINED: "))
	assert.Contains(t, text[4], "Key factors considered: Dpd Max Adj (3.00).")
	assert.Contains(t, text[4], "significant default risk concerns")
}

func TestApplyNeedsProbability(t *testing.T) {
	f := frame.MustFromColumns(frame.NumericColumn("x", []float64{1}))
	_, err := Apply(f, DefaultOptions())
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

func TestSummaryWithoutTarget(t *testing.T) {
	opt := DefaultOptions()
	opt.Target = "absent"
	res, err := Run(testutil.Context(t), sampleScored(), nil, opt)
	require.NoError(t, err)
	assert.Nil(t, res.Summary.Performance)
	assert.Nil(t, res.FalsePredictions)
	text, _ := res.Scored.Str("decision_explanation")
	assert.NotContains(t, text[0], "Key factors")
}
