package scorecard

import (
	"math"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

type ScoreStats struct {
	Mean   float64 `yaml:"mean"`
	Median float64 `yaml:"median"`
	Std    float64 `yaml:"std"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Q25    float64 `yaml:"q25"`
	Q75    float64 `yaml:"q75"`
}

// Performance uses the lending orientation: a "positive" is a correctly
// predicted non-default, so TP counts actual 0 predicted 0 and TN counts
// actual 1 predicted 1.
type Performance struct {
	DefaultRate           float64            `yaml:"default_rate"`
	DefaultRateByRiskBand map[string]float64 `yaml:"default_rate_by_risk_band"`
	DefaultRateByDecision map[string]float64 `yaml:"default_rate_by_decision"`

	AUC              float64 `yaml:"auc,omitempty"`
	ConfusionMatrix  [][]int `yaml:"confusion_matrix,omitempty"`
	Sensitivity      float64 `yaml:"sensitivity"`
	Precision        float64 `yaml:"precision"`
	Specificity      float64 `yaml:"specificity"`
	F1Score          float64 `yaml:"f1_score"`
	Accuracy         float64 `yaml:"accuracy"`
	TruePositives    int     `yaml:"true_positives"`
	TrueNegatives    int     `yaml:"true_negatives"`
	FalsePositives   int     `yaml:"false_positives"`
	FalseNegatives   int     `yaml:"false_negatives"`
	PredictionMethod string  `yaml:"prediction_method,omitempty"`
}

// Summary is the score_summary.yaml document.
type Summary struct {
	TotalApplicants      int            `yaml:"total_applicants"`
	ScoreStats           ScoreStats     `yaml:"score_stats"`
	RiskBandDistribution map[string]int `yaml:"risk_band_distribution"`
	DecisionDistribution map[string]int `yaml:"decision_distribution"`
	Performance          *Performance   `yaml:"performance,omitempty"`
}

func counts(v []string) map[string]int {
	out := make(map[string]int)
	for _, s := range v {
		if s != "" {
			out[s]++
		}
	}
	return out
}

func rateBy(keys []string, y []float64) map[string]float64 {
	sum := make(map[string]float64)
	n := make(map[string]int)
	for i, k := range keys {
		if k == "" || math.IsNaN(y[i]) {
			continue
		}
		sum[k] += y[i]
		n[k]++
	}
	out := make(map[string]float64, len(n))
	for k, c := range n {
		out[k] = sum[k] / float64(c)
	}
	return out
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Summarize describes a frame produced by Apply.
func Summarize(f *frame.Frame, opt Options) Summary {
	score, _ := f.Num("score")
	band, _ := f.Str("risk_band")
	decision, _ := f.Str("decision")
	s := Summary{
		TotalApplicants: f.Rows(),
		ScoreStats: ScoreStats{
			Mean:   stats.Mean(score),
			Median: stats.Median(score),
			Std:    stats.Std(score),
			Min:    stats.Min(score),
			Max:    stats.Max(score),
			Q25:    stats.Quantile(score, 0.25),
			Q75:    stats.Quantile(score, 0.75),
		},
		RiskBandDistribution: counts(band),
		DecisionDistribution: counts(decision),
	}
	y, ok := f.Num(opt.Target)
	if !ok {
		return s
	}
	perf := &Performance{
		DefaultRate:           stats.Mean(y),
		DefaultRateByRiskBand: rateBy(band, y),
		DefaultRateByDecision: rateBy(decision, y),
	}
	s.Performance = perf

	classes := map[float64]bool{}
	for _, v := range y {
		if !math.IsNaN(v) {
			classes[v] = true
		}
	}
	if len(classes) != 2 || !classes[0] || !classes[1] {
		return s
	}

	pred := predictedDefault(f, opt.ProbColumn)
	if f.Has("approve_decision") {
		perf.PredictionMethod = "approve_decision"
	} else {
		perf.PredictionMethod = "probability_threshold"
	}
	if p, ok := f.Num(opt.ProbColumn); ok {
		positive := make([]bool, len(y))
		for i, v := range y {
			positive[i] = v == 1
		}
		perf.AUC = stats.ROC(p, positive).AUC()
	}

	var tp, tn, fp, fn int
	for i, v := range y {
		switch {
		case v == 0 && !pred[i]:
			tp++
		case v == 1 && pred[i]:
			tn++
		case v == 0 && pred[i]:
			fp++
		case v == 1 && !pred[i]:
			fn++
		}
	}
	perf.TruePositives, perf.TrueNegatives = tp, tn
	perf.FalsePositives, perf.FalseNegatives = fp, fn
	perf.ConfusionMatrix = [][]int{{tp, fp}, {fn, tn}}
	perf.Sensitivity = ratio(tp, tp+fn)
	perf.Precision = ratio(tp, tp+fp)
	perf.Specificity = ratio(tn, tn+fp)
	if perf.Precision+perf.Sensitivity > 0 {
		perf.F1Score = 2 * perf.Precision * perf.Sensitivity / (perf.Precision + perf.Sensitivity)
	}
	perf.Accuracy = ratio(tp+tn, tp+tn+fp+fn)
	return s
}
