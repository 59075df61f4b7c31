// Package scorecard turns default probabilities into scorecard points, risk
// bands and lending decisions.
package scorecard

import (
	"context"
	"fmt"
	"math"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
)

// Risk bands from highest to lowest risk.
const (
	VeryHighRisk = "Very High Risk"
	HighRisk     = "High Risk"
	MediumRisk   = "Medium Risk"
	LowRisk      = "Low Risk"
	VeryLowRisk  = "Very Low Risk"
)

// Bands lists the risk bands in score order.
var Bands = []string{VeryHighRisk, HighRisk, MediumRisk, LowRisk, VeryLowRisk}

const (
	Reject  = "Reject"
	Refer   = "Refer"
	Accept  = "Accept"
	Approve = "Approve"
	Decline = "Decline"
)

const eps = 1e-10

type Options struct {
	BaseScore  float64
	PDO        float64
	ProbColumn string
	Target     string
	TopFactors int
}

func DefaultOptions() Options {
	return Options{BaseScore: 600, PDO: 20, ProbColumn: "P_1", Target: "default_flag", TopFactors: 3}
}

// Odds is p/(1-p) guarded against p = 1.
func Odds(p float64) float64 { return p / (1 - p + eps) }

// Points maps a default probability to a score; higher scores mean lower risk.
func Points(p, base, pdo float64) float64 {
	return base - (pdo/math.Ln2)*math.Log(Odds(p)+eps)
}

func Band(score float64) string {
	switch {
	case score < 580:
		return VeryHighRisk
	case score < 620:
		return HighRisk
	case score < 660:
		return MediumRisk
	case score < 700:
		return LowRisk
	default:
		return VeryLowRisk
	}
}

func Decision(score float64) string {
	switch {
	case score < 580:
		return Reject
	case score < 660:
		return Refer
	default:
		return Accept
	}
}

// ApproveDecision approves the three lowest risk bands.
func ApproveDecision(band string) string {
	switch band {
	case VeryLowRisk, LowRisk, MediumRisk:
		return Approve
	default:
		return Decline
	}
}

// Apply adds odds, log_odds, score, risk_band, decision and
// approve_decision columns to a copy of f.
func Apply(f *frame.Frame, opt Options) (*frame.Frame, error) {
	p, ok := f.Num(opt.ProbColumn)
	if !ok {
		return nil, fmt.Errorf("probability column %q: %w", opt.ProbColumn, frame.ErrColumnNotFound)
	}
	n := len(p)
	odds, logOdds, score := make([]float64, n), make([]float64, n), make([]float64, n)
	band, decision, approve := make([]string, n), make([]string, n), make([]string, n)
	for i, v := range p {
		if math.IsNaN(v) {
			odds[i], logOdds[i], score[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		odds[i] = Odds(v)
		logOdds[i] = math.Log(odds[i] + eps)
		score[i] = Points(v, opt.BaseScore, opt.PDO)
		band[i] = Band(score[i])
		decision[i] = Decision(score[i])
		approve[i] = ApproveDecision(band[i])
	}
	out := f.Select(f.Names()...)
	out.SetNum("odds", odds)
	out.SetNum("log_odds", logOdds)
	out.SetNum("score", score)
	out.SetStr("risk_band", band)
	out.SetStr("decision", decision)
	out.SetStr("approve_decision", approve)
	return out, nil
}

// Result is the outcome of scoring a sample.
type Result struct {
	Scored           *frame.Frame
	Summary          Summary
	Bands            *frame.Frame
	FalsePredictions *frame.Frame
}

// Run scores f, explains each decision with the strongest factors and
// summarises the outcome. factors may be empty.
func Run(ctx context.Context, f *frame.Frame, factors []Factor, opt Options) (*Result, error) {
	log := logging.FromContext(ctx)
	scored, err := Apply(f, opt)
	if err != nil {
		return nil, err
	}
	if len(factors) > opt.TopFactors {
		factors = factors[:opt.TopFactors]
	}
	scored.SetStr("decision_explanation", Explain(scored, factors, opt.ProbColumn))

	res := &Result{
		Scored:  scored,
		Summary: Summarize(scored, opt),
		Bands:   BandTable(scored, opt.Target),
	}
	if scored.Has(opt.Target) {
		res.FalsePredictions = FalsePredictions(scored, opt.Target, opt.ProbColumn)
		log.Info("false predictions", "rows", res.FalsePredictions.Rows())
	}
	log.Info("applications scored", "rows", scored.Rows(), "mean_score", res.Summary.ScoreStats.Mean)
	return res, nil
}

// predictedDefault marks declined applications as predicted defaults.
func predictedDefault(f *frame.Frame, probCol string) []bool {
	out := make([]bool, f.Rows())
	if d, ok := f.Str("approve_decision"); ok {
		for i, v := range d {
			out[i] = v == Decline
		}
		return out
	}
	p, _ := f.Num(probCol)
	for i := range out {
		out[i] = i < len(p) && p[i] >= 0.5
	}
	return out
}

// FalsePredictions lists false positives then false negatives with an
// error_type column.
func FalsePredictions(f *frame.Frame, target, probCol string) *frame.Frame {
	y, _ := f.Num(target)
	pred := predictedDefault(f, probCol)
	var fp, fn []int
	for i, v := range y {
		switch {
		case v == 0 && pred[i]:
			fp = append(fp, i)
		case v == 1 && !pred[i]:
			fn = append(fn, i)
		}
	}
	out := f.Take(append(fp, fn...))
	kind := make([]string, 0, out.Rows())
	for range fp {
		kind = append(kind, "false_positive")
	}
	for range fn {
		kind = append(kind, "false_negative")
	}
	out.SetStr("error_type", kind)
	return out
}

// BandTable summarises count, share, score range and default rate per band.
func BandTable(f *frame.Frame, target string) *frame.Frame {
	score, _ := f.Num("score")
	band, _ := f.Str("risk_band")
	y, hasY := f.Num(target)
	type agg struct {
		n, defaults, labelled int
		sum, min, max         float64
	}
	groups := map[string]*agg{}
	for i, b := range band {
		if b == "" {
			continue
		}
		g, ok := groups[b]
		if !ok {
			g = &agg{min: math.Inf(1), max: math.Inf(-1)}
			groups[b] = g
		}
		g.n++
		g.sum += score[i]
		g.min = math.Min(g.min, score[i])
		g.max = math.Max(g.max, score[i])
		if hasY && !math.IsNaN(y[i]) {
			g.labelled++
			if y[i] == 1 {
				g.defaults++
			}
		}
	}
	var names []string
	var count, pct, mean, lo, hi, rate []float64
	for _, b := range Bands {
		g, ok := groups[b]
		if !ok {
			continue
		}
		names = append(names, b)
		count = append(count, float64(g.n))
		pct = append(pct, float64(g.n)/float64(f.Rows())*100)
		mean = append(mean, g.sum/float64(g.n))
		lo = append(lo, g.min)
		hi = append(hi, g.max)
		r := math.NaN()
		if g.labelled > 0 {
			r = float64(g.defaults) / float64(g.labelled)
		}
		rate = append(rate, r)
	}
	return frame.MustFromColumns(
		frame.StringColumn("risk_band", names),
		frame.NumericColumn("count", count),
		frame.NumericColumn("percentage", pct),
		frame.NumericColumn("mean_score", mean),
		frame.NumericColumn("min_score", lo),
		frame.NumericColumn("max_score", hi),
		frame.NumericColumn("default_rate", rate),
	)
}
