package scorecard

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
)

// Factor is a model feature and its coefficient.
type Factor struct {
	Feature string
	Coef    float64
}

// FactorsFromFrame reads (feature, coefficient) rows ordered by
// descending absolute coefficient.
func FactorsFromFrame(f *frame.Frame) []Factor {
	names, ok := f.Str("feature")
	coef, ok2 := f.Num("coefficient")
	if !ok || !ok2 {
		return nil
	}
	out := make([]Factor, 0, len(names))
	for i, n := range names {
		if n != "" && !math.IsNaN(coef[i]) {
			out = append(out, Factor{Feature: n, Coef: coef[i]})
		}
	}
	sortFactors(out)
	return out
}

func sortFactors(fs []Factor) {
	sort.SliceStable(fs, func(a, b int) bool { return math.Abs(fs[a].Coef) > math.Abs(fs[b].Coef) })
}

var bandNarrative = map[string]string{
	VeryLowRisk:  "The applicant demonstrates excellent creditworthiness with minimal default risk. ",
	LowRisk:      "The applicant shows strong creditworthiness with low default risk. ",
	MediumRisk:   "The applicant presents moderate creditworthiness with acceptable default risk. ",
	HighRisk:     "The applicant shows elevated default risk indicators. ",
	VeryHighRisk: "The applicant demonstrates significant default risk concerns. ",
}

var titler = cases.Title(language.Und)

func displayName(feature string) string {
	name := strings.ReplaceAll(strings.TrimSuffix(feature, "_woe"), "_", " ")
	return titler.String(name)
}

// ExplainRow writes the plain-text rationale of one decision.
func ExplainRow(decision, band string, score, prob float64, factors []string) string {
	var b strings.Builder
	switch decision {
	case Approve, Accept:
		b.WriteString("APPROVED: ")
	case Decline, Reject:
		b.WriteString("DECLINED: ")
	default:
		fmt.Fprintf(&b, "DECISION (%s): ", decision)
	}
	fmt.Fprintf(&b, "Applicant assigned to '%s' category with a credit score of %.0f (default probability: %.1f%%). ",
		band, score, prob*100)
	b.WriteString(bandNarrative[band])
	if len(factors) > 0 {
		fmt.Fprintf(&b, "Key factors considered: %s. ", strings.Join(factors, ", "))
	}
	switch decision {
	case Approve, Accept:
		b.WriteString("Based on the risk assessment, this application is approved.")
	case Decline, Reject:
		b.WriteString("Based on the risk assessment, this application is declined.")
	default:
		b.WriteString("This application requires further review.")
	}
	return b.String()
}

// Explain builds the decision_explanation column of a frame produced by Apply.
func Explain(f *frame.Frame, factors []Factor, probCol string) []string {
	decision, _ := f.Str("approve_decision")
	band, _ := f.Str("risk_band")
	score, _ := f.Num("score")
	prob, _ := f.Num(probCol)

	values := make([][]float64, len(factors))
	for j, fc := range factors {
		if v, ok := f.Num(fc.Feature); ok {
			values[j] = v
		} else if v, ok := f.Num(strings.TrimSuffix(fc.Feature, "_woe")); ok {
			values[j] = v
		}
	}

	out := make([]string, f.Rows())
	for i := range out {
		var named []string
		for j, fc := range factors {
			if values[j] == nil || math.IsNaN(values[j][i]) {
				continue
			}
			named = append(named, fmt.Sprintf("%s (%.2f)", displayName(fc.Feature), values[j][i]))
		}
		out[i] = ExplainRow(decision[i], band[i], score[i], prob[i], named)
	}
	return out
}
