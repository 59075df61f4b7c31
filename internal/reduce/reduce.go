// Package reduce trims the LGD/EAD modeling dataset in five stages:
// business exclusions, identifiers, correlated duplicates, near-zero
// variance and high missingness.
package reduce

import (
	"context"
	"math"
	"sort"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// BusinessExclusions are flag and helper columns not used as LGD/EAD drivers.
var BusinessExclusions = []string{
	"dpd_ever_90_flag", "dpd_90plus_cnt", "partial_recovery_flag", "full_recovery_flag",
	"zero_recovery_flag", "secured_flag", "lgd_model_ready_flag", "interest_component_ratio",
	"default_in_observation_window", "is_defaulter", "recovery_flag", "late_dpd_flag",
	"loan_age_months", "is_multiple_defaults", "emi_burden_flag", "high_risk_profile_flag",
	"zero_utilization_flag", "full_utilization_flag", "loss_flag", "secured_and_recovered_flag",
	"no_collateral_no_recovery_flag", "high_emi_score", "secured_or_recovered_flag",
	"emi_affordability_flag", "disbursement_year", "default_and_loss_flag",
	"secured_with_loss_flag", "zero_exposure_flag", "dpd_no_peak_flag",
	"high_loss_low_recovery_flag", "overdrawn_flag", "underutilization_flag",
	"overutilization_gap", "total_limit_missing_flag", "limit_ratio_vs_score",
	"full_drawn_and_overdue_flag", "high_risk_loan_flag", "interest_income_ratio",
	"high_emi_and_interest_flag", "employment_emi_risk", "secure_home_high_loan_flag",
	"high_interest_tenure_flag", "emi_vs_limit_ratio", "emi_vs_drawn_ratio", "emi_vs_ead_ratio",
}

// Identifiers are keys and encoded duplicates of other columns.
var Identifiers = []string{
	"customer_id", "disbursed_month", "term_score", "loan_amount_score", "loan_interest_term_combo",
}

// CorrelatedDrops is the reviewed list of correlated columns removed in stage 3.
var CorrelatedDrops = []string{
	"dpd_mean", "total_past_due", "utilization_to_limit_ratio",
	"exposure_percent_drawn", "exposure_to_income_ratio",
}

// Options holds the reduction thresholds.
type Options struct {
	CorrThreshold float64
	MinStd        float64
	MaxMissingPct float64
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{CorrThreshold: 0.95, MinStd: 0.01, MaxMissingPct: 30}
}

// Drop records one removed column.
type Drop struct {
	Stage    int
	Variable string
	Reason   string
}

// Comparison contrasts the correlation screen with the reviewed list.
type Comparison struct {
	CorrelationOnly []string
	HardcodedOnly   []string
	Both            []string
}

// VarianceRow holds the stage 4 statistics of a numeric column.
type VarianceRow struct {
	Variable string
	Std      float64
	Min      float64
	Max      float64
	N        int
	NMiss    int
	Dropped  bool
}

// MissingRow holds the stage 5 missingness of a column.
type MissingRow struct {
	Variable   string
	N          int
	NMiss      int
	MissingPct float64
}

// Result bundles the reduced frame and stage reports.
type Result struct {
	Final      *frame.Frame
	Drops      []Drop
	Comparison Comparison
	Variance   []VarianceRow
	Missing    []MissingRow
	StartCols  int
}

// CorrelatedPairVars returns the second variable of every pair of numeric
// columns with |r| above threshold.
func CorrelatedPairVars(f *frame.Frame, threshold float64) []string {
	names := f.NumericNames()
	cols := make([][]float64, len(names))
	for i, n := range names {
		cols[i], _ = f.Num(n)
	}
	m := stats.CorrMatrix(cols)
	seen := make(map[string]bool)
	var out []string
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			r := m[i][j]
			if math.IsNaN(r) || math.Abs(r) <= threshold {
				continue
			}
			if !seen[names[j]] {
				seen[names[j]] = true
				out = append(out, names[j])
			}
		}
	}
	return out
}

// Compare splits two name lists into exclusive and shared parts, each sorted.
func Compare(correlated, hardcoded []string) Comparison {
	inCorr := make(map[string]bool, len(correlated))
	for _, v := range correlated {
		inCorr[v] = true
	}
	inHard := make(map[string]bool, len(hardcoded))
	for _, v := range hardcoded {
		inHard[v] = true
	}
	var c Comparison
	for v := range inCorr {
		if inHard[v] {
			c.Both = append(c.Both, v)
		} else {
			c.CorrelationOnly = append(c.CorrelationOnly, v)
		}
	}
	for v := range inHard {
		if !inCorr[v] {
			c.HardcodedOnly = append(c.HardcodedOnly, v)
		}
	}
	sort.Strings(c.CorrelationOnly)
	sort.Strings(c.HardcodedOnly)
	sort.Strings(c.Both)
	return c
}

// Variance computes stage 4 statistics over the non-missing cells of numeric columns.
func Variance(f *frame.Frame, minStd float64) []VarianceRow {
	var out []VarianceRow
	for _, name := range f.NumericNames() {
		x, _ := f.Num(name)
		r := VarianceRow{
			Variable: name,
			Std:      stats.Std(x),
			Min:      stats.Min(x),
			Max:      stats.Max(x),
			N:        stats.Count(x),
		}
		r.NMiss = len(x) - r.N
		r.Dropped = r.Std < minStd || r.Min == r.Max
		out = append(out, r)
	}
	return out
}

// Missingness computes stage 5 percentages for every column.
func Missingness(f *frame.Frame) []MissingRow {
	out := make([]MissingRow, 0, f.Width())
	for _, c := range f.Columns() {
		n := c.Count()
		r := MissingRow{Variable: c.Name, N: n, NMiss: f.Rows() - n}
		if f.Rows() > 0 {
			r.MissingPct = float64(r.NMiss) / float64(f.Rows()) * 100
		}
		out = append(out, r)
	}
	return out
}

// Run applies the five reduction stages to a copy of in.
func Run(ctx context.Context, in *frame.Frame, opt Options) *Result {
	log := logging.FromContext(ctx)
	f := in.Select(in.Names()...)
	res := &Result{StartCols: in.Width()}
	record := func(stage int, reason string, names []string) {
		for _, n := range names {
			res.Drops = append(res.Drops, Drop{Stage: stage, Variable: n, Reason: reason})
		}
		log.Info("reduction stage", "stage", stage, "reason", reason, "dropped", len(names), "remaining", f.Width())
	}

	record(1, "business_exclusion", f.Drop(BusinessExclusions...))
	record(2, "identifier", f.Drop(Identifiers...))

	res.Comparison = Compare(CorrelatedPairVars(f, opt.CorrThreshold), CorrelatedDrops)
	record(3, "correlated", f.Drop(CorrelatedDrops...))

	res.Variance = Variance(f, opt.MinStd)
	var nzv []string
	for _, r := range res.Variance {
		if r.Dropped {
			nzv = append(nzv, r.Variable)
		}
	}
	record(4, "near_zero_variance", f.Drop(nzv...))

	res.Missing = Missingness(f)
	var high []string
	for _, r := range res.Missing {
		if r.MissingPct >= opt.MaxMissingPct {
			high = append(high, r.Variable)
		}
	}
	record(5, "high_missing", f.Drop(high...))

	res.Final = f
	return res
}
