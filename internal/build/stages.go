package build

import (
	"fmt"
	"math"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// band returns the label of the right-closed interval holding v.
func band(v float64, edges []float64, labels []string) string {
	for i, e := range edges {
		if v <= e {
			return labels[i]
		}
	}
	return labels[len(labels)-1]
}

func seq(prefix string, from, to int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func countAtLeast(v []float64, t float64) float64 {
	n := 0.0
	for _, x := range v {
		if x >= t {
			n++
		}
	}
	return n
}

var (
	dpdMonths   = seq("dpd_m", 1, 6)
	dpdMonths12 = seq("dpd_m", 1, 12)
	perfMonths  = seq("dpd_f", 1, 6)
	monthLabels = []string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN"}
)

func bureau(d *deriver) {
	d.num("bureau_score_flag", in("bureau_score"), func(v []float64) float64 { return flag(v[0] < 650) })
	d.num("overdue_to_total_ratio", in("overdue_accounts", "total_accounts"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("active_account_ratio", in("active_accounts", "total_accounts"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("enquiries_flag", in("recent_enquiries_6m"), func(v []float64) float64 { return flag(v[0] >= 3) })
	d.str("risk_score_band", in("bureau_score"), func(v []float64) string {
		return band(v[0], []float64{600, 650, 700, 750}, []string{"Very Low", "Low", "Medium", "High", "Very High"})
	})
	d.num("high_enquiry_interaction", in("bureau_score", "recent_enquiries_6m"), func(v []float64) float64 {
		return flag(v[0] < 650 && v[1] >= 3)
	})
	d.num("overdue_flag", in("overdue_accounts"), func(v []float64) float64 { return flag(v[0] >= 2) })
	d.str("total_account_bucket", in("total_accounts"), func(v []float64) string { return fmt.Sprintf("B%d", int(v[0])) })
	d.num("low_risk_band_flag", in("bureau_score"), func(v []float64) float64 { return flag(v[0] > 700) })
	d.num("high_risk_band_flag", in("bureau_score"), func(v []float64) float64 { return flag(v[0] <= 650) })
	d.num("bureau_score_bucket", in("bureau_score"), func(v []float64) float64 { return floorDiv(v[0], 50) * 50 })
	d.num("score_enquiry_score", in("bureau_score", "recent_enquiries_6m"), func(v []float64) float64 { return v[0] * v[1] })
	d.num("accounts_gap", in("total_accounts", "active_accounts"), func(v []float64) float64 { return v[0] - v[1] })
	d.num("enquiry_to_account_ratio", in("recent_enquiries_6m", "total_accounts"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("overdue_normalized", in("overdue_accounts", "recent_enquiries_6m"), func(v []float64) float64 { return v[0] / (1 + v[1]) })

	d.alias("bureau_score_low_flag", "bureau_score_flag")
	d.alias("enquiry_3plus_flag", "enquiries_flag")
	d.alias("dpd_ratio", "overdue_to_total_ratio")
	d.alias("account_ratio_active", "active_account_ratio")
	d.alias("enquiry_below650_flag", "high_enquiry_interaction")
}

func cbs(d *deriver) {
	d.fill("average_balance", 60000)
	d.fill("minimum_balance", 8000)
	d.fill("salary_credits_3m", 3)
	d.fill("emi_bounce_count", 0)
	d.fill("account_tenure_months", 24)

	d.num("emi_to_income_ratio", in("emi_amount", "monthly_income"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("avg_balance_flag", in("average_balance"), func(v []float64) float64 { return flag(v[0] < 5000) })
	d.num("min_balance_ratio", in("minimum_balance", "average_balance"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("low_balance_month_flag", in("min_balance_ratio"), func(v []float64) float64 { return flag(v[0] < 0.2) })
	d.num("salary_credit_flag", in("salary_credits_3m"), func(v []float64) float64 { return flag(v[0] >= 2) })
	d.num("emi_bounce_flag", in("emi_bounce_count"), func(v []float64) float64 { return flag(v[0] >= 1) })
	d.num("tenure_bucket", in("account_tenure_months"), func(v []float64) float64 { return floorDiv(v[0], 12) })
	d.num("high_balance_flag", in("average_balance"), func(v []float64) float64 { return flag(v[0] >= 100000) })
	d.num("emi_high_flag", in("emi_amount", "monthly_income"), func(v []float64) float64 { return flag(v[0] > 0.5*v[1]) })
	d.num("low_income_flag", in("monthly_income"), func(v []float64) float64 { return flag(v[0] < 20000) })
	d.num("emi_normalized", in("emi_amount", "emi_bounce_count"), func(v []float64) float64 { return v[0] / (1 + v[1]) })
	d.num("balance_utilization_score", in("average_balance", "emi_amount"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("salary_to_emi_ratio", in("monthly_income", "emi_amount"), func(v []float64) float64 { return v[0] / v[1] })

	d.alias("emi_income_ratio", "emi_to_income_ratio")
	d.alias("bounce_flag", "emi_bounce_flag")
	d.alias("emi_income_flag", "emi_high_flag")
	d.alias("high_avg_bal_flag", "high_balance_flag")
	d.alias("emi_ratio_buffer", "salary_to_emi_ratio")
}

func dpd(d *deriver) {
	for i, v := range []float64{0, 30, 0, 60, 0, 90} {
		d.fill(dpdMonths[i], v)
		d.label(fmt.Sprintf("dpd_month%d", i+1), monthLabels[i])
	}

	d.num("dpd_max_days", dpdMonths, stats.Max)
	d.num("dpd_sum_total", dpdMonths, stats.Sum)
	d.num("dpd_avg", dpdMonths, stats.Mean)
	d.num("dpd_std_dev", dpdMonths, stats.Std)

	for _, t := range []float64{30, 60, 90} {
		d.num(fmt.Sprintf("dpd_count_%d_plus", int(t)), dpdMonths, func(v []float64) float64 { return countAtLeast(v, t) })
		d.num(fmt.Sprintf("dpd_%d_flag", int(t)), in(fmt.Sprintf("dpd_count_%d_plus", int(t))), func(v []float64) float64 {
			return flag(v[0] >= 1)
		})
	}

	d.alias("dpd_last_month", "dpd_m6")
	d.num("months_since_last_dpd", in("dpd_m6"), func(v []float64) float64 { return flag(v[0] == 0) })
	d.num("dpd_rolling_3_months", in("dpd_m4", "dpd_m5", "dpd_m6"), stats.Sum)
	d.num("dpd_escalation_flag", in("dpd_m4", "dpd_m5", "dpd_m6"), func(v []float64) float64 {
		return flag(v[0] < v[1] && v[1] < v[2])
	})
	d.str("dpd_peak_month", dpdMonths, func(v []float64) string {
		peak := 0
		for i, x := range v {
			if x > v[peak] {
				peak = i
			}
		}
		return monthLabels[peak]
	})

	d.alias("dpd_high_flag", "dpd_90_flag")
	d.alias("max_dpd_days", "dpd_max_days")
	d.alias("dpd_variance", "dpd_std_dev")
	d.alias("dpd_3m_total", "dpd_rolling_3_months")
	d.alias("recent_dpd_score", "dpd_last_month")
}

func collection(d *deriver) {
	d.num("write_off_case_flag", in("write_off_flag"), func(v []float64) float64 { return flag(v[0] == 1) })
	d.num("legal_action_taken_flag", in("legal_case_flag"), func(v []float64) float64 { return flag(v[0] == 1) })
	d.num("broken_ptp_flag", in("broken_ptp_flag"), func(v []float64) float64 { return flag(v[0] == 1) })
	d.alias("ptp_honored_ratio", "ptp_kept_ratio")
	d.alias("recovery_effectiveness_score", "repayment_to_due_ratio")

	d.alias("repayment_rate_flag", "recovery_effectiveness_score")
	d.alias("legal_case_escalated_flag", "legal_action_taken_flag")
	d.alias("ptp_failure_flag", "broken_ptp_flag")
	d.alias("ptp_ratio_score", "ptp_honored_ratio")
}

func disbursal(d *deriver) {
	d.days("disbursal_gap_days", "application_date", "account_open_date")
	d.num("disbursal_gap_weeks", in("disbursal_gap_days"), func(v []float64) float64 { return floorDiv(v[0], 7) })
	d.str("disbursal_gap_category", in("disbursal_gap_days"), func(v []float64) string {
		switch {
		case v[0] <= 3:
			return "Fast"
		case v[0] <= 7:
			return "Moderate"
		}
		return "Slow"
	})
	d.num("quick_disbursal_flag", in("disbursal_gap_days"), func(v []float64) float64 { return flag(v[0] <= 3) })
	d.num("very_slow_disbursal_flag", in("disbursal_gap_days"), func(v []float64) float64 { return flag(v[0] > 10) })

	d.fromText("digital_channel_flag", "channel", func(s string) float64 { return flag(s == "Online" || s == "Mobile") })
	d.fromText("in_branch_flag", "channel", func(s string) float64 { return flag(s == "Branch") })
	d.textFromText("channel_code", "channel", func(s string) string {
		switch s {
		case "Online":
			return "1"
		case "Mobile":
			return "2"
		case "Branch":
			return "3"
		}
		return "0"
	})

	d.num("long_tenure_flag", in("tenure_months"), func(v []float64) float64 { return flag(v[0] > 60) })
	d.num("short_term_loan_flag", in("tenure_months"), func(v []float64) float64 { return flag(v[0] <= 12) })
	d.num("ultra_short_flag", in("tenure_months"), func(v []float64) float64 { return flag(v[0] <= 6) })
	d.num("tenure_bucket", in("tenure_months"), func(v []float64) float64 { return floorDiv(v[0], 12) })
	d.str("tenure_category", in("tenure_months"), func(v []float64) string {
		switch {
		case v[0] <= 12:
			return "Short"
		case v[0] <= 36:
			return "Medium"
		}
		return "Long"
	})

	d.alias("requested_amt", "requested_amount")
	d.num("requested_bucket", in("requested_amt"), func(v []float64) float64 { return floorDiv(v[0], 50000) })
	d.num("high_requested_flag", in("requested_amt"), func(v []float64) float64 { return flag(v[0] > 200000) })
	d.num("low_requested_flag", in("requested_amt"), func(v []float64) float64 { return flag(v[0] <= 25000) })

	d.sinceAsOf("active_tenure_months", "account_open_date")
	d.num("active_tenure_months", in("active_tenure_months"), func(v []float64) float64 { return math.Trunc(v[0] / 30) })
	d.num("account_age_bucket", in("active_tenure_months"), func(v []float64) float64 { return floorDiv(v[0], 6) })
	d.num("account_fresh_flag", in("active_tenure_months"), func(v []float64) float64 { return flag(v[0] <= 3) })
	d.num("account_mature_flag", in("active_tenure_months"), func(v []float64) float64 { return flag(v[0] > 24) })
	d.str("loan_cycle_position", in("active_tenure_months", "tenure_months"), func(v []float64) string {
		if v[0] < v[1]/2 {
			return "Early"
		}
		return "Late"
	})

	d.alias("fast_funding_flag", "quick_disbursal_flag")
	d.alias("channel_online_flag", "digital_channel_flag")
	d.alias("tenure_category_flag", "long_tenure_flag")
}

func utilisation(d *deriver) {
	const util = "credit_card_utilization_pct"
	d.num("high_utilization_flag", in(util), func(v []float64) float64 { return flag(v[0] >= 80) })
	d.num("low_utilization_flag", in(util), func(v []float64) float64 { return flag(v[0] <= 20) })
	d.num("moderate_utilization_flag", in(util), func(v []float64) float64 { return flag(v[0] > 20 && v[0] < 80) })
	d.num("utilization_bucket", in(util), func(v []float64) float64 { return floorDiv(v[0], 10) })
	d.num("utilization_score", in(util), func(v []float64) float64 { return v[0] / 100 })

	if !d.f.Has("credit_limit") {
		d.num("credit_limit", in("requested_amount"), func(v []float64) float64 { return v[0] * 1.2 })
	}
	d.num("high_credit_limit_flag", in("credit_limit"), func(v []float64) float64 { return flag(v[0] >= 200000) })
	d.num("low_credit_limit_flag", in("credit_limit"), func(v []float64) float64 { return flag(v[0] < 25000) })
	d.num("credit_limit_bucket", in("credit_limit"), func(v []float64) float64 { return floorDiv(v[0], 50000) })
	d.str("credit_segment", in("credit_limit"), func(v []float64) string {
		switch {
		case v[0] < 25000:
			return "Low"
		case v[0] < 100000:
			return "Mid"
		}
		return "High"
	})

	d.num("utilization_to_limit_ratio", in(util, "credit_limit"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("utilization_weighted_score", in(util, "utilization_bucket"), func(v []float64) float64 { return v[0] * v[1] })

	d.alias("util_flag", "high_utilization_flag")
	d.alias("utilization_band", "utilization_bucket")
	d.alias("limit_score_flag", "high_credit_limit_flag")
}

func loanSize(d *deriver) {
	d.num("loan_size_flag", in("requested_amount"), func(v []float64) float64 { return flag(v[0] > 200000) })
	d.num("low_loan_flag", in("requested_amount"), func(v []float64) float64 { return flag(v[0] <= 25000) })
	d.num("requested_amount_bucket", in("requested_amount"), func(v []float64) float64 { return floorDiv(v[0], 50000) })
	d.num("loan_size_score", in("requested_amount", "monthly_income"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("short_term_flag", in("tenure_months"), func(v []float64) float64 { return flag(v[0] <= 12) })
	d.num("long_term_flag", in("tenure_months"), func(v []float64) float64 { return flag(v[0] > 60) })
	d.num("tenure_bucket", in("tenure_months"), func(v []float64) float64 { return floorDiv(v[0], 12) })
	d.num("requested_per_tenure", in("requested_amount", "tenure_months"), func(v []float64) float64 { return v[0] / (v[1] + 1) })
	d.num("loan_burden_ratio", in("requested_amount", "tenure_months", "monthly_income"), func(v []float64) float64 {
		return v[0] / v[1] / v[2]
	})

	d.dateField("application_month", "application_date", func(t time.Time) float64 { return float64(t.Month()) })
	d.dateField("application_year", "application_date", func(t time.Time) float64 { return float64(t.Year()) })
	d.num("festive_season_flag", in("application_month"), func(v []float64) float64 { return flag(v[0] >= 10 && v[0] <= 12) })
	d.num("financial_year_start_flag", in("application_month"), func(v []float64) float64 { return flag(v[0] == 4 || v[0] == 5) })
	d.num("end_of_year_push_flag", in("application_month"), func(v []float64) float64 { return flag(v[0] == 3) })

	d.num("tenure_to_income_ratio", in("tenure_months", "monthly_income"), func(v []float64) float64 { return v[0] / (v[1] + 1) })
	d.num("amount_income_term_score", in("requested_amount", "tenure_months", "monthly_income"), func(v []float64) float64 {
		return v[0] * v[1] / (v[2] + 1)
	})
	d.num("size_bucket_flag", in("requested_amount_bucket"), func(v []float64) float64 { return flag(v[0] >= 4) })
	d.num("high_stress_combination", in("loan_burden_ratio", "long_term_flag"), func(v []float64) float64 {
		return flag(v[0] > 0.8 && v[1] == 1)
	})

	d.alias("loan_request_score", "loan_size_score")
	d.alias("short_loan_flag", "short_term_flag")
	d.alias("long_loan_flag", "long_term_flag")
	d.alias("bucketed_tenure_group", "tenure_bucket")
	d.alias("disbursal_load_flag", "high_stress_combination")
	d.alias("request_term_ratio_flag", "requested_per_tenure")
	d.alias("loan_weighted_score", "amount_income_term_score")
}

func repayment(d *deriver) {
	const ratio = "repayment_to_due_ratio"
	d.num("clean_repayment_flag", in("dpd_30_flag"), func(v []float64) float64 { return flag(v[0] == 0) })
	d.num("ever_60_plus_flag", in("dpd_60_flag"), func(v []float64) float64 { return flag(v[0] == 1) })
	d.num("ever_90_plus_flag", in("dpd_90_flag"), func(v []float64) float64 { return flag(v[0] == 1) })
	d.num("recent_dpd_flag", in("dpd_last_month"), func(v []float64) float64 { return flag(v[0] > 0) })
	d.alias("dpd_escalation_stress_flag", "dpd_escalation_flag")

	d.num("recovery_ratio_flag", in(ratio), func(v []float64) float64 { return flag(v[0] >= 0.8) })
	d.num("poor_recovery_flag", in(ratio), func(v []float64) float64 { return flag(v[0] < 0.5) })
	d.num("recovery_gap_score", in(ratio), func(v []float64) float64 { return 1 - v[0] })
	d.num("effective_recovery_bucket", in(ratio), func(v []float64) float64 { return math.Trunc(v[0] * 10) })
	d.num("recovery_success_flag", in("write_off_flag", ratio), func(v []float64) float64 { return flag(v[0] == 0 && v[1] >= 0.8) })

	d.num("ptp_broken_flag", in("broken_ptp_flag"), func(v []float64) float64 { return flag(v[0] == 1) })
	d.alias("ptp_kept_score", "ptp_kept_ratio")
	d.num("ptp_compliance_flag", in("ptp_kept_ratio"), func(v []float64) float64 { return flag(v[0] >= 0.7) })
	d.num("ptp_failure_history_flag", in("broken_ptp_flag", "dpd_30_flag"), func(v []float64) float64 {
		return flag(v[0] == 1 && v[1] == 1)
	})

	d.alias("writeoff_flag_combined", "write_off_flag")
	d.alias("legal_initiated_flag", "legal_case_flag")
	d.num("legal_escalation_score", in("legal_case_flag", "dpd_90_flag"), func(v []float64) float64 { return v[0] * v[1] })
	d.num("writeoff_recovery_flag", in("write_off_flag", ratio), func(v []float64) float64 { return flag(v[0] == 1 && v[1] >= 0.3) })

	d.alias("clean_pay_flag", "clean_repayment_flag")
	d.alias("ptp_repayment_flag", "ptp_compliance_flag")
	d.alias("dpd_escalation_flag_alias", "dpd_escalation_stress_flag")
	d.alias("legal_case_escalated_flag", "legal_escalation_score")
	d.alias("recovery_bucket_score", "effective_recovery_bucket")
	d.alias("ptp_gap_flag", "ptp_failure_history_flag")
	d.alias("legal_action_flag", "legal_initiated_flag")
}

func behaviour(d *deriver) {
	d.random("internal_behavior_score", func() float64 { return 650 + d.rng.NormFloat64()*50 })
	d.label("risk_band_code", "M")
	d.fill("manual_override_flag", 0)
	d.random("behavior_stability_index", func() float64 { return 75 + d.rng.NormFloat64()*10 })

	d.num("low_bureau_score_flag", in("bureau_score"), func(v []float64) float64 { return flag(v[0] < 600) })
	d.num("high_bureau_score_flag", in("bureau_score"), func(v []float64) float64 { return flag(v[0] >= 750) })
	d.num("bureau_score_bucket_50", in("bureau_score"), func(v []float64) float64 { return floorDiv(v[0], 50) * 50 })
	d.num("bureau_score_bucket_100", in("bureau_score"), func(v []float64) float64 { return floorDiv(v[0], 100) * 100 })
	d.str("score_band_segment", in("bureau_score"), func(v []float64) string {
		switch {
		case v[0] < 600:
			return "Low"
		case v[0] < 700:
			return "Medium"
		}
		return "High"
	})

	const behav = "internal_behavior_score"
	d.num("behavior_score_gap", in("bureau_score", behav), func(v []float64) float64 { return v[0] - v[1] })
	d.num("behavior_agreement_flag", in("behavior_score_gap"), func(v []float64) float64 { return flag(math.Abs(v[0]) < 50) })
	d.num("high_behavioral_risk_flag", in(behav), func(v []float64) float64 { return flag(v[0] < 550) })
	d.num("behavior_bureau_interaction", in("bureau_score", behav), func(v []float64) float64 { return v[0] * v[1] })
	d.num("avg_combined_score", in("bureau_score", behav), func(v []float64) float64 { return (v[0] + v[1]) / 2 })

	highBand := func(s string) bool { return s == "H" || s == "VH" }
	d.fromText("internal_risk_band_flag", "risk_band_code", func(s string) float64 { return flag(highBand(s)) })
	d.num("dual_low_score_flag", in("bureau_score", behav), func(v []float64) float64 { return flag(v[0] < 600 && v[1] < 550) })
	d.num("risk_segment_score_flag", in("internal_risk_band_flag", "bureau_score"), func(v []float64) float64 {
		return flag(v[0] == 1 && v[1] < 600)
	})
	d.num("external_override_flag", in("manual_override_flag"), func(v []float64) float64 { return flag(v[0] == 1) })
	d.num("stable_behavior_flag", in("behavior_stability_index"), func(v []float64) float64 { return flag(v[0] >= 70) })

	d.alias("risk_band_indicator", "internal_risk_band_flag")
	d.alias("behavior_risk_score", behav)
	d.alias("score_agreement_flag", "behavior_agreement_flag")
	d.alias("combined_score_flag", "avg_combined_score")
	d.alias("override_manual_flag", "external_override_flag")
	d.alias("dual_risk_flag", "dual_low_score_flag")
	d.alias("score_seg_flag", "risk_segment_score_flag")
}

func riskRatios(d *deriver) {
	d.random("total_emi_amount", func() float64 { return 15000 + d.rng.NormFloat64()*2000 })

	d.num("score_utilization_ratio", in("bureau_score", "credit_card_utilization_pct"), func(v []float64) float64 { return v[0] / (1 + v[1]) })
	d.num("limit_to_income_ratio", in("credit_limit", "monthly_income"), func(v []float64) float64 { return v[0] / (1 + v[1]) })
	d.num("emi_to_income_ratio", in("total_emi_amount", "monthly_income"), func(v []float64) float64 { return v[0] / (1 + v[1]) })
	d.num("request_to_limit_ratio", in("requested_amount", "credit_limit"), func(v []float64) float64 { return v[0] / (1 + v[1]) })
	d.num("score_to_tenure_ratio", in("bureau_score", "tenure_months"), func(v []float64) float64 { return v[0] / (1 + v[1]) })

	d.num("multiple_risk_flags", in("high_utilization_flag", "low_bureau_score_flag", "high_behavioral_risk_flag", "dual_low_score_flag"),
		func(v []float64) float64 { return v[0] + v[1] + v[2] + v[3] })
	d.num("high_risk_alert", in("multiple_risk_flags"), func(v []float64) float64 { return flag(v[0] >= 3) })
	d.num("critical_pd_trigger", in("ever_90_plus_flag", "behavior_score_gap"), func(v []float64) float64 {
		return flag(v[0] == 1 && v[1] < -100)
	})
	d.num("low_affordability_flag", in("emi_to_income_ratio"), func(v []float64) float64 { return flag(v[0] > 0.6) })

	d.num("risk_profile_score", in("avg_combined_score", "behavior_stability_index"), func(v []float64) float64 { return (v[0] + v[1]) / 2 })
	d.str("risk_band_final", in("risk_profile_score"), func(v []float64) string {
		switch {
		case v[0] >= 750:
			return "Low"
		case v[0] >= 600:
			return "Medium"
		}
		return "High"
	})
	d.num("final_pd_flag", in("high_risk_alert", "critical_pd_trigger"), func(v []float64) float64 { return flag(v[0] == 1 || v[1] == 1) })

	d.alias("alert_flag", "high_risk_alert")
	d.alias("affordability_flag", "low_affordability_flag")
	d.alias("risk_bucket", "risk_band_final")
}

// extendedWindow recomputes the DPD aggregates over twelve observation months
// and derives the default flag from the six performance months. Rows without
// complete windows leave the modeling population.
func extendedWindow(d *deriver) {
	uniform := func() float64 { return float64(d.rng.IntN(120)) }
	for _, name := range dpdMonths12[6:] {
		d.random(name, uniform)
	}

	d.num("dpd_max_days", dpdMonths12, stats.Max)
	d.num("dpd_avg", dpdMonths12, stats.Mean)
	d.num("dpd_variance", dpdMonths12, stats.Variance)
	for _, t := range []float64{30, 60, 90} {
		d.num(fmt.Sprintf("dpd_count_%d_plus", int(t)), dpdMonths12, func(v []float64) float64 { return countAtLeast(v, t) })
	}
	d.num("dpd_3m_total", in("dpd_m10", "dpd_m11", "dpd_m12"), stats.Sum)

	d.num("emi_bounce_flag", in("emi_bounce_count"), func(v []float64) float64 { return flag(v[0] >= 1) })
	d.num("emi_income_flag", in("emi_amount", "monthly_income"), func(v []float64) float64 { return flag(v[0] > 0.5*v[1]) })
	d.num("emi_ratio_buffer", in("monthly_income", "emi_amount"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("limit_to_income_ratio", in("credit_limit", "monthly_income"), func(v []float64) float64 { return v[0] / (1 + v[1]) })
	d.num("low_affordability_flag", in("emi_amount", "monthly_income"), func(v []float64) float64 { return flag(v[0]/(1+v[1]) > 0.6) })

	d.num("high_risk_alert", in("dpd_count_60_plus", "emi_income_flag"), func(v []float64) float64 { return flag(v[0] >= 2 || v[1] == 1) })
	d.num("affordability_flag", in("emi_ratio_buffer"), func(v []float64) float64 { return flag(v[0] < 2) })
	d.num("critical_pd_trigger", in("dpd_max_days"), func(v []float64) float64 { return flag(v[0] >= 120) })

	if d.f.Has("application_date") && d.f.Has("account_open_date") {
		d.days("fast_funding_flag", "application_date", "account_open_date")
		d.num("fast_funding_flag", in("fast_funding_flag"), func(v []float64) float64 { return flag(v[0] <= 7) })
	} else {
		d.set(frame.NumericColumn("fast_funding_flag", make([]float64, d.rows())))
	}

	d.num("salary_credit_regular", in("salary_credits_3m"), func(v []float64) float64 { return flag(v[0] >= 3) })
	d.num("behavioural_score", in("bureau_score", "dpd_avg"), func(v []float64) float64 { return v[0]*0.7 + (100-v[1])*0.3 })
	d.str("risk_score_band", in("bureau_score"), func(v []float64) string {
		switch {
		case v[0] < 650:
			return "Low"
		case v[0] < 700:
			return "Medium"
		}
		return "High"
	})

	d.num("account_ratio_active", in("active_accounts", "total_accounts"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("overdue_to_total_ratio", in("overdue_accounts", "total_accounts"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("active_account_ratio", in("active_accounts", "total_accounts"), func(v []float64) float64 { return v[0] / v[1] })
	d.num("enquiries_flag", in("recent_enquiries_6m"), func(v []float64) float64 { return flag(v[0] > 2) })
	d.num("high_enquiry_interaction", in("recent_enquiries_6m", "bureau_score"), func(v []float64) float64 {
		return flag(v[0] >= 4 && v[1] < 650)
	})
	d.num("loan_size_flag", in("requested_amount"), func(v []float64) float64 { return flag(v[0] >= 500000) })
	d.num("limit_score_flag", in("credit_limit", "monthly_income"), func(v []float64) float64 { return flag(v[0] > 3*v[1]) })

	d.random("pos_transaction_volume", func() float64 { return float64(50 + d.rng.IntN(451)) })
	d.random("mobile_login_frequency", func() float64 { return float64(1 + d.rng.IntN(30)) })

	for _, name := range perfMonths {
		d.random(name, uniform)
	}

	complete := func(v []float64) float64 {
		for _, x := range v {
			if math.IsNaN(x) {
				return 0
			}
		}
		return 1
	}
	d.num("valid_obs", dpdMonths12, complete)
	d.num("valid_perf", perfMonths, complete)
	d.num("modeling_population", in("valid_obs", "valid_perf"), func(v []float64) float64 { return flag(v[0] == 1 && v[1] == 1) })

	perf, okPerf := d.cols(perfMonths)
	pop, okPop := d.f.Num("modeling_population")
	if !okPerf || !okPop {
		return
	}
	target := make([]float64, d.rows())
	row := make([]float64, len(perf))
	for i := range target {
		target[i] = math.NaN()
		if pop[i] != 1 {
			continue
		}
		for j, c := range perf {
			row[j] = c[i]
		}
		target[i] = flag(stats.Max(row) >= 90)
	}
	d.set(frame.NumericColumn(DefaultFlag, target))

	keep := make([]bool, len(pop))
	for i, p := range pop {
		keep[i] = p == 1
	}
	d.f = d.f.Filter(keep)
}
