package metadata

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
)

// Duplicate places a column in a group of identical columns.
type Duplicate struct {
	Group  int
	Column string
}

// ExcludedFromDuplicates are monthly DPD columns that legitimately repeat.
func ExcludedFromDuplicates() []string {
	out := make([]string, 12)
	for i := range out {
		out[i] = fmt.Sprintf("dpd_m%d", i+1)
	}
	return out
}

// sampleRows picks up to n row indices with a seeded generator, ascending.
func sampleRows(rows, n int, seed uint64) []int {
	if n <= 0 || rows <= n {
		idx := make([]int, rows)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	idx := rng.Perm(rows)[:n]
	sort.Ints(idx)
	return idx
}

// digest hashes the concatenated text of the non-missing cells at rows.
func digest(c *frame.Column, rows []int) string {
	h := md5.New()
	for _, i := range rows {
		if !c.IsMissing(i) {
			io.WriteString(h, c.Text(i))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DuplicateColumns groups columns whose sampled values hash identically.
// Only groups with more than one column are returned; within a group,
// columns keep frame order.
func DuplicateColumns(ctx context.Context, f *frame.Frame, opt Options) ([]Duplicate, error) {
	excluded := make(map[string]bool)
	for _, n := range ExcludedFromDuplicates() {
		excluded[n] = true
	}
	var cols []*frame.Column
	for _, c := range f.Columns() {
		if !excluded[c.Name] {
			cols = append(cols, c)
		}
	}
	rows := sampleRows(f.Rows(), opt.SampleSize, opt.Seed)

	digests := make([]string, len(cols))
	g, ctx := errgroup.WithContext(ctx)
	limit := opt.Workers
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for i, c := range cols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			digests[i] = digest(c, rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return digests[order[a]] < digests[order[b]] })

	var out []Duplicate
	group := 0
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && digests[order[end]] == digests[order[start]] {
			end++
		}
		group++
		if end-start > 1 {
			for _, i := range order[start:end] {
				out = append(out, Duplicate{Group: group, Column: cols[i].Name})
			}
		}
		start = end
	}
	return out, nil
}

// DropList keeps the first column of every group and lists the rest.
func DropList(dups []Duplicate) []string {
	var out []string
	seen := make(map[int]bool)
	for _, d := range dups {
		if seen[d.Group] {
			out = append(out, d.Column)
			continue
		}
		seen[d.Group] = true
	}
	return out
}

func countGroups(dups []Duplicate) int {
	seen := make(map[int]bool)
	for _, d := range dups {
		seen[d.Group] = true
	}
	return len(seen)
}

func DuplicatesFrame(dups []Duplicate) *frame.Frame {
	group := make([]float64, len(dups))
	name := make([]string, len(dups))
	for i, d := range dups {
		group[i] = float64(d.Group)
		name[i] = d.Column
	}
	return frame.MustFromColumns(
		frame.NumericColumn("group_id", group),
		frame.StringColumn("column_name", name),
	)
}

// LegacyDropList is the reviewed list of redundant columns from the
// previous scorecard build, kept for comparison only.
var LegacyDropList = []string{
	"repayment_rate_flag", "recovery_effectiveness_score", "low_credit_limit_flag",
	"low_loan_flag", "ptp_honored_ratio", "ptp_ratio_score", "ptp_kept_score",
	"combined_score_flag", "loan_weighted_score", "dpd_variance", "emi_income_flag",
	"dpd_avg", "credit_limit_bucket", "requested_amount_bucket", "dpd_max_days",
	"dpd_last_month", "max_dpd_days", "recent_dpd_score", "fast_funding_flag",
	"account_ratio_active", "dpd_3m_total", "affordability_flag", "dpd_ratio",
	"high_credit_limit_flag", "limit_score_flag", "loan_size_flag", "size_bucket_flag",
	"enquiry_below650_flag", "dpd_f2", "dpd_f3", "dpd_f4", "dpd_f5", "dpd_f6",
	"credit_limit", "requested_amt", "high_risk_band_flag", "bureau_score_low_flag",
	"write_off_case_flag", "writeoff_flag_combined", "writeoff_recovery_flag",
	"legal_action_taken_flag", "legal_case_escalated_flag", "legal_initiated_flag",
	"legal_escalation_score", "legal_action_flag", "score_agreement_flag",
	"dpd_count_30_plus", "recovery_bucket_score", "emi_ratio_buffer",
	"loan_request_score", "avg_balance_flag", "emi_bounce_flag", "high_balance_flag",
	"bounce_flag", "high_avg_bal_flag", "dpd_m1", "dpd_m3", "dpd_m5",
}

// LegacyComparison contrasts detected duplicates with LegacyDropList.
type LegacyComparison struct {
	Both         []string
	DetectedOnly []string
	LegacyOnly   []string
}

func CompareLegacy(dropped []string) LegacyComparison {
	legacy := make(map[string]bool, len(LegacyDropList))
	for _, v := range LegacyDropList {
		legacy[v] = true
	}
	found := make(map[string]bool, len(dropped))
	var c LegacyComparison
	for _, v := range dropped {
		found[v] = true
		if legacy[v] {
			c.Both = append(c.Both, v)
		} else {
			c.DetectedOnly = append(c.DetectedOnly, v)
		}
	}
	for _, v := range LegacyDropList {
		if !found[v] {
			c.LegacyOnly = append(c.LegacyOnly, v)
		}
	}
	sort.Strings(c.Both)
	sort.Strings(c.DetectedOnly)
	return c
}
