// Package build derives the raw PD modeling table from bureau, CBS, DPD and
// collection inputs in eleven ordered stages.
package build

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
)

// DefaultFlag is the target column written by the final stage.
const DefaultFlag = "default_flag"

type Options struct {
	// Seed feeds the simulated columns of the behaviour, risk ratio and
	// extended window stages. Each seeded stage starts its own stream.
	Seed uint64
	// AsOf is the date account age is measured against.
	AsOf time.Time
}

func DefaultOptions() Options {
	return Options{Seed: 42, AsOf: time.Now()}
}

type stage struct {
	name   string
	seeded bool
	fn     func(*deriver)
}

var stages = []stage{
	{name: "bureau", fn: bureau},
	{name: "cbs", fn: cbs},
	{name: "dpd", fn: dpd},
	{name: "collection", fn: collection},
	{name: "disbursal", fn: disbursal},
	{name: "utilisation", fn: utilisation},
	{name: "loan_size", fn: loanSize},
	{name: "repayment", fn: repayment},
	{name: "behaviour", seeded: true, fn: behaviour},
	{name: "risk_ratios", seeded: true, fn: riskRatios},
	{name: "extended_window", seeded: true, fn: extendedWindow},
}

// StageNames lists the derivation stages in run order.
func StageNames() []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.name
	}
	return out
}

type StageReport struct {
	Stage   string
	Added   int
	Skipped []string
	Rows    int
	Columns int
}

type Result struct {
	Frame   *frame.Frame
	Stages  []StageReport
	Dropped int // rows outside the modeling population
}

// Run applies every stage to a copy of in.
func Run(ctx context.Context, in *frame.Frame, opt Options) (*Result, error) {
	log := logging.FromContext(ctx)
	if opt.AsOf.IsZero() {
		opt.AsOf = time.Now()
	}
	d := &deriver{f: in.Clone(), log: log, asOf: opt.AsOf}
	res := &Result{}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build stage %s: %w", s.name, err)
		}
		d.stage, d.added, d.skipped = s.name, 0, nil
		if s.seeded {
			d.rng = rand.New(rand.NewPCG(opt.Seed, opt.Seed))
		}
		s.fn(d)
		r := StageReport{Stage: s.name, Added: d.added, Skipped: d.skipped, Rows: d.f.Rows(), Columns: d.f.Width()}
		res.Stages = append(res.Stages, r)
		log.Info("stage derived", "stage", s.name, "added", r.Added, "skipped", len(r.Skipped), "columns", r.Columns)
	}
	res.Frame = d.f
	res.Dropped = in.Rows() - d.f.Rows()
	if res.Dropped > 0 {
		log.Warn("rows outside modeling population dropped", "rows", res.Dropped)
	}
	return res, nil
}

// ReportFrame tabulates the per-stage reports.
func ReportFrame(reports []StageReport) *frame.Frame {
	n := len(reports)
	name, skipped := make([]string, n), make([]string, n)
	added, rows, cols := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, r := range reports {
		name[i] = r.Stage
		added[i] = float64(r.Added)
		rows[i] = float64(r.Rows)
		cols[i] = float64(r.Columns)
		for j, s := range r.Skipped {
			if j > 0 {
				skipped[i] += ";"
			}
			skipped[i] += s
		}
	}
	return frame.MustFromColumns(
		frame.StringColumn("stage", name),
		frame.NumericColumn("added", added),
		frame.NumericColumn("rows", rows),
		frame.NumericColumn("columns", cols),
		frame.StringColumn("skipped", skipped),
	)
}
