package woe

import (
	"context"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
)

// Decision records whether a variable survives the IV filter.
type Decision struct {
	Variable string
	IV       float64
	InRange  bool
	Listed   bool
	Keep     bool
}

// Filter keeps variables whose IV lies in [IVMin, IVMax] or that appear in KeepVars.
func Filter(results []VariableResult, opt Options) []Decision {
	listed := make(map[string]bool, len(opt.KeepVars))
	for _, v := range opt.KeepVars {
		listed[strings.ToLower(v)] = true
	}
	out := make([]Decision, len(results))
	for i, r := range results {
		d := Decision{
			Variable: r.Variable,
			IV:       r.IV,
			InRange:  r.IV >= opt.IVMin && r.IV <= opt.IVMax,
			Listed:   listed[strings.ToLower(r.Variable)],
		}
		d.Keep = d.InRange || d.Listed
		out[i] = d
	}
	return out
}

// Kept returns the names of kept variables in decision order.
func Kept(ds []Decision) []string {
	var out []string
	for _, d := range ds {
		if d.Keep {
			out = append(out, d.Variable)
		}
	}
	return out
}

// FilterFrame is the variable, IV, keep_flag table.
func FilterFrame(ds []Decision) *frame.Frame {
	names := make([]string, len(ds))
	iv := make([]float64, len(ds))
	keep := make([]float64, len(ds))
	reason := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Variable
		iv[i] = d.IV
		switch {
		case d.InRange:
			keep[i], reason[i] = 1, "iv_in_range"
		case d.Listed:
			keep[i], reason[i] = 1, "keep_list"
		default:
			reason[i] = "iv_out_of_range"
		}
	}
	return frame.MustFromColumns(
		frame.StringColumn("variable", names),
		frame.NumericColumn("IV", iv),
		frame.NumericColumn("keep_flag", keep),
		frame.StringColumn("reason", reason),
	)
}

// Select keeps the named variables that exist in f, followed by the target.
func Select(f *frame.Frame, vars []string, target string) *frame.Frame {
	names := make([]string, 0, len(vars)+1)
	for _, v := range vars {
		if f.Has(v) && v != target {
			names = append(names, v)
		}
	}
	if f.Has(target) {
		names = append(names, target)
	}
	return f.Select(names...)
}

// Result bundles the outputs of a WoE run.
type Result struct {
	Variables   []VariableResult
	Summary     *frame.Frame
	Statistics  *frame.Frame
	Transformed *frame.Frame
	Decisions   []Decision
	Filtered    *frame.Frame
}

// Run bins all variables, transforms the data to WoE and applies the IV filter.
func Run(ctx context.Context, in *frame.Frame, opt Options) (*Result, error) {
	log := logging.FromContext(ctx)
	results, err := ComputeAll(ctx, in, opt)
	if err != nil {
		return nil, err
	}
	log.Info("information value computed", "variables", len(results))

	transformed := Transform(in, results)
	decisions := Filter(results, opt)
	kept := Kept(decisions)
	log.Info("iv filter applied", "kept", len(kept), "dropped", len(decisions)-len(kept))
	for _, d := range decisions {
		if !d.Keep {
			log.Debug("variable dropped by iv", "variable", d.Variable, "iv", d.IV)
		}
	}
	return &Result{
		Variables:   results,
		Summary:     SummaryFrame(results),
		Statistics:  StatisticsFrame(results),
		Transformed: transformed,
		Decisions:   decisions,
		Filtered:    Select(transformed, kept, opt.Target),
	}, nil
}
