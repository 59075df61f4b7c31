package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/KaramelBytes/scoreloom-cli/internal/build"
	"github.com/KaramelBytes/scoreloom-cli/internal/collinear"
	"github.com/KaramelBytes/scoreloom-cli/internal/features"
	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	"github.com/KaramelBytes/scoreloom-cli/internal/metadata"
	"github.com/KaramelBytes/scoreloom-cli/internal/model"
	"github.com/KaramelBytes/scoreloom-cli/internal/reduce"
	"github.com/KaramelBytes/scoreloom-cli/internal/report"
	"github.com/KaramelBytes/scoreloom-cli/internal/scorecard"
	"github.com/KaramelBytes/scoreloom-cli/internal/track"
	"github.com/KaramelBytes/scoreloom-cli/internal/utils"
	"github.com/KaramelBytes/scoreloom-cli/internal/woe"
	ws "github.com/KaramelBytes/scoreloom-cli/internal/workspace"
)

const previewRows = 15

type output struct {
	name string
	f    *frame.Frame
}

// write stores the outputs in order and stops at the first failure.
func (e *Env) write(outs ...output) error {
	for _, o := range outs {
		if err := e.WS.WriteFrame(e.Run, o.name, o.f); err != nil {
			return err
		}
	}
	return nil
}

func (e *Env) writeYAML(name string, v any) error {
	if err := utils.WriteYAML(e.WS.DataPath(name), v); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	e.Run.RecordOutput(name)
	return nil
}

func runBuild(ctx context.Context, env *Env) error {
	in, err := env.WS.ReadFrame(env.Run, ws.RawVariables)
	if err != nil {
		return err
	}
	opt, err := buildOptions(env.Cfg)
	if err != nil {
		return err
	}
	res, err := build.Run(ctx, in, opt)
	if err != nil {
		return err
	}
	stages := build.ReportFrame(res.Stages)
	if err := env.write(output{ws.MetadataInput, res.Frame}, output{ws.BuildReport, stages}); err != nil {
		return err
	}
	env.table(report.FromFrame("Derived columns by stage", stages, 0))
	if res.Dropped > 0 {
		env.notef("%d rows outside the modeling population were dropped", res.Dropped)
	}
	return nil
}

func runMetadata(ctx context.Context, env *Env) error {
	in, err := env.WS.ReadFrame(env.Run, ws.MetadataInput)
	if err != nil {
		return err
	}
	var master *frame.Frame
	if env.WS.Exists(ws.CustomerMaster) {
		if master, err = env.WS.ReadFrame(env.Run, ws.CustomerMaster); err != nil {
			return err
		}
	}
	res, err := metadata.Run(ctx, in, master, metadataOptions(env.Cfg))
	if err != nil {
		return err
	}
	err = env.write(
		output{ws.MetadataOutput, res.Output},
		output{ws.FeatEngData, res.Output},
		output{ws.MetadataDictionary, res.Dictionary},
		output{ws.MetadataDuplicates, metadata.DuplicatesFrame(res.Duplicates)},
		output{ws.MetadataMissing, metadata.SummaryFrame(res.Summaries)},
	)
	if err != nil {
		return err
	}
	if master != nil {
		if err := env.write(output{ws.MetadataOrphans, res.Orphans}); err != nil {
			return err
		}
		env.notef("%d orphan records without a customer master entry", res.Orphans.Rows())
	}

	env.table(report.FromFrame(fmt.Sprintf("Variables above %.0f%% missing", env.Cfg.Metadata.HighMissingPct),
		metadata.SummaryFrame(res.HighMissing), previewRows))
	for _, ft := range res.Frequencies {
		if len(ft.Values) > 0 {
			env.table(report.FromFrame("Frequencies: "+ft.Variable, ft.Frame(), previewRows))
		}
	}
	if len(res.Describe) > 0 {
		env.table(describeTable(res.Describe))
	}
	env.notef("%d duplicate columns dropped; %d also on the legacy list, %d detected only, %d legacy only",
		len(res.Dropped), len(res.Legacy.Both), len(res.Legacy.DetectedOnly), len(res.Legacy.LegacyOnly))
	return nil
}

func describeTable(rows []metadata.DescRow) report.Table {
	t := report.Table{Title: "Descriptive statistics", Header: []string{"variable", "N", "mean", "std", "min", "max"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Variable, fmt.Sprint(r.N), report.FormatNumber(r.Mean), report.FormatNumber(r.Std),
			report.FormatNumber(r.Min), report.FormatNumber(r.Max),
		})
	}
	return t
}

func runFeatures(ctx context.Context, env *Env) error {
	in, err := env.WS.ReadFrame(env.Run, ws.FeatEngData)
	if err != nil {
		return err
	}
	opt, err := featuresOptions(env.Cfg)
	if err != nil {
		return err
	}
	res := features.Run(ctx, in, opt)
	err = env.write(
		output{ws.FeatEngOutput, res.Treated},
		output{ws.EDAData, res.Treated},
		output{ws.WoEReady, res.WoEReady},
		output{ws.BureauDeciles, features.DecileFrame(res.Deciles)},
	)
	if err != nil {
		return err
	}
	env.notef("%d rows in the observation window, %d excluded", res.Windowed, res.Excluded)
	if len(res.Deciles) > 0 {
		env.table(report.FromFrame("Bureau score deciles", features.DecileFrame(res.Deciles), 0))
	}
	return nil
}

func runWoE(ctx context.Context, env *Env) error {
	in, _, err := env.WS.ReadFirst(env.Run, ws.WoEReady, ws.FeatEngOutput)
	if err != nil {
		return err
	}
	res, err := woe.Run(ctx, in, woeOptions(env.Cfg))
	if err != nil {
		return err
	}
	err = env.write(
		output{ws.IVSummary, res.Summary},
		output{ws.WoEStatistics, res.Statistics},
		output{ws.WoETransformed, res.Transformed},
		output{ws.IVFilter, woe.FilterFrame(res.Decisions)},
		output{ws.ModelDataFiltered, res.Filtered},
	)
	if err != nil {
		return err
	}
	if n := min(len(res.Variables), 25); n > 0 {
		names, iv := make([]string, n), make([]float64, n)
		for i, v := range res.Variables[:n] {
			names[i], iv[i] = v.Variable, v.IV
		}
		if err := report.IVChart(env.WS.DataPath(ws.IVChart), names, iv); err != nil {
			logging.FromContext(ctx).Warn("iv chart not written", "err", err)
		} else {
			env.Run.RecordOutput(ws.IVChart)
		}
	}
	env.table(report.FromFrame("Information value", res.Summary, previewRows))
	env.notef("%d of %d variables kept by the IV filter", len(woe.Kept(res.Decisions)), len(res.Decisions))
	return nil
}

func runCollinear(ctx context.Context, env *Env) error {
	in, _, err := env.WS.ReadFirst(env.Run, ws.ModelDataFiltered, ws.WoETransformed)
	if err != nil {
		return err
	}
	iv, err := env.WS.ReadFrame(env.Run, ws.IVSummary)
	if err != nil {
		return err
	}
	res, err := collinear.Run(ctx, in, iv, collinearOptions(env.Cfg))
	if err != nil {
		return err
	}
	vif := collinear.VIFFrame(res.VIF)
	err = env.write(
		output{ws.HighCorrPairs, collinear.PairsFrame(res.Pairs)},
		output{ws.VIFSummary, vif},
		output{ws.ModelReady, res.Final},
	)
	if err != nil {
		return err
	}
	env.table(report.FromFrame("Variance inflation factors", vif, previewRows))
	env.notef("%d correlated pairs; dropped %d by correlation and %d by VIF", len(res.Pairs), len(res.CorrDrops), len(res.VIFDrops))
	if len(res.Flagged) > 0 {
		env.notef("reviewed variables removed by collinearity rules: %v", res.Flagged)
	}
	return nil
}

func runModel(ctx context.Context, env *Env) error {
	in, err := env.WS.ReadFrame(env.Run, ws.ModelReady)
	if err != nil {
		return err
	}
	res, err := model.Run(ctx, in, modelOptions(env.Cfg))
	if err != nil {
		return err
	}
	coef := model.CoefficientsFrame(res.Model)
	validPerf := model.PerformanceFrame(res.ValidPerf)
	err = env.write(
		output{ws.Coefficients, coef},
		output{ws.TrainScored, res.Train},
		output{ws.ValidScored, res.Valid},
		output{ws.PerformanceTrain, model.PerformanceFrame(res.TrainPerf)},
		output{ws.PerformanceValid, validPerf},
	)
	if err != nil {
		return err
	}
	if err := env.writeYAML(ws.ModelMetrics, res.Summary()); err != nil {
		return err
	}
	m := res.ValidMetrics
	if err := report.ROCChart(env.WS.DataPath(ws.ROCChart), res.ValidCurve, m.AUC, m.KS); err != nil {
		logging.FromContext(ctx).Warn("roc chart not written", "err", err)
	} else {
		env.Run.RecordOutput(ws.ROCChart)
	}

	env.table(report.FromFrame("Coefficients", coef, 0))
	env.table(report.FromFrame("Validation performance by decile", validPerf, 0))
	env.notef("validation AUC %.4f, KS %.4f (p=%.3g)", m.AUC, m.KS, m.KSPValue)
	return nil
}

func runScore(ctx context.Context, env *Env) error {
	in, _, err := env.WS.ReadFirst(env.Run, ws.ValidScored)
	if err != nil {
		return err
	}
	var factors []scorecard.Factor
	if env.WS.Exists(ws.Coefficients) {
		coef, err := env.WS.ReadFrame(env.Run, ws.Coefficients)
		if err != nil {
			return err
		}
		factors = scorecard.FactorsFromFrame(coef)
	}
	res, err := scorecard.Run(ctx, in, factors, scorecardOptions(env.Cfg))
	if err != nil {
		return err
	}
	if err := env.write(output{ws.ScoredApplications, res.Scored}); err != nil {
		return err
	}
	if err := env.writeYAML(ws.ScoreSummary, res.Summary); err != nil {
		return err
	}
	if res.FalsePredictions != nil {
		if err := env.write(output{ws.FalsePredictions, res.FalsePredictions}); err != nil {
			return err
		}
	}
	env.table(report.FromFrame("Risk bands", res.Bands, 0))
	s := res.Summary.ScoreStats
	env.notef("mean score %.1f (min %.1f, max %.1f)", s.Mean, s.Min, s.Max)
	return nil
}

func runReduce(ctx context.Context, env *Env) error {
	in, err := env.WS.ReadFrame(env.Run, ws.LGDInput)
	if err != nil {
		return err
	}
	res := reduce.Run(ctx, in, reduceOptions(env.Cfg))
	err = env.write(
		output{ws.LGDReduced, res.Final},
		output{ws.LGDDropLog, reduce.DropLogFrame(res.Drops)},
		output{ws.LGDCorrComparison, reduce.ComparisonFrame(res.Comparison)},
		output{ws.LGDVariance, reduce.VarianceFrame(res.Variance)},
		output{ws.LGDMissing, reduce.MissingFrame(res.Missing)},
	)
	if err != nil {
		return err
	}
	byStage := map[string]int{}
	for _, d := range res.Drops {
		byStage[d.Reason]++
	}
	reasons := make([]string, 0, len(byStage))
	for r := range byStage {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	t := report.Table{Title: "Variables dropped", Header: []string{"reason", "count"}}
	for _, r := range reasons {
		t.Rows = append(t.Rows, []string{r, fmt.Sprint(byStage[r])})
	}
	env.table(t)
	env.notef("%d columns reduced to %d", res.StartCols, res.Final.Width())
	return nil
}

func runTrack(ctx context.Context, env *Env) error {
	res, err := track.Run(ctx, track.Stages, env.WS.DataPath)
	if err != nil {
		return err
	}
	f := res.Frame()
	if err := env.write(output{ws.FeatureTracking, f}); err != nil {
		return err
	}
	env.table(report.FromFrame("Feature tracking", f.Select("stage", "file", "features", "change", "common", "status"), 0))
	if res.Overall != nil {
		env.notef("in final but not initial: %s", track.Abbreviate(res.Overall.Added, 20))
		env.notef("in initial but not final: %s", track.Abbreviate(res.Overall.Removed, 20))
	}
	return nil
}
