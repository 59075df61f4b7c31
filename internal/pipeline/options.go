package pipeline

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/build"
	"github.com/KaramelBytes/scoreloom-cli/internal/collinear"
	"github.com/KaramelBytes/scoreloom-cli/internal/config"
	"github.com/KaramelBytes/scoreloom-cli/internal/features"
	"github.com/KaramelBytes/scoreloom-cli/internal/metadata"
	"github.com/KaramelBytes/scoreloom-cli/internal/model"
	"github.com/KaramelBytes/scoreloom-cli/internal/reduce"
	"github.com/KaramelBytes/scoreloom-cli/internal/scorecard"
	"github.com/KaramelBytes/scoreloom-cli/internal/woe"
)

const dateLayout = "2006-01-02"

func parseDate(key, v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("config %s: %w", key, err)
	}
	return t, nil
}

func buildOptions(c *config.Global) (build.Options, error) {
	opt := build.Options{Seed: c.Build.Seed, AsOf: time.Now()}
	if c.Build.AsOf != "" {
		t, err := parseDate("build.as_of", c.Build.AsOf)
		if err != nil {
			return opt, err
		}
		opt.AsOf = t
	}
	return opt, nil
}

func metadataOptions(c *config.Global) metadata.Options {
	opt := metadata.DefaultOptions()
	opt.HighMissingPct = c.Metadata.HighMissingPct
	opt.SampleSize = c.Metadata.DuplicateSample
	opt.Seed = c.Metadata.Seed
	opt.CategoricalVars = c.Metadata.CategoricalVars
	opt.DescribeVars = c.Metadata.DescribeVars
	opt.CustomerKey = c.Metadata.CustomerKey
	opt.Workers = c.Workers
	return opt
}

func featuresOptions(c *config.Global) (features.Options, error) {
	opt := features.DefaultOptions()
	start, err := parseDate("features.obs_start", c.Features.ObsStart)
	if err != nil {
		return opt, err
	}
	end, err := parseDate("features.obs_end", c.Features.ObsEnd)
	if err != nil {
		return opt, err
	}
	opt.Target = c.Target
	opt.ObsStart, opt.ObsEnd = start, end
	opt.MinTenureMonths = c.Features.MinTenureMonths
	opt.CapVars = c.Features.CapVars
	opt.LowerPct, opt.UpperPct = c.Features.LowerPct, c.Features.UpperPct
	return opt, nil
}

func woeOptions(c *config.Global) woe.Options {
	return woe.Options{
		Target:      c.Target,
		Bins:        c.WoE.Bins,
		Smoothing:   c.WoE.Smoothing,
		ManualVar:   c.WoE.ManualVar,
		ManualEdges: c.WoE.ManualEdges,
		IVMin:       c.WoE.IVMin,
		IVMax:       c.WoE.IVMax,
		KeepVars:    c.WoE.KeepVars,
		Workers:     c.Workers,
	}
}

func collinearOptions(c *config.Global) collinear.Options {
	return collinear.Options{
		Target:         c.Target,
		PairThreshold:  c.Collinear.PairThreshold,
		DropAbove:      c.Collinear.DropAbove,
		DropAboveLowIV: c.Collinear.DropAboveLowIV,
		MinIV:          c.Collinear.MinIV,
		VIFThreshold:   c.Collinear.VIFThreshold,
		Exclude:        c.Collinear.Exclude,
		Protected:      c.Collinear.Protected,
		FinalKeep:      c.Collinear.FinalKeep,
		Workers:        c.Workers,
	}
}

func modelOptions(c *config.Global) model.Options {
	return model.Options{
		Target:   c.Target,
		Features: c.Model.Features,
		TestSize: c.Model.TestSize,
		Seed:     c.Model.Seed,
		MaxIter:  c.Model.MaxIter,
		C:        c.Model.C,
		Deciles:  c.Model.Deciles,
	}
}

func scorecardOptions(c *config.Global) scorecard.Options {
	return scorecard.Options{
		BaseScore:  c.Scorecard.BaseScore,
		PDO:        c.Scorecard.PDO,
		ProbColumn: c.Scorecard.ProbColumn,
		Target:     c.Target,
		TopFactors: c.Scorecard.TopFactors,
	}
}

func reduceOptions(c *config.Global) reduce.Options {
	return reduce.Options{
		CorrThreshold: c.Reduce.CorrThreshold,
		MinStd:        c.Reduce.MinStd,
		MaxMissingPct: c.Reduce.MaxMissingPct,
	}
}
