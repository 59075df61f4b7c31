// Package pipeline runs the scorecard stages against workspace artifacts.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/config"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	"github.com/KaramelBytes/scoreloom-cli/internal/report"
	"github.com/KaramelBytes/scoreloom-cli/internal/workspace"
)

// Env is what a stage sees while it runs.
type Env struct {
	WS  *workspace.Workspace
	Cfg *config.Global
	Run *workspace.Run
	// Tables are summaries for the terminal.
	Tables []report.Table
	// Notes are one-line findings worth surfacing, e.g. dropped rows.
	Notes []string
}

func (e *Env) table(t report.Table) { e.Tables = append(e.Tables, t) }

func (e *Env) notef(format string, args ...any) {
	e.Notes = append(e.Notes, fmt.Sprintf(format, args...))
}

// Stage is one named step of the workflow.
type Stage struct {
	Name  string
	Short string
	// Chained stages run in order under `scoreloom run`.
	Chained bool
	run     func(ctx context.Context, env *Env) error
}

var registry = []Stage{
	{Name: "build", Short: "Derive the raw PD variable table", Chained: true, run: runBuild},
	{Name: "metadata", Short: "Profile variables and remove duplicate columns", Chained: true, run: runMetadata},
	{Name: "features", Short: "Filter the observation window and engineer features", Chained: true, run: runFeatures},
	{Name: "woe", Short: "Bin variables, compute WoE/IV and filter by IV", Chained: true, run: runWoE},
	{Name: "collinear", Short: "Filter correlated and high-VIF variables", Chained: true, run: runCollinear},
	{Name: "model", Short: "Fit the logistic regression and measure performance", Chained: true, run: runModel},
	{Name: "score", Short: "Convert probabilities into points, bands and decisions", Chained: true, run: runScore},
	{Name: "track", Short: "Track column changes between stage artifacts", Chained: true, run: runTrack},
	{Name: "reduce", Short: "Reduce the LGD/EAD variable set", run: runReduce},
}

// Stages lists every stage in pipeline order.
func Stages() []Stage { return append([]Stage(nil), registry...) }

// Lookup finds a stage by name.
func Lookup(name string) (Stage, error) {
	for _, s := range registry {
		if s.Name == name {
			return s, nil
		}
	}
	return Stage{}, fmt.Errorf("unknown stage %q (want one of %s)", name, strings.Join(names(registry), ", "))
}

func names(ss []Stage) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Name
	}
	return out
}

// Chain returns the chained stages from..to inclusive; empty bounds mean
// the first and last chained stage.
func Chain(from, to string) ([]Stage, error) {
	var chained []Stage
	for _, s := range registry {
		if s.Chained {
			chained = append(chained, s)
		}
	}
	lo, hi := 0, len(chained)-1
	find := func(name string) (int, error) {
		for i, s := range chained {
			if s.Name == name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("stage %q is not part of the chain (%s)", name, strings.Join(names(chained), ", "))
	}
	var err error
	if from != "" {
		if lo, err = find(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if hi, err = find(to); err != nil {
			return nil, err
		}
	}
	if lo > hi {
		return nil, fmt.Errorf("stage %q runs after %q", from, to)
	}
	return chained[lo : hi+1], nil
}

// Execute runs one stage, records it in the workspace manifest and saves the
// manifest whether or not the stage succeeded.
func Execute(ctx context.Context, ws *workspace.Workspace, cfg *config.Global, s Stage) (*Env, error) {
	log := logging.FromContext(ctx).With("stage", s.Name)
	ctx = logging.WithLogger(ctx, log)
	env := &Env{WS: ws, Cfg: cfg, Run: ws.BeginRun(s.Name)}
	log.Debug("stage started", "run", env.Run.ID)

	err := s.run(ctx, env)
	env.Run.Finish(err)
	if saveErr := ws.Save(); saveErr != nil && err == nil {
		err = fmt.Errorf("save workspace: %w", saveErr)
	}
	if err != nil {
		return env, fmt.Errorf("%s: %w", s.Name, err)
	}
	log.Info("stage finished", "outputs", len(env.Run.Outputs), "elapsed", env.Run.Duration())
	return env, nil
}
