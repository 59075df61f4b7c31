// Package model fits the probability-of-default logistic regression and
// measures its discrimination on training and validation samples.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// ProbColumn holds the predicted event probability in scored frames.
const ProbColumn = "P_1"

// ErrNoFeatures is returned when none of the requested features exist.
var ErrNoFeatures = errors.New("no model features found")

type Options struct {
	Target   string
	Features []string
	TestSize float64
	Seed     uint64
	MaxIter  int
	C        float64
	Deciles  int
}

func DefaultOptions() Options {
	return Options{
		Target:   "default_flag",
		TestSize: 0.3,
		Seed:     12345,
		MaxIter:  1000,
		C:        1,
		Deciles:  10,
	}
}

// Result holds the fitted model and both scored samples.
type Result struct {
	Model        *Logistic
	Train        *frame.Frame
	Valid        *frame.Frame
	TrainPerf    []DecileRow
	ValidPerf    []DecileRow
	TrainMetrics Metrics
	ValidMetrics Metrics
	ValidCurve   stats.Curve
}

// Summary is the model_metrics.yaml document.
type Summary struct {
	Features   []string `yaml:"features"`
	Intercept  float64  `yaml:"intercept"`
	Iterations int      `yaml:"iterations"`
	Converged  bool     `yaml:"converged"`
	Train      Metrics  `yaml:"train"`
	Validation Metrics  `yaml:"validation"`
}

func (r *Result) Summary() Summary {
	return Summary{
		Features:   r.Model.Features,
		Intercept:  r.Model.Intercept,
		Iterations: r.Model.Iter,
		Converged:  r.Model.Converged,
		Train:      r.TrainMetrics,
		Validation: r.ValidMetrics,
	}
}

// SelectFeatures returns the requested numeric features present in f, or
// every numeric column except the target when none are requested.
func SelectFeatures(f *frame.Frame, target string, requested []string) ([]string, error) {
	numeric := make(map[string]bool)
	var all []string
	for _, n := range f.NumericNames() {
		if strings.EqualFold(n, target) {
			continue
		}
		numeric[n] = true
		all = append(all, n)
	}
	if len(requested) == 0 {
		if len(all) == 0 {
			return nil, ErrNoFeatures
		}
		return all, nil
	}
	var out []string
	for _, n := range requested {
		if numeric[n] {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: requested %s", ErrNoFeatures, strings.Join(requested, ", "))
	}
	return out, nil
}

func columns(f *frame.Frame, names []string) [][]float64 {
	cols := make([][]float64, len(names))
	for i, n := range names {
		cols[i], _ = f.Num(n)
	}
	return cols
}

// Score appends the predicted probability column to a copy of f.
func (m *Logistic) Score(f *frame.Frame) *frame.Frame {
	out := f.Select(f.Names()...)
	out.SetNum(ProbColumn, m.Predict(columns(f, m.Features)))
	return out
}

// Run prepares the data, splits it, fits the model and scores both samples.
func Run(ctx context.Context, in *frame.Frame, opt Options) (*Result, error) {
	log := logging.FromContext(ctx)
	y, ok := in.Num(opt.Target)
	if !ok {
		return nil, fmt.Errorf("target %q: %w", opt.Target, frame.ErrColumnNotFound)
	}
	labelled := make([]bool, len(y))
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("target %q has non-binary value %g", opt.Target, v)
		}
		labelled[i] = true
	}
	data := Prepare(in.Filter(labelled), opt.Seed)
	train, valid := Split(data, opt.Target, opt.TestSize, opt.Seed)
	log.Info("data split", "train", train.Rows(), "validation", valid.Rows())

	features, err := SelectFeatures(train, opt.Target, opt.Features)
	if err != nil {
		return nil, err
	}
	trainY, _ := train.Num(opt.Target)
	m, err := Fit(features, columns(train, features), trainY, FitOptions{C: opt.C, MaxIter: opt.MaxIter})
	if err != nil {
		return nil, fmt.Errorf("fit logistic regression: %w", err)
	}
	if !m.Converged {
		log.Warn("logistic regression did not converge", "iterations", m.Iter)
	}
	log.Info("model fitted", "features", len(features), "iterations", m.Iter)

	res := &Result{Model: m, Train: m.Score(train), Valid: m.Score(valid)}
	validY, _ := valid.Num(opt.Target)
	trainP, _ := res.Train.Num(ProbColumn)
	validP, _ := res.Valid.Num(ProbColumn)
	res.TrainPerf = Performance(trainP, trainY, opt.Deciles)
	res.ValidPerf = Performance(validP, validY, opt.Deciles)
	res.TrainMetrics, _ = Evaluate(trainP, trainY)
	res.ValidMetrics, res.ValidCurve = Evaluate(validP, validY)
	log.Info("model evaluated",
		"train_auc", res.TrainMetrics.AUC, "valid_auc", res.ValidMetrics.AUC,
		"valid_ks", res.ValidMetrics.KS)
	return res, nil
}

func sortByAbs(idx []int, v []float64) {
	sort.SliceStable(idx, func(a, b int) bool { return math.Abs(v[idx[a]]) > math.Abs(v[idx[b]]) })
}
