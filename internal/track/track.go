// Package track follows the column set through the stage artifacts.
package track

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
)

// Stage is one tracked artifact.
type Stage struct {
	Name string
	File string
}

// Stages are the artifacts compared, in pipeline order.
var Stages = []Stage{
	{Name: "Raw variable build", File: "var_metadata_input.csv"},
	{Name: "Variable metadata", File: "feat_eng_data.csv"},
	{Name: "Feature engineering", File: "woe_ready.csv"},
	{Name: "WoE transformed", File: "woe_transformed_data.csv"},
	{Name: "IV filtered", File: "model_data_filtered.csv"},
}

type Diff struct {
	Added   []string
	Removed []string
	Common  []string
}

// Compare returns the sorted set differences between two column lists.
func Compare(prev, curr []string) Diff {
	p, c := set(prev), set(curr)
	var d Diff
	for n := range c {
		if p[n] {
			d.Common = append(d.Common, n)
		} else {
			d.Added = append(d.Added, n)
		}
	}
	for n := range p {
		if !c[n] {
			d.Removed = append(d.Removed, n)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Common)
	return d
}

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

type StageResult struct {
	Stage
	Features []string
	// Change is the column count difference from the last readable stage.
	Change int
	// Diff is nil for the first readable stage.
	Diff *Diff
	Err  error
}

func (r StageResult) OK() bool { return r.Err == nil }

type Result struct {
	Stages []StageResult
	// Overall compares the first and last readable stages; nil when fewer
	// than two could be read.
	Overall *Diff
}

// Run reads the header of each stage artifact through path. Missing or
// unreadable files are reported and skipped.
func Run(ctx context.Context, stages []Stage, path func(name string) string) (*Result, error) {
	log := logging.FromContext(ctx)
	res := &Result{}
	var prev, first []string
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := StageResult{Stage: s}
		cols, err := frame.ReadHeader(path(s.File))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = fmt.Errorf("file not found: %s", s.File)
			}
			r.Err = err
			log.Warn("stage artifact skipped", "file", s.File, "err", err)
			res.Stages = append(res.Stages, r)
			continue
		}
		r.Features = cols
		if prev != nil {
			d := Compare(prev, cols)
			r.Diff = &d
			r.Change = len(cols) - len(prev)
		} else {
			first = cols
		}
		log.Debug("stage tracked", "file", s.File, "features", len(cols), "change", r.Change)
		res.Stages = append(res.Stages, r)
		prev = cols
	}
	if readable := res.readable(); readable >= 2 {
		d := Compare(first, prev)
		res.Overall = &d
	}
	return res, nil
}

func (r *Result) readable() int {
	n := 0
	for _, s := range r.Stages {
		if s.OK() {
			n++
		}
	}
	return n
}

// Frame tabulates the result as feature_tracking.csv.
func (r *Result) Frame() *frame.Frame {
	n := len(r.Stages)
	stage, file, status := make([]string, n), make([]string, n), make([]string, n)
	added, removed := make([]string, n), make([]string, n)
	count, change, common := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, s := range r.Stages {
		stage[i], file[i] = s.Name, s.File
		status[i] = "OK"
		if !s.OK() {
			status[i] = "ERROR: " + s.Err.Error()
		}
		count[i] = float64(len(s.Features))
		change[i] = float64(s.Change)
		if s.Diff != nil {
			added[i] = strings.Join(s.Diff.Added, ";")
			removed[i] = strings.Join(s.Diff.Removed, ";")
			common[i] = float64(len(s.Diff.Common))
		} else {
			common[i] = float64(len(s.Features))
		}
	}
	return frame.MustFromColumns(
		frame.StringColumn("stage", stage),
		frame.StringColumn("file", file),
		frame.NumericColumn("features", count),
		frame.NumericColumn("change", change),
		frame.StringColumn("added", added),
		frame.StringColumn("removed", removed),
		frame.NumericColumn("common", common),
		frame.StringColumn("status", status),
	)
}

// Abbreviate joins up to max names and counts the rest.
func Abbreviate(names []string, max int) string {
	if len(names) == 0 {
		return "None"
	}
	if len(names) <= max {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s ... (+ %d more)", strings.Join(names[:max], ", "), len(names)-max)
}
