package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
)

// Stage artifact names.
const (
	RawVariables       = "PD_RAW_VARIABLES.csv"
	CustomerMaster     = "customer_master.csv"
	BuildReport        = "build_stage_report.csv"
	MetadataInput      = "var_metadata_input.csv"
	MetadataOutput     = "var_metadata_output.csv"
	MetadataDictionary = "var_metadata_dictionary.csv"
	MetadataDuplicates = "var_metadata_duplicates.csv"
	MetadataMissing    = "var_metadata_missing.csv"
	MetadataOrphans    = "var_metadata_orphans.csv"
	FeatEngData        = "feat_eng_data.csv"
	FeatEngOutput      = "feat_eng_output.csv"
	EDAData            = "eda_data.csv"
	WoEReady           = "woe_ready.csv"
	BureauDeciles      = "bureau_decile_summary.csv"
	IVSummary          = "iv_woe_output.csv"
	WoEStatistics      = "woe_statistics.csv"
	WoETransformed     = "woe_transformed_data.csv"
	IVFilter           = "iv_filter.csv"
	ModelDataFiltered  = "model_data_filtered.csv"
	HighCorrPairs      = "high_correlation_pairs.csv"
	VIFSummary         = "vif_summary.csv"
	ModelReady         = "model_ready_data.csv"
	Coefficients       = "model_coefficients.csv"
	TrainScored        = "train_scored.csv"
	ValidScored        = "valid_scored.csv"
	PerformanceTrain   = "performance_train.csv"
	PerformanceValid   = "performance_valid.csv"
	ModelMetrics       = "model_metrics.yaml"
	ROCChart           = "roc_curve.png"
	IVChart            = "iv_chart.png"
	ScoredApplications = "scored_applications.csv"
	ScoreSummary       = "score_summary.yaml"
	FalsePredictions   = "false_predictions.csv"
	LGDInput           = "LGD_EAD_Modeling_240Vars_Final.csv"
	LGDReduced         = "lgd_ead_reduced_final.csv"
	LGDDropLog         = "lgd_ead_drop_log.csv"
	LGDCorrComparison  = "lgd_ead_corr_comparison.csv"
	LGDVariance        = "lgd_ead_variance.csv"
	LGDMissing         = "lgd_ead_missing.csv"
	FeatureTracking    = "feature_tracking.csv"
	Report             = "scorecard_report.xlsx"
)

// producers maps an artifact to the command that writes it.
var producers = map[string]string{
	RawVariables:       "import",
	CustomerMaster:     "import",
	LGDInput:           "import",
	MetadataInput:      "build",
	BuildReport:        "build",
	MetadataOutput:     "metadata",
	MetadataDictionary: "metadata",
	MetadataDuplicates: "metadata",
	MetadataMissing:    "metadata",
	MetadataOrphans:    "metadata",
	FeatEngData:        "metadata",
	FeatEngOutput:      "features",
	EDAData:            "features",
	WoEReady:           "features",
	BureauDeciles:      "features",
	IVSummary:          "woe",
	WoEStatistics:      "woe",
	WoETransformed:     "woe",
	IVFilter:           "woe",
	ModelDataFiltered:  "woe",
	IVChart:            "woe",
	HighCorrPairs:      "collinear",
	VIFSummary:         "collinear",
	ModelReady:         "collinear",
	Coefficients:       "model",
	ValidScored:        "model",
	TrainScored:        "model",
	PerformanceTrain:   "model",
	PerformanceValid:   "model",
	ModelMetrics:       "model",
	ROCChart:           "model",
	ScoredApplications: "score",
	ScoreSummary:       "score",
	FalsePredictions:   "score",
	LGDReduced:         "reduce",
	LGDDropLog:         "reduce",
	LGDCorrComparison:  "reduce",
	LGDVariance:        "reduce",
	LGDMissing:         "reduce",
	FeatureTracking:    "track",
	Report:             "export",
}

// Producer returns the command that writes name, or "" when unknown.
func Producer(name string) string { return producers[name] }

// MissingArtifactError indicates a stage input has not been produced yet.
type MissingArtifactError struct {
	Name     string
	Path     string
	Producer string
}

func (e *MissingArtifactError) Error() string {
	if e.Producer != "" {
		return fmt.Sprintf("input %s not found at %s: run `scoreloom %s` first", e.Name, e.Path, e.Producer)
	}
	return fmt.Sprintf("input %s not found at %s", e.Name, e.Path)
}

// Exists reports whether an artifact is present in the data directory.
func (w *Workspace) Exists(name string) bool {
	_, err := os.Stat(w.DataPath(name))
	return err == nil
}

// ReadFrame loads an artifact and records it as an input of run (if non-nil).
func (w *Workspace) ReadFrame(run *Run, name string) (*frame.Frame, error) {
	path := w.DataPath(name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingArtifactError{Name: name, Path: path, Producer: Producer(name)}
		}
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	f, err := frame.Read(path, frame.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if run != nil {
		run.Inputs = append(run.Inputs, Artifact{Name: name, Rows: f.Rows(), Cols: f.Width()})
	}
	return f, nil
}

// ReadFirst loads the first artifact of names that exists. When none exists
// the error names the first candidate.
func (w *Workspace) ReadFirst(run *Run, names ...string) (*frame.Frame, string, error) {
	for _, n := range names {
		if w.Exists(n) {
			f, err := w.ReadFrame(run, n)
			return f, n, err
		}
	}
	if len(names) == 0 {
		return nil, "", errors.New("no candidate inputs")
	}
	_, err := w.ReadFrame(run, names[0])
	return nil, names[0], err
}

// WriteFrame writes an artifact as CSV and records it as an output of run (if non-nil).
func (w *Workspace) WriteFrame(run *Run, name string, f *frame.Frame) error {
	if err := frame.WriteCSV(w.DataPath(name), f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if run != nil {
		run.Outputs = append(run.Outputs, Artifact{Name: name, Rows: f.Rows(), Cols: f.Width()})
	}
	return nil
}

// RecordOutput notes a non-tabular output file of run.
func (run *Run) RecordOutput(name string) {
	run.Outputs = append(run.Outputs, Artifact{Name: name})
}

// Import copies a CSV or XLSX file into the data directory as a CSV named
// as (default: the source base name with a .csv extension).
func (w *Workspace) Import(src, as string, opt frame.ReadOptions) (Artifact, error) {
	f, err := frame.Read(src, opt)
	if err != nil {
		return Artifact{}, err
	}
	if as == "" {
		base := filepath.Base(src)
		as = strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
	}
	if filepath.Base(as) != as {
		return Artifact{}, fmt.Errorf("artifact name must not contain a path: %s", as)
	}
	if err := frame.WriteCSV(w.DataPath(as), f); err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: as, Rows: f.Rows(), Cols: f.Width()}, nil
}

// FileInfo describes an artifact on disk.
type FileInfo struct {
	Name     string
	Size     int64
	Modified time.Time
	Producer string
}

// List returns the files in the data directory sorted by name.
func (w *Workspace) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(filepath.Join(w.rootDir, DataDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, FileInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime(), Producer: Producer(e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
