package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
	ws "github.com/KaramelBytes/scoreloom-cli/internal/workspace"
)

// Summaries are the artifacts bundled by Export, in sheet order.
var Summaries = []string{
	ws.MetadataDictionary,
	ws.BureauDeciles,
	ws.IVSummary,
	ws.WoEStatistics,
	ws.IVFilter,
	ws.HighCorrPairs,
	ws.VIFSummary,
	ws.Coefficients,
	ws.PerformanceTrain,
	ws.PerformanceValid,
	ws.LGDDropLog,
	ws.LGDVariance,
	ws.LGDMissing,
	ws.FeatureTracking,
}

// Export writes every summary artifact present in the workspace to one
// workbook at path, one sheet per artifact, and returns the sheet names.
func Export(ctx context.Context, w *ws.Workspace, run *ws.Run, path string) ([]string, error) {
	log := logging.FromContext(ctx)
	var sheets []frame.Sheet
	for _, name := range Summaries {
		if !w.Exists(name) {
			log.Debug("summary not present", "artifact", name)
			continue
		}
		f, err := w.ReadFrame(run, name)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, frame.Sheet{Name: strings.TrimSuffix(name, ".csv"), Frame: f})
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no summary artifacts in workspace %s; run a stage first", w.Name)
	}
	if err := frame.WriteXLSX(path, sheets); err != nil {
		return nil, err
	}
	if run != nil {
		run.RecordOutput(path)
	}
	out := make([]string, len(sheets))
	for i, s := range sheets {
		out[i] = s.Name
	}
	log.Info("workbook written", "path", path, "sheets", len(out))
	return out, nil
}
