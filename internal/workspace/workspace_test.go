package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/workspace"
)

func TestSaveLoadKeepsRuns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	w := workspace.New("demo", "pd model", dir)
	run := w.BeginRun("woe")
	run.Finish(nil)
	if err := w.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, d := range []string{workspace.DataDir, workspace.ReportsDir} {
		if _, err := os.Stat(filepath.Join(dir, d)); err != nil {
			t.Fatalf("missing %s dir: %v", d, err)
		}
	}
	got, err := workspace.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "demo" || len(got.Runs) != 1 {
		t.Fatalf("unexpected workspace: %+v", got)
	}
	last := got.LastRun("woe")
	if last == nil || last.Status != workspace.StatusOK || last.ID == "" {
		t.Fatalf("unexpected run: %+v", last)
	}
}

func TestReadFrameMissingNamesProducer(t *testing.T) {
	w := workspace.New("demo", "", t.TempDir())
	if err := w.Save(); err != nil {
		t.Fatal(err)
	}
	_, err := w.ReadFrame(nil, workspace.IVSummary)
	var missing *workspace.MissingArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingArtifactError, got %v", err)
	}
	if missing.Producer != "woe" || !strings.Contains(err.Error(), "scoreloom woe") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteReadFirstAndList(t *testing.T) {
	w := workspace.New("demo", "", t.TempDir())
	if err := w.Save(); err != nil {
		t.Fatal(err)
	}
	run := w.BeginRun("features")
	f := frame.MustFromColumns(frame.NumericColumn("bureau_score", []float64{600, 700}))
	if err := w.WriteFrame(run, workspace.FeatEngOutput, f); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, name, err := w.ReadFirst(run, workspace.WoEReady, workspace.FeatEngOutput)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if name != workspace.FeatEngOutput || got.Rows() != 2 {
		t.Fatalf("got %s with %d rows", name, got.Rows())
	}
	if len(run.Inputs) != 1 || len(run.Outputs) != 1 {
		t.Fatalf("run artifacts not recorded: %+v", run)
	}
	files, err := w.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Producer != "features" {
		t.Fatalf("unexpected listing: %+v", files)
	}
}

func TestImportConvertsToCSV(t *testing.T) {
	w := workspace.New("demo", "", t.TempDir())
	if err := w.Save(); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "raw.tsv")
	if err := os.WriteFile(src, []byte("a\tb\n1\t2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	art, err := w.Import(src, workspace.RawVariables, frame.ReadOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if art.Rows != 1 || art.Cols != 2 {
		t.Fatalf("artifact: %+v", art)
	}
	b, err := os.ReadFile(w.DataPath(workspace.RawVariables))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "a,b\n1,2\n" {
		t.Fatalf("unexpected csv: %q", b)
	}
	if _, err := w.Import(src, "../escape.csv", frame.ReadOptions{}); err == nil {
		t.Fatalf("expected path error")
	}
}
