package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/utils"
)

const (
	// DataDir holds stage artifacts.
	DataDir = "data"
	// ReportsDir holds rendered summaries and charts.
	ReportsDir = "reports"
)

// Workspace represents a scoreloom workspace persisted on disk.
type Workspace struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Runs        []*Run    `json:"runs"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Not serialized: on-disk location of the workspace.json
	rootDir string `json:"-"`
}

// New constructs an in-memory workspace. Call Save() to persist.
func New(name, description, rootDir string) *Workspace {
	return &Workspace{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// Load reads workspace.json from the provided directory.
func Load(dir string) (*Workspace, error) {
	path := filepath.Join(dir, utils.ManifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var w Workspace
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}
	w.rootDir = dir
	return &w, nil
}

// RootDir returns the on-disk workspace directory path.
func (w *Workspace) RootDir() string { return w.rootDir }

// DataPath returns the path of an artifact in the data directory.
func (w *Workspace) DataPath(name string) string {
	return filepath.Join(w.rootDir, DataDir, name)
}

// ReportPath returns the path of a file in the reports directory.
func (w *Workspace) ReportPath(name string) string {
	return filepath.Join(w.rootDir, ReportsDir, name)
}

// Save writes workspace.json using atomic write and creates the data and reports directories.
func (w *Workspace) Save() error {
	if w.rootDir == "" {
		return errors.New("workspace root directory not set")
	}
	for _, d := range []string{w.rootDir, filepath.Join(w.rootDir, DataDir), filepath.Join(w.rootDir, ReportsDir)} {
		if err := utils.EnsureDir(d); err != nil {
			return fmt.Errorf("ensure dir: %w", err)
		}
	}
	w.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(w)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(w.rootDir, utils.ManifestFileName), data)
}

// LastRun returns the most recent run of a stage, or nil.
func (w *Workspace) LastRun(stage string) *Run {
	for i := len(w.Runs) - 1; i >= 0; i-- {
		if w.Runs[i].Stage == stage {
			return w.Runs[i]
		}
	}
	return nil
}
