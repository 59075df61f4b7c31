package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/report"
	"github.com/KaramelBytes/scoreloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	listWorkspaces bool
	listArtifacts  bool
	listRuns       bool
	listWSName     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces, artifacts or runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listWorkspaces {
			if listArtifacts || listRuns {
				return fmt.Errorf("--workspaces cannot be combined with --artifacts or --runs")
			}
			return listAllWorkspaces(cmd)
		}
		if !listArtifacts && !listRuns {
			return fmt.Errorf("specify --workspaces, or --artifacts/--runs with --workspace")
		}
		if listWSName == "" {
			return fmt.Errorf("--workspace is required when using --artifacts or --runs")
		}
		w, err := loadWorkspace(listWSName)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if listArtifacts {
			files, err := w.List()
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(out, "(no artifacts)")
			} else {
				t := report.Table{Title: "Artifacts in " + w.Name, Header: []string{"name", "size", "modified", "produced by"}}
				for _, f := range files {
					t.Rows = append(t.Rows, []string{f.Name, fmt.Sprint(f.Size), f.Modified.Format("2006-01-02 15:04"), f.Producer})
				}
				report.Render(out, t)
			}
		}
		if listRuns {
			if len(w.Runs) == 0 {
				fmt.Fprintln(out, "(no runs)")
				return nil
			}
			t := report.Table{Title: "Runs in " + w.Name, Header: []string{"id", "stage", "status", "started", "duration", "outputs", "error"}}
			for _, r := range w.Runs {
				t.Rows = append(t.Rows, []string{
					r.ID[:8], r.Stage, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Duration().Round(time.Millisecond).String(), fmt.Sprint(len(r.Outputs)), r.Error,
				})
			}
			report.Render(out, t)
		}
		return nil
	},
}

func listAllWorkspaces(cmd *cobra.Command) error {
	root, err := defaultWorkspacesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), utils.ManifestFileName)); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "(no workspaces)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listWorkspaces, "workspaces", false, "list workspaces")
	listCmd.Flags().BoolVar(&listArtifacts, "artifacts", false, "list artifacts in a workspace")
	listCmd.Flags().BoolVar(&listRuns, "runs", false, "list recorded stage runs in a workspace")
	listCmd.Flags().StringVarP(&listWSName, "workspace", "w", "", "workspace name for --artifacts/--runs")
}
