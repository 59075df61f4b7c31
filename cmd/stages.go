package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/pipeline"
	"github.com/KaramelBytes/scoreloom-cli/internal/report"
	"github.com/KaramelBytes/scoreloom-cli/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	runFrom string
	runTo   string
	expOut  string
)

// stageCommand wraps one pipeline stage as a subcommand.
func stageCommand(s pipeline.Stage) *cobra.Command {
	var wsName string
	c := &cobra.Command{
		Use:   s.Name,
		Short: s.Short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loadWorkspace(wsName)
			if err != nil {
				return err
			}
			conf, err := requireConfig()
			if err != nil {
				return err
			}
			env, err := pipeline.Execute(commandContext(cmd), w, conf, s)
			if err != nil {
				return err
			}
			printEnv(cmd.OutOrStdout(), s.Name, env)
			return nil
		},
	}
	c.Flags().StringVarP(&wsName, "workspace", "w", "", "workspace name")
	_ = c.MarkFlagRequired("workspace")
	return c
}

func printEnv(out io.Writer, stage string, env *pipeline.Env) {
	for _, t := range env.Tables {
		report.Render(out, t)
	}
	for _, n := range env.Notes {
		fmt.Fprintf(out, "  %s\n", n)
	}
	if env.Run != nil {
		fmt.Fprintf(out, "✓ %s finished in %s (%d artifacts)\n", stage, env.Run.Duration().Round(time.Millisecond), len(env.Run.Outputs))
		return
	}
	fmt.Fprintf(out, "✓ %s finished\n", stage)
}

var runWorkspace string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scorecard chain from build to track",
	Long: `Run executes the chained stages in order (build, metadata, features, woe,
collinear, model, score, track), optionally limited with --from and --to. It
stops at the first failing stage; earlier artifacts stay in the workspace.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stages, err := pipeline.Chain(runFrom, runTo)
		if err != nil {
			return err
		}
		w, err := loadWorkspace(runWorkspace)
		if err != nil {
			return err
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		out := cmd.OutOrStdout()
		for i, s := range stages {
			fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(stages), s.Name)
			env, err := pipeline.Execute(ctx, w, c, s)
			if err != nil {
				return err
			}
			printEnv(out, s.Name, env)
		}
		return nil
	},
}

var exportWorkspace string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Bundle summary artifacts into one XLSX workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := loadWorkspace(exportWorkspace)
		if err != nil {
			return err
		}
		path := expOut
		if path == "" {
			path = w.ReportPath(workspace.Report)
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		run := w.BeginRun("export")
		sheets, err := pipeline.Export(commandContext(cmd), w, run, path)
		run.Finish(err)
		if serr := w.Save(); serr != nil && err == nil {
			err = serr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d sheets to %s\n", len(sheets), path)
		return nil
	},
}

func init() {
	for _, s := range pipeline.Stages() {
		rootCmd.AddCommand(stageCommand(s))
	}

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runWorkspace, "workspace", "w", "", "workspace name")
	runCmd.Flags().StringVar(&runFrom, "from", "", "first stage to run (default: build)")
	runCmd.Flags().StringVar(&runTo, "to", "", "last stage to run (default: track)")
	_ = runCmd.MarkFlagRequired("workspace")

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportWorkspace, "workspace", "w", "", "workspace name")
	exportCmd.Flags().StringVarP(&expOut, "output", "o", "", "workbook path (default: reports/scorecard_report.xlsx)")
	_ = exportCmd.MarkFlagRequired("workspace")
}
