package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/analysis"
	"github.com/KaramelBytes/scoreloom-cli/internal/utils"
	"github.com/KaramelBytes/scoreloom-cli/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	anaWorkspace  string
	anaOutputPath string
	anaSampleRows int
	anaMaxRows    int
	anaGroupBy    []string
	anaCorr       bool
	anaSheetName  string
	anaOutlierThr float64
	anaMaxCats    int
	anaQuiet      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files...>",
	Short: "Profile CSV/TSV/XLSX files and produce Markdown summaries",
	Long: `Analyze profiles one or more datasets (globs allowed): column kinds, missing
counts, numeric statistics, robust outliers, optional group-by summaries and
correlations. Output goes to stdout, to --output (a file, or a directory when
several inputs are given), or to the reports directory of --workspace.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		if anaSampleRows >= 0 {
			opt.SampleRows = anaSampleRows
		}
		if anaMaxRows >= 0 {
			opt.MaxRows = anaMaxRows
		}
		if anaMaxCats > 0 {
			opt.MaxCategories = anaMaxCats
		}
		opt.OutlierThreshold = anaOutlierThr
		opt.GroupBy = anaGroupBy
		opt.Correlations = anaCorr
		opt.Sheet = anaSheetName

		var reportsDir string
		if anaWorkspace != "" {
			w, err := loadWorkspace(anaWorkspace)
			if err != nil {
				return err
			}
			reportsDir = filepath.Join(w.RootDir(), workspace.ReportsDir)
		}
		multi := len(files) > 1
		if multi && anaOutputPath != "" {
			if err := utils.EnsureDir(anaOutputPath); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		for i, path := range files {
			if multi && !anaQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", i+1, len(files), path)
			}
			rep, err := analysis.Analyze(path, opt)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", path, err)
			}
			md := rep.Markdown()
			for _, w := range rep.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s: %s\n", filepath.Base(path), w)
			}

			written := false
			if anaOutputPath != "" {
				target := anaOutputPath
				if multi {
					target = filepath.Join(anaOutputPath, summaryName(path))
				}
				if err := os.WriteFile(target, []byte(md), 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(out, "✓ Wrote analysis to %s\n", target)
				written = true
			}
			if reportsDir != "" {
				target := filepath.Join(reportsDir, summaryName(path))
				if err := utils.SafeWriteFile(target, []byte(md)); err != nil {
					return fmt.Errorf("write workspace summary: %w", err)
				}
				fmt.Fprintf(out, "✓ Added analysis to workspace '%s' as %s\n", anaWorkspace, filepath.Base(target))
				written = true
			}
			if !written {
				fmt.Fprintln(out, md)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeping literal paths that exist.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func summaryName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".summary.md"
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaWorkspace, "workspace", "w", "", "workspace to attach summaries to (reports/)")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "file (or directory for several inputs) to write Markdown to")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	analyzeCmd.Flags().IntVar(&anaMaxCats, "max-categories", 50, "distinct values up to which a text column is categorical")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (0 disables)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet", "", "XLSX: sheet name to analyze (default: first sheet)")
	analyzeCmd.Flags().BoolVarP(&anaQuiet, "quiet", "q", false, "suppress progress lines")
}
