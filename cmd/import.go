package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/spf13/cobra"
)

var (
	impWorkspace string
	impAs        string
	impSheet     string
	impDelimiter string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Copy a CSV or XLSX dataset into a workspace",
	Long: `Import reads a CSV/TSV or XLSX file and stores it as CSV in the workspace data
directory. Use --as to give it a stage input name, e.g. PD_RAW_VARIABLES.csv or
customer_master.csv.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := loadWorkspace(impWorkspace)
		if err != nil {
			return err
		}
		opt := frame.ReadOptions{Sheet: impSheet}
		switch strings.ToLower(impDelimiter) {
		case "":
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", impDelimiter)
		}
		run := w.BeginRun("import")
		art, err := w.Import(args[0], impAs, opt)
		if err == nil {
			run.Outputs = append(run.Outputs, art)
		}
		run.Finish(err)
		if serr := w.Save(); serr != nil && err == nil {
			err = serr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %s as %s (%d rows, %d columns)\n", args[0], art.Name, art.Rows, art.Cols)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&impWorkspace, "workspace", "w", "", "workspace name")
	importCmd.Flags().StringVar(&impAs, "as", "", "artifact name in the workspace (default: source name as .csv)")
	importCmd.Flags().StringVar(&impSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	importCmd.Flags().StringVar(&impDelimiter, "delimiter", "", "CSV delimiter: ',', ';' or 'tab'")
	_ = importCmd.MarkFlagRequired("workspace")
}
