package analysis

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

var csvRows = []string{
	"default_flag;bureau_score;channel;application_date;note",
	"0;700;Online;2023-01-01;first",
	"0;710;Online;2023-01-02;second",
	"1;600;Branch;2023-01-03;third",
	"0;690;Mobile;2023-01-04;fourth",
	"0;705;Online;2023-01-05;fifth",
	"1;620;Branch;2023-01-06;sixth",
	"0;698;Online;2023-01-07;seventh",
	"0;702;;2023-01-08;eighth",
	"0;2000;Online;2023-01-09;ninth",
	"1;;Branch;bad;tenth",
}

func writeCSV(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "apps.csv")
	if err := os.WriteFile(p, []byte(strings.Join(csvRows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func column(t *testing.T, r *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range r.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %s not in report", name)
	return ColumnSummary{}
}

func TestAnalyzeCSV(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxCategories = 5
	opt.GroupBy = []string{"default_flag"}
	opt.Correlations = true
	rep, err := Analyze(writeCSV(t), opt)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.Rows != 10 || len(rep.Cols) != 5 {
		t.Fatalf("rows/cols = %d/%d", rep.Rows, len(rep.Cols))
	}

	score := column(t, rep, "bureau_score")
	if score.Kind != "numeric" || score.Missing != 1 || score.Min != 600 || score.Max != 2000 {
		t.Fatalf("bureau_score summary: %+v", score)
	}
	if score.OutliersCount < 1 {
		t.Fatalf("expected the 2000 score to be an outlier, got %d", score.OutliersCount)
	}

	ch := column(t, rep, "channel")
	if ch.Kind != "categorical" || ch.Unique != 3 || ch.TopValues[0].Value != "Online" || ch.TopValues[0].Count != 5 {
		t.Fatalf("channel summary: %+v", ch)
	}
	if got := column(t, rep, "note").Kind; got != "text" {
		t.Fatalf("note kind = %s", got)
	}
	if got := column(t, rep, "application_date").Kind; got != "text" {
		t.Fatalf("application_date with a bad value kind = %s", got)
	}

	if len(rep.Groups) != 2 || rep.Groups[0].Key != "0" || rep.Groups[0].Size != 7 {
		t.Fatalf("groups: %+v", rep.Groups)
	}
	if m := rep.Groups[1].Metrics["bureau_score"]; m.Count != 2 || m.Mean != 610 {
		t.Fatalf("default group score: %+v", m)
	}
	if rep.Corr == nil || len(rep.Corr.TopPairs(10)) != 1 {
		t.Fatalf("expected one correlation pair")
	}

	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "Rows: 10", "[SCHEMA]", "- channel: categorical", "Online(5)", "[GROUP-BY SUMMARY]", "default_flag=1 (n=3)", "[CORRELATIONS]", "[HEAD AND SAMPLE ROWS]"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestAnalyzeDatesAndLimits(t *testing.T) {
	p := filepath.Join(t.TempDir(), "d.csv")
	body := "id,opened\n1,2023-01-01\n2,2023-02-01\n3,\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	opt := DefaultOptions()
	opt.MaxRows = 2
	rep, err := Analyze(p, opt)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got := column(t, rep, "opened").Kind; got != "datetime" {
		t.Fatalf("opened kind = %s", got)
	}
	if rep.Rows != 2 || len(rep.Warnings) != 1 {
		t.Fatalf("rows %d warnings %v", rep.Rows, rep.Warnings)
	}
}

func TestAnalyzeXLSX(t *testing.T) {
	fx := excelize.NewFile()
	defer fx.Close()
	rows := [][]any{{"segment", "amount"}, {"retail", 100}, {"retail", 120}, {"sme", 400}}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := fx.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	p := filepath.Join(t.TempDir(), "book.xlsx")
	if err := fx.SaveAs(p); err != nil {
		t.Fatal(err)
	}
	rep, err := Analyze(p, DefaultOptions())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if c := column(t, rep, "amount"); c.Kind != "numeric" || math.Abs(c.Mean-620.0/3) > 1e-9 {
		t.Fatalf("amount: %+v", c)
	}
	if c := column(t, rep, "segment"); c.TopValues[0].Value != "retail" {
		t.Fatalf("segment: %+v", c)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	if _, err := Analyze(filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions()); err == nil {
		t.Fatal("expected error")
	}
}
