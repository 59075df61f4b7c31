package frame

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/scoreloom-cli/internal/utils"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// Sheet is one named table of a workbook.
type Sheet struct {
	Name  string
	Frame *Frame
}

// ReadXLSX loads one sheet of a workbook. The first row is the header.
func ReadXLSX(path string, opt ReadOptions) (*Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx %s: no sheets", filepath.Base(path))
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		found := false
		for _, s := range sheets {
			if s == opt.Sheet {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("xlsx %s: sheet %q not found (have %v)", filepath.Base(path), opt.Sheet, sheets)
		}
		sheet = opt.Sheet
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx %s: sheet %s is empty", filepath.Base(path), sheet)
	}
	body := rows[1:]
	if opt.MaxRows > 0 && len(body) > opt.MaxRows {
		body = body[:opt.MaxRows]
	}
	return FromRecords(rows[0], body)
}

// WriteXLSX writes each sheet's frame to one workbook, header in row 1.
func WriteXLSX(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write xlsx: no sheets")
	}
	wb := excelize.NewFile()
	defer wb.Close()

	used := make(map[string]bool)
	for i, s := range sheets {
		name := sheetName(s.Name, used)
		if i == 0 {
			if err := wb.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := wb.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
		if err := writeSheet(wb, name, s.Frame); err != nil {
			return err
		}
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}

func writeSheet(wb *excelize.File, sheet string, f *Frame) error {
	header := make([]any, f.Width())
	for j, n := range f.Names() {
		header[j] = n
	}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	cols := f.Columns()
	for i := 0; i < f.Rows(); i++ {
		row := make([]any, len(cols))
		for j, c := range cols {
			switch {
			case c.Kind == String:
				row[j] = c.Str[i]
			case math.IsNaN(c.Num[i]) || math.IsInf(c.Num[i], 0):
				row[j] = nil
			default:
				row[j] = c.Num[i]
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func sheetName(name string, used map[string]bool) string {
	if name == "" {
		name = "Sheet"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base, n := name, 2
	for used[name] {
		suffix := fmt.Sprintf("_%d", n)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		name = base + suffix
		n++
	}
	used[name] = true
	return name
}
