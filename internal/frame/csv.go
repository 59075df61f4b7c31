package frame

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/utils"
)

// ReadOptions controls how tabular files are loaded.
type ReadOptions struct {
	// Delimiter for CSV. If 0, sniffed from the header line among ',', ';', '\t'.
	Delimiter rune
	// Sheet selects an XLSX sheet by name. Empty means the first sheet.
	Sheet string
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// Read loads a CSV/TSV or XLSX file chosen by extension.
func Read(path string, opt ReadOptions) (*Frame, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path, opt)
	}
	return ReadCSV(path, opt)
}

// ReadCSV loads a delimited file. The first record is the header.
func ReadCSV(path string, opt ReadOptions) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, br)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv %s: empty file", filepath.Base(path))
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
	}
	return FromRecords(header, records)
}

// ReadHeader returns only the column names of a CSV or XLSX file.
func ReadHeader(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		fr, err := ReadXLSX(path, ReadOptions{MaxRows: 1})
		if err != nil {
			return nil, err
		}
		return fr.Names(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	r := csv.NewReader(br)
	r.Comma = sniffDelimiter(path, br)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}

// FromRecords infers column kinds from text records. Short rows are padded with missing cells.
func FromRecords(header []string, records [][]string) (*Frame, error) {
	cols := make([]*Column, len(header))
	seen := make(map[string]bool, len(header))
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("col_%d", j+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}
		seen[name] = true
		cells := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = rec[j]
			}
		}
		cols[j] = inferColumn(name, cells)
	}
	f, err := FromColumns(cols...)
	if err != nil {
		return nil, err
	}
	f.rows = len(records)
	return f, nil
}

func inferColumn(name string, cells []string) *Column {
	nums := make([]float64, len(cells))
	numeric := true
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if isMissingToken(s) {
			nums[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = v
	}
	if numeric {
		return NumericColumn(name, nums)
	}
	strs := make([]string, len(cells))
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if !isMissingToken(s) {
			strs[i] = s
		}
	}
	return StringColumn(name, strs)
}

func isMissingToken(s string) bool {
	switch s {
	case "", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "<NA>":
		return true
	}
	return false
}

// sniffDelimiter picks the most frequent candidate separator in the header line.
func sniffDelimiter(path string, br *bufio.Reader) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	line, _ := br.Peek(4096)
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(string(line), string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// WriteCSV writes the frame with a header row, atomically.
func WriteCSV(path string, f *Frame) error {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(f.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < f.Rows(); i++ {
		if err := w.Write(f.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, []byte(sb.String()))
}

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseDate parses s with the common layouts found in bank extracts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Dates parses a column as dates. ok[i] is false when cell i is missing or unparsable.
func (f *Frame) Dates(name string) ([]time.Time, []bool, bool) {
	vals, found := f.Str(name)
	if !found {
		return nil, nil, false
	}
	ts := make([]time.Time, len(vals))
	ok := make([]bool, len(vals))
	for i, v := range vals {
		ts[i], ok[i] = ParseDate(v)
	}
	return ts, ok, true
}
