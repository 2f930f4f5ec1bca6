package taxonomy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultXLSXSkipRows matches the title block above the header in the
// published SSIC/SSOC structure workbooks.
const DefaultXLSXSkipRows = 4

// LoadFile reads a table from a .csv or .xlsx file. skipRows < 0 selects the
// format default: one header row for CSV, DefaultXLSXSkipRows for XLSX.
func LoadFile(name, path string, skipRows int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s table: %w", name, err)
	}
	defer f.Close()

	var rows []Row
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		if skipRows < 0 {
			skipRows = DefaultXLSXSkipRows
		}
		rows, err = ReadXLSX(f, skipRows)
	case ".csv", ".txt":
		if skipRows < 0 {
			skipRows = 1
		}
		rows, err = ReadCSV(f, skipRows)
	default:
		return nil, fmt.Errorf("%s table: unsupported file type %q", name, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s table %s: %w", name, path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s table %s: no rows with numeric codes", name, path)
	}
	return NewTable(name, rows)
}

// ReadCSV parses code,title records after skipping skipRows lines.
func ReadCSV(r io.Reader, skipRows int) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var rows []Row
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line < skipRows {
			continue
		}
		if row, ok := parseRecord(rec); ok {
			rows = append(rows, row)
		}
	}
	return dedupe(rows), nil
}

// ReadXLSX parses the first worksheet of a workbook.
func ReadXLSX(r io.Reader, skipRows int) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	var rows []Row
	for i, rec := range records {
		if i < skipRows {
			continue
		}
		if row, ok := parseRecord(rec); ok {
			rows = append(rows, row)
		}
	}
	return dedupe(rows), nil
}

func parseRecord(rec []string) (Row, bool) {
	if len(rec) < 2 {
		return Row{}, false
	}
	code, ok := NormalizeCode(rec[0])
	title := strings.TrimSpace(rec[1])
	if !ok || title == "" {
		return Row{}, false
	}
	return Row{Code: code, Title: title}, true
}

// NormalizeCode trims a raw code cell and strips a spreadsheet float suffix
// such as "1110.0". It reports false when the result is not all digits.
func NormalizeCode(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	if i := strings.IndexByte(code, '.'); i > 0 && strings.Trim(code[i+1:], "0") == "" {
		code = code[:i]
	}
	if code == "" {
		return "", false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return code, true
}

// dedupe keeps the first occurrence of each code. Published workbooks
// occasionally repeat a code under a second heading.
func dedupe(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if seen[r.Code] {
			continue
		}
		seen[r.Code] = true
		out = append(out, r)
	}
	return out
}
