// Package batch classifies spreadsheets of job postings and watches a drop
// folder for new ones.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	ColCompany        = "Company"
	ColJobTitle       = "Job Title"
	ColJobDescription = "Job Description"
)

// Output columns appended to the input columns.
var outputColumns = []string{
	"Generated Job Description",
	"Company Analysis",
	"SSIC 5 digit",
	"SSIC Title",
	"SSIC Confidence",
	"SSOC 5 digit",
	"SSOC Title",
	"SSOC Confidence",
	"Status",
}

var ErrTooManyRows = errors.New("too many rows")

// Job is one data row of an input sheet. Cells keeps every input column so
// the output can reproduce it.
type Job struct {
	Row            int
	Company        string
	JobTitle       string
	JobDescription string
	Cells          []string
}

type Sheet struct {
	Header []string
	Jobs   []Job
}

// ReadFile reads a .csv or .xlsx sheet and validates it.
func ReadFile(path string, maxRows int) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f, maxRows)
	case ".xlsx", ".xlsm":
		return ReadXLSX(f, maxRows)
	}
	return nil, fmt.Errorf("unsupported batch file %s", filepath.Base(path))
}

func ReadCSV(r io.Reader, maxRows int) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return parseSheet(records, maxRows)
}

// ReadXLSX reads the first worksheet.
func ReadXLSX(r io.Reader, maxRows int) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return parseSheet(records, maxRows)
}

func parseSheet(records [][]string, maxRows int) (*Sheet, error) {
	// Drop trailing blank rows so a formatted but empty tail is not counted.
	for len(records) > 0 && blankRecord(records[len(records)-1]) {
		records = records[:len(records)-1]
	}
	if len(records) < 2 {
		return nil, errors.New("file is empty")
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	company, title, desc := columnIndex(header, ColCompany), columnIndex(header, ColJobTitle), columnIndex(header, ColJobDescription)
	var missing []string
	if company < 0 {
		missing = append(missing, ColCompany)
	}
	if title < 0 {
		missing = append(missing, ColJobTitle)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	rows := records[1:]
	if maxRows > 0 && len(rows) > maxRows {
		return nil, fmt.Errorf("%w: file has %d rows, the limit is %d", ErrTooManyRows, len(rows), maxRows)
	}

	sheet := &Sheet{Header: header}
	emptyCompany, emptyTitle := 0, 0
	for i, rec := range rows {
		cells := make([]string, len(header))
		copy(cells, rec)
		job := Job{
			Row:            i + 2,
			Company:        strings.TrimSpace(cells[company]),
			JobTitle:       strings.TrimSpace(cells[title]),
			JobDescription: cellAt(cells, desc),
			Cells:          cells,
		}
		if job.Company == "" {
			emptyCompany++
		}
		if job.JobTitle == "" {
			emptyTitle++
		}
		sheet.Jobs = append(sheet.Jobs, job)
	}
	var errs []error
	if emptyCompany > 0 {
		errs = append(errs, fmt.Errorf("column '%s' has %d empty rows", ColCompany, emptyCompany))
	}
	if emptyTitle > 0 {
		errs = append(errs, fmt.Errorf("column '%s' has %d empty rows", ColJobTitle, emptyTitle))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return sheet, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// outputRows renders the header and one row per outcome.
func outputRows(sheet *Sheet, outcomes []Outcome) [][]string {
	header := append(append([]string{}, sheet.Header...), outputColumns...)
	out := [][]string{header}
	for _, o := range outcomes {
		row := append([]string{}, o.Job.Cells...)
		if o.Status == StatusFailed {
			row = append(row, "Error: "+o.Error, "Failed to generate", "N/A", "", "", "N/A", "", "", o.Status)
		} else {
			row = append(row,
				o.Description,
				o.Result.CompanyAnalysis,
				o.Result.Industry.Code,
				o.Result.Industry.Title,
				formatConfidence(o.Result.Industry.Confidence),
				o.Result.Occupation.Code,
				o.Result.Occupation.Title,
				formatConfidence(o.Result.Occupation.Confidence),
				o.Status,
			)
		}
		out = append(out, row)
	}
	return out
}

func formatConfidence(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

func WriteCSV(w io.Writer, sheet *Sheet, outcomes []Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(outputRows(sheet, outcomes)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func WriteXLSX(w io.Writer, sheet *Sheet, outcomes []Outcome) error {
	f := excelize.NewFile()
	defer f.Close()
	const name = "Classified"
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}
	for i, row := range outputRows(sheet, outcomes) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(name, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// WriteFile picks the output format from the path extension, writing
// through a temp file and rename.
func WriteFile(path string, sheet *Sheet, outcomes []Outcome) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		err = WriteXLSX(f, sheet, outcomes)
	default:
		err = WriteCSV(f, sheet, outcomes)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// OutputPath names the result file for an input file inside dir.
func OutputPath(dir, input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+OutputSuffix+ext)
}

const OutputSuffix = "_classified"
