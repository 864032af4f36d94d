// Package spreadsheet reads candidate workbooks and writes ranking and
// candidate exports in .xlsx form.
package spreadsheet

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

// ErrInvalidRow marks a workbook rejected because of its content.
var ErrInvalidRow = fmt.Errorf("%w: invalid row", scoring.ErrInvalidInput)

// Descriptive column headers, shared by import and candidate export.
const (
	ColName    = "nama"
	ColGender  = "gender"
	ColSchool  = "asal_sekolah"
	ColMajor   = "jurusan_asal"
	ColContact = "no_kontak"
	ColAddress = "alamat"
)

var descriptiveColumns = []string{ColName, ColGender, ColSchool, ColMajor, ColContact, ColAddress}

// IsReservedColumn reports whether header names a descriptive column, which
// criterion codes may not reuse.
func IsReservedColumn(header string) bool {
	key := strings.ToLower(strings.TrimSpace(header))
	for _, col := range descriptiveColumns {
		if key == col {
			return true
		}
	}
	return false
}

// RowError names the offending row and column. Rows are 1-based as shown in
// spreadsheet applications, so the first data row is row 2.
type RowError struct {
	Row    int
	Column string
	Reason string
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrInvalidRow }

type Options struct {
	// Sheet to read. Empty selects the first sheet.
	Sheet string
	// MaxRows caps the number of data rows. Zero means unlimited.
	MaxRows int
}

// ReadCandidates parses a workbook into candidates scored against criteria.
// Columns are matched by header: the descriptive columns by name and score
// columns by criterion code, both case-insensitively. Unknown headers are
// ignored. Any malformed score rejects the whole workbook.
func ReadCandidates(r io.Reader, criteria []*store.Criterion, opts Options) ([]*store.Candidate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable xlsx workbook: %v", ErrInvalidRow, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrInvalidRow, sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &RowError{Row: 1, Reason: "missing header row"}
	}

	cols, err := parseHeader(rows[0], criteria)
	if err != nil {
		return nil, err
	}

	var out []*store.Candidate
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blankRow(row) {
			continue
		}
		if opts.MaxRows > 0 && len(out) >= opts.MaxRows {
			return nil, &RowError{Row: rowNum, Reason: fmt.Sprintf("more than %d data rows", opts.MaxRows)}
		}
		c, err := cols.candidate(row, rowNum)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type scoreColumn struct {
	index     int
	header    string
	criterion *store.Criterion
}

type layout struct {
	descriptive map[string]int
	scores      []scoreColumn
}

func parseHeader(header []string, criteria []*store.Criterion) (*layout, error) {
	byCode := make(map[string]*store.Criterion, len(criteria))
	for _, c := range criteria {
		byCode[strings.ToLower(c.Code)] = c
	}
	isDescriptive := make(map[string]bool, len(descriptiveColumns))
	for _, col := range descriptiveColumns {
		isDescriptive[col] = true
	}

	l := &layout{descriptive: make(map[string]int)}
	seen := make(map[string]bool)
	for i, raw := range header {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if seen[key] {
			return nil, &RowError{Row: 1, Column: raw, Reason: "duplicate column"}
		}
		seen[key] = true

		if isDescriptive[key] {
			l.descriptive[key] = i
			continue
		}
		if c, ok := byCode[key]; ok {
			l.scores = append(l.scores, scoreColumn{index: i, header: raw, criterion: c})
		}
	}
	if _, ok := l.descriptive[ColName]; !ok {
		return nil, &RowError{Row: 1, Column: ColName, Reason: "required column missing"}
	}
	return l, nil
}

func (l *layout) candidate(row []string, rowNum int) (*store.Candidate, error) {
	c := &store.Candidate{
		Name:    l.cell(row, ColName),
		Gender:  l.cell(row, ColGender),
		School:  l.cell(row, ColSchool),
		Major:   l.cell(row, ColMajor),
		Contact: l.cell(row, ColContact),
		Address: l.cell(row, ColAddress),
		Scores:  make(map[uuid.UUID]float64, len(l.scores)),
	}
	if c.Name == "" {
		return nil, &RowError{Row: rowNum, Column: ColName, Reason: "name is required"}
	}

	for _, col := range l.scores {
		raw := ""
		if col.index < len(row) {
			raw = strings.TrimSpace(row[col.index])
		}
		if raw == "" {
			continue
		}
		v, err := ParseScore(raw)
		if err != nil {
			return nil, &RowError{Row: rowNum, Column: col.header, Reason: err.Error()}
		}
		c.Scores[col.criterion.ID] = v
	}
	return c, nil
}

func (l *layout) cell(row []string, col string) string {
	i, ok := l.descriptive[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseScore parses a raw score. Scores must be finite and not negative.
func ParseScore(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("score must be finite, got %q", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("score must not be negative, got %v", v)
	}
	return v, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
