package spreadsheet

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/Admissions/internal/ranking"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

// SheetName is the sheet written by every export.
const SheetName = "Data"

// RankingHeader is the header row of a ranking export.
var RankingHeader = []interface{}{"Peringkat", "Nama", "Nilai Preferensi", "D+", "D-", "Status"}

// FormatFixed renders v with ranking.DisplayPlaces decimals.
func FormatFixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(ranking.DisplayPlaces)
}

// WriteRanking writes r as a workbook, one row per candidate in rank order.
func WriteRanking(w io.Writer, r *ranking.Ranking) error {
	f, err := newWorkbook()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := setRow(f, 1, RankingHeader); err != nil {
		return err
	}
	for i, e := range r.Results {
		row := []interface{}{
			e.Rank,
			e.Name,
			FormatFixed(e.Preference),
			FormatFixed(e.DPlus),
			FormatFixed(e.DMinus),
			ranking.StatusLabel(e.Pass),
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}
	return write(f, w)
}

// WriteCandidates writes candidates in the import layout so the file can be
// edited and imported again. Unscored cells are left blank.
func WriteCandidates(w io.Writer, criteria []*store.Criterion, candidates []*store.Candidate) error {
	f, err := newWorkbook()
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]interface{}, 0, len(descriptiveColumns)+len(criteria))
	for _, col := range descriptiveColumns {
		header = append(header, col)
	}
	for _, c := range criteria {
		header = append(header, c.Code)
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i, c := range candidates {
		row := []interface{}{c.Name, c.Gender, c.School, c.Major, c.Contact, c.Address}
		for _, crit := range criteria {
			if v, ok := c.Scores[crit.ID]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}
	return write(f, w)
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	return f, nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func write(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
