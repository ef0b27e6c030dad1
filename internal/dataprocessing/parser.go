package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"employcli/pkg/contracts/domain"
)

var requiredColumns = []string{
	domain.ColumnQuarterly,
	domain.ColumnSector,
	domain.ColumnEmploymentType,
	domain.ColumnValue,
}

// ParseFile reads the employment dataset from a .csv or .xlsx file. For
// workbooks, sheet selects the sheet to read; empty means the first sheet.
func ParseFile(filePath, sheet string) ([]domain.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xlsm":
		return parseWorkbook(filePath, sheet)
	case ".csv", "":
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return ParseCSV(f)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filePath))
	}
}

// ParseCSV reads raw employment rows from CSV with a header line. Columns
// other than the four dataset fields are ignored.
func ParseCSV(r io.Reader) ([]domain.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return recordsFromRows(rows)
}

func parseWorkbook(filePath, sheet string) ([]domain.RawRecord, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(filePath))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	slog.Debug("Read workbook sheet",
		slog.String("file", filepath.Base(filePath)),
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	return recordsFromRows(rows)
}

// recordsFromRows maps a header row plus data rows onto RawRecords
func recordsFromRows(rows [][]string) ([]domain.RawRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	columnMap := make(map[string]int)
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		columnMap[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columnMap[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	cell := func(row []string, col string) string {
		idx := columnMap[col]
		if idx < len(row) {
			return row[idx]
		}
		return ""
	}

	records := make([]domain.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		records = append(records, domain.RawRecord{
			Quarterly:      cell(row, domain.ColumnQuarterly),
			Sector:         cell(row, domain.ColumnSector),
			EmploymentType: cell(row, domain.ColumnEmploymentType),
			Value:          cell(row, domain.ColumnValue),
		})
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
