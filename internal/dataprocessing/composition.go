package dataprocessing

import (
	"fmt"
	"sort"

	apperrors "employcli/internal/errors"
	"employcli/pkg/contracts/domain"
)

// AnalyzeComposition computes the full-time/part-time split per year, ordered
// by year ascending. Totals are grouped into one keyed map per employment type
// and joined on year; a year present in only one map is an IncompleteYearError.
func AnalyzeComposition(records []domain.CleanRecord) ([]domain.CompositionRow, error) {
	fullTime := make(map[int]float64)
	partTime := make(map[int]float64)
	for _, r := range records {
		switch r.EmploymentType {
		case domain.EmploymentFullTime:
			fullTime[r.Year] += r.EmploymentCount
		case domain.EmploymentPartTime:
			partTime[r.Year] += r.EmploymentCount
		}
	}

	if len(fullTime) == 0 && len(partTime) == 0 {
		return nil, apperrors.NewInsufficientDataError("no full-time or part-time rows")
	}

	years := make([]int, 0, len(fullTime))
	for y := range fullTime {
		years = append(years, y)
	}
	for y := range partTime {
		if _, ok := fullTime[y]; !ok {
			years = append(years, y)
		}
	}
	sort.Ints(years)

	rows := make([]domain.CompositionRow, 0, len(years))
	for _, y := range years {
		ft, hasFT := fullTime[y]
		if !hasFT {
			return nil, apperrors.NewIncompleteYearError(y, domain.EmploymentFullTime)
		}
		pt, hasPT := partTime[y]
		if !hasPT {
			return nil, apperrors.NewIncompleteYearError(y, domain.EmploymentPartTime)
		}

		total := ft + pt
		if total == 0 {
			return nil, apperrors.NewDivisionByZeroError(fmt.Sprintf("year %d employment total", y)).
				WithContext("year", y)
		}
		pctFT := ft / total * 100
		rows = append(rows, domain.CompositionRow{
			Year:          y,
			FullTimeTotal: ft,
			PartTimeTotal: pt,
			Total:         total,
			PctFullTime:   pctFT,
			PctPartTime:   100 - pctFT,
		})
	}

	return rows, nil
}
