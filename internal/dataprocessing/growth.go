package dataprocessing

import (
	"sort"

	apperrors "employcli/internal/errors"
	"employcli/pkg/contracts/domain"
)

// GrowthReport is the sector growth ranking over the reporting window
type GrowthReport struct {
	Window domain.YearWindow
	// Rows are ranked by percent change, highest first
	Rows []domain.GrowthRow
	// YearlyTotals are the per-sector "All employment status" sums by year
	YearlyTotals []domain.SectorTrendPoint
}

// YearRange returns the minimum and maximum year across all records
func YearRange(records []domain.CleanRecord) (domain.YearWindow, error) {
	if len(records) == 0 {
		return domain.YearWindow{}, apperrors.NewInsufficientDataError("no cleaned records to derive a year window")
	}
	w := domain.YearWindow{MinYear: records[0].Year, MaxYear: records[0].Year}
	for _, r := range records[1:] {
		if r.Year < w.MinYear {
			w.MinYear = r.Year
		}
		if r.Year > w.MaxYear {
			w.MaxYear = r.Year
		}
	}
	return w, nil
}

// SectorTrend sums "All employment status" rows by sector and year. Points
// are ordered by sector, then year.
func SectorTrend(records []domain.CleanRecord) []domain.SectorTrendPoint {
	type key struct {
		sector string
		year   int
	}
	totals := make(map[key]float64)
	for _, r := range records {
		if r.EmploymentType != domain.EmploymentAll {
			continue
		}
		totals[key{r.SectorShort, r.Year}] += r.EmploymentCount
	}

	points := make([]domain.SectorTrendPoint, 0, len(totals))
	for k, v := range totals {
		points = append(points, domain.SectorTrendPoint{Year: k.year, Sector: k.sector, EmploymentCount: v})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Sector == points[j].Sector {
			return points[i].Year < points[j].Year
		}
		return points[i].Sector < points[j].Sector
	})
	return points
}

// AnalyzeGrowth ranks sectors by percent change between the first and last
// year of the cleaned dataset. The window comes from every record, not only
// the "All employment status" rows. Sectors missing at either endpoint are
// left out of the ranking.
func AnalyzeGrowth(records []domain.CleanRecord) (*GrowthReport, error) {
	window, err := YearRange(records)
	if err != nil {
		return nil, err
	}
	if window.MinYear == window.MaxYear {
		return nil, apperrors.NewInsufficientDataError("growth window spans a single year").
			WithContext("year", window.MinYear)
	}

	trend := SectorTrend(records)
	if len(trend) == 0 {
		return nil, apperrors.NewInsufficientDataError("no \"All employment status\" rows to rank")
	}

	start := make(map[string]float64)
	end := make(map[string]float64)
	for _, p := range trend {
		switch p.Year {
		case window.MinYear:
			start[p.Sector] = p.EmploymentCount
		case window.MaxYear:
			end[p.Sector] = p.EmploymentCount
		}
	}

	sectors := make([]string, 0, len(start))
	for s := range start {
		if _, ok := end[s]; ok {
			sectors = append(sectors, s)
		}
	}
	sort.Strings(sectors)

	rows := make([]domain.GrowthRow, 0, len(sectors))
	for _, s := range sectors {
		row, err := growthRow(s, start[s], end[s])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	// Sectors are pre-sorted by name, so ties keep alphabetical order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PercentChange > rows[j].PercentChange
	})

	return &GrowthReport{Window: window, Rows: rows, YearlyTotals: trend}, nil
}

func growthRow(sector string, start, end float64) (domain.GrowthRow, error) {
	pct, err := PercentChange(start, end)
	if err != nil {
		return domain.GrowthRow{}, apperrors.NewDivisionByZeroError("sector " + sector).
			WithContext("sector", sector)
	}
	return domain.GrowthRow{
		Sector:         sector,
		StartCount:     start,
		EndCount:       end,
		AbsoluteChange: end - start,
		PercentChange:  pct,
	}, nil
}

// PercentChange returns (end - start) / start * 100, failing on a zero start
func PercentChange(start, end float64) (float64, error) {
	if start == 0 {
		return 0, apperrors.NewDivisionByZeroError("percent change")
	}
	return (end - start) / start * 100, nil
}
