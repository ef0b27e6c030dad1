package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "employcli/internal/errors"
	"employcli/pkg/contracts/domain"
)

func clean(year int, sector string, t domain.EmploymentType, count float64) domain.CleanRecord {
	return domain.CleanRecord{
		Year:            year,
		Sector:          sector,
		SectorShort:     ShortSector(sector),
		EmploymentType:  t,
		EmploymentCount: count,
	}
}

func TestAnalyzeGrowth_EndpointAlignment(t *testing.T) {
	records := []domain.CleanRecord{
		clean(2019, "A (A)", domain.EmploymentAll, 100),
		clean(2020, "A (A)", domain.EmploymentAll, 120),
		clean(2021, "A (A)", domain.EmploymentAll, 150),
	}

	report, err := AnalyzeGrowth(records)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	row := report.Rows[0]
	assert.Equal(t, "A", row.Sector)
	assert.Equal(t, 100.0, row.StartCount)
	assert.Equal(t, 150.0, row.EndCount)
	assert.Equal(t, 50.0, row.AbsoluteChange)
	assert.Equal(t, 50.0, row.PercentChange)
	assert.Equal(t, domain.YearWindow{MinYear: 2019, MaxYear: 2021}, report.Window)
}

func TestAnalyzeGrowth_SumsQuartersWithinYear(t *testing.T) {
	records := []domain.CleanRecord{
		clean(2020, "Retail (G)", domain.EmploymentAll, 40),
		clean(2020, "Retail (G)", domain.EmploymentAll, 60),
		clean(2021, "Retail (G)", domain.EmploymentAll, 70),
		clean(2021, "Retail (G)", domain.EmploymentAll, 80),
	}

	report, err := AnalyzeGrowth(records)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 100.0, report.Rows[0].StartCount)
	assert.Equal(t, 150.0, report.Rows[0].EndCount)
}

func TestAnalyzeGrowth_ExcludesPartialSectors(t *testing.T) {
	records := []domain.CleanRecord{
		clean(2020, "Both (B)", domain.EmploymentAll, 10),
		clean(2022, "Both (B)", domain.EmploymentAll, 20),
		clean(2022, "Late (L)", domain.EmploymentAll, 5),
		clean(2020, "Early (E)", domain.EmploymentAll, 5),
		clean(2021, "Middle (M)", domain.EmploymentAll, 5),
	}

	report, err := AnalyzeGrowth(records)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "Both", report.Rows[0].Sector)
}

func TestAnalyzeGrowth_WindowUsesAllRecords(t *testing.T) {
	// The Full-time row stretches the window to 2023, where no sector has
	// an "All employment status" total, so nothing aligns.
	records := []domain.CleanRecord{
		clean(2020, "Retail (G)", domain.EmploymentAll, 10),
		clean(2022, "Retail (G)", domain.EmploymentAll, 20),
		clean(2023, "Retail (G)", domain.EmploymentFullTime, 20),
	}

	report, err := AnalyzeGrowth(records)
	require.NoError(t, err)
	assert.Equal(t, 2023, report.Window.MaxYear)
	assert.Empty(t, report.Rows)
}

func TestAnalyzeGrowth_SortOrder(t *testing.T) {
	records := []domain.CleanRecord{
		clean(2020, "Down (D)", domain.EmploymentAll, 100),
		clean(2021, "Down (D)", domain.EmploymentAll, 50),
		clean(2020, "Up (U)", domain.EmploymentAll, 100),
		clean(2021, "Up (U)", domain.EmploymentAll, 300),
		clean(2020, "Tie B (B)", domain.EmploymentAll, 10),
		clean(2021, "Tie B (B)", domain.EmploymentAll, 11),
		clean(2020, "Tie A (A)", domain.EmploymentAll, 20),
		clean(2021, "Tie A (A)", domain.EmploymentAll, 22),
	}

	report, err := AnalyzeGrowth(records)
	require.NoError(t, err)

	var got []string
	for _, r := range report.Rows {
		got = append(got, r.Sector)
	}
	assert.Equal(t, []string{"Up", "Tie A", "Tie B", "Down"}, got)
	assert.InDelta(t, -50.0, report.Rows[3].PercentChange, 1e-9)
}

func TestAnalyzeGrowth_Failures(t *testing.T) {
	tests := []struct {
		name    string
		records []domain.CleanRecord
		want    error
	}{
		{
			name:    "no records",
			records: nil,
			want:    apperrors.ErrInsufficientData,
		},
		{
			name: "single year window",
			records: []domain.CleanRecord{
				clean(2020, "A (A)", domain.EmploymentAll, 1),
				clean(2020, "B (B)", domain.EmploymentAll, 2),
			},
			want: apperrors.ErrInsufficientData,
		},
		{
			name: "no all-status rows",
			records: []domain.CleanRecord{
				clean(2020, "A (A)", domain.EmploymentFullTime, 1),
				clean(2021, "A (A)", domain.EmploymentPartTime, 2),
			},
			want: apperrors.ErrInsufficientData,
		},
		{
			name: "zero start count",
			records: []domain.CleanRecord{
				clean(2020, "Zero (Z)", domain.EmploymentAll, 0),
				clean(2021, "Zero (Z)", domain.EmploymentAll, 5),
			},
			want: apperrors.ErrDivisionByZero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := AnalyzeGrowth(tt.records)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEndToEndScenario(t *testing.T) {
	input := []domain.RawRecord{
		raw("2020Q1", "Retail (G)", "Full-time", "100"),
		raw("2022Q1", "Retail (G)", "Full-time", "100"),
		raw("2020Q1", "Retail (G)", "All employment status", "100"),
		raw("2022Q1", "Retail (G)", "All employment status", "200"),
	}

	cleaned := Clean(input)
	require.Len(t, cleaned.Records, 4)

	report, err := AnalyzeGrowth(cleaned.Records)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, domain.GrowthRow{
		Sector:         "Retail",
		StartCount:     100,
		EndCount:       200,
		AbsoluteChange: 100,
		PercentChange:  100,
	}, report.Rows[0])
}

func TestSectorTrend(t *testing.T) {
	records := []domain.CleanRecord{
		clean(2021, "B (B)", domain.EmploymentAll, 3),
		clean(2020, "B (B)", domain.EmploymentAll, 2),
		clean(2020, "A (A)", domain.EmploymentAll, 1),
		clean(2020, "A (A)", domain.EmploymentAll, 1),
		clean(2020, "A (A)", domain.EmploymentPartTime, 100),
	}

	assert.Equal(t, []domain.SectorTrendPoint{
		{Year: 2020, Sector: "A", EmploymentCount: 2},
		{Year: 2020, Sector: "B", EmploymentCount: 2},
		{Year: 2021, Sector: "B", EmploymentCount: 3},
	}, SectorTrend(records))
}

func TestPercentChange(t *testing.T) {
	pct, err := PercentChange(200, 150)
	require.NoError(t, err)
	assert.Equal(t, -25.0, pct)

	_, err = PercentChange(0, 10)
	assert.ErrorIs(t, err, apperrors.ErrDivisionByZero)
}
