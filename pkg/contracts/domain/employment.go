package domain

// Source column names as they appear in the published dataset.
const (
	ColumnQuarterly      = "Quarterly"
	ColumnSector         = "NACE Rev 2 Economic Sector"
	ColumnEmploymentType = "Full and Part Time Status"
	ColumnValue          = "VALUE"
)

// EmploymentType is the full-time/part-time status category of a row
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "Full-time"
	EmploymentPartTime EmploymentType = "Part-time"
	EmploymentAll      EmploymentType = "All employment status"
)

// IsAllowed reports whether rows of this type survive cleaning
func (t EmploymentType) IsAllowed() bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentAll:
		return true
	default:
		return false
	}
}

// ExcludedSectors are aggregate or unknown sector rows that would double count
// employment if kept alongside the individual sectors.
var ExcludedSectors = map[string]struct{}{
	"All NACE economic sectors":          {},
	"Industry and Construction (B to F)": {},
	"Services (G to U)":                  {},
	"Not stated":                         {},
}

// IsExcludedSector reports whether a sector label is in the exclusion set
func IsExcludedSector(sector string) bool {
	_, ok := ExcludedSectors[sector]
	return ok
}

// RawRecord is one row of the source dataset, kept as text exactly as ingested
type RawRecord struct {
	Quarterly      string `json:"Quarterly"`
	Sector         string `json:"NACE Rev 2 Economic Sector"`
	EmploymentType string `json:"Full and Part Time Status"`
	Value          string `json:"VALUE"`
}

// CleanRecord is a normalized row ready for analysis
type CleanRecord struct {
	Year            int            `json:"year"`
	Sector          string         `json:"sector"`
	SectorShort     string         `json:"sector_short"`
	EmploymentType  EmploymentType `json:"employment_type"`
	EmploymentCount float64        `json:"employment_count"` // thousands
}

// GrowthRow is one sector's change across the reporting window
type GrowthRow struct {
	Sector         string  `json:"sector"`
	StartCount     float64 `json:"start_count"`
	EndCount       float64 `json:"end_count"`
	AbsoluteChange float64 `json:"absolute_change"`
	PercentChange  float64 `json:"percent_change"`
}

// CompositionRow is the full-time/part-time split for a single year
type CompositionRow struct {
	Year          int     `json:"year"`
	FullTimeTotal float64 `json:"full_time_total"`
	PartTimeTotal float64 `json:"part_time_total"`
	Total         float64 `json:"total"`
	PctFullTime   float64 `json:"pct_full_time"`
	PctPartTime   float64 `json:"pct_part_time"`
}

// SectorTrendPoint is a yearly employment total for one sector
type SectorTrendPoint struct {
	Year            int     `json:"year"`
	Sector          string  `json:"sector"`
	EmploymentCount float64 `json:"employment_count"`
}

// YearWindow is the span of years covered by the cleaned dataset
type YearWindow struct {
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`
}

// Years returns the number of calendar years in the window, inclusive
func (w YearWindow) Years() int {
	return w.MaxYear - w.MinYear + 1
}
