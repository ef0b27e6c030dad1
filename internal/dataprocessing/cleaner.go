package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "employcli/internal/errors"
	"employcli/pkg/contracts/domain"
)

// DropReason names the rule that removed a raw row during cleaning
type DropReason string

const (
	DropInvalidYear    DropReason = "invalid_year"
	DropMissingSector  DropReason = "missing_sector"
	DropExcludedSector DropReason = "excluded_sector"
	DropInvalidValue   DropReason = "invalid_value"
	DropEmploymentType DropReason = "employment_type"
)

// CleanResult holds the surviving rows of a cleaning pass together with the
// row-level failures that were recovered by exclusion.
type CleanResult struct {
	Records []domain.CleanRecord
	// Errors holds one ParseError per row dropped for malformed input
	Errors  []error
	Dropped map[DropReason]int
}

// DroppedTotal returns how many raw rows did not survive cleaning
func (r CleanResult) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Clean normalizes raw rows into the canonical schema. Rows are emitted in
// input order; every rule is an independent per-row predicate, so running
// Clean twice over the same input yields the same records.
func Clean(raw []domain.RawRecord) CleanResult {
	result := CleanResult{
		Records: make([]domain.CleanRecord, 0, len(raw)),
		Dropped: make(map[DropReason]int),
	}

	for i, row := range raw {
		rec, reason, err := cleanRow(i, row)
		if err != nil {
			result.Errors = append(result.Errors, err)
		}
		if reason != "" {
			result.Dropped[reason]++
			continue
		}
		result.Records = append(result.Records, rec)
	}

	return result
}

// cleanRow applies every rule to one row. A non-empty reason means the row
// is dropped; err is set only when the drop came from malformed input.
func cleanRow(index int, row domain.RawRecord) (domain.CleanRecord, DropReason, error) {
	year, err := ParseYear(row.Quarterly)
	if err != nil {
		return domain.CleanRecord{}, DropInvalidYear, apperrors.NewParseError(index, "year", row.Quarterly, err)
	}

	if strings.TrimSpace(row.Sector) == "" {
		return domain.CleanRecord{}, DropMissingSector, apperrors.NewParseError(index, "sector", row.Sector, nil)
	}
	if domain.IsExcludedSector(row.Sector) {
		return domain.CleanRecord{}, DropExcludedSector, nil
	}

	count, err := ParseCount(row.Value)
	if err != nil {
		return domain.CleanRecord{}, DropInvalidValue, apperrors.NewParseError(index, "employment_count", row.Value, err)
	}

	employmentType := domain.EmploymentType(row.EmploymentType)
	if !employmentType.IsAllowed() {
		return domain.CleanRecord{}, DropEmploymentType, nil
	}

	return domain.CleanRecord{
		Year:            year,
		Sector:          row.Sector,
		SectorShort:     ShortSector(row.Sector),
		EmploymentType:  employmentType,
		EmploymentCount: count,
	}, "", nil
}

// ParseYear reads the year from the first four characters of a "YYYYQn"
// quarter label. All four characters must be digits.
func ParseYear(quarterly string) (int, error) {
	if len(quarterly) < 4 {
		return 0, fmt.Errorf("quarter label %q shorter than 4 characters", quarterly)
	}
	prefix := quarterly[:4]
	for _, c := range prefix {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("quarter label %q has non-digit year prefix", quarterly)
		}
	}
	return strconv.Atoi(prefix)
}

// ParseCount converts an employment value to a finite number
func ParseCount(value string) (float64, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("empty value")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %q is not finite", value)
	}
	return f, nil
}

// ShortSector strips the parenthesized NACE code suffix from a sector label,
// e.g. "Information and Communication (J)" becomes "Information and Communication".
func ShortSector(sector string) string {
	before, _, _ := strings.Cut(sector, "(")
	return strings.TrimSpace(before)
}
