package services

import (
	"encoding/json"
	"fmt"
	"strconv"

	"employcli/internal/store"
	"employcli/pkg/contracts/domain"
)

// Field names of documents in the clean collection.
const (
	fieldYear            = "year"
	fieldSector          = "sector"
	fieldSectorShort     = "sector_short"
	fieldEmploymentType  = "employment_type"
	fieldEmploymentCount = "employment_count"
)

func rawToDocument(r domain.RawRecord) store.Document {
	return store.Document{
		domain.ColumnQuarterly:      r.Quarterly,
		domain.ColumnSector:         r.Sector,
		domain.ColumnEmploymentType: r.EmploymentType,
		domain.ColumnValue:          r.Value,
	}
}

// documentToRaw tolerates numeric cells: a store seeded by another tool may
// hold VALUE as a number rather than text.
func documentToRaw(doc store.Document) domain.RawRecord {
	return domain.RawRecord{
		Quarterly:      textValue(doc[domain.ColumnQuarterly]),
		Sector:         textValue(doc[domain.ColumnSector]),
		EmploymentType: textValue(doc[domain.ColumnEmploymentType]),
		Value:          textValue(doc[domain.ColumnValue]),
	}
}

func cleanToDocument(r domain.CleanRecord) store.Document {
	return store.Document{
		fieldYear:            r.Year,
		fieldSector:          r.Sector,
		fieldSectorShort:     r.SectorShort,
		fieldEmploymentType:  string(r.EmploymentType),
		fieldEmploymentCount: r.EmploymentCount,
	}
}

func documentToClean(doc store.Document) (domain.CleanRecord, error) {
	year, err := numberValue(doc[fieldYear])
	if err != nil {
		return domain.CleanRecord{}, fmt.Errorf("field %s: %w", fieldYear, err)
	}
	count, err := numberValue(doc[fieldEmploymentCount])
	if err != nil {
		return domain.CleanRecord{}, fmt.Errorf("field %s: %w", fieldEmploymentCount, err)
	}
	return domain.CleanRecord{
		Year:            int(year),
		Sector:          textValue(doc[fieldSector]),
		SectorShort:     textValue(doc[fieldSectorShort]),
		EmploymentType:  domain.EmploymentType(textValue(doc[fieldEmploymentType])),
		EmploymentCount: count,
	}, nil
}

func textValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func numberValue(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		return strconv.ParseFloat(val, 64)
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
