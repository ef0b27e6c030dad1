// Package dataprocessing turns the quarterly employment-by-sector dataset into
// the figures reported by the analysis.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Parser: reads the dataset from CSV or XLSX into raw rows
// 2. Cleaner: normalizes raw rows, dropping aggregate sectors, malformed
// years and values, and unsupported employment types
// 3. Growth: ranks sectors by percent change between the first and last year
// 4. Composition: splits yearly employment into full-time and part-time shares
//
// # Usage
//
//	raw, err := dataprocessing.ParseFile("Business&Eco.csv", "")
//	if err != nil {
//	    return err
//	}
//	cleaned := dataprocessing.Clean(raw)
//	growth, err := dataprocessing.AnalyzeGrowth(cleaned.Records)
//	composition, err := dataprocessing.AnalyzeComposition(cleaned.Records)
//
// Analyzers are pure functions of the cleaned records. Structural problems
// (a single-year window, a zero baseline, a year without both full-time and
// part-time totals) are returned as typed errors from internal/errors rather
// than as non-finite values.
package dataprocessing
