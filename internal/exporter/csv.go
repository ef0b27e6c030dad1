package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"employcli/internal/services"
)

// Output file names written by ExportCSVs
const (
	GrowthCSV      = "sector_growth.csv"
	CompositionCSV = "fulltime_parttime.csv"
	TrendCSV       = "sector_trend.csv"
)

// CSVWriter writes CSV files below an output directory
type CSVWriter struct {
	outputDir string
}

// NewCSVWriter creates a CSV writer rooted at outputDir
func NewCSVWriter(outputDir string) *CSVWriter {
	return &CSVWriter{outputDir: outputDir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // UTF-8 BOM so Excel detects the encoding
}

// WriteCSV replaces fileName under the output directory with the given rows
func (w *CSVWriter) WriteCSV(fileName string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(fileName)

	slog.Info("Writing CSV file",
		slog.String("file_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return fullPath, nil
}

func (w *CSVWriter) resolvePath(fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(w.outputDir, fileName)
}

// ExportCSVs writes the growth ranking, the composition table and the sector
// trend as three CSV files in dir. It returns the written paths.
func ExportCSVs(result *services.Result, dir string) ([]string, error) {
	if result == nil {
		return nil, fmt.Errorf("no pipeline result to export")
	}
	w := NewCSVWriter(dir)

	growth := make([][]string, 0, len(result.Growth))
	for _, g := range result.Growth {
		growth = append(growth, []string{
			g.Sector,
			formatFloat(g.StartCount),
			formatFloat(g.EndCount),
			formatFloat(g.AbsoluteChange),
			formatFloat(g.PercentChange),
		})
	}

	composition := make([][]string, 0, len(result.Composition))
	for _, c := range result.Composition {
		composition = append(composition, []string{
			formatInt(c.Year),
			formatFloat(c.FullTimeTotal),
			formatFloat(c.PartTimeTotal),
			formatFloat(c.Total),
			formatFloat(c.PctFullTime),
			formatFloat(c.PctPartTime),
		})
	}

	trend := make([][]string, 0, len(result.Trend))
	for _, p := range result.Trend {
		trend = append(trend, []string{
			formatInt(p.Year),
			p.Sector,
			formatFloat(p.EmploymentCount),
		})
	}

	files := []struct {
		name string
		opts WriteOptions
	}{
		{GrowthCSV, WriteOptions{
			Headers: []string{"sector", "start_count", "end_count", "absolute_change", "percent_change"},
			Records: growth,
		}},
		{CompositionCSV, WriteOptions{
			Headers: []string{"year", "full_time", "part_time", "total", "pct_full_time", "pct_part_time"},
			Records: composition,
		}},
		{TrendCSV, WriteOptions{
			Headers: []string{"year", "sector_short", "employment_count"},
			Records: trend,
		}},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		f.opts.BOMPrefix = true
		p, err := w.WriteCSV(f.name, f.opts)
		if err != nil {
			return paths, fmt.Errorf("export %s: %w", f.name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
