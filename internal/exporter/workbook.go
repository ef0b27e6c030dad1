package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"employcli/internal/services"
)

// WorkbookFile is the default name of the chart workbook
const WorkbookFile = "employment_report.xlsx"

// Sheet names of the chart workbook
const (
	TrendSheet       = "Trend"
	CompositionSheet = "Composition"
	GrowthSheet      = "Growth"
)

const (
	colorGrowth  = "2ECC71"
	colorDecline = "E74C3C"
)

// WorkbookExporter renders a pipeline result as an XLSX workbook with one
// data sheet and native chart per view
type WorkbookExporter struct {
	logger *slog.Logger
}

// NewWorkbookExporter creates a workbook exporter
func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger.With(slog.String("component", "workbook_exporter"))}
}

// Export writes the trend line chart, the full-time/part-time stacked area
// chart and the growth ranking bar chart to path
func (e *WorkbookExporter) Export(result *services.Result, path string) error {
	if result == nil {
		return fmt.Errorf("no pipeline result to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TrendSheet); err != nil {
		return err
	}
	for _, name := range []string{CompositionSheet, GrowthSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func(*excelize.File, *services.Result, int) error
	}{
		{TrendSheet, writeTrendSheet},
		{CompositionSheet, writeCompositionSheet},
		{GrowthSheet, writeGrowthSheet},
	}
	for _, step := range steps {
		if err := step.fn(f, result, header); err != nil {
			return fmt.Errorf("write %s sheet: %w", step.name, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info("Workbook exported",
		slog.String("path", path),
		slog.Int("sectors", len(result.Growth)),
		slog.Int("years", len(result.Composition)))
	return nil
}

// writeTrendSheet pivots the trend to one column per sector and plots a line each
func writeTrendSheet(f *excelize.File, result *services.Result, header int) error {
	yearSet := make(map[int]struct{})
	sectorSet := make(map[string]struct{})
	values := make(map[string]map[int]float64)
	for _, p := range result.Trend {
		yearSet[p.Year] = struct{}{}
		sectorSet[p.Sector] = struct{}{}
		if values[p.Sector] == nil {
			values[p.Sector] = make(map[int]float64)
		}
		values[p.Sector][p.Year] = p.EmploymentCount
	}
	years := sortedYears(yearSet)
	sectors := make([]string, 0, len(sectorSet))
	for s := range sectorSet {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)

	if err := f.SetCellValue(TrendSheet, "A1", "Year"); err != nil {
		return err
	}
	for c, s := range sectors {
		if err := setCell(f, TrendSheet, c+2, 1, s); err != nil {
			return err
		}
	}
	for r, y := range years {
		if err := setCell(f, TrendSheet, 1, r+2, y); err != nil {
			return err
		}
		for c, s := range sectors {
			v, ok := values[s][y]
			if !ok {
				continue
			}
			if err := setCell(f, TrendSheet, c+2, r+2, v); err != nil {
				return err
			}
		}
	}
	if err := styleHeader(f, TrendSheet, len(sectors)+1, header); err != nil {
		return err
	}
	if len(years) == 0 {
		return nil
	}

	lastRow := len(years) + 1
	series := make([]excelize.ChartSeries, 0, len(sectors))
	for c := range sectors {
		series = append(series, excelize.ChartSeries{
			Name:       rangeRef(TrendSheet, c+2, 1, c+2, 1),
			Categories: rangeRef(TrendSheet, 1, 2, 1, lastRow),
			Values:     rangeRef(TrendSheet, c+2, 2, c+2, lastRow),
			Line:       excelize.ChartLine{Width: 2},
			Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
		})
	}

	anchor, err := excelize.CoordinatesToCellName(len(sectors)+3, 2)
	if err != nil {
		return err
	}
	return f.AddChart(TrendSheet, anchor, &excelize.Chart{
		Type:   excelize.Line,
		Series: series,
		Title: []excelize.RichTextRun{{
			Text: fmt.Sprintf("Employment Trend by Sector (%d–%d)", result.Window.MinYear, result.Window.MaxYear),
		}},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Year"}}},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Employment Count (Thousands)"}}},
		Legend:    excelize.ChartLegend{Position: "right"},
		Dimension: excelize.ChartDimension{Width: 960, Height: 540},
	})
}

// writeCompositionSheet plots full-time and part-time totals as a stacked
// area and annotates the first and last full-time share
func writeCompositionSheet(f *excelize.File, result *services.Result, header int) error {
	headers := []interface{}{"Year", "Full-time", "Part-time", "Total", "% Full-time", "% Part-time"}
	if err := f.SetSheetRow(CompositionSheet, "A1", &headers); err != nil {
		return err
	}
	for i, c := range result.Composition {
		row := []interface{}{c.Year, c.FullTimeTotal, c.PartTimeTotal, c.Total, c.PctFullTime, c.PctPartTime}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(CompositionSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := styleHeader(f, CompositionSheet, len(headers), header); err != nil {
		return err
	}
	if len(result.Composition) == 0 {
		return nil
	}

	first := result.Composition[0]
	last := result.Composition[len(result.Composition)-1]
	notes := []string{
		fmt.Sprintf("%d: %.0f%% full-time", first.Year, first.PctFullTime),
		fmt.Sprintf("%d: %.0f%% full-time", last.Year, last.PctFullTime),
	}
	for i, note := range notes {
		if err := setCell(f, CompositionSheet, 8, i+1, note); err != nil {
			return err
		}
	}

	lastRow := len(result.Composition) + 1
	series := []excelize.ChartSeries{
		{
			Name:       rangeRef(CompositionSheet, 2, 1, 2, 1),
			Categories: rangeRef(CompositionSheet, 1, 2, 1, lastRow),
			Values:     rangeRef(CompositionSheet, 2, 2, 2, lastRow),
			Fill:       excelize.Fill{Type: "pattern", Color: []string{colorGrowth}, Pattern: 1},
		},
		{
			Name:       rangeRef(CompositionSheet, 3, 1, 3, 1),
			Categories: rangeRef(CompositionSheet, 1, 2, 1, lastRow),
			Values:     rangeRef(CompositionSheet, 3, 2, 3, lastRow),
			Fill:       excelize.Fill{Type: "pattern", Color: []string{colorDecline}, Pattern: 1},
		},
	}

	return f.AddChart(CompositionSheet, "H4", &excelize.Chart{
		Type:   excelize.AreaStacked,
		Series: series,
		Title: []excelize.RichTextRun{{
			Text: fmt.Sprintf("Full-Time vs Part-Time Employment (%d–%d): %s, %s",
				result.Window.MinYear, result.Window.MaxYear, notes[0], notes[1]),
		}},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Year"}}},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Employment Count (Thousands)"}}},
		Legend:    excelize.ChartLegend{Position: "top"},
		Dimension: excelize.ChartDimension{Width: 840, Height: 490},
	})
}

// writeGrowthSheet splits percent change into a growth and a decline column
// so each sign gets its own bar color
func writeGrowthSheet(f *excelize.File, result *services.Result, header int) error {
	headers := []interface{}{"Sector", "Start", "End", "Absolute change", "% change", "Growth %", "Decline %"}
	if err := f.SetSheetRow(GrowthSheet, "A1", &headers); err != nil {
		return err
	}
	for i, g := range result.Growth {
		row := []interface{}{g.Sector, g.StartCount, g.EndCount, g.AbsoluteChange, g.PercentChange}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(GrowthSheet, cell, &row); err != nil {
			return err
		}
		signCol := 7
		if g.PercentChange > 0 {
			signCol = 6
		}
		if err := setCell(f, GrowthSheet, signCol, i+2, g.PercentChange); err != nil {
			return err
		}
	}
	if err := styleHeader(f, GrowthSheet, len(headers), header); err != nil {
		return err
	}
	if len(result.Growth) == 0 {
		return nil
	}

	lastRow := len(result.Growth) + 1
	series := []excelize.ChartSeries{
		{
			Name:       rangeRef(GrowthSheet, 6, 1, 6, 1),
			Categories: rangeRef(GrowthSheet, 1, 2, 1, lastRow),
			Values:     rangeRef(GrowthSheet, 6, 2, 6, lastRow),
			Fill:       excelize.Fill{Type: "pattern", Color: []string{colorGrowth}, Pattern: 1},
		},
		{
			Name:       rangeRef(GrowthSheet, 7, 1, 7, 1),
			Categories: rangeRef(GrowthSheet, 1, 2, 1, lastRow),
			Values:     rangeRef(GrowthSheet, 7, 2, 7, lastRow),
			Fill:       excelize.Fill{Type: "pattern", Color: []string{colorDecline}, Pattern: 1},
		},
	}

	height := uint(120 + 28*len(result.Growth))
	return f.AddChart(GrowthSheet, "I2", &excelize.Chart{
		Type:   excelize.BarStacked,
		Series: series,
		Title: []excelize.RichTextRun{{
			Text: fmt.Sprintf("Sector Growth Ranking (%d–%d)", result.Window.MinYear, result.Window.MaxYear),
		}},
		XAxis:     excelize.ChartAxis{ReverseOrder: true},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Growth Rate (%)"}}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 840, Height: height},
	})
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	end, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", end, style)
}

// rangeRef returns an absolute reference such as 'Trend'!$B$2:$B$5
func rangeRef(sheet string, fromCol, fromRow, toCol, toRow int) string {
	from, _ := excelize.CoordinatesToCellName(fromCol, fromRow, true)
	to, _ := excelize.CoordinatesToCellName(toCol, toRow, true)
	if from == to {
		return fmt.Sprintf("'%s'!%s", sheet, from)
	}
	return fmt.Sprintf("'%s'!%s:%s", sheet, from, to)
}

func sortedYears(set map[int]struct{}) []int {
	years := make([]int, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
