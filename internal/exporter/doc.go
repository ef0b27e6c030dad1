// Package exporter turns a pipeline result into files and text.
//
// ExportCSVs writes sector_growth.csv, fulltime_parttime.csv and
// sector_trend.csv with a UTF-8 BOM so spreadsheet tools pick up the
// encoding. WorkbookExporter writes an XLSX workbook holding the same tables
// with a native chart on each sheet: a line per sector for the yearly trend,
// a stacked area for the full-time/part-time split and a bar ranking colored
// by the sign of the percent change. BuildInsights derives the console
// summary printed by the analyze command.
package exporter
