package exporter

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	apperrors "employcli/internal/errors"
	"employcli/internal/services"
	"employcli/pkg/contracts/domain"
)

// ShareTrend is the full-time share at the first and last composition year
type ShareTrend struct {
	FirstYear          int     `json:"first_year"`
	LastYear           int     `json:"last_year"`
	FirstPctFullTime   float64 `json:"first_pct_full_time"`
	LastPctFullTime    float64 `json:"last_pct_full_time"`
	PercentagePointsFT float64 `json:"percentage_points_full_time"`
}

// Insights is the ranked summary printed after a run
type Insights struct {
	Window         domain.YearWindow  `json:"window"`
	TopGrowing     []domain.GrowthRow `json:"top_growing"`
	TopDeclining   []domain.GrowthRow `json:"top_declining"` // steepest decline first
	Share          ShareTrend         `json:"share"`
	Strongest      domain.GrowthRow   `json:"strongest"`
	Steepest       domain.GrowthRow   `json:"steepest"`
	TotalStart     float64            `json:"total_start"`
	TotalEnd       float64            `json:"total_end"`
	OverallGrowth  float64            `json:"overall_growth"`
	PartTimeGrowth float64            `json:"part_time_growth"`
	SectorCount    int                `json:"sector_count"`
	YearCount      int                `json:"year_count"`
}

// BuildInsights derives the top/bottom topN sectors and the headline figures
// from a pipeline result. A zero baseline for overall or part-time growth is
// reported as a division by zero.
func BuildInsights(result *services.Result, topN int) (*Insights, error) {
	if result == nil || len(result.Growth) == 0 {
		return nil, apperrors.NewInsufficientDataError("no growth rows to summarize")
	}
	if len(result.Composition) == 0 {
		return nil, apperrors.NewInsufficientDataError("no composition rows to summarize")
	}
	if topN < 1 {
		topN = 1
	}
	n := topN
	if n > len(result.Growth) {
		n = len(result.Growth)
	}

	growth := result.Growth
	ins := &Insights{
		Window:       result.Window,
		TopGrowing:   append([]domain.GrowthRow(nil), growth[:n]...),
		TopDeclining: make([]domain.GrowthRow, 0, n),
		Strongest:    growth[0],
		Steepest:     growth[len(growth)-1],
		SectorCount:  len(growth),
		YearCount:    result.Window.Years(),
	}
	for i := len(growth) - 1; i >= len(growth)-n; i-- {
		ins.TopDeclining = append(ins.TopDeclining, growth[i])
	}

	first := result.Composition[0]
	last := result.Composition[len(result.Composition)-1]
	ins.Share = ShareTrend{
		FirstYear:          first.Year,
		LastYear:           last.Year,
		FirstPctFullTime:   first.PctFullTime,
		LastPctFullTime:    last.PctFullTime,
		PercentagePointsFT: last.PctFullTime - first.PctFullTime,
	}

	for _, p := range result.Trend {
		switch p.Year {
		case result.Window.MinYear:
			ins.TotalStart += p.EmploymentCount
		case result.Window.MaxYear:
			ins.TotalEnd += p.EmploymentCount
		}
	}
	if ins.TotalStart == 0 {
		return nil, apperrors.NewDivisionByZeroError("overall employment growth").
			WithContext("year", result.Window.MinYear)
	}
	ins.OverallGrowth = (ins.TotalEnd - ins.TotalStart) / ins.TotalStart * 100

	if first.PartTimeTotal == 0 {
		return nil, apperrors.NewDivisionByZeroError("part-time employment growth").
			WithContext("year", first.Year)
	}
	ins.PartTimeGrowth = (last.PartTimeTotal - first.PartTimeTotal) / first.PartTimeTotal * 100

	return ins, nil
}

// WriteText prints the summary in the console report layout
func (ins *Insights) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	window := ins.Window

	fmt.Fprintln(bw, "EMPLOYMENT ANALYSIS RESULTS")

	fmt.Fprintf(bw, "\nTOP %d GROWING SECTORS:\n", len(ins.TopGrowing))
	for i, g := range ins.TopGrowing {
		fmt.Fprintf(bw, "  %d. %s: %+.1f%% (%.1fk → %.1fk, %+.1fk)\n",
			i+1, g.Sector, g.PercentChange, g.StartCount, g.EndCount, g.AbsoluteChange)
	}

	fmt.Fprintf(bw, "\nTOP %d DECLINING SECTORS:\n", len(ins.TopDeclining))
	for i, g := range ins.TopDeclining {
		fmt.Fprintf(bw, "  %d. %s: %.1f%% (%.1fk → %.1fk, %.1fk)\n",
			i+1, g.Sector, g.PercentChange, g.StartCount, g.EndCount, g.AbsoluteChange)
	}

	share := ins.Share
	fmt.Fprintln(bw, "\nFULL-TIME vs PART-TIME TREND:")
	fmt.Fprintf(bw, "  • %d: %.1f%% full-time, %.1f%% part-time\n",
		share.FirstYear, share.FirstPctFullTime, 100-share.FirstPctFullTime)
	fmt.Fprintf(bw, "  • %d: %.1f%% full-time, %.1f%% part-time\n",
		share.LastYear, share.LastPctFullTime, 100-share.LastPctFullTime)
	if share.PercentagePointsFT > 0 {
		fmt.Fprintf(bw, "  • Full-time employment share increased by %.1f percentage points\n", share.PercentagePointsFT)
	} else {
		fmt.Fprintf(bw, "  • Full-time employment share decreased by %.1f percentage points\n", math.Abs(share.PercentagePointsFT))
	}

	fmt.Fprintln(bw, "\nKEY INSIGHTS:")
	fmt.Fprintf(bw, "  1. %s showed the strongest growth at %.1f%% between %d and %d, adding %.1fk jobs.\n",
		ins.Strongest.Sector, ins.Strongest.PercentChange, window.MinYear, window.MaxYear, ins.Strongest.AbsoluteChange)
	fmt.Fprintf(bw, "  2. %s experienced the steepest decline at %.1f%%, losing %.1fk jobs.\n",
		ins.Steepest.Sector, ins.Steepest.PercentChange, math.Abs(ins.Steepest.AbsoluteChange))
	fmt.Fprintf(bw, "  3. Overall employment grew by %.1f%% from %.1fk to %.1fk jobs.\n",
		ins.OverallGrowth, ins.TotalStart, ins.TotalEnd)
	fmt.Fprintf(bw, "  4. Part-time employment grew by %.1f%% over the period, indicating a shift toward more flexible work arrangements.\n",
		ins.PartTimeGrowth)
	fmt.Fprintf(bw, "  5. The analysis covered %d distinct economic sectors across %d years of employment data.\n",
		ins.SectorCount, ins.YearCount)

	fmt.Fprintln(bw, "\n"+strings.Repeat("=", 80))
	return bw.Flush()
}
