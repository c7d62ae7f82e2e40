package report

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/justjake/tablebench/pkg/sweep"
)

var (
	summaryHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#00CED1")).
				Padding(0, 1)
	summaryCellStyle = lipgloss.NewStyle().Padding(0, 1)
	// baseline faster than the table
	summarySlowerStyle = summaryCellStyle.Foreground(lipgloss.Color("#FF6B6B"))
	summaryFasterStyle = summaryCellStyle.Foreground(lipgloss.Color("#50FA7B"))
	summaryBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9B30FF"))
)

// Summary renders the relative throughput rows as a terminal table.
// Ratios above 1 (baseline faster) are red, below 1 green.
func Summary(baseline string, metrics []sweep.Metric, rows []ComparisonRow) string {
	headers := make([]string, 0, len(metrics)+1)
	headers = append(headers, baseline+" ÷ table")
	for _, m := range metrics {
		headers = append(headers, m.String())
	}

	ratios := make([][]float64, len(rows))
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(summaryBorderStyle).
		Headers(headers...)
	for i, row := range rows {
		ratios[i] = row.Ratios
		cells := make([]string, 0, len(row.Ratios)+1)
		cells = append(cells, row.Table)
		for _, r := range row.Ratios {
			cells = append(cells, strconv.FormatFloat(r, 'f', 2, 64))
		}
		t.Row(cells...)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return summaryHeaderStyle
		case col == 0 || row < 0 || row >= len(ratios) || col-1 >= len(ratios[row]):
			return summaryCellStyle
		case ratios[row][col-1] > 1:
			return summarySlowerStyle
		case ratios[row][col-1] < 1:
			return summaryFasterStyle
		}
		return summaryCellStyle
	})
	return t.String()
}
