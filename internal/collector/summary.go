package collector

import (
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderSummary formats a run's per-class record counts as an ASCII
// table, one row per class in descending count order.
func RenderSummary(s Summary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Class", "Records"})

	type row struct {
		class string
		count int64
	}
	rows := make([]row, 0, len(s.Counts))
	for class, count := range s.Counts {
		rows = append(rows, row{class, count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].class < rows[j].class
	})

	for _, r := range rows {
		t.AppendRow(table.Row{r.class, r.count})
	}

	return t.Render()
}
