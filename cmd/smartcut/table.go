package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. A maxWidth of zero leaves the column
// unbounded; longer cells are cut and end in an ellipsis.
type column struct {
	title    string
	right    bool
	maxWidth int
}

func left(title string) column               { return column{title: title} }
func right(title string) column              { return column{title: title, right: true} }
func clipped(title string, width int) column { return column{title: title, maxWidth: width} }

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
		if col.maxWidth > 0 {
			configs[i].WidthMax = col.maxWidth
			configs[i].WidthMaxEnforcer = ellipsis
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func ellipsis(value string, limit int) string {
	if limit <= 1 || text.RuneWidthWithoutEscSequences(value) <= limit {
		return value
	}
	return text.Trim(value, limit-1) + "…"
}
