package service

import (
	"fmt"
	"strings"

	"github.com/charotAmine/databricks-genieslack/internal/genie"
)

const (
	// DefaultTableMaxRows is the default number of data rows rendered.
	DefaultTableMaxRows = 15

	// maxColumnWidth caps the display width of any single column.
	maxColumnWidth = 30
)

// FormatAnswer renders an Answer as the main reply text.
func FormatAnswer(a genie.Answer) string {
	if !a.Success {
		errMsg := a.Error
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return fmt.Sprintf("Sorry, something went wrong: %s", errMsg)
	}
	if a.Text == "" {
		return "Query executed successfully."
	}
	return a.Text
}

// FormatTable renders a query result as a fixed-width code-block table, or ""
// when there is no schema or no rows.
//
// Column widths are computed from the header and the displayed rows only, so
// formatting cost is bounded by maxRows regardless of the reported total. A
// footer notes how many of the total rows are shown when the total exceeds
// maxRows.
func FormatTable(qr *genie.QueryResult, maxRows int) string {
	if qr == nil {
		return ""
	}
	if maxRows <= 0 {
		maxRows = DefaultTableMaxRows
	}

	cols := qr.Columns()
	rows := qr.Result.DataArray
	if len(cols) == 0 || len(rows) == 0 {
		return ""
	}

	displayRows := rows
	if len(displayRows) > maxRows {
		displayRows = displayRows[:maxRows]
	}

	widths := make([]int, len(cols))
	for i, name := range cols {
		widths[i] = len(name)
	}
	for _, row := range displayRows {
		for i, val := range row {
			if i >= len(widths) {
				break
			}
			if w := len(cellString(val)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i, w := range widths {
		if w > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}

	formatRow := func(values []string) string {
		parts := make([]string, 0, len(widths))
		for i, w := range widths {
			var s string
			if i < len(values) {
				s = values[i]
			}
			if len(s) > w {
				s = s[:w]
			}
			parts = append(parts, s+strings.Repeat(" ", w-len(s)))
		}
		return strings.Join(parts, " | ")
	}

	separators := make([]string, len(widths))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}

	lines := []string{
		formatRow(cols),
		strings.Join(separators, "-+-"),
	}
	for _, row := range displayRows {
		cells := make([]string, len(row))
		for i, val := range row {
			cells[i] = cellString(val)
		}
		lines = append(lines, formatRow(cells))
	}

	total := qr.Result.RowCount
	if total == 0 {
		total = int64(len(rows))
	}
	footer := ""
	if total > int64(maxRows) {
		footer = fmt.Sprintf("\n_Showing %d of %d rows_", maxRows, total)
	}

	return "*Query Results:*\n```\n" + strings.Join(lines, "\n") + "\n```" + footer
}

// cellString renders one scalar cell. JSON numbers arrive as float64; whole
// values render without a trailing fraction.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
