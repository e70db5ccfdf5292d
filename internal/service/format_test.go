package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charotAmine/databricks-genieslack/internal/genie"
)

func queryResult(columns []string, rows [][]any, total int64) *genie.QueryResult {
	qr := &genie.QueryResult{}
	for _, name := range columns {
		qr.Manifest.Schema.Columns = append(qr.Manifest.Schema.Columns, genie.ResultColumn{Name: name})
	}
	qr.Result.DataArray = rows
	qr.Result.RowCount = total
	return qr
}

// tableLines returns the lines inside the code fence.
func tableLines(t *testing.T, rendered string) []string {
	t.Helper()
	parts := strings.Split(rendered, "```")
	require.Len(t, parts, 3)
	return strings.Split(strings.Trim(parts[1], "\n"), "\n")
}

func TestFormatAnswer(t *testing.T) {
	require.Equal(t, "Revenue is up 12%", FormatAnswer(genie.Answer{Success: true, Text: "Revenue is up 12%"}))
	require.Equal(t, "Query executed successfully.", FormatAnswer(genie.Answer{Success: true}))
	require.Equal(t, "Sorry, something went wrong: backend exploded",
		FormatAnswer(genie.Answer{Success: false, Error: "backend exploded"}))
	require.Equal(t, "Sorry, something went wrong: unknown error",
		FormatAnswer(genie.Answer{Success: false}))
}

func TestFormatTable_EmptyInputs(t *testing.T) {
	require.Empty(t, FormatTable(nil, 15))
	require.Empty(t, FormatTable(queryResult(nil, [][]any{{"1"}}, 1), 15))
	require.Empty(t, FormatTable(queryResult([]string{"x"}, nil, 0), 15))
}

func TestFormatTable_SmallResultNoFooter(t *testing.T) {
	qr := queryResult([]string{"x"}, [][]any{{"1"}, {"2"}, {"3"}}, 3)
	rendered := FormatTable(qr, 15)

	require.True(t, strings.HasPrefix(rendered, "*Query Results:*\n```\n"))
	require.NotContains(t, rendered, "Showing")

	lines := tableLines(t, rendered)
	require.Len(t, lines, 2+3)
	require.Equal(t, "x", lines[0])
	require.Equal(t, "-", lines[1])
	require.Equal(t, "1", lines[2])
	require.Equal(t, "3", lines[4])
}

func TestFormatTable_WidthsAndAlignment(t *testing.T) {
	qr := queryResult([]string{"region", "amt"}, [][]any{
		{"eu", "10"},
		{"na", "2000"},
	}, 2)
	rendered := FormatTable(qr, 15)
	lines := tableLines(t, rendered)

	require.Equal(t, "region | amt ", lines[0])
	require.Equal(t, "-------+-----", lines[1])
	require.Equal(t, "eu     | 10  ", lines[2])
	require.Equal(t, "na     | 2000", lines[3])
}

func TestFormatTable_CapsColumnWidthAndTruncates(t *testing.T) {
	long := strings.Repeat("a", 80)
	qr := queryResult([]string{"v"}, [][]any{{long}}, 1)
	rendered := FormatTable(qr, 15)
	lines := tableLines(t, rendered)

	require.Len(t, lines[1], maxColumnWidth)
	require.Equal(t, strings.Repeat("a", maxColumnWidth), lines[2])
}

func TestFormatTable_MaxRowsAndFooter(t *testing.T) {
	rows := make([][]any, 10)
	for i := range rows {
		rows[i] = []any{"r"}
	}
	qr := queryResult([]string{"x"}, rows, 10)
	rendered := FormatTable(qr, 2)

	lines := tableLines(t, rendered)
	require.Len(t, lines, 2+2)
	require.Contains(t, rendered, "_Showing 2 of 10 rows_")
}

func TestFormatTable_ReportedTotalBeyondReturnedRows(t *testing.T) {
	qr := queryResult([]string{"x"}, [][]any{{"1"}, {"2"}}, 5000)
	rendered := FormatTable(qr, 15)

	// Widths come from the displayed rows only; the reported total just
	// drives the footer.
	require.Contains(t, rendered, "_Showing 15 of 5000 rows_")
	lines := tableLines(t, rendered)
	require.Len(t, lines, 2+2)
}

func TestFormatTable_CellRendering(t *testing.T) {
	qr := queryResult([]string{"a", "b", "c"}, [][]any{
		{nil, float64(3), 2.5},
	}, 1)
	rendered := FormatTable(qr, 15)
	lines := tableLines(t, rendered)

	require.Equal(t, "  | 3 | 2.5", lines[2])
}
