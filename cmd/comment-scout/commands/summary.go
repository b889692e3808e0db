package commands

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"comment-scout/pkg/models"
	"comment-scout/pkg/utils"
)

// renderSummary prints the run counters and output locations
func renderSummary(w io.Writer, stats models.RunStats, csvPath, jsonPath string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Crawl summary")
	t.AppendHeader(table.Row{"Metric", "Value"})

	t.AppendRows([]table.Row{
		{"Run", stats.RunID},
		{"Keyword", stats.Keyword},
		{"Browser", utils.GetStringOrDefault(stats.Engine, "-")},
		{"Outcome", stats.Phase},
		{"Links discovered", stats.LinksDiscovered},
		{"Items processed", stats.ItemsProcessed},
		{"Items failed", stats.ItemsFailed},
		{"Records found", stats.RecordsFound},
		{"Records saved", stats.RecordsFlushed},
		{"Flush failures", stats.FlushFailures},
		{"Elapsed", utils.FormatDuration(stats.Elapsed)},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"CSV", csvPath})
	t.AppendRow(table.Row{"JSON", jsonPath})

	t.SetStyle(table.StyleRounded)
	t.Render()
}
