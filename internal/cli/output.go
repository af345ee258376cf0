package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sternrassler/forge-miner/pkg/batch"
	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
)

// Output formats.
const (
	FormatTable    = "table"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

func validFormat(f string) error {
	switch f {
	case FormatTable, FormatCSV, FormatMarkdown, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, csv, markdown or json)", f)
	}
}

// tableStyle is StyleRounded with headers printed as given.
func tableStyle() table.Style {
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	return style
}

func resultTable(headers []string, rows [][]string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(tableStyle())

	hr := make(table.Row, len(headers))
	for i, h := range headers {
		hr[i] = h
	}
	t.AppendHeader(hr)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, c := range r {
			row[i] = c
		}
		t.AppendRow(row)
	}
	return t
}

// renderReport writes the result table of a report in the given format.
func renderReport(w io.Writer, r *batch.Report, format string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	t := resultTable(r.Headers, r.Rows)
	var out string
	switch format {
	case FormatCSV:
		out = t.RenderCSV()
	case FormatMarkdown:
		out = t.RenderMarkdown()
	default:
		t.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(r.Rows))})
		out = t.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

// renderRunSummary writes the run outcome: unit counts, rejected
// identifiers and processing errors.
func renderRunSummary(w io.Writer, r *batch.Report) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Committed", "Rejected", "Failed", "Pending", "Duration"})
	t.AppendRow(table.Row{
		r.RunID,
		r.Count(batch.Committed),
		r.Count(batch.Rejected),
		r.Count(batch.Failed),
		r.Count(batch.Pending) + r.Count(batch.Resolving),
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
	})
	fmt.Fprintln(w, t.Render())

	if r.Cancelled {
		fmt.Fprintln(w, text.FgYellow.Sprint("Run cancelled: the table above is partial."))
	}
	if len(r.Invalid) > 0 {
		fmt.Fprintf(w, "Invalid: %s\n", strings.Join(r.Invalid, ", "))
	}
	for _, e := range r.Errors {
		fmt.Fprintln(w, text.FgRed.Sprint(e.Error()))
	}
}

// renderSummary writes a rate-limit summary.
func renderSummary(w io.Writer, s ratelimit.Summary, now time.Time) {
	t := table.NewWriter()
	t.SetStyle(tableStyle())
	t.AppendHeader(table.Row{"Limit", "Remaining", "Used", "Resets At", "Resets In"})

	resetsIn := s.ResetAt.Sub(now).Round(time.Second)
	if resetsIn < 0 {
		resetsIn = 0
	}
	remaining := fmt.Sprint(s.Remaining)
	if s.Exhausted() {
		remaining = text.FgRed.Sprint(remaining)
	}
	t.AppendRow(table.Row{s.Limit, remaining, s.Used, s.ResetAt.Local().Format(time.RFC3339), resetsIn})
	fmt.Fprintln(w, t.Render())
}
