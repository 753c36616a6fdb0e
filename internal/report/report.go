// Package report renders matching results for terminals and scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sydlexius/autotagger/internal/match"
	"github.com/sydlexius/autotagger/internal/provider"
)

// Format selects the output encoding.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Options controls rendering.
type Options struct {
	Format Format
	// Limit caps the number of candidates shown in tables. Zero shows all.
	Limit int
	// Breakdown adds per-field distances and penalties under each candidate.
	Breakdown bool
}

// Write renders r to w.
func Write(w io.Writer, r *match.RankedResult, opts Options) error {
	if opts.Format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := io.WriteString(w, Render(r, opts))
	return err
}

// Render returns the table form of r.
func Render(r *match.RankedResult, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s", r.RunID, r.Status)
	if r.Status == match.StatusRanked {
		fmt.Fprintf(&b, ", recommendation %s", r.Recommendation)
		if r.AutoAcceptable {
			b.WriteString(", auto-acceptable")
		}
	}
	b.WriteString("\n")

	if len(r.Candidates) > 0 {
		b.WriteString(candidateTable(r.Candidates, opts))
		b.WriteString("\n")
	}
	if len(r.Diagnostics) > 0 {
		b.WriteString(diagnosticTable(r.Diagnostics))
		b.WriteString("\n")
	}
	return b.String()
}

func candidateTable(cands []match.ScoredCandidate, opts Options) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"#", "Distance", "Source", "Artist", "Title", "Year", "Tracks", "Popularity"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	shown := cands
	if opts.Limit > 0 && len(shown) > opts.Limit {
		shown = shown[:opts.Limit]
	}
	for i, sc := range shown {
		c := sc.Candidate
		tw.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.3f", sc.Distance),
			c.Source.DisplayName(),
			orDash(provider.Deref(c.Artist)),
			orDash(provider.Deref(c.Title)),
			intOrDash(c.Year),
			tracksOrDash(len(c.Tracks)),
			intOrDash(c.Popularity),
		})
		if opts.Breakdown {
			tw.AppendRow(table.Row{"", "", breakdown(sc)})
		}
	}
	if hidden := len(cands) - len(shown); hidden > 0 {
		tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d more", hidden)})
	}
	return tw.Render()
}

// breakdown summarises field contributions and penalties on one line each.
func breakdown(sc match.ScoredCandidate) string {
	var lines []string
	var fields []string
	for _, c := range sc.Breakdown {
		if !c.Comparable {
			fields = append(fields, string(c.Field)+"=?")
			continue
		}
		fields = append(fields, fmt.Sprintf("%s=%.2f×%g", c.Field, c.Distance, c.Weight))
	}
	if len(fields) > 0 {
		lines = append(lines, strings.Join(fields, " "))
	}
	lines = append(lines, fmt.Sprintf("base %.3f", sc.BaseDistance))
	for _, p := range sc.Penalties {
		lines = append(lines, fmt.Sprintf("%s %+.3f", p.Name, p.Value))
	}
	return strings.Join(lines, "\n")
}

func diagnosticTable(diags []match.Diagnostic) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Phase", "Source", "Kind", "Message"})
	for _, d := range diags {
		src := "-"
		if d.Source != "" {
			src = d.Source.DisplayName()
		}
		tw.AppendRow(table.Row{d.Phase, src, string(d.Kind), d.Message})
	}
	return tw.Render()
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func tracksOrDash(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}
