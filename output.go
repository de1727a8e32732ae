package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/luinbytes/media-dedupe/dedupe"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
)

// palette renders styled text, or plain text when colour is off.
type palette struct {
	color bool
}

func newPalette(w io.Writer, noColor bool) palette {
	return palette{color: !noColor && isTerminal(w)}
}

func (p palette) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p palette) heading(s string) string { return p.render(headingStyle, s) }
func (p palette) ok(s string) string      { return p.render(okStyle, s) }
func (p palette) warn(s string) string    { return p.render(warnStyle, s) }
func (p palette) fail(s string) string    { return p.render(failStyle, s) }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// printReport writes the human summary of a scan.
func printReport(w io.Writer, p palette, r *dedupe.Report) {
	moved, movedLabel := r.Summary.Moved, "Moved"
	if r.DryRun {
		moved, movedLabel = r.Summary.Planned, "Would move"
	}

	fmt.Fprintln(w, p.heading("Scan summary"))
	fmt.Fprintln(w, renderTable(
		[]string{"", ""},
		[][]string{
			{"Root", r.Root},
			{"Review folder", r.Destination},
			{"Algorithm", fmt.Sprintf("%s (threshold %d)", r.Algorithm, r.Threshold)},
			{"Files scanned", fmt.Sprintf("%d (%d images, %d videos)", r.TotalFiles, r.Images, r.Videos)},
			{"Exact groups", strconv.Itoa(r.Summary.ExactGroups)},
			{"Near groups", strconv.Itoa(r.Summary.NearGroups)},
			{movedLabel, strconv.Itoa(moved)},
			{"Errors", strconv.Itoa(r.Summary.Errors)},
			{"Reclaimable", humanize.IBytes(uint64(r.Summary.ReclaimableBytes))},
			{"Elapsed", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()},
		},
		nil,
	))

	if len(r.Exact) > 0 {
		destinations := make(map[string]string)
		for _, m := range r.Planned {
			destinations[m.Source] = m.Destination
		}
		for _, m := range r.Moved {
			destinations[m.Source] = m.Destination
		}

		var rows [][]string
		for i, g := range r.Exact {
			for j, path := range g.Paths {
				action := "keep"
				if j > 0 {
					action = "move"
					if destinations[path] == "" {
						action = "failed"
					}
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), action, path, destinations[path], humanize.IBytes(uint64(g.Size))})
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.heading("Exact duplicates"))
		fmt.Fprintln(w, renderTable([]string{"Group", "Action", "Path", "Destination", "Size"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight}))
	}

	if len(r.Near) > 0 {
		var rows [][]string
		for i, g := range r.Near {
			for j, path := range g.Paths {
				dist := g.Distances[j]
				rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(dist), fmt.Sprintf("%.1f%%", dedupe.Similarity(dist)), path})
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.heading("Similar images (not moved)"))
		fmt.Fprintln(w, renderTable([]string{"Group", "Distance", "Similarity", "Path"}, rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignLeft}))
	}

	if len(r.Errors) > 0 {
		var rows [][]string
		for _, e := range r.Errors {
			rows = append(rows, []string{string(e.Stage), e.Path, e.Message})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.fail("Errors"))
		fmt.Fprintln(w, renderTable([]string{"Stage", "Path", "Message"}, rows, nil))
	}

	fmt.Fprintln(w)
	switch {
	case r.HasErrors():
		fmt.Fprintln(w, p.warn(fmt.Sprintf("Finished with %d errors.", r.Summary.Errors)))
	case r.Summary.ExactGroups == 0 && r.Summary.NearGroups == 0:
		fmt.Fprintln(w, p.ok("No duplicates found!"))
	case r.DryRun:
		fmt.Fprintln(w, p.ok("Dry run: nothing was moved."))
	default:
		fmt.Fprintln(w, p.ok(fmt.Sprintf("Done. %d duplicates moved to %s", r.Summary.Moved, r.Destination)))
	}
}
