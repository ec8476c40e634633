// Package report renders a styled terminal summary of a built manifest:
// record and speaker counts, total audio duration, and the typed fields the
// records carry.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/avasant/corpusprep/manifest"
)

const defaultWidth = 100

// Summary aggregates a manifest's records.
type Summary struct {
	Records       int
	Speakers      int
	TotalDuration float64 // seconds
	Fields        []string
}

// Summarize computes the aggregate view of records.
func Summarize(records []manifest.Record) Summary {
	speakers := make(map[string]bool)
	fields := make(map[string]bool)
	var total float64

	for _, r := range records {
		total += r.Duration
		for _, f := range r.Fields {
			fields[f.Key] = true
			if f.Key == "spk_id" {
				speakers[f.Value] = true
			}
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Summary{
		Records:       len(records),
		Speakers:      len(speakers),
		TotalDuration: total,
		Fields:        keys,
	}
}

// Render writes the summary for the manifest at path.
func Render(w io.Writer, path string, records []manifest.Record) error {
	s := Summarize(records)
	width := termWidth()

	fmt.Fprintln(w, styleTitle.Render(path))
	fmt.Fprintln(w, styleMeta.Render(fmt.Sprintf("%d records", s.Records)))
	fmt.Fprintln(w)

	writeStats(w, s)

	if len(s.Fields) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleSeparator.Render(strings.Repeat("─", min(width, 72))))
		fmt.Fprintln(w, styleMeta.Render("fields")+" "+styleField.Render(strings.Join(s.Fields, " ")))
	}

	return nil
}

// writeStats renders the counters in two rows: values then labels.
func writeStats(w io.Writer, s Summary) {
	type stat struct {
		value string
		label string
	}
	stats := []stat{
		{fmt.Sprintf("%d", s.Records), "RECORDS"},
		{formatDuration(s.TotalDuration), "AUDIO"},
	}
	if s.Speakers > 0 {
		stats = append(stats, stat{fmt.Sprintf("%d", s.Speakers), "SPEAKERS"})
	}

	var values, labels []string
	for _, st := range stats {
		colWidth := max(len(st.value), len(st.label))
		values = append(values, fmt.Sprintf("%*s", colWidth, st.value))
		labels = append(labels, fmt.Sprintf("%-*s", colWidth, st.label))
	}

	fmt.Fprintln(w, "  "+styleStat.Render(strings.Join(values, "    ")))
	fmt.Fprintln(w, "  "+styleStatLabel.Render(strings.Join(labels, "    ")))
}

func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// formatDuration renders total seconds as a compact h/m/s string.
func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
