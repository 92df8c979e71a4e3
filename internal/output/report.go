package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/geotail/internal/analyzer"
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleCheck   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green
)

// WriteReport renders a batch report in format ("text" or "json").
func WriteReport(w io.Writer, format string, rep analyzer.Report) error {
	switch format {
	case "text", "":
		return writeTextReport(w, rep)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

func writeTextReport(w io.Writer, rep analyzer.Report) error {
	ew := &errWriter{w: w}
	check := styleCheck.Render("[✓]")

	ew.printf("\n%s Total Requests: %d\n", check, rep.Total)
	ew.printf("%s Unique IPs: %d\n", check, rep.UniqueIPs)

	top := rep.Top
	if top <= 0 {
		top = analyzer.DefaultTop
	}

	ew.printf("\n%s\n", styleHeading.Render(fmt.Sprintf("Top %d IPs:", top)))
	for _, ip := range rep.TopIPs {
		if ip.Location != "" {
			ew.printf("  %-15s → %d requests (%s)\n", ip.IP, ip.Count, ip.Location)
			continue
		}
		ew.printf("  %-15s → %d requests\n", ip.IP, ip.Count)
	}

	ew.printf("\n%s\n", styleHeading.Render(fmt.Sprintf("Top %d Paths:", top)))
	for _, p := range rep.TopPaths {
		ew.printf("  %-30s → %d hits\n", p.Key, p.Count)
	}

	ew.printf("\n%s\n", styleHeading.Render("Status Codes:"))
	for _, s := range rep.Statuses {
		ew.printf("  HTTP %s → %d\n", s.Key, s.Count)
	}

	return ew.err
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
