package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/geotail/internal/model"
)

// Renderer writes enriched events to an output stream.
type Renderer interface {
	Render(ev model.Enriched) error
}

// New returns the event renderer for format ("text" or "json").
func New(format string, w io.Writer) (Renderer, error) {
	switch format {
	case "text", "":
		return NewTextRenderer(w), nil
	case "json":
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	style2xx = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	style3xx = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // cyan
	style4xx = lipgloss.NewStyle().Foreground(lipgloss.Color("220")) // yellow
	style5xx = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleIP  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true)
	styleLoc = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
)

// TextRenderer prints one line per event, colored by status class:
//
//	[1.2.3.4 - Erfurt, Thuringia, Germany] "/index.html" → 200
type TextRenderer struct {
	w io.Writer
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(ev model.Enriched) error {
	_, err := fmt.Fprintf(r.w, "[%s - %s] \"%s\" → %s\n",
		styleIP.Render(ev.IP),
		styleLoc.Render(ev.Location),
		ev.Path,
		styleStatus(ev.Event),
	)
	return err
}

func styleStatus(ev model.Event) string {
	s := strconv.Itoa(ev.Status)
	switch ev.StatusClass() {
	case 3:
		return style3xx.Render(s)
	case 4:
		return style4xx.Render(s)
	case 5:
		return style5xx.Render(s)
	default:
		return style2xx.Render(s)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each event as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(ev model.Enriched) error {
	return r.enc.Encode(ev)
}
