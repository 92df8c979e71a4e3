package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/atikulmunna/geotail/internal/aggregator"
	"github.com/atikulmunna/geotail/internal/analyzer"
	"github.com/atikulmunna/geotail/internal/model"
)

func sampleEvent() model.Enriched {
	return model.Enriched{
		Event:    model.Event{IP: "1.2.3.4", Method: "GET", Path: "/index.html", Status: 404},
		Location: "Erfurt, Thuringia, Germany",
		GeoKind:  "resolved",
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewJSONRenderer(&buf)

	if err := renderer.Render(sampleEvent()); err != nil {
		t.Fatal(err)
	}

	var got model.Enriched
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nraw: %s", err, buf.String())
	}

	if got.IP != "1.2.3.4" {
		t.Errorf("expected ip 1.2.3.4, got %s", got.IP)
	}
	if got.Status != 404 {
		t.Errorf("expected status 404, got %d", got.Status)
	}
	if got.Location != "Erfurt, Thuringia, Germany" {
		t.Errorf("expected location, got %q", got.Location)
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewTextRenderer(&buf)

	if err := renderer.Render(sampleEvent()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"1.2.3.4", "Erfurt, Thuringia, Germany", `"/index.html"`, "→", "404"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("expected a trailing newline")
	}
}

func TestTextRendererPathVerbatim(t *testing.T) {
	var buf bytes.Buffer
	ev := sampleEvent()
	ev.Path = `/search?q="go"`

	if err := NewTextRenderer(&buf).Render(ev); err != nil {
		t.Fatal(err)
	}

	if want := `"/search?q="go""`; !strings.Contains(buf.String(), want) {
		t.Errorf("expected path printed as is %q, got %q", want, buf.String())
	}
}

func TestJSONRendererOmitsMissingTimestamp(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONRenderer(&buf).Render(sampleEvent()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "timestamp") {
		t.Errorf("expected no timestamp field, got %s", buf.String())
	}

	stamp := time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)
	ev := sampleEvent()
	ev.Timestamp = &stamp

	buf.Reset()
	if err := NewJSONRenderer(&buf).Render(ev); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"timestamp":"2026-02-17T12:00:00Z"`) {
		t.Errorf("expected timestamp field, got %s", buf.String())
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New("xml", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func sampleReport() analyzer.Report {
	return analyzer.Report{
		Top:       5,
		Total:     4,
		UniqueIPs: 2,
		TopIPs: []analyzer.IPCount{
			{IP: "1.2.3.4", Count: 3, Location: "Private IP"},
			{IP: "5.6.7.8", Count: 1},
		},
		TopPaths: []aggregator.Count{{Key: "/a", Count: 3}, {Key: "/b", Count: 1}},
		Statuses: []aggregator.Count{{Key: "200", Count: 3}, {Key: "404", Count: 1}},
	}
}

func TestWriteTextReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, "text", sampleReport()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"Total Requests: 4",
		"Unique IPs: 2",
		"Top 5 IPs:",
		"Top 5 Paths:",
		"1.2.3.4         → 3 requests (Private IP)",
		"5.6.7.8         → 1 requests\n",
		"/a                             → 3 hits",
		"HTTP 200 → 3",
		"HTTP 404 → 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, "json", sampleReport()); err != nil {
		t.Fatal(err)
	}

	var got analyzer.Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nraw: %s", err, buf.String())
	}
	if got.Total != 4 || len(got.Statuses) != 2 {
		t.Errorf("unexpected report: %+v", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteReportPropagatesWriteError(t *testing.T) {
	if err := WriteReport(failingWriter{}, "text", sampleReport()); err == nil {
		t.Error("expected write error")
	}
}
