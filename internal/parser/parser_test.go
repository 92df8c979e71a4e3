package parser

import (
	"testing"
)

func TestCombinedParser(t *testing.T) {
	p := New(GrammarCombined)

	line := `127.0.0.1 - - [17/Feb/2026:12:00:00 +0000] "GET /api/health HTTP/1.1" 500 1234 "-" "curl/8.0"`
	ev, ok := p.Parse(line)
	if !ok {
		t.Fatal("expected line to match")
	}

	if ev.IP != "127.0.0.1" {
		t.Errorf("expected ip 127.0.0.1, got %q", ev.IP)
	}
	if ev.Method != "GET" {
		t.Errorf("expected method GET, got %q", ev.Method)
	}
	if ev.Path != "/api/health" {
		t.Errorf("expected path /api/health, got %q", ev.Path)
	}
	if ev.Status != 500 {
		t.Errorf("expected status 500, got %d", ev.Status)
	}
	if ev.Timestamp == nil || ev.Timestamp.Year() != 2026 || ev.Timestamp.Month() != 2 {
		t.Errorf("expected timestamp in Feb 2026, got %v", ev.Timestamp)
	}
	if ev.Raw != line {
		t.Errorf("expected raw line to be kept, got %q", ev.Raw)
	}
}

func TestCombinedParserIPv6(t *testing.T) {
	p := New(GrammarCombined)

	ev, ok := p.Parse(`2001:db8::1 - - [17/Feb/2026:12:00:00 +0000] "POST /login HTTP/2.0" 302 0`)
	if !ok {
		t.Fatal("expected IPv6 line to match the combined grammar")
	}
	if ev.IP != "2001:db8::1" {
		t.Errorf("expected ip 2001:db8::1, got %q", ev.IP)
	}
	if ev.Status != 302 {
		t.Errorf("expected status 302, got %d", ev.Status)
	}
}

func TestCombinedParserBadTimestamp(t *testing.T) {
	p := New(GrammarCombined)

	ev, ok := p.Parse(`1.2.3.4 - - [t] "GET /a HTTP/1.1" 200`)
	if !ok {
		t.Fatal("an unreadable timestamp must not reject the line")
	}
	if ev.Timestamp != nil {
		t.Errorf("expected no timestamp, got %v", ev.Timestamp)
	}
	if ev.Path != "/a" {
		t.Errorf("expected path /a, got %q", ev.Path)
	}
}

func TestLooseParser(t *testing.T) {
	p := New(GrammarLoose)

	ev, ok := p.Parse(`proxy: 10.0.0.1 via edge [17/Feb/2026:12:00:00 +0000] "DELETE /items/7 HTTP/1.1" 404 0`)
	if !ok {
		t.Fatal("expected line to match")
	}
	if ev.IP != "10.0.0.1" || ev.Method != "DELETE" || ev.Path != "/items/7" || ev.Status != 404 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestLooseParserRejectsIPv6(t *testing.T) {
	p := New(GrammarLoose)

	if _, ok := p.Parse(`2001:db8::1 - - [17/Feb/2026:12:00:00 +0000] "GET / HTTP/1.1" 200 0`); ok {
		t.Error("expected IPv6 line not to match the loose grammar")
	}
}

func TestParserNoMatch(t *testing.T) {
	lines := []string{
		"",
		"not an access log line",
		`1.2.3.4 - - [t] "GET /a HTTP/1.1" abc`,
		`1.2.3.4 - - [t] "GET /a HTTP/1.1" 999`,
		`1.2.3.4 - - [t] GET /a HTTP/1.1 200`,
	}

	for _, g := range []Grammar{GrammarCombined, GrammarLoose} {
		p := New(g)
		for _, line := range lines {
			if ev, ok := p.Parse(line); ok {
				t.Errorf("%s: expected no match for %q, got %+v", g, line, ev)
			}
		}
	}
}

func TestRegexParser(t *testing.T) {
	p, err := NewRegexParser(`^(?P<ip>\S+) (?P<method>[A-Z]+) (?P<path>\S+) (?P<status>\d{3})$`)
	if err != nil {
		t.Fatal(err)
	}

	ev, ok := p.Parse("8.8.8.8 GET /x 201")
	if !ok {
		t.Fatal("expected line to match")
	}
	if ev.IP != "8.8.8.8" || ev.Status != 201 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestRegexParserInvalidPattern(t *testing.T) {
	_, err := NewRegexParser(`[invalid`)
	if err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestRegexParserMissingGroup(t *testing.T) {
	_, err := NewRegexParser(`^(?P<ip>\S+) (?P<path>\S+) (?P<status>\d{3})$`)
	if err == nil {
		t.Error("expected error for pattern without a method group")
	}
}

func TestParseGrammar(t *testing.T) {
	if g, err := ParseGrammar("loose"); err != nil || g != GrammarLoose {
		t.Errorf("expected loose grammar, got %q (%v)", g, err)
	}
	if _, err := ParseGrammar("apache"); err == nil {
		t.Error("expected error for unknown grammar")
	}
}
