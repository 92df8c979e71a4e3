package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/atikulmunna/geotail/internal/model"
)

// clfTime is the timestamp layout used inside the bracketed field of access logs.
const clfTime = "02/Jan/2006:15:04:05 -0700"

// Parser converts a raw access log line into an Event.
// Lines that do not match report false and must be skipped by the caller.
type Parser interface {
	Parse(raw string) (model.Event, bool)
}

// Grammar selects one of the built-in access log line grammars.
type Grammar string

const (
	// GrammarCombined matches `ip - - [time] "METHOD PATH ..." status` anchored at line start.
	// The IP is any non-space token, so IPv6 clients match too.
	GrammarCombined Grammar = "combined"

	// GrammarLoose searches anywhere in the line for a dotted IPv4 address followed
	// by a quoted `METHOD PATH HTTP/x` request and a status code.
	GrammarLoose Grammar = "loose"
)

var grammars = map[Grammar]string{
	GrammarCombined: `^(?P<ip>\S+) - - \[(?P<time>[^\]]+)\] "(?P<method>\S+)\s(?P<path>\S+)[^"]*" (?P<status>\d{3})`,
	GrammarLoose:    `(?P<ip>\d+\.\d+\.\d+\.\d+).+?"(?P<method>\w+) (?P<path>.*?) HTTP/[\d.]+" (?P<status>\d{3})`,
}

// ParseGrammar maps a grammar name to a Grammar.
func ParseGrammar(name string) (Grammar, error) {
	g := Grammar(name)
	if _, ok := grammars[g]; !ok {
		return "", fmt.Errorf("unknown grammar %q (want combined or loose)", name)
	}
	return g, nil
}

// ---------------------------------------------------------------------------
// Access Parser
// ---------------------------------------------------------------------------

// AccessParser extracts ip, method, path and status from a line using a regex
// with named capture groups. Extraction is all-or-nothing.
type AccessParser struct {
	re                              *regexp.Regexp
	ip, method, path, status, stamp int
}

// New returns an AccessParser for one of the built-in grammars.
func New(g Grammar) *AccessParser {
	pattern, ok := grammars[g]
	if !ok {
		pattern = grammars[GrammarCombined]
	}
	p, _ := compile(regexp.MustCompile(pattern))
	return p
}

// NewRegexParser uses a user-supplied regex. The named groups ip, method, path
// and status are required; time is optional.
func NewRegexParser(pattern string) (*AccessParser, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	return compile(re)
}

func compile(re *regexp.Regexp) (*AccessParser, error) {
	p := &AccessParser{re: re, stamp: -1}
	p.ip = re.SubexpIndex("ip")
	p.method = re.SubexpIndex("method")
	p.path = re.SubexpIndex("path")
	p.status = re.SubexpIndex("status")
	p.stamp = re.SubexpIndex("time")

	for name, idx := range map[string]int{"ip": p.ip, "method": p.method, "path": p.path, "status": p.status} {
		if idx < 0 {
			return nil, fmt.Errorf("regex pattern is missing the %q group", name)
		}
	}
	return p, nil
}

func (p *AccessParser) Parse(raw string) (model.Event, bool) {
	m := p.re.FindStringSubmatch(raw)
	if m == nil {
		return model.Event{}, false
	}

	status, err := strconv.Atoi(m[p.status])
	if err != nil || status < 100 || status > 599 {
		return model.Event{}, false
	}

	ev := model.Event{
		IP:     m[p.ip],
		Method: m[p.method],
		Path:   m[p.path],
		Status: status,
		Raw:    raw,
	}
	if ev.IP == "" || ev.Method == "" {
		return model.Event{}, false
	}

	// A timestamp we cannot read does not reject the line.
	if p.stamp > 0 {
		if t, err := time.Parse(clfTime, m[p.stamp]); err == nil {
			ev.Timestamp = &t
		}
	}

	return ev, true
}
