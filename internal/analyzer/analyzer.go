package analyzer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/atikulmunna/geotail/internal/aggregator"
	"github.com/atikulmunna/geotail/internal/geo"
	"github.com/atikulmunna/geotail/internal/parser"
)

// ErrLogNotFound is returned when no log file matches the requested path.
var ErrLogNotFound = errors.New("could not find log file")

// DefaultTop is the number of IPs and paths listed in a report.
const DefaultTop = 5

// IPCount is a top IP with its request count and, when enabled, its location.
type IPCount struct {
	IP       string `json:"ip"`
	Count    int64  `json:"count"`
	Location string `json:"location,omitempty"`
	GeoKind  string `json:"geo_kind,omitempty"`
}

// Report is the summary of one batch scan.
type Report struct {
	Files     []string           `json:"files"`
	Top       int                `json:"top"`
	Total     int64              `json:"total_requests"`
	UniqueIPs int                `json:"unique_ips"`
	TopIPs    []IPCount          `json:"top_ips"`
	TopPaths  []aggregator.Count `json:"top_paths"`
	Statuses  []aggregator.Count `json:"status_codes"`
}

// Analyzer reads complete log files once and summarizes them.
type Analyzer struct {
	parser parser.Parser
	cache  *geo.Cache
	top    int
	logger *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithGeo annotates the top IPs with locations from cache.
func WithGeo(cache *geo.Cache) Option {
	return func(a *Analyzer) { a.cache = cache }
}

// WithTop sets how many IPs and paths are listed.
func WithTop(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.top = n
		}
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New creates an Analyzer using p to parse lines.
func New(p parser.Parser, opts ...Option) *Analyzer {
	a := &Analyzer{
		parser: p,
		top:    DefaultTop,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Scan reads every file matching pattern (a path or a doublestar glob such as
// /var/log/nginx/access.log*) and returns the report.
func (a *Analyzer) Scan(ctx context.Context, pattern string) (Report, error) {
	files, err := expand(pattern)
	if err != nil {
		return Report{}, err
	}

	counters := aggregator.NewCounters()
	for _, path := range files {
		a.logger.Debug("reading log file", "path", path)
		if err := a.scanFile(ctx, path, counters); err != nil {
			return Report{}, err
		}
	}

	return a.report(ctx, counters, files), nil
}

// ScanReader summarizes a single stream, such as standard input.
func (a *Analyzer) ScanReader(ctx context.Context, r io.Reader) (Report, error) {
	counters := aggregator.NewCounters()
	if err := a.scan(ctx, r, counters); err != nil {
		return Report{}, err
	}
	return a.report(ctx, counters, nil), nil
}

func (a *Analyzer) report(ctx context.Context, counters *aggregator.Counters, files []string) Report {
	rep := Report{
		Files:     files,
		Top:       a.top,
		Total:     counters.Total(),
		UniqueIPs: counters.UniqueIPs(),
		TopPaths:  counters.TopPaths(a.top),
		Statuses:  counters.Statuses(),
	}

	for _, c := range counters.TopIPs(a.top) {
		ipc := IPCount{IP: c.Key, Count: c.Count}
		if a.cache != nil {
			res := a.cache.Lookup(ctx, c.Key)
			ipc.Location = res.String()
			ipc.GeoKind = res.Kind.String()
		}
		rep.TopIPs = append(rep.TopIPs, ipc)
	}
	return rep
}

func (a *Analyzer) scanFile(ctx context.Context, path string, counters *aggregator.Counters) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrLogNotFound, path)
		}
		return err
	}
	defer f.Close()

	if err := a.scan(ctx, f, counters); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// scan counts every matching line; ill-formed UTF-8 is replaced, not rejected.
// Lines have no length limit, so one oversized line is just another line that
// does not parse.
func (a *Analyzer) scan(ctx context.Context, r io.Reader, counters *aggregator.Counters) error {
	br := bufio.NewReader(transform.NewReader(r, runes.ReplaceIllFormed()))

	for n := 1; ; n++ {
		if n%4096 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := br.ReadString('\n')
		if line != "" {
			if ev, ok := a.parser.Parse(strings.TrimRight(line, "\r\n")); ok {
				counters.Record(ev)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// expand resolves pattern to existing files. A plain path is returned as is
// when it exists.
func expand(pattern string) ([]string, error) {
	if info, err := os.Stat(pattern); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", pattern)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid log path pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, pattern)
	}
	return matches, nil
}
