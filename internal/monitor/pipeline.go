package monitor

import (
	"context"
	"log/slog"

	"github.com/atikulmunna/geotail/internal/geo"
	"github.com/atikulmunna/geotail/internal/model"
	"github.com/atikulmunna/geotail/internal/output"
	"github.com/atikulmunna/geotail/internal/parser"
)

// Publisher receives every enriched event after it has been rendered.
type Publisher interface {
	Publish(ev model.Enriched)
}

// Pipeline turns raw lines into rendered, enriched events. Lines that do not
// parse are skipped silently. It is not safe for concurrent use; the tailer
// calls it from a single goroutine and lookups run one at a time.
type Pipeline struct {
	parser    parser.Parser
	cache     *geo.Cache
	renderer  output.Renderer
	publisher Publisher
	logger    *slog.Logger

	emitted, skipped int64
}

// New builds a Pipeline. publisher may be nil.
func New(p parser.Parser, cache *geo.Cache, r output.Renderer, publisher Publisher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		parser:    p,
		cache:     cache,
		renderer:  r,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle processes one raw line.
func (p *Pipeline) Handle(ctx context.Context, raw model.RawLine) {
	ev, ok := p.parser.Parse(raw.Text)
	if !ok {
		p.skipped++
		return
	}

	res := p.cache.Lookup(ctx, ev.IP)
	if ctx.Err() != nil {
		return
	}

	enriched := model.Enriched{
		Event:    ev,
		Location: res.String(),
		GeoKind:  res.Kind.String(),
	}
	if res.Kind == geo.Failed {
		p.logger.Debug("geolocation lookup failed", "ip", ev.IP, "reason", res.Reason)
	}

	if err := p.renderer.Render(enriched); err != nil {
		p.logger.Error("render error", "err", err)
	}
	p.emitted++

	if p.publisher != nil {
		p.publisher.Publish(enriched)
	}
}

// Emitted returns the number of events rendered so far.
func (p *Pipeline) Emitted() int64 { return p.emitted }

// Skipped returns the number of lines that did not match the grammar.
func (p *Pipeline) Skipped() int64 { return p.skipped }
