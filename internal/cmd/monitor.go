package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atikulmunna/geotail/internal/aggregator"
	"github.com/atikulmunna/geotail/internal/geo"
	"github.com/atikulmunna/geotail/internal/hub"
	"github.com/atikulmunna/geotail/internal/model"
	"github.com/atikulmunna/geotail/internal/monitor"
	"github.com/atikulmunna/geotail/internal/output"
	"github.com/atikulmunna/geotail/internal/parser"
	"github.com/atikulmunna/geotail/internal/server"
	"github.com/atikulmunna/geotail/internal/tailer"
	"github.com/atikulmunna/geotail/internal/watcher"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [path]",
	Short: "Follow the access log and print every new request with its location",
	Long: `Follow an access log and print one line per new request:

  [203.0.113.7 - Erfurt, Thuringia, Germany] "/index.html" → 200

The file is checked every --interval and whenever it changes. A missing file
is reported and retried. Press Ctrl+C to stop.

Examples:
  geotail monitor /var/log/nginx/access.log
  NGINX_LOG_PATH=access.log geotail monitor --output json
  geotail monitor access.log --listen :8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	flags := monitorCmd.Flags()
	flags.Duration("interval", tailer.DefaultInterval, "wait between two scans of the log")
	flags.String("strategy", string(tailer.StrategyOffset), "how new lines are detected: offset, rescan")
	flags.Bool("from-end", false, "skip the content already in the file at startup")
	flags.String("listen", "", "serve the live dashboard API on this address, e.g. :8080")

	bindFlags(monitorCmd, map[string]string{
		"poll_interval": "interval",
		"strategy":      "strategy",
		"from_end":      "from-end",
		"listen":        "listen",
	})

	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args, false)
	if err != nil {
		return err
	}
	logPath, err := cfg.RequireLogPath()
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	// --- Set up context with graceful shutdown ---
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Build pipeline ---
	p, err := newParser(cfg, parser.GrammarLoose)
	if err != nil {
		return err
	}

	resolver, release, err := newResolver(cfg)
	if err != nil {
		return err
	}
	defer release()
	cache := geo.NewCache(resolver, geo.WithPrivateShortCircuit(cfg.SkipPrivateOr(false)))

	renderer, err := output.New(cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	reader, err := tailer.NewReader(tailer.Strategy(cfg.Strategy), logPath, cfg.FromEnd)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	tailOpts := []tailer.Option{tailer.WithInterval(cfg.PollInterval), tailer.WithLogger(logger)}
	if w, err := watcher.New(logPath, logger); err != nil {
		logger.Warn("file notifications unavailable, polling only", "err", err)
	} else {
		tailOpts = append(tailOpts, tailer.WithWatcher(w))
		g.Go(func() error {
			w.Start(gctx)
			return nil
		})
	}
	tail := tailer.New(reader, logPath, tailOpts...)

	// --- Optional dashboard ---
	var publisher monitor.Publisher
	var h *hub.Hub
	if cfg.Listen != "" {
		h = hub.New(logger)
		publisher = h
		agg := aggregator.New(h.Subscribe(), h.Dropped, cfg.Top)
		srv := server.New(h, agg, cache, cfg.Listen, logger)

		g.Go(func() error {
			agg.Start(gctx)
			return nil
		})
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	pipeline := monitor.New(p, cache, renderer, publisher, logger)

	fmt.Fprintf(cmd.ErrOrStderr(), "🌐 Monitoring access log %s...\n(Press Ctrl+C to stop)\n\n", logPath)

	// --- Tail until interrupted ---
	g.Go(func() error {
		tail.Run(gctx, func(raw model.RawLine) {
			pipeline.Handle(gctx, raw)
		})
		if h != nil {
			h.Close()
		}
		return nil
	})

	err = g.Wait()

	logger.Debug("monitor stopped", "events", pipeline.Emitted(), "skipped", pipeline.Skipped(), "geo", cache.Stats())
	fmt.Fprintln(cmd.ErrOrStderr(), "\n👋 Exiting monitor.")

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
