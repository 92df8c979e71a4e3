package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/geotail/internal/analyzer"
	"github.com/atikulmunna/geotail/internal/config"
	"github.com/atikulmunna/geotail/internal/geo"
	"github.com/atikulmunna/geotail/internal/output"
	"github.com/atikulmunna/geotail/internal/parser"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Summarize a complete access log",
	Long: `Read an access log once and print total requests, unique client IPs, the
top IPs (with their location) and paths, and a histogram of status codes.

The path may be a glob to include rotated files, or "-" for standard input.
Private addresses are reported as "Private IP" without a lookup unless
--skip-private=false is given.

Examples:
  geotail analyze /var/log/nginx/access.log
  geotail analyze "/var/log/nginx/access.log*" --top 10
  zcat access.log.2.gz | geotail analyze - --no-geo -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	flags := analyzeCmd.Flags()
	flags.Int("top", analyzer.DefaultTop, "number of IPs and paths to list")
	flags.Bool("no-geo", false, "do not look up the location of the top IPs")

	bindFlags(analyzeCmd, map[string]string{
		"top": "top",
	})

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args, true)
	if err != nil {
		return err
	}
	logPath, err := cfg.RequireLogPath()
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	p, err := newParser(cfg, parser.GrammarCombined)
	if err != nil {
		return err
	}

	opts := []analyzer.Option{analyzer.WithTop(cfg.Top), analyzer.WithLogger(logger)}

	noGeo, _ := cmd.Flags().GetBool("no-geo")
	if !noGeo && cfg.Geo.Provider != config.ProviderNone {
		resolver, release, err := newResolver(cfg)
		if err != nil {
			return err
		}
		defer release()
		opts = append(opts, analyzer.WithGeo(geo.NewCache(resolver, geo.WithPrivateShortCircuit(cfg.SkipPrivateOr(true)))))
	}

	a := analyzer.New(p, opts...)

	var rep analyzer.Report
	if logPath == "-" {
		fmt.Fprintln(cmd.ErrOrStderr(), "[+] Reading log from standard input")
		rep, err = a.ScanReader(cmd.Context(), cmd.InOrStdin())
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "[+] Reading log file: %s\n", logPath)
		rep, err = a.Scan(cmd.Context(), logPath)
	}
	if err != nil {
		return err
	}

	return output.WriteReport(cmd.OutOrStdout(), cfg.Output, rep)
}
