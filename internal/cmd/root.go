package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/geotail/internal/config"
	"github.com/atikulmunna/geotail/internal/geo"
	"github.com/atikulmunna/geotail/internal/parser"
)

var (
	cfgFile string
	vip     = config.DefaultViper()
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "geotail",
	Short: "Access log monitor with IP geolocation",
	Long: `geotail reads a web server access log, extracts client IP, method, path and
status from every request line and looks up where the client is located.

Run "geotail monitor" to follow the log live, or "geotail analyze" for a
one-off summary of the whole file. The log path is taken from the first
argument, --log-path, or the NGINX_LOG_PATH variable (also read from .env).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "[!]", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.geotail.yaml)")
	flags.String("log-path", "", "access log to read (default: $"+config.LogPathEnv+")")
	flags.StringP("output", "o", "text", "output format: text, json")
	flags.String("log-level", "info", "diagnostic log level: debug, info, warn, error")
	flags.String("grammar", "", "line grammar: combined, loose (default depends on the command)")
	flags.String("pattern", "", "custom line regex with named groups ip, method, path, status")
	flags.String("geo-provider", config.ProviderIPAPI, "geolocation provider: ip-api, ip2location, none")
	flags.String("geo-endpoint", geo.DefaultEndpoint, "ip-api compatible endpoint; the IP is appended")
	flags.Duration("geo-timeout", geo.DefaultTimeout, "timeout of a single geolocation request")
	flags.String("geo-db", "", "IP2Location BIN database for the ip2location provider")
	flags.Bool("skip-private", false, "answer \"Private IP\" for 10., 172., 192.168. and 127. addresses without a lookup")

	bindFlags(rootCmd, map[string]string{
		"log_path":     "log-path",
		"output":       "output",
		"log_level":    "log-level",
		"grammar":      "grammar",
		"pattern":      "pattern",
		"geo.provider": "geo-provider",
		"geo.endpoint": "geo-endpoint",
		"geo.timeout":  "geo-timeout",
		"geo.db_path":  "geo-db",
	})
}

// bindFlags maps viper keys to the persistent or local flags of cmd.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			f = cmd.Flags().Lookup(name)
		}
		cobra.CheckErr(vip.BindPFlag(key, f))
	}
}

func initConfig() {
	cobra.CheckErr(config.LoadDotEnv(".env"))
	cobra.CheckErr(config.ReadFile(vip, cfgFile))
}

// loadConfig resolves the configuration for a command. A positional argument
// overrides the configured log path; skip-private falls back to def when unset.
func loadConfig(cmd *cobra.Command, args []string, skipPrivateDefault bool) (config.Config, error) {
	cfg, err := config.Load(vip)
	if err != nil {
		return config.Config{}, err
	}

	if len(args) > 0 {
		cfg.LogPath = args[0]
	}

	if f := cmd.Flags().Lookup("skip-private"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("skip-private")
		cfg.SkipPrivate = &v
	}
	if cfg.SkipPrivate == nil {
		cfg.SkipPrivate = &skipPrivateDefault
	}

	return cfg, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func newParser(cfg config.Config, def parser.Grammar) (parser.Parser, error) {
	if cfg.Pattern != "" {
		return parser.NewRegexParser(cfg.Pattern)
	}
	if cfg.Grammar == "" {
		return parser.New(def), nil
	}
	g, err := parser.ParseGrammar(cfg.Grammar)
	if err != nil {
		return nil, err
	}
	return parser.New(g), nil
}

// newResolver returns the configured resolver and a function releasing it.
func newResolver(cfg config.Config) (geo.Resolver, func(), error) {
	switch cfg.Geo.Provider {
	case config.ProviderIP2Location:
		r, err := geo.OpenIP2Location(cfg.Geo.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case config.ProviderNone:
		return geo.Nop, func() {}, nil
	default:
		return geo.NewHTTPResolver(cfg.Geo.Endpoint, cfg.Geo.Timeout), func() {}, nil
	}
}
