package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/atikulmunna/geotail/internal/analyzer"
	"github.com/atikulmunna/geotail/internal/geo"
	"github.com/atikulmunna/geotail/internal/parser"
	"github.com/atikulmunna/geotail/internal/tailer"
)

// LogPathEnv is the environment variable naming the access log.
const LogPathEnv = "NGINX_LOG_PATH"

// ErrNoLogPath is returned when no log path is configured.
var ErrNoLogPath = errors.New("no log path configured: pass one as argument, use --log-path or set " + LogPathEnv)

// Config is the complete runtime configuration. It is intended to be mapped by viper.
type Config struct {
	LogPath      string        `mapstructure:"log_path"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	Strategy     string        `mapstructure:"strategy" validate:"oneof=offset rescan"`
	FromEnd      bool          `mapstructure:"from_end"`
	Grammar      string        `mapstructure:"grammar" validate:"omitempty,grammar"`
	Pattern      string        `mapstructure:"pattern"`
	Top          int           `mapstructure:"top" validate:"gt=0"`
	Output       string        `mapstructure:"output" validate:"oneof=text json"`
	Listen       string        `mapstructure:"listen"`
	LogLevel     string        `mapstructure:"log_level"`

	// SkipPrivate is nil when not configured, leaving the choice to the command.
	SkipPrivate *bool `mapstructure:"skip_private"`

	Geo Geo `mapstructure:"geo"`
}

// Geo configures the geolocation provider.
type Geo struct {
	Provider string        `mapstructure:"provider" validate:"oneof=ip-api ip2location none"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	DBPath   string        `mapstructure:"db_path" validate:"required_if=Provider ip2location"`
}

// Geo providers.
const (
	ProviderIPAPI       = "ip-api"
	ProviderIP2Location = "ip2location"
	ProviderNone        = "none"
)

// DefaultViper returns a new viper instance with all default values from
// Config set and environment lookups enabled (GEOTAIL_* and NGINX_LOG_PATH).
func DefaultViper() *viper.Viper {
	vip := viper.New()

	vip.SetDefault("log_path", "")
	vip.SetDefault("poll_interval", tailer.DefaultInterval)
	vip.SetDefault("strategy", string(tailer.StrategyOffset))
	vip.SetDefault("from_end", false)
	vip.SetDefault("grammar", "")
	vip.SetDefault("pattern", "")
	vip.SetDefault("top", analyzer.DefaultTop)
	vip.SetDefault("output", "text")
	vip.SetDefault("listen", "")
	vip.SetDefault("log_level", "info")

	vip.SetDefault("geo.provider", ProviderIPAPI)
	vip.SetDefault("geo.endpoint", geo.DefaultEndpoint)
	vip.SetDefault("geo.timeout", geo.DefaultTimeout)
	vip.SetDefault("geo.db_path", "")

	vip.SetEnvPrefix("geotail")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	_ = vip.BindEnv("log_path", "GEOTAIL_LOG_PATH", LogPathEnv)
	_ = vip.BindEnv("skip_private")

	return vip
}

// ReadFile merges the config file at path, or searches $HOME and the working
// directory for .geotail.yaml when path is empty. A missing default file is not an error.
func ReadFile(vip *viper.Viper, path string) error {
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			vip.AddConfigPath(home)
		}
		vip.AddConfigPath(".")
		vip.SetConfigName(".geotail")
		vip.SetConfigType("yaml")
	}

	err := vip.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// LoadDotEnv exports the variables of a dotenv file into the process
// environment. Variables already set are left untouched; a missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for key, val := range env.AllSettings() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}

// Load unmarshals and validates the configuration held by vip.
func Load(vip *viper.Viper) (Config, error) {
	var c Config
	if err := vip.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

var validate = newValidator()

// newValidator reports fields by their config key and knows the parser grammars.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	err := v.RegisterValidation("grammar", func(fl validator.FieldLevel) bool {
		_, err := parser.ParseGrammar(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(err)
	}

	return v
}

// Validate checks enumerated values and ranges. Every failing key is reported.
func (c Config) Validate() error {
	err := validate.Struct(c)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "oneof":
			errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %s)", key, fe.Value(), fe.Param()))
		case "gt":
			errs = append(errs, fmt.Errorf("%s: must be positive, got %v", key, fe.Value()))
		case "required_if":
			errs = append(errs, fmt.Errorf("%s: required for the %s provider", key, ProviderIP2Location))
		case "grammar":
			errs = append(errs, fmt.Errorf("%s: unknown grammar %q (want combined or loose)", key, fe.Value()))
		default:
			errs = append(errs, fmt.Errorf("%s: failed %s check", key, fe.Tag()))
		}
	}
	return errors.Join(errs...)
}

// RequireLogPath returns the log path or ErrNoLogPath.
func (c Config) RequireLogPath() (string, error) {
	if strings.TrimSpace(c.LogPath) == "" {
		return "", ErrNoLogPath
	}
	return c.LogPath, nil
}

// SkipPrivateOr returns the configured private-address short circuit, or def when unset.
func (c Config) SkipPrivateOr(def bool) bool {
	if c.SkipPrivate == nil {
		return def
	}
	return *c.SkipPrivate
}
