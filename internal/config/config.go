// Package config loads the analyzer configuration from defaults, an optional
// YAML file, BOOKANALYZER_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Aidin1998/bookanalyzer/internal/orderbook"
)

const envPrefix = "BOOKANALYZER"

// Config is the full run configuration.
type Config struct {
	Target int64  `mapstructure:"target" validate:"gt=0"`
	Input  string `mapstructure:"input" validate:"required"`
	Output string `mapstructure:"output" validate:"required"`

	Book struct {
		ReductionMode string `mapstructure:"reduction_mode" validate:"oneof=clamped requested"`
		// Mode is ReductionMode parsed once validation passed.
		Mode orderbook.ReductionMode `mapstructure:"-"`
	} `mapstructure:"book"`

	Replay struct {
		FailOnMalformed bool   `mapstructure:"fail_on_malformed"`
		BufferedOutput  bool   `mapstructure:"buffered_output"`
		SummaryPath     string `mapstructure:"summary_path"`
	} `mapstructure:"replay"`

	Logging struct {
		Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"format" validate:"oneof=json console"`
	} `mapstructure:"logging"`

	Metrics struct {
		Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	} `mapstructure:"metrics"`

	Kafka struct {
		Enabled      bool          `mapstructure:"enabled"`
		Brokers      []string      `mapstructure:"brokers" validate:"required_if=Enabled true,dive,hostname_port"`
		Topic        string        `mapstructure:"topic" validate:"required_if=Enabled true"`
		BatchTimeout time.Duration `mapstructure:"batch_timeout" validate:"gte=0"`
	} `mapstructure:"kafka"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target", 200)
	v.SetDefault("input", "book_analyzer.in")
	v.SetDefault("output", "-")
	v.SetDefault("book.reduction_mode", "clamped")
	v.SetDefault("replay.fail_on_malformed", false)
	v.SetDefault("replay.buffered_output", false)
	v.SetDefault("replay.summary_path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "book.analyzer.quotes")
	v.SetDefault("kafka.batch_timeout", 10*time.Millisecond)
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"target":            "target",
	"input":             "input",
	"output":            "output",
	"reduction-mode":    "book.reduction_mode",
	"fail-on-malformed": "replay.fail_on_malformed",
	"buffered-output":   "replay.buffered_output",
	"summary":           "replay.summary_path",
	"log-level":         "logging.level",
	"log-format":        "logging.format",
	"metrics-addr":      "metrics.addr",
	"kafka":             "kafka.enabled",
	"kafka-brokers":     "kafka.brokers",
	"kafka-topic":       "kafka.topic",
}

// NewFlagSet returns the command-line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "YAML config file")
	fs.Int64P("target", "t", 200, "target size")
	fs.StringP("input", "i", "book_analyzer.in", "input file, - for stdin")
	fs.StringP("output", "o", "-", "output file, - for stdout")
	fs.String("reduction-mode", "clamped", "reduction accounting: clamped or requested")
	fs.Bool("fail-on-malformed", false, "exit non-zero when a record header cannot be parsed")
	fs.Bool("buffered-output", false, "buffer output until the end of the run")
	fs.String("summary", "", "write a YAML run summary to this path")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "json", "log format: json or console")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.Bool("kafka", false, "also publish quotes to Kafka")
	fs.StringSlice("kafka-brokers", []string{"localhost:9092"}, "Kafka brokers")
	fs.String("kafka-topic", "book.analyzer.quotes", "Kafka topic")
	return fs
}

// LoadDotEnv loads .env from the working directory when it exists.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load parses args with fs and resolves the configuration. A single
// positional argument is taken as the target size. pflag.ErrHelp is returned
// unwrapped when help was requested.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	switch fs.NArg() {
	case 0:
	case 1:
		target, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", fs.Arg(0), err)
		}
		v.Set("target", target)
	default:
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Book.ReductionMode = strings.ToLower(cfg.Book.ReductionMode)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	mode, err := orderbook.ParseReductionMode(cfg.Book.ReductionMode)
	if err != nil {
		return nil, err
	}
	cfg.Book.Mode = mode
	return &cfg, nil
}
