package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jlif/jlif/internal/buffer"
	"github.com/jlif/jlif/internal/config"
	"github.com/jlif/jlif/internal/filter"
	"github.com/jlif/jlif/internal/input"
	"github.com/jlif/jlif/internal/logging"
	"github.com/jlif/jlif/internal/metrics"
	"github.com/jlif/jlif/internal/processor"
	"github.com/jlif/jlif/internal/render"
	"github.com/jlif/jlif/internal/shutdown"
)

var version = "0.1.0"

type rootFlags struct {
	configFile    string
	maxLines      int
	pattern       string
	caseSensitive bool
	jsonOnly      bool
	invertMatch   bool
	compact       bool
	noColor       bool
	follow        bool
	rateLimit     float64
	logLevel      string
	logFormat     string
	metricsAddr   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "jlif [file]",
		Short: "Format JSON embedded in streaming text",
		Long: `jlif scans a text stream for JSON values, possibly spanning multiple
lines, and re-emits the stream with JSON pretty-printed (or compacted)
while other lines pass through unchanged. Records can be filtered with a
regular expression.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "path to configuration file")
	f.IntVar(&flags.maxLines, "max-lines", config.DefaultMaxLines, "maximum lines to buffer for multi-line JSON parsing")
	f.StringVarP(&flags.pattern, "filter", "f", "", "regex pattern for filtering output")
	f.BoolVarP(&flags.caseSensitive, "case-sensitive", "s", false, "enable case-sensitive filtering")
	f.BoolVarP(&flags.jsonOnly, "json-only", "j", false, "show only JSON content, suppress non-JSON pass-through")
	f.BoolVarP(&flags.invertMatch, "invert-match", "v", false, "output records that do NOT match the filter")
	f.BoolVarP(&flags.compact, "compact", "c", false, "output JSON in compact format instead of pretty-printed")
	f.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	f.BoolVar(&flags.follow, "follow", false, "keep reading as the input file grows")
	f.Float64Var(&flags.rateLimit, "rate-limit", 0, "maximum input lines per second in follow mode (0 = unlimited)")
	f.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "diagnostic log level (debug, info, warn, error)")
	f.StringVar(&flags.logFormat, "log-format", config.DefaultLogFormat, "diagnostic log format (console, json)")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	return cmd
}

func run(cmd *cobra.Command, args []string, flags *rootFlags) error {
	cfg, err := loadConfig(cmd.Flags(), args, flags)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.SetGlobal(logger)

	// All configuration errors surface here, before any line is processed.
	filt, err := filter.New(filter.Config{
		Pattern:       cfg.Filter.Pattern,
		CaseSensitive: cfg.Filter.CaseSensitive,
		InvertMatch:   cfg.Filter.InvertMatch,
		JSONOnly:      cfg.Filter.JSONOnly,
	})
	if err != nil {
		return err
	}

	buf, err := buffer.New(cfg.Buffer.MaxLines)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	color := !cfg.Output.NoColor && isatty.IsTerminal(os.Stdout.Fd())
	if color {
		out = colorable.NewColorableStdout()
	}
	renderer := render.New(out, render.Options{
		Compact: cfg.Output.Compact,
		Color:   color,
		Indent:  strings.Repeat(" ", cfg.Output.Indent),
	})

	var collector *metrics.Collector
	var metricsSrv *http.Server
	if cfg.Metrics.Address != "" {
		collector = metrics.NewCollector()
		metricsSrv = collector.Serve(cfg.Metrics.Address, logger)
	}

	src, err := newSource(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shut := shutdown.New(logger, 0)
	shut.Register("pipeline", func(context.Context) error {
		cancel()
		return nil
	})
	shut.Register("input", func(context.Context) error {
		src.Stop()
		return nil
	})
	if metricsSrv != nil {
		shut.Register("metrics", metricsSrv.Shutdown)
	}
	stopNotify := shut.Notify()
	defer stopNotify()

	if err := src.Start(); err != nil {
		return err
	}

	proc := processor.New(buf, filt, renderer, collector, logger)
	err = proc.Run(ctx, src.Lines())
	shut.Shutdown()

	// Cancellation means a clean signal-driven exit, not a failure.
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadConfig merges the optional config file, defaults, the positional file
// argument and any explicitly set flags, in increasing precedence.
func loadConfig(flagSet *pflag.FlagSet, args []string, flags *rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(args) == 1 {
		cfg.Input.Path = args[0]
	}

	if flagSet.Changed("max-lines") {
		cfg.Buffer.MaxLines = flags.maxLines
	}
	if flagSet.Changed("filter") {
		cfg.Filter.Pattern = flags.pattern
	}
	if flagSet.Changed("case-sensitive") {
		cfg.Filter.CaseSensitive = flags.caseSensitive
	}
	if flagSet.Changed("json-only") {
		cfg.Filter.JSONOnly = flags.jsonOnly
	}
	if flagSet.Changed("invert-match") {
		cfg.Filter.InvertMatch = flags.invertMatch
	}
	if flagSet.Changed("compact") {
		cfg.Output.Compact = flags.compact
	}
	if flagSet.Changed("no-color") {
		cfg.Output.NoColor = flags.noColor
	}
	if flagSet.Changed("follow") {
		cfg.Input.Follow = flags.follow
	}
	if flagSet.Changed("rate-limit") {
		cfg.Input.RateLimit = flags.rateLimit
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Logging.Format = flags.logFormat
	}
	if flagSet.Changed("metrics-addr") {
		cfg.Metrics.Address = flags.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSource builds the line source the configuration asks for.
func newSource(cfg *config.Config, logger *logging.Logger) (input.Source, error) {
	if cfg.Input.Follow {
		return input.NewFollowSource(cfg.Input.Path, cfg.Input.RateLimit, logger)
	}
	if cfg.Input.Path != "" {
		file, err := os.Open(cfg.Input.Path)
		if err != nil {
			return nil, err
		}
		return input.NewReaderSource(file, logger), nil
	}
	return input.NewReaderSource(os.Stdin, logger), nil
}
