package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/cfbkit/cfb"
)

// config is the resolved set of global flags. Every flag can also be set
// through a CFBCTL_* environment variable, e.g. CFBCTL_MAX_SECTORS.
type config struct {
	Verbose      bool   `mapstructure:"verbose"`
	Quiet        bool   `mapstructure:"quiet"`
	Output       string `mapstructure:"output" validate:"oneof=text json yaml"`
	LogFormat    string `mapstructure:"log-format" validate:"oneof=text json"`
	CacheSectors int    `mapstructure:"cache-sectors" validate:"min=0"`
	MaxSectors   int    `mapstructure:"max-sectors" validate:"min=0"`
}

var (
	v      = viper.New()
	cfg    config
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "cfbctl",
	Short: "Inspect and edit OLE2 compound files",
	Long: `cfbctl inspects and edits OLE2 compound document files (.xls, .doc,
.msg and friends). It lists storages and streams, extracts and replaces
stream contents, and dumps the BIFF records of workbook streams.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable verbose output and debug logging")
	pf.BoolP("quiet", "q", false, "Suppress all output except errors")
	pf.StringP("output", "o", "text", "Output format: text, json or yaml")
	pf.String("log-format", "text", "Log format: text or json")
	pf.Int("cache-sectors", 0, "Sector cache size for streamed access (0 = default)")
	pf.Int("max-sectors", 0, "Reject files with more sectors than this (0 = no limit)")

	v.SetEnvPrefix("CFBCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(pf); err != nil {
		panic(err)
	}
}

func loadConfig(*cobra.Command, []string) error {
	var c config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg = c

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, hopts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, hopts))
	}
	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openContainer opens path with the options resolved from flags.
func openContainer(path string) (*cfb.File, error) {
	printVerbose("Opening container: %s\n", path)
	f, err := cfb.Open(path, containerOptions()...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func containerOptions() []cfb.Option {
	return []cfb.Option{
		cfb.WithLogger(logger),
		cfb.WithCacheSectors(cfg.CacheSectors),
		cfb.WithMaxSectors(cfg.MaxSectors),
	}
}

// printInfo prints a message unless in quiet mode.
func printInfo(format string, args ...any) {
	if !cfg.Quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a message in verbose mode.
func printVerbose(format string, args ...any) {
	if cfg.Verbose && !cfg.Quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// structured reports whether output should be JSON or YAML.
func structured() bool { return cfg.Output == "json" || cfg.Output == "yaml" }

// printStructured writes v in the selected structured format.
func printStructured(v any) error {
	if cfg.Output == "yaml" {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize renders a byte count for humans.
func formatSize(n uint64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
