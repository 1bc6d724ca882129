package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/internal/config"
	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	noColor bool
	logDir  string
	profile string
)

// Command output goes through these so tests can capture it.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Exercise and inspect the heapkit allocator",
	Long: `heapctl drives the heapkit block allocator over a simulated memory
region. It runs scripted allocation workloads, prints effective layouts, and
shows the profile a run would use.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write debug logs to a dated file in this directory")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "TOML profile describing the region")
}

func execute() int {
	defer func() { _ = logger.Close() }()
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		return 1
	}
	return 0
}

// initLogging enables file logging when --log-dir is given, otherwise
// honours the profile's log section.
func initLogging(cmd *cobra.Command, _ []string) error {
	opts := logger.Options{}
	if cfg, err := loadProfile(); err == nil {
		opts = cfg.LoggerOptions()
	}
	if logDir != "" {
		opts.Enabled = true
		opts.LogDir = logDir
		opts.Level = logger.ParseLevel("debug")
	}
	if err := logger.Init(opts); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logger.Debug("heapctl start", "cmd", cmd.CommandPath())
	return nil
}

// loadProfile returns the profile named by --profile, or the defaults.
func loadProfile() (config.Config, error) {
	if profile == "" {
		return config.Default(), nil
	}
	return config.Load(profile)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// useColor reports whether output may be styled.
func useColor() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
