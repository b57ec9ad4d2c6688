package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/joshuapare/flistkit/flist"
	"github.com/joshuapare/flistkit/internal/logger"
	"github.com/joshuapare/flistkit/native/mem"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	noColor     bool
	optionsPath string
	pinConf     string
)

// stdout is swapped by tests.
var stdout io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "flistctl",
	Short: "Inspect, convert and exercise billing engine flists",
	Long: `flistctl reads flists in detail text, compact, XML or JSON form,
converts between them, compares them, and sends them through an in-process
engine to check opcode round trips.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureColor(os.Stdout)
		if verbose {
			_ = logger.Init(logger.Options{Enabled: true, Level: slog.LevelDebug, Writer: os.Stderr})
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&optionsPath, "options", "", "Client options YAML file")
	rootCmd.PersistentFlags().StringVar(&pinConf, "pin-conf", "", "pin.conf to read userid and loglevel from")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configureColor disables color unless w is a terminal.
func configureColor(w *os.File) {
	if noColor || !(isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())) {
		color.NoColor = true
	}
}

// openClient returns a connected client on a fresh in-process engine.
func openClient() (*flist.Client, *mem.Engine, error) {
	opts := flist.DefaultOptions()
	if optionsPath != "" {
		var err error
		if opts, err = flist.LoadOptions(optionsPath); err != nil {
			return nil, nil, err
		}
	}
	if pinConf != "" {
		opts.PinConf = pinConf
	}
	e := mem.New(&mem.Options{Names: opts.Catalog, Limits: &opts.Limits})
	c, err := flist.Open(&mem.Connector{Engine: e, Database: 1}, e, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open client: %w", err)
	}
	return c, e, nil
}

// loadFList opens a client and reads path, sniffing its format.
func loadFList(path string) (*flist.Client, *flist.FList, error) {
	c, _, err := openClient()
	if err != nil {
		return nil, nil, err
	}
	printVerbose("Loading flist: %s\n", path)
	f, err := c.LoadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to load %s: %w", path, err)
		return nil, nil, errors.Join(err, c.Close())
	}
	return c, f, nil
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
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
