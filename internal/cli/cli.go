package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/vk/graphunit/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stderrIsTerminal decides the default log format. Tests replace it.
var stderrIsTerminal = func() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// inputList collects repeated -input flags.
type inputList []string

func (l *inputList) String() string { return strings.Join(*l, ", ") }

func (l *inputList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("graphunit", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
graphunit - Build, run and persist graph-generated units.

Usage:
  graphunit [options] MODEL_PATH
  graphunit [options] -restore BUNDLE

Arguments:
  MODEL_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaultFormat := "json"
	if stderrIsTerminal() {
		defaultFormat = "text"
	}

	var inputs inputList
	flagSet.Var(&inputs, "input", "Input for forward as name=expression. Repeatable.")
	logFormatFlag := flagSet.String("log-format", defaultFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	printCodeFlag := flagSet.Bool("print-code", false, "Print the generated forward source.")
	describeFlag := flagSet.Bool("describe", false, "Print a YAML summary of the unit.")
	saveFlag := flagSet.String("save", "", "Write the unit's bundle to this file.")
	restoreFlag := flagSet.String("restore", "", "Restore the unit from this bundle instead of loading a model.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := flagSet.Arg(0)
	if path == "" && *restoreFlag == "" {
		slog.Debug("No model path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	if err := app.ValidLogLevel(logLevel); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ModelPath:   path,
		RestorePath: *restoreFlag,
		SavePath:    *saveFlag,
		Inputs:      inputs,
		PrintCode:   *printCodeFlag,
		Describe:    *describeFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
