// Package cli parses the command line of the fraggrow tool.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rmera/fraggrow/config"
	"github.com/rmera/fraggrow/internal/ctxlog"
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

// Subcommands.
const (
	Fragment = "fragment"
	Generate = "generate"
	Inspect  = "inspect"
)

// Command is a parsed command line.
type Command struct {
	Name       string
	Config     *config.Config
	ConfigPath string //empty if the defaults are used
	Inputs     []string
	Output     string //fragment: the .stf or .jsonl file
	Run        string //generate: name of the run in the database
	Workers    int
	LogFormat  string
	LogLevel   string
}

const usage = `
fraggrow - Molecular fragment sequencing and generation.

Usage:
  fraggrow fragment [options] XYZ_FILE...
    Turns molecules into training fragments, written to a .stf or .jsonl file.
  fraggrow generate [options]
    Grows molecules from an initial fragment.
  fraggrow inspect [options] STF_FILE...
    Prints a summary of fragment files.

Options:
`

// Parse processes command-line arguments. It returns the parsed command,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Command, bool, error) {
	slog.Debug("CLI parser started.")
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "--help" {
		fmt.Fprint(output, usage)
		return nil, true, nil
	}
	name := args[0]
	switch name {
	case Fragment, Generate, Inspect:
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown subcommand %q, use %q, %q or %q", name, Fragment, Generate, Inspect)}
	}
	flagSet := flag.NewFlagSet("fraggrow "+name, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the YAML configuration. By default, $"+config.EnvConfigPath+" or ./"+config.ConfigFileName+" are used if present.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	seedFlag := flagSet.Uint64("seed", 0, "Root random seed.")
	plotFlag := flagSet.String("plot", "", "File for a plot of the results (png, svg or pdf).")
	outFlag := flagSet.String("o", "", "Output: the fragment file for 'fragment', the XYZ directory for 'generate'.")
	workersFlag := flagSet.Int("workers", 4, "Molecules fragmented concurrently.")
	numFlag := flagSet.Int("n", 0, "Number of generation seeds.")
	maxAtomsFlag := flagSet.Int("max-atoms", 0, "Maximum number of atoms per generated molecule.")
	initFlag := flagSet.String("init", "", "Initial fragment: an element symbol or an XYZ file.")
	dbFlag := flagSet.String("db", "", "SQLite database for the generated molecules.")
	runFlag := flagSet.String("run", "", "Name of the generation run in the database.")
	predictorFlag := flagSet.String("predictor", "", "Command of an external predictor, speaking JSON lines on stdin and stdout.")
	stopFlag := flagSet.Float64("stop-probability", 0, "Stop probability of the random predictor.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	if _, ok := ctxlog.ParseLevel(*logLevelFlag); !ok {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *workersFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "workers must be at least 1"}
	}

	var cfg *config.Config
	var path string
	var err error
	if *configFlag != "" {
		cfg, path, err = config.LoadFromPath(*configFlag)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Configuration loaded.", "path", path)

	//flags given explicitly override the configuration.
	cmd := &Command{Name: name, Config: cfg, ConfigPath: path, Inputs: flagSet.Args(), Workers: *workersFlag,
		LogFormat: logFormat, LogLevel: strings.ToLower(*logLevelFlag), Output: *outFlag, Run: *runFlag}
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Generation.Seed = *seedFlag
		case "plot":
			cfg.Output.Plot = *plotFlag
		case "n":
			cfg.Generation.NumSeeds = *numFlag
		case "max-atoms":
			cfg.Generation.MaxAtoms = *maxAtomsFlag
		case "init":
			cfg.Generation.Init = *initFlag
		case "db":
			cfg.Output.DB = *dbFlag
		case "predictor":
			cfg.Generation.Predictor = strings.Fields(*predictorFlag)
		case "stop-probability":
			cfg.Generation.StopProbability = *stopFlag
		case "o":
			if name == Generate {
				cfg.Output.Dir = *outFlag
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	switch name {
	case Fragment:
		if len(cmd.Inputs) == 0 {
			return nil, false, &ExitError{Code: 2, Message: "fragment needs at least one XYZ file"}
		}
		if cmd.Output == "" {
			cmd.Output = "fragments.stf"
		}
	case Inspect:
		if len(cmd.Inputs) == 0 {
			return nil, false, &ExitError{Code: 2, Message: "inspect needs at least one fragment file"}
		}
	case Generate:
		if len(cmd.Inputs) > 0 {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("generate takes no arguments, got %v", cmd.Inputs)}
		}
	}
	slog.Debug("CLI parser finished successfully.", "command", name)
	return cmd, false, nil
}
