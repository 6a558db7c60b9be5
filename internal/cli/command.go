package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"qcmeta/internal/config"
	"qcmeta/internal/stages"
)

// Logger returns the stderr logger of a command, prefixed "<name>: ".
func Logger(w io.Writer, name string) *log.Logger {
	return log.New(w, name+": ", log.LstdFlags)
}

// Common are the flags every stage command accepts.
type Common struct {
	DataDir string
	Metrics MetricsOptions
}

func (c *Common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", config.DefaultDataDir, "data directory that default paths are relative to")
	c.Metrics.Register(fs)
}

// Path returns explicit unchanged, or def resolved against the data directory.
func (c *Common) Path(explicit, def string) string {
	if explicit != "" {
		return explicit
	}
	return config.ResolvePath(c.DataDir, def)
}

// Action is what a stage command does once its flags are parsed.
type Action struct {
	// Check validates the flag values before any side effect. Optional.
	Check func() error
	// Run executes the stage. Output meant for the user goes to stdout.
	Run func(ctx context.Context, r *stages.Runner, stdout io.Writer) error
}

// Command is one stage binary.
type Command struct {
	Name  string
	Usage string // appended to "usage: <name> "

	// Flags registers the command flags and returns the action to run once
	// they are parsed.
	Flags func(fs *flag.FlagSet, c *Common) Action
}

// Deps are the process seams of a command.
type Deps struct {
	InitMetrics func(ctx context.Context, jobName string, m MetricsOptions) (func(), error)
	NewRunner   func(l stages.Logger) *stages.Runner
}

// DefaultDeps uses the real metrics backends and file system.
func DefaultDeps() Deps {
	return Deps{InitMetrics: InitMetrics, NewRunner: stages.NewRunner}
}

// Main parses args and runs the command, returning the process exit code.
func (cmd Command) Main(ctx context.Context, args []string, stdout, stderr io.Writer, deps Deps) int {
	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common Common
	common.register(fs)
	action := cmd.Flags(fs, &common)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "usage: %s %s\n", cmd.Name, cmd.Usage)
		return 2
	}
	if action.Check != nil {
		if err := action.Check(); err != nil {
			fmt.Fprintf(stderr, "usage: %s %s\n%v\n", cmd.Name, cmd.Usage, err)
			return 2
		}
	}

	cleanup, err := deps.InitMetrics(ctx, cmd.Name, common.Metrics)
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	logger := Logger(stderr, cmd.Name)
	if err := action.Run(ctx, deps.NewRunner(logger), stdout); err != nil {
		logger.Printf("failed: %v", err)
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "ok")
	return 0
}

// ReportSummary prints the one-line confirmation of a stage.
func ReportSummary(w io.Writer, s stages.Summary) {
	fmt.Fprintf(w, "%s: wrote %d rows and %d columns to %s\n", s.Stage, s.Rows, s.Columns, s.Path)
}

// Required reports an unset flag.
func Required(flagName, value string) error {
	if value == "" {
		return fmt.Errorf("-%s is required", flagName)
	}
	return nil
}
