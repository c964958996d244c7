// Package cli implements the mosync command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tszyrowski/mosync/internal/config"
	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/internal/paths"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
	exitTimeout   = 3
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configFile string
	configDir  string
	envFile    string
	verbose    bool
	jsonMode   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "mosync" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mosync",
		Short: "Incremental sync from the local inspection store to the central database",
		Long: "mosync copies rows changed since the last successful run from the local\n" +
			"SQLite store into the central database, keyed on each table's primary key.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default: <config-dir>/config.yaml)")
	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $MOSYNC_CONFIG_DIR or the platform config dir)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file (default: <config-dir>/.env)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newSyncCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newTablesCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || !ee.reported {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

// exitError carries a specific exit code out of a command. reported is set
// when the command already told the user what went wrong.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func reported(code int, err error) error {
	return &exitError{code: code, err: err, reported: true}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	var ee *exitError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ee):
		return ee.code
	case types.IsConnectionError(err):
		return exitSysError
	default:
		return exitUserError
	}
}

// configOptions resolves the files config.Load reads.
func configOptions() (config.Options, error) {
	dir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return config.Options{}, fmt.Errorf("resolve config dir: %w", err)
	}
	return config.Options{ConfigFile: flags.configFile, ConfigDir: dir, EnvFile: flags.envFile}, nil
}

// loadConfig loads and validates the configuration.
func loadConfig() (types.Config, error) {
	opts, err := configOptions()
	if err != nil {
		return types.Config{}, err
	}
	return config.Load(opts)
}

// newLogger builds the command logger from the config and global flags. The
// returned close function releases the log file, if any.
func newLogger(cmd *cobra.Command, cfg types.LogConfig) (*slog.Logger, func(), error) {
	level := logging.ParseLevel(cfg.Level)
	if flags.verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = cmd.ErrOrStderr()
	closeFn := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closeFn = func() { f.Close() }
	}

	logger := logging.New(logging.Options{
		Level:  level,
		Output: out,
		JSON:   cfg.JSON || flags.jsonMode,
	})
	return logger, closeFn, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
