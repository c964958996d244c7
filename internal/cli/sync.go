package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tszyrowski/mosync/pkg/mosync"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Messages shown after a sync run.
const (
	msgSyncSuccess = "DB Sync completed successfully!"
	msgSyncFailed  = "Sync failed with error:\n%s"
	msgSyncTimeout = "Sync process timed out after %d seconds."
)

func newSyncCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one bounded synchronization",
		Long: "Copy every row changed since the last successful sync into the central\n" +
			"database. The run is abandoned after the configured timeout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "override the configured run timeout")
	return cmd
}

func runSync(cmd *cobra.Command, timeout time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return withCode(exitUserError, err)
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}

	logger, closeLog, err := newLogger(cmd, cfg.Log)
	if err != nil {
		return withCode(exitSysError, err)
	}
	defer closeLog()

	res := mosync.Sync(cmd.Context(), cfg, logger)

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		if err := writeJSON(out, res); err != nil {
			return withCode(exitSysError, err)
		}
	} else {
		fmt.Fprintln(out, syncMessage(res, cfg.Timeout))
	}

	switch res.Outcome {
	case types.Success:
		return nil
	case types.Timeout:
		return reported(exitTimeout, res.Err)
	default:
		if types.IsConfigurationError(res.Err) {
			return reported(exitUserError, res.Err)
		}
		return reported(exitSysError, res.Err)
	}
}

// syncMessage renders a result the way the desktop client shows it.
func syncMessage(res types.Result, timeout time.Duration) string {
	switch res.Outcome {
	case types.Success:
		return msgSyncSuccess
	case types.Timeout:
		return fmt.Sprintf(msgSyncTimeout, int(timeout.Seconds()))
	default:
		return fmt.Sprintf(msgSyncFailed, res.Cause)
	}
}
