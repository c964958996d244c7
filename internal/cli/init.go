package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tszyrowski/mosync/internal/config"
	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/internal/syncer"
	"github.com/tszyrowski/mosync/pkg/types"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and the watermark table",
		Long: "Create the configuration directory with a default config.yaml if missing.\n" +
			"When the configuration is complete, also create the watermark table in\n" +
			"the central database.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	opts, err := configOptions()
	if err != nil {
		return withCode(exitSysError, err)
	}
	out := cmd.OutOrStdout()

	if opts.ConfigFile == "" {
		path, err := config.WriteDefault(opts.ConfigDir)
		if err != nil {
			return withCode(exitSysError, err)
		}
		fmt.Fprintf(out, "Configuration: %s\n", path)
	}

	cfg, err := config.Load(opts)
	if types.IsConfigurationError(err) {
		fmt.Fprintf(out, "Configuration incomplete (%s).\n", err)
		fmt.Fprintf(out, "Set the missing values in the config file or as %s_ variables, then run init again.\n", config.EnvPrefix)
		return nil
	}
	if err != nil {
		return withCode(exitUserError, err)
	}

	logger, closeLog, err := newLogger(cmd, cfg.Log)
	if err != nil {
		return withCode(exitSysError, err)
	}
	defer closeLog()

	tgt, err := store.OpenTarget(cmd.Context(), cfg.Target, cfg.Connect, logger)
	if err != nil {
		return withCode(exitSysError, err)
	}
	defer tgt.Close()

	if err := syncer.NewWatermark(tgt, cfg.Watermark).Ensure(cmd.Context()); err != nil {
		return withCode(exitSysError, err)
	}
	fmt.Fprintf(out, "Watermark table %s ready\n", tgt.Qualify(cfg.Watermark.Table))
	return nil
}
