package cli

import (
	"github.com/spf13/cobra"

	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/internal/syncer"
	"github.com/tszyrowski/mosync/internal/trigger"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP sync trigger",
		Long: "Listen for POST requests on the trigger path and run one bounded sync per\n" +
			"request. Only one sync runs at a time; overlapping requests fail.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides trigger.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return withCode(exitUserError, err)
	}
	if addr != "" {
		cfg.Trigger.Addr = addr
	}

	logger, closeLog, err := newLogger(cmd, cfg.Log)
	if err != nil {
		return withCode(exitSysError, err)
	}
	defer closeLog()

	p, err := store.NewProvider(cfg, logger)
	if err != nil {
		return withCode(exitUserError, err)
	}
	src, tgt, err := p.OpenBoth(cmd.Context())
	if err != nil {
		return withCode(exitSysError, err)
	}
	defer src.Close()
	defer tgt.Close()

	engine := syncer.NewEngine(src, tgt, p.Config(), logger)
	if err := trigger.Serve(cmd.Context(), p.Config().Trigger, engine, logger); err != nil {
		return withCode(exitSysError, err)
	}
	return nil
}
