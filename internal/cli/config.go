package cli

import (
	"github.com/spf13/cobra"

	"github.com/tszyrowski/mosync/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after defaults, files and environment are layered.\nThe target password is masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := configOptions()
			if err != nil {
				return withCode(exitSysError, err)
			}
			cfg, err := config.Resolve(opts)
			if err != nil {
				return withCode(exitUserError, err)
			}
			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := config.Dump(cfg)
			if err != nil {
				return withCode(exitSysError, err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
