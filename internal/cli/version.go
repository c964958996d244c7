package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tszyrowski/mosync/pkg/mosync"
)

const modulePath = "github.com/tszyrowski/mosync"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mosync version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "mosync v%s\nmodule: %s\n", mosync.Version, modulePath)
			return nil
		},
	}
}
