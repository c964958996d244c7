package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tszyrowski/mosync/pkg/mosync"
	"github.com/tszyrowski/mosync/pkg/types"
)

func newVerifyCmd() *cobra.Command {
	var orderByKey bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare every synchronized table between the two stores",
		Long: "Read each configured table from the local and the central store and report\n" +
			"whether their rows match. Rows are compared in stored order unless\n" +
			"--order-by-key is given. Exits 1 when any table differs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, orderByKey)
		},
	}
	cmd.Flags().BoolVar(&orderByKey, "order-by-key", false, "compare rows ordered by primary key")
	return cmd
}

func runVerify(cmd *cobra.Command, orderByKey bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return withCode(exitUserError, err)
	}
	logger, closeLog, err := newLogger(cmd, cfg.Log)
	if err != nil {
		return withCode(exitSysError, err)
	}
	defer closeLog()

	got, err := mosync.Verify(cmd.Context(), cfg, mosync.VerifyOptions{OrderByKey: orderByKey}, logger)
	if err != nil {
		if types.IsConfigurationError(err) {
			return withCode(exitUserError, err)
		}
		return withCode(exitSysError, err)
	}

	ordered := make([]types.Verification, 0, len(cfg.Tables))
	mismatches := 0
	for _, name := range cfg.Tables.Names() {
		v := got[name]
		if v.Status == types.Mismatch {
			mismatches++
		}
		ordered = append(ordered, v)
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		if err := writeJSON(out, ordered); err != nil {
			return withCode(exitSysError, err)
		}
	} else {
		for _, v := range ordered {
			if v.Status == types.Match {
				fmt.Fprintf(out, "%s: data matches\n", v.Table)
				continue
			}
			fmt.Fprintf(out, "%s: data mismatch\n", v.Table)
			fmt.Fprintf(out, "  local (%d rows):   %v\n", len(v.SourceRows), v.SourceRows)
			fmt.Fprintf(out, "  central (%d rows): %v\n", len(v.TargetRows), v.TargetRows)
		}
	}

	if mismatches > 0 {
		return reported(exitUserError, fmt.Errorf("%d of %d tables differ", mismatches, len(ordered)))
	}
	return nil
}
