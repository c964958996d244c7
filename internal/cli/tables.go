package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tszyrowski/mosync/internal/store"
)

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of both stores",
		Args:  cobra.NoArgs,
		RunE:  runTables,
	}
}

type tablesOutput struct {
	Synced []string `json:"synced"`
	Source []string `json:"source"`
	Target []string `json:"target"`
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return withCode(exitUserError, err)
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

	var res tablesOutput
	res.Synced = cfg.Tables.Names()
	if res.Source, err = src.Tables(cmd.Context()); err != nil {
		return withCode(exitSysError, fmt.Errorf("list source tables: %w", err))
	}
	if res.Target, err = tgt.Tables(cmd.Context()); err != nil {
		return withCode(exitSysError, fmt.Errorf("list target tables: %w", err))
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return writeJSON(out, res)
	}
	printList(out, "Synchronized", res.Synced)
	printList(out, "Local store", res.Source)
	printList(out, "Central store ("+tgt.String()+")", res.Target)
	return nil
}

func printList(w io.Writer, title string, names []string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}
