package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/PoalNinh/poscore/internal/config"
	"github.com/PoalNinh/poscore/internal/terminal"
)

// NewFlushCommand creates the flush command: a manual reconciliation
// cycle against the remote store.
func NewFlushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Reconcile the offline transaction queue now",
		Long: `Drain unprocessed offline transactions against the remote store in
enqueue order, then purge processed transactions past the retention
window. Transactions that fail to deliver stay queued for the next run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.Config)
			if err != nil {
				return err
			}

			term, err := terminal.New(cfg,
				terminal.WithLogger(slog.Default()),
				terminal.WithInitialOnline(true),
			)
			if err != nil {
				return err
			}
			defer term.Close()

			ctx := cmd.Context()

			before, err := term.Queue().Depth(ctx)
			if err != nil {
				return err
			}
			if err := term.FlushNow(ctx); err != nil {
				return err
			}
			after, err := term.Queue().Depth(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d transaction(s), %d remaining\n",
				before-after, after)
			return nil
		},
	}
}
