package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PoalNinh/poscore/internal/config"
	"github.com/PoalNinh/poscore/internal/storage"
)

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the offline transaction queue",
	}
	cmd.AddCommand(newQueueListCommand(rootOpts))
	return cmd
}

func newQueueListCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List queued transactions in enqueue order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.Config)
			if err != nil {
				return err
			}

			store, err := storage.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			txs, err := store.Transactions(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, tx := range txs {
				if tx.Processed && !all {
					continue
				}
				state := "pending"
				switch {
				case tx.Processed:
					state = "processed"
				case tx.HeaderSent:
					state = "header-sent"
				}
				fmt.Fprintf(out, "%4d  %-11s  %s  table=%s  total=%d  enqueued=%s\n",
					tx.Seq, state, tx.Invoice.ID, tx.Invoice.TableID,
					tx.Invoice.Subtotal+tx.Invoice.VAT-tx.Invoice.Discount,
					tx.EnqueuedAt.Format("2006-01-02 15:04:05"))
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, "queue is empty")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include processed transactions")
	return cmd
}
