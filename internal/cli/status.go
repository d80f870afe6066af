package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PoalNinh/poscore/internal/config"
	"github.com/PoalNinh/poscore/internal/refcache"
	"github.com/PoalNinh/poscore/internal/storage"
)

// NewStatusCommand creates the status command. It reads only the local
// database; no network calls are made.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local terminal state",
		Long: `Show the terminal's durable state: selected table, active orders,
offline queue depth and reference cache ages. Reads the local database
only.`,
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

			ctx := cmd.Context()

			selected, err := store.SelectedTable(ctx)
			if err != nil {
				return err
			}
			orders, err := store.ActiveOrders(ctx)
			if err != nil {
				return err
			}
			depth, err := store.UnprocessedCount(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if selected == "" {
				selected = "(none)"
			}
			fmt.Fprintf(out, "database:        %s\n", cfg.DatabasePath)
			fmt.Fprintf(out, "selected table:  %s\n", selected)
			fmt.Fprintf(out, "active orders:   %d\n", len(orders))
			fmt.Fprintf(out, "queue depth:     %d unprocessed\n", depth)

			for _, entity := range []string{refcache.EntityProducts, refcache.EntityTables} {
				_, fetchedAt, ok, err := store.CacheEntry(ctx, entity)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(out, "cache %-10s (none)\n", entity+":")
					continue
				}
				fmt.Fprintf(out, "cache %-10s fetched %s ago\n",
					entity+":", time.Since(fetchedAt).Round(time.Second))
			}
			return nil
		},
	}
}
