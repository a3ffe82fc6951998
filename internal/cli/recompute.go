package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/engine"
	"github.com/medsched/medsched/internal/repo"
)

// NewRecomputeCommand creates the recompute command.
func NewRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Run one recompute pass and exit",
		Long: `Run one recompute pass against the record store.

Every record's isActive and hasReceivedToday flags are settled for the
current day in a single atomic update. Useful after restoring a
database or changing the system date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(rootOpts)
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			r := repo.New(st, log)
			defer r.Close()

			today := engine.Today()
			if err := r.RecomputePass(cmd.Context(), today); err != nil {
				return fmt.Errorf("recompute pass: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recompute complete for %s\n", engine.FormatEpochDay(today))
			return nil
		},
	}
}
