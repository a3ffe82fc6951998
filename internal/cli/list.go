package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/export"
	"github.com/medsched/medsched/internal/repo"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the active prescriptions",
		Long: `Print the currently active prescriptions in presentation
order: time term first, then record id.`,
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

			active, err := r.QueryActive(cmd.Context())
			if err != nil {
				return fmt.Errorf("query active: %w", err)
			}

			if len(active) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no active prescriptions")
				return nil
			}

			fmt.Fprint(cmd.OutOrStdout(), export.RenderText(active))
			return nil
		},
	}
}
