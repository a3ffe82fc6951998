package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/engine"
	"github.com/medsched/medsched/internal/repo"
)

// NewReceivedCommand creates the received command.
func NewReceivedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "received <uid>",
		Short: "Mark a prescription's dose as taken today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid uid %q: %w", args[0], err)
			}

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

			result := <-r.MarkReceivedToday(cmd.Context(), uid, engine.Today())
			if result.Err != nil {
				return fmt.Errorf("mark received: %w", result.Err)
			}
			if result.Rows == 0 {
				return fmt.Errorf("no prescription with uid %d", uid)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "marked %d received today\n", uid)
			return nil
		},
	}
}
