package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/repo"
	"github.com/medsched/medsched/internal/store"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Name        string
	Description string
	Start       string
	End         string
	Term        int
	Doctor      string
	Location    string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a prescription",
		Long: `Add a prescription to the schedule.

The time term is one of the nine seeded period-of-day slots; list
them with:

  medsched query time_terms

Example:
  medsched add --name Aspirin --start 2026-08-01 --end 2026-09-30 --term 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "short name (required)")
	cmd.Flags().StringVar(&opts.Description, "desc", "", "free-form description")
	cmd.Flags().StringVar(&opts.Start, "start", "", "first scheduled day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "last scheduled day, YYYY-MM-DD (required)")
	cmd.Flags().IntVar(&opts.Term, "term", 0, "time term id, 1-9 (required)")
	cmd.Flags().StringVar(&opts.Doctor, "doctor", "", "prescribing doctor")
	cmd.Flags().StringVar(&opts.Location, "location", "", "doctor's location")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("term")

	return cmd
}

func runAdd(cmd *cobra.Command, opts *AddOptions) error {
	start, err := parseDay(opts.Start)
	if err != nil {
		return err
	}
	end, err := parseDay(opts.End)
	if err != nil {
		return err
	}

	cfg, log, err := loadRuntime(opts.RootOptions)
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

	result := <-r.Insert(cmd.Context(), store.PrescriptionDrug{
		ShortName:      opts.Name,
		Description:    opts.Description,
		StartDateEpoch: start,
		EndDateEpoch:   end,
		TimeTermID:     opts.Term,
		DoctorName:     opts.Doctor,
		DoctorLocation: opts.Location,
	})
	if result.Err != nil {
		return fmt.Errorf("add prescription: %w", result.Err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added prescription %d\n", result.UID)
	return nil
}
