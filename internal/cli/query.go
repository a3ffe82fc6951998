package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/facade"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Filter string
	Order  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <address>",
		Short: "Query records through the external surface",
		Long: `Query records by address, the same way an external caller
would. Supported addresses:

  prescriptions           prescriptions/{uid}
  time_terms              time_terms/{id}

Example:
  medsched query prescriptions --filter "isActive = 1" --order "uid ASC"
  medsched query time_terms --order "sortOrder ASC"
  medsched query prescriptions/3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "boolean filter expression")
	cmd.Flags().StringVar(&opts.Order, "order", "", "sort expression")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, address string) error {
	cfg, log, err := loadRuntime(opts.RootOptions)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	fac := facade.New(st, log)
	rows, err := fac.Query(cmd.Context(), address, opts.Filter, nil, opts.Order)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no rows")
		return nil
	}

	for _, row := range rows {
		fmt.Fprintln(cmd.OutOrStdout(), formatRow(row))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d row(s)\n", len(rows))
	return nil
}

// formatRow renders one result row with its columns in stable order.
func formatRow(row facade.Row) string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, len(cols))
	for i, col := range cols {
		value := row[col]
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		if value == nil {
			value = "-"
		}
		parts[i] = fmt.Sprintf("%s=%v", col, value)
	}
	return strings.Join(parts, " ")
}
