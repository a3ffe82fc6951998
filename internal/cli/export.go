package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/export"
	"github.com/medsched/medsched/internal/repo"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Format string
	Dir    string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the active prescriptions to a file",
		Long: `Export the currently active prescriptions as a timestamped
document in the downloads directory.

Example:
  medsched export --format html
  medsched export --format txt --dir /tmp/exports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "txt", "export format (html|txt)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "output directory (default: configured export dir)")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	var format export.Format
	switch opts.Format {
	case "html":
		format = export.FormatHTML
	case "txt":
		format = export.FormatText
	default:
		return fmt.Errorf("invalid format %q: must be html or txt", opts.Format)
	}

	cfg, log, err := loadRuntime(opts.RootOptions)
	if err != nil {
		return err
	}

	dir := opts.Dir
	if dir == "" {
		dir = cfg.ExportDir
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	r := repo.New(st, log)
	defer r.Close()

	result := <-r.ExportActive(cmd.Context(), format, export.DirSaver{Dir: dir})
	if result.Err != nil {
		return fmt.Errorf("export failed: %w", result.Err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", result.Handle)
	return nil
}
