package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docpkg/internal/compliance"
	"github.com/shinji-kodama/docpkg/internal/manifest"
)

// complianceFlags holds the flag values for the compliance command.
type complianceFlags struct {
	// format is csv, markdown or table.
	format string
}

// NewComplianceCommand creates the "compliance" cobra command.
func NewComplianceCommand() *cobra.Command {
	flags := &complianceFlags{}

	cmd := &cobra.Command{
		Use:   "compliance [dir]",
		Short: "Print the compliance matrix of the documentation package",
		Long: `Print the compliance matrix declared by the [[release]] and [[standard]]
tables of <dir>/Docpkg.toml (default: current directory).

Each row is a requirement of a standard. For every release the matrix shows
the controls addressing it and how they are demonstrated. A release that
does not mention a requirement inherits the previous release's entry.

Examples:
  docpkg compliance > compliance.csv
  docpkg compliance --format markdown`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runCompliance(cmd.Context(), cmd.OutOrStdout(), dir, flags)
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", string(compliance.FormatCSV),
		"Matrix format: csv, markdown, table")

	return cmd
}

func runCompliance(ctx context.Context, w io.Writer, dir string, flags *complianceFlags) error {
	if _, err := setup(ctx, dir); err != nil {
		return err
	}

	format, err := compliance.ParseFormat(flags.format)
	if err != nil {
		return err
	}

	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}

	matrix, err := compliance.Build(m.Releases, m.Standards)
	if err != nil {
		return err
	}
	return matrix.Render(w, format)
}
