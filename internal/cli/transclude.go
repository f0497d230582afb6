package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docpkg/internal/transclusion"
)

// NewTranscludeCommand creates the "transclude" cobra command.
func NewTranscludeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transclude <file>...",
		Short: "Expand transclusion blocks in Markdown files in place",
		Long: `Replace the body of every block

  <!-- Start transclusion: path/to/file.md -->
  <!-- End transclusion -->

with the referenced file's content. Paths are relative to the file that
contains the block. Referenced files are expanded recursively.

Examples:
  docpkg transclude README.md
  docpkg transclude docs/*.md`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransclude(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
}

func runTransclude(ctx context.Context, w io.Writer, files []string) error {
	cfg, err := setup(ctx, ".")
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := transclusion.TranscludeFile(f); err != nil {
			return err
		}
	}

	if cfg.Output == "json" || cfg.Output == "yaml" {
		return writeStructured(w, cfg.Output, map[string][]string{"transcluded": files})
	}
	for _, f := range files {
		fmt.Fprintf(w, "Transcluded %s\n", f)
	}
	return nil
}
