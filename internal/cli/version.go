package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docpkg/internal/tracking"
)

// NewVersionCommand creates the "version" cobra command, which reports the
// docpkg build and the git it would run.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show docpkg and git versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// versionJSON is the structured output of the version command.
type versionJSON struct {
	Version      string `json:"version" yaml:"version"`
	Commit       string `json:"commit" yaml:"commit"`
	Date         string `json:"date" yaml:"date"`
	Git          string `json:"git" yaml:"git"`
	GitSupported bool   `json:"gitSupported" yaml:"gitSupported"`
}

func runVersion(ctx context.Context, w io.Writer) error {
	cfg, err := setup(ctx, ".")
	if err != nil {
		return err
	}

	v, err := tracking.Version(ctx, cfg.Git)
	if err != nil {
		return err
	}
	supported := tracking.RequireVersion(v) == nil

	if cfg.Output == "json" || cfg.Output == "yaml" {
		return writeStructured(w, cfg.Output, versionJSON{
			Version:      Version,
			Commit:       Commit,
			Date:         Date,
			Git:          v.String(),
			GitSupported: supported,
		})
	}

	fmt.Fprintf(w, "docpkg %s (commit: %s, built: %s)\n", Version, Commit, Date)
	note := ""
	if !supported {
		note = fmt.Sprintf(" (unsupported, need %s)", tracking.SupportedVersions)
	}
	fmt.Fprintf(w, "git %s%s\n", v, note)
	return nil
}
