// Package cli implements the cobra-based CLI commands for docpkg.
//
// Each subcommand (publish, compliance, transclude, version) is defined in
// its own file within this package. This file defines the root command that
// serves as the parent for all subcommands, handles global flags and maps
// errors to exit codes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docpkg/internal/config"
	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// outputFormat selects text, json or yaml command output. Empty means
	// "not given", so the environment or settings file can decide.
	outputFormat string

	// verbose forces debug-level logging on stderr.
	verbose bool
)

// resolved is the configuration of the running command, set by setup.
var resolved *config.Config

// Version, Commit and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docpkg",
		Short: "Publish documentation packages to a distribution branch",
		Long: `docpkg publishes the files listed in Docpkg.toml to a dedicated
distribution branch of the same repository and pushes it to origin.

The distribution branch is named docpkg/<package-id>/<origin-branch>, so
repeated publishes from the same branch update one branch. git is the only
storage and transport; no server is involved.`,

		// We handle error output ourselves (text, JSON or YAML).
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "",
		"Output format: text, json, yaml (default: text)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewPublishCommand())
	rootCmd.AddCommand(NewComplianceCommand())
	rootCmd.AddCommand(NewTranscludeCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
// This is the main entry point called from main.go.
//
// CLIError values anywhere in the error chain carry their own exit codes;
// other errors map to ExitGeneralError.
func Execute(ctx context.Context, rootCmd *cobra.Command) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return int(model.ExitSuccess)
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) && cliErr == err {
		printError(rootCmd.ErrOrStderr(), cliErr.Message, cliErr.Err)
	} else {
		printError(rootCmd.ErrOrStderr(), err.Error(), nil)
	}
	return int(model.CodeOf(err))
}

// setup resolves the configuration for a command working on dir and
// configures the logger. Flags win over the environment, which wins over
// dir/.docpkg.jsonc.
func setup(ctx context.Context, dir string) (config.Config, error) {
	env, err := config.LoadEnv(ctx)
	if err != nil {
		return config.Config{}, err
	}
	settings, err := config.LoadSettings(dir)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Resolve(config.Flags{Output: outputFormat, Verbose: verbose}, env, settings)
	if err != nil {
		return config.Config{}, err
	}

	logger.Configure(cfg.LogLevel, cfg.Pretty)
	resolved = &cfg
	logger.Debugf("configuration: git=%s output=%s level=%s", cfg.Git, cfg.Output, cfg.LogLevel)
	return cfg, nil
}

// currentOutput is the output format for error reporting, usable even when
// setup failed.
func currentOutput() string {
	if resolved != nil {
		return resolved.Output
	}
	if outputFormat != "" {
		return outputFormat
	}
	return config.DefaultOutput
}

// printError outputs an error message in the active output format.
// Errors always go to stderr, because stdout is reserved for successful
// command output.
func printError(w io.Writer, message string, underlying error) {
	if w == nil {
		w = os.Stderr
	}

	switch currentOutput() {
	case "json", "yaml":
		detail := map[string]string{"message": message}
		if underlying != nil {
			detail["detail"] = underlying.Error()
		}
		if err := writeStructured(w, currentOutput(), map[string]interface{}{"error": detail}); err == nil {
			return
		}
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}
