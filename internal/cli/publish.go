// Package cli: publish.go implements the "docpkg publish" command.
//
// The publish command copies the files declared in Docpkg.toml into the
// package's distribution branch, commits them and pushes the branch to
// origin. The ephemeral worktree used for this is always removed before
// the command returns.
package cli

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/publish"
	"github.com/shinji-kodama/docpkg/internal/tracking"
)

// NewPublishCommand creates the "publish" cobra command.
func NewPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish [dir]",
		Short: "Publish the documentation package to its distribution branch",
		Long: `Publish the files listed in <dir>/Docpkg.toml (default: current directory).

The files are committed to docpkg/<package-id>/<branch> and the branch is
pushed to the "origin" remote. Publishing unchanged files creates no commit.

When HEAD is detached (common in CI), set BRANCH_NAME to the branch the
package is built from.

Examples:
  docpkg publish
  docpkg publish ./website --output json
  BRANCH_NAME=main docpkg publish`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runPublish(cmd.Context(), cmd.OutOrStdout(), dir)
		},
	}
}

// runPublish is the main logic function for the publish command.
func runPublish(ctx context.Context, w io.Writer, dir string) error {
	// Step 1: Resolve configuration and configure logging.
	cfg, err := setup(ctx, dir)
	if err != nil {
		return err
	}

	// Step 2: Refuse to run with a git we have not been tested against.
	version, err := tracking.Version(ctx, cfg.Git)
	if err != nil {
		return err
	}
	if err := tracking.RequireVersion(version); err != nil {
		return err
	}
	logger.Debugf("using git %s", version)

	// Step 3: Open the orchestrator, publish, and tear down.
	opts := publish.Options{
		BranchOverride: cfg.BranchOverride,
		NewService:     tracking.GitFactory(tracking.WithGitBinary(cfg.Git)),
	}
	var result publish.Result
	err = publish.Run(ctx, dir, opts, func(o *publish.Orchestrator) error {
		var err error
		result, err = o.Publish(ctx)
		return err
	})
	if err != nil {
		return err
	}

	// Step 4: Report.
	return printPublishResult(w, cfg.Output, result)
}

// printPublishResult outputs the result in text, JSON or YAML format.
func printPublishResult(w io.Writer, format string, result publish.Result) error {
	if format == "json" || format == "yaml" {
		if result.Files == nil {
			result.Files = []string{}
		}
		return writeStructured(w, format, result)
	}

	if result.Committed {
		fmt.Fprintf(w, "Published %d file(s) from %s to %s (commit %s)\n",
			len(result.Files), result.Origin, result.Branch, shortCommit(result.Commit.String()))
	} else {
		fmt.Fprintf(w, "No changes to publish from %s; %s is up to date\n", result.Origin, result.Branch)
	}
	_, err := io.WriteString(w, fileTree(result.Branch.String(), result.Files))
	return err
}

// fileTree renders slash-separated paths as a tree rooted at root.
func fileTree(root string, files []string) string {
	tree := treeprint.NewWithRoot(root)
	dirs := map[string]treeprint.Tree{".": tree}

	var branchFor func(dir string) treeprint.Tree
	branchFor = func(dir string) treeprint.Tree {
		if b, ok := dirs[dir]; ok {
			return b
		}
		b := branchFor(path.Dir(dir)).AddBranch(path.Base(dir))
		dirs[dir] = b
		return b
	}

	for _, f := range files {
		branchFor(path.Dir(f)).AddNode(path.Base(f))
	}
	return tree.String()
}

// shortCommit abbreviates a commit id for human output.
func shortCommit(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
