package tracking

import (
	"context"
	"strings"

	"github.com/shinji-kodama/docpkg/internal/model"
)

// Worktree is one entry of `git worktree list --porcelain`.
//
// Example porcelain output for a single worktree block:
//
//	worktree /path/to/repo/target/docpkg
//	HEAD abc123def456
//	branch refs/heads/docpkg/docs/main
type Worktree struct {
	// Path is the absolute filesystem path of the worktree.
	Path string

	// Head is the commit checked out in the worktree.
	Head model.CommitID

	// Branch is the short branch name. Empty when detached or bare.
	Branch model.BranchName

	Bare     bool
	Detached bool

	// Prunable is set when git reports the worktree directory is gone.
	Prunable bool
}

// Worktrees lists the main working tree and every linked worktree.
func (g *Git) Worktrees(ctx context.Context) ([]Worktree, error) {
	out, err := g.run(ctx, nil, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelainOutput(out), nil
}

// parsePorcelainOutput parses `git worktree list --porcelain`. Blocks are
// separated by blank lines; each line is a key, optionally followed by a
// space and a value.
func parsePorcelainOutput(output string) []Worktree {
	var worktrees []Worktree

	var current *Worktree
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line == "" {
			if current != nil {
				worktrees = append(worktrees, *current)
				current = nil
			}
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		if key == "worktree" {
			current = &Worktree{Path: value}
			continue
		}
		if current == nil {
			continue
		}

		switch key {
		case "HEAD":
			current.Head = model.CommitID(value)
		case "branch":
			current.Branch = model.BranchName(strings.TrimPrefix(value, "refs/heads/"))
		case "bare":
			current.Bare = true
		case "detached":
			current.Detached = true
		case "prunable":
			current.Prunable = true
		}
	}

	if current != nil {
		worktrees = append(worktrees, *current)
	}
	return worktrees
}
