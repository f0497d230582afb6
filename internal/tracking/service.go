package tracking

import (
	"context"

	"github.com/shinji-kodama/docpkg/internal/model"
)

// Service is the set of content-tracking operations available on one
// working directory. All operations block until git exits.
type Service interface {
	// Path returns the absolute working-directory path the service is bound to.
	Path() string

	// Initialize creates a new repository at Path with initial branch "main".
	Initialize(ctx context.Context) error

	// CurrentBranch returns the checked-out branch. The boolean is false
	// when HEAD is detached.
	CurrentBranch(ctx context.Context) (model.BranchName, bool, error)

	// CloneTo clones the bound repository into target. The caller is
	// responsible for Path being a repository.
	CloneTo(ctx context.Context, target string) error

	// AddFile copies source onto target (relative to Path), creating parent
	// directories, and stages the result.
	AddFile(ctx context.Context, source, target string) error

	// AddCurrentWorktree stages every change in the working directory.
	AddCurrentWorktree(ctx context.Context) error

	// AddWorktree attaches a secondary worktree at path checked out to
	// branch. Existing content or registrations at path are overwritten.
	AddWorktree(ctx context.Context, path string, branch model.BranchName) error

	// RemoveWorktree detaches and deletes the secondary worktree at path.
	RemoveWorktree(ctx context.Context, path string) error

	// Worktrees lists the main working tree and all linked worktrees.
	Worktrees(ctx context.Context) ([]Worktree, error)

	// CreateBranch creates name at point. It is a no-op when name already
	// resolves to the same commit as point.
	CreateBranch(ctx context.Context, name model.BranchName, point model.Point) error

	// ResolveBranch returns the commit ref points at. The boolean is false
	// when ref does not exist.
	ResolveBranch(ctx context.Context, ref string) (model.CommitID, bool, error)

	// Commit records the staged content. The boolean is false when there
	// was nothing to commit; that case is not an error.
	Commit(ctx context.Context, message model.CommitMessage) (model.CommitID, bool, error)

	// CommitTree creates a parentless commit from tree, independent of the
	// working directory.
	CommitTree(ctx context.Context, tree model.ObjectName) (model.CommitID, error)

	// MakeTree writes a tree object with no entries and returns its name,
	// which is always model.EmptyTree.
	MakeTree(ctx context.Context) (model.ObjectName, error)

	// HasRemote reports whether a remote called name is configured.
	HasRemote(ctx context.Context, name string) (bool, error)

	// PushToOrigin pushes branch to the remote named "origin".
	PushToOrigin(ctx context.Context, branch model.BranchName) error
}

// Factory binds a Service to a path. NewGit-based factories are the
// production choice; tests substitute fakes.
type Factory func(path string) Service

// GitFactory returns a Factory producing Git services with the given options.
func GitFactory(opts ...Option) Factory {
	return func(path string) Service {
		return NewGit(path, opts...)
	}
}
