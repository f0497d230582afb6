package tracking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"

	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/model"
)

const (
	// InitialBranch is the branch name Initialize creates.
	InitialBranch model.BranchName = "main"

	// OriginRemote is the only remote docpkg pushes to.
	OriginRemote = "origin"

	// TreeCommitMessage is the message of commits created by CommitTree.
	TreeCommitMessage = "build: new documentation package"
)

// nothingToCommit lists the phrases git commit prints when it exits 1
// without recording anything.
var nothingToCommit = []string{
	"nothing to commit",
	"nothing added to commit",
	"no changes added to commit",
}

// ExecError describes a git invocation that exited unsuccessfully.
type ExecError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// Error returns the underlying error followed by git's stderr.
func (e *ExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString(e.Err.Error())
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString(": ")
		b.WriteString(stderr)
	}
	return b.String()
}

// Unwrap returns the process error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Option configures a Git service.
type Option func(*Git)

// WithGitBinary selects the git executable (a name on PATH or a path).
func WithGitBinary(bin string) Option {
	return func(g *Git) {
		if bin != "" {
			g.git = bin
		}
	}
}

// Git implements Service by running the git CLI.
type Git struct {
	path string
	git  string
}

var _ Service = (*Git)(nil)

// NewGit binds a Git service to path. Relative paths are resolved against
// the current directory.
func NewGit(path string, opts ...Option) *Git {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	g := &Git{path: path, git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path returns the bound working directory.
func (g *Git) Path() string {
	return g.path
}

// Initialize runs `git init` with the fixed initial branch.
func (g *Git) Initialize(ctx context.Context) error {
	_, err := g.run(ctx, nil, "init", "--quiet", "--initial-branch="+InitialBranch.String())
	return err
}

// CurrentBranch uses `git branch --show-current`, which prints nothing for
// a detached HEAD and the configured name for an unborn branch.
func (g *Git) CurrentBranch(ctx context.Context) (model.BranchName, bool, error) {
	out, err := g.run(ctx, nil, "branch", "--show-current")
	if err != nil {
		return "", false, err
	}
	name := strings.TrimSpace(out)
	if name == "" {
		return "", false, nil
	}
	branch, err := model.ParseBranchName(name)
	if err != nil {
		return "", false, model.WrapCLIError(model.ExitConfiguration, "unexpected current branch", err)
	}
	return branch, true, nil
}

// CloneTo clones the bound repository into target.
func (g *Git) CloneTo(ctx context.Context, target string) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return model.WrapCLIError(model.ExitExternalTool, "failed to resolve clone target", err)
	}
	_, err = g.run(ctx, nil, "clone", "--quiet", "--", g.path, abs)
	return err
}

// copyOptions publish the content a symlink points to and keep published
// files writable by their owner so a later AddFile can overwrite them.
var copyOptions = copy.Options{
	OnSymlink: func(string) copy.SymlinkAction {
		return copy.Deep
	},
	PermissionControl: copy.AddPermission(0200),
}

// AddFile copies source to target inside the worktree and stages it.
// target must be relative and stay inside the worktree.
func (g *Git) AddFile(ctx context.Context, source, target string) error {
	rel, err := cleanRelative(target)
	if err != nil {
		return err
	}

	dest := filepath.Join(g.path, filepath.FromSlash(rel))
	if err := copy.Copy(source, dest, copyOptions); err != nil {
		return model.WrapCLIError(model.ExitExternalTool,
			fmt.Sprintf("failed to copy %s to %s", source, dest), err)
	}

	_, err = g.run(ctx, nil, "add", "--", rel)
	return err
}

// AddCurrentWorktree stages additions, modifications and deletions.
func (g *Git) AddCurrentWorktree(ctx context.Context) error {
	_, err := g.run(ctx, nil, "add", "--all", ".")
	return err
}

// AddWorktree runs `git worktree add --force`. --force lets a stale
// registration for path be reused and allows branch to be checked out
// elsewhere already.
func (g *Git) AddWorktree(ctx context.Context, path string, branch model.BranchName) error {
	_, err := g.run(ctx, nil, "worktree", "add", "--force", "--quiet", path, branch.String())
	return err
}

// RemoveWorktree runs `git worktree remove --force`. The worktree is
// treated as disposable, so uncommitted content in it is discarded.
func (g *Git) RemoveWorktree(ctx context.Context, path string) error {
	_, err := g.run(ctx, nil, "worktree", "remove", "--force", path)
	return err
}

// CreateBranch runs `git branch <name> <ref>` unless name already points
// at the same commit as point.
func (g *Git) CreateBranch(ctx context.Context, name model.BranchName, point model.Point) error {
	current, exists, err := g.ResolveBranch(ctx, name.String())
	if err != nil {
		return err
	}
	if exists {
		wanted, found, err := g.ResolveBranch(ctx, point.Reference())
		if err != nil {
			return err
		}
		if found && wanted == current {
			logger.Debugf("branch %s already at %s", name, current)
			return nil
		}
	}

	_, err = g.run(ctx, nil, "branch", name.String(), point.Reference())
	return err
}

// ResolveBranch peels ref to a commit with `git rev-parse --verify --quiet`,
// which exits 1 and prints nothing when the ref does not exist.
func (g *Git) ResolveBranch(ctx context.Context, ref string) (model.CommitID, bool, error) {
	out, err := g.run(ctx, nil, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		var execErr *ExecError
		if errors.As(err, &execErr) && execErr.ExitCode == 1 && strings.TrimSpace(execErr.Stdout) == "" {
			return "", false, nil
		}
		return "", false, err
	}
	return model.CommitID(strings.TrimSpace(out)), true, nil
}

// Commit runs `git commit -m` and then reads the new HEAD.
func (g *Git) Commit(ctx context.Context, message model.CommitMessage) (model.CommitID, bool, error) {
	if strings.TrimSpace(message.String()) == "" {
		return "", false, model.NewCLIError(model.ExitConfiguration, "commit message must not be empty")
	}

	_, err := g.run(ctx, nil, "commit", "-m", message.String())
	if err != nil {
		var execErr *ExecError
		if errors.As(err, &execErr) && execErr.ExitCode == 1 && reportsNothingToCommit(execErr) {
			logger.Debugf("nothing to commit in %s", g.path)
			return "", false, nil
		}
		return "", false, err
	}

	head, found, err := g.ResolveBranch(ctx, "HEAD")
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, model.NewCLIError(model.ExitExternalTool, "HEAD does not resolve after commit")
	}
	return head, true, nil
}

// CommitTree runs `git commit-tree` with the fixed build message.
func (g *Git) CommitTree(ctx context.Context, tree model.ObjectName) (model.CommitID, error) {
	out, err := g.run(ctx, nil, "commit-tree", tree.String(), "-m", TreeCommitMessage)
	if err != nil {
		return "", err
	}
	return model.CommitID(strings.TrimSpace(out)), nil
}

// MakeTree runs `git mktree` on an empty listing.
func (g *Git) MakeTree(ctx context.Context) (model.ObjectName, error) {
	out, err := g.run(ctx, strings.NewReader(""), "mktree")
	if err != nil {
		return "", err
	}
	return model.ObjectName(strings.TrimSpace(out)), nil
}

// HasRemote lists remotes with `git remote`.
func (g *Git) HasRemote(ctx context.Context, name string) (bool, error) {
	out, err := g.run(ctx, nil, "remote")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// PushToOrigin runs `git push origin <branch>`.
func (g *Git) PushToOrigin(ctx context.Context, branch model.BranchName) error {
	_, err := g.run(ctx, nil, "push", "--quiet", OriginRemote, branch.String())
	return err
}

// run executes git with the given arguments in the bound directory.
//
// The path is passed via -C so the process working directory never
// changes. On a non-zero exit the returned error is a CLIError with
// ExitExternalTool wrapping an *ExecError, so callers that expect a
// specific exit status can still inspect it.
func (g *Git) run(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	return runGit(ctx, g.git, g.path, stdin, args...)
}

func runGit(ctx context.Context, bin, dir string, stdin io.Reader, args ...string) (string, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}

	// #nosec G204 -- args are built by this package, not taken from user input
	cmd := exec.CommandContext(ctx, bin, fullArgs...)
	cmd.Stdin = stdin
	// Output is parsed, so keep git's messages untranslated.
	cmd.Env = append(os.Environ(), "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	logger.Logger.Debug().
		Str("dir", dir).
		Strs("args", args).
		Int("exit", exitCode).
		Msg("git")

	if err != nil {
		execErr := &ExecError{
			Args:     args,
			ExitCode: exitCode,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      err,
		}
		return "", model.WrapCLIError(model.ExitExternalTool,
			fmt.Sprintf("git %s failed", strings.Join(args, " ")), execErr)
	}

	return stdout.String(), nil
}

func reportsNothingToCommit(e *ExecError) bool {
	output := e.Stdout + "\n" + e.Stderr
	for _, phrase := range nothingToCommit {
		if strings.Contains(output, phrase) {
			return true
		}
	}
	return false
}

// cleanRelative normalizes a worktree-relative path and rejects absolute
// paths and paths escaping the worktree.
func cleanRelative(p string) (string, error) {
	slashed := filepath.ToSlash(p)
	if p == "" || path.IsAbs(slashed) || filepath.IsAbs(p) {
		return "", model.NewCLIError(model.ExitConfiguration,
			fmt.Sprintf("target %q must be a relative path", p))
	}
	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", model.NewCLIError(model.ExitConfiguration,
			fmt.Sprintf("target %q escapes the worktree", p))
	}
	return clean, nil
}
