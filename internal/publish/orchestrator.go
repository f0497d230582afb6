// Package publish implements the publishing orchestrator.
//
// An Orchestrator copies the files declared in a package manifest from a
// source repository into a distribution branch of the same repository,
// commits them and pushes the branch to "origin". The distribution branch
// is checked out in an ephemeral worktree at <source>/target/docpkg, which
// exists from Open until Close.
//
// Lifecycle:
//
//	Open ──▶ Ready ──Publish*──▶ Close ──▶ Closed
//
// Run wraps the lifecycle so that Close happens on every exit path,
// including errors, cancellation and panics.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/manifest"
	"github.com/shinji-kodama/docpkg/internal/model"
	"github.com/shinji-kodama/docpkg/internal/tracking"
)

const (
	// EphemeralDir is the worktree location, relative to the source root.
	EphemeralDir = "target/docpkg"

	// LockFile guards EphemeralDir against concurrent runs.
	LockFile = "target/docpkg.lock"

	// PublishMessage is the message of every publish commit.
	PublishMessage model.CommitMessage = "docs: publish documentation package"
)

// State is the orchestrator's lifecycle position.
type State int

const (
	StateOpening State = iota
	StateReady
	StateClosed
)

// String returns a lowercase state name for logs and errors.
func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options customize Open.
type Options struct {
	// BranchOverride names the origin branch when the source has a
	// detached HEAD. Usually taken from BRANCH_NAME.
	BranchOverride string

	// NewService binds a content-tracking service to a path. Defaults to
	// tracking.GitFactory().
	NewService tracking.Factory
}

// Result describes one Publish call.
type Result struct {
	Branch    model.BranchName `json:"branch" yaml:"branch"`
	Origin    model.BranchName `json:"origin" yaml:"origin"`
	Files     []string         `json:"files" yaml:"files"`
	Commit    model.CommitID   `json:"commit,omitempty" yaml:"commit,omitempty"`
	Committed bool             `json:"committed" yaml:"committed"`
	Pushed    bool             `json:"pushed" yaml:"pushed"`
}

// Orchestrator owns the ephemeral worktree for one source repository.
// It is not safe for concurrent use.
type Orchestrator struct {
	sourcePath string
	targetPath string

	source tracking.Service
	target tracking.Service

	manifest *manifest.Manifest
	origin   model.BranchName
	branch   model.BranchName

	lock     *fileLock
	attached bool
	state    State
}

// Open loads the manifest at sourcePath, derives the distribution branch and
// attaches the ephemeral worktree to it. On failure everything acquired so
// far is released before returning.
func Open(ctx context.Context, sourcePath string, opts Options) (*Orchestrator, error) {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfiguration,
			fmt.Sprintf("invalid source path %q", sourcePath), err)
	}

	m, err := manifest.Load(abs)
	if err != nil {
		return nil, err
	}

	factory := opts.NewService
	if factory == nil {
		factory = tracking.GitFactory()
	}

	targetPath := filepath.Join(abs, filepath.FromSlash(EphemeralDir))
	o := &Orchestrator{
		sourcePath: abs,
		targetPath: targetPath,
		source:     factory(abs),
		target:     factory(targetPath),
		manifest:   m,
		state:      StateOpening,
	}

	lock, err := acquireLock(filepath.Join(abs, filepath.FromSlash(LockFile)))
	if err != nil {
		return nil, err
	}
	o.lock = lock

	if err := o.materialize(ctx, opts.BranchOverride); err != nil {
		if releaseErr := o.release(context.WithoutCancel(ctx)); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
		o.state = StateClosed
		return nil, err
	}

	o.state = StateReady
	logger.Logger.Info().
		Str("package", m.ID.String()).
		Str("branch", o.branch.String()).
		Str("worktree", o.targetPath).
		Msg("worktree ready")
	return o, nil
}

// materialize runs the Opening steps after the lock is held.
func (o *Orchestrator) materialize(ctx context.Context, override string) error {
	// Step 1: Determine the origin branch, falling back to the override
	// for detached checkouts.
	origin, ok, err := o.source.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if override == "" {
			return model.NewCLIError(model.ExitPrecondition,
				"cannot determine the origin branch: HEAD is detached and BRANCH_NAME is not set")
		}
		origin, err = model.ParseBranchName(override)
		if err != nil {
			return model.WrapCLIError(model.ExitConfiguration, "invalid BRANCH_NAME", err)
		}
		logger.Debugf("HEAD is detached, using branch override %s", origin)
	}
	o.origin = origin

	// Step 2: Derive the distribution branch.
	branch, err := model.DistributionBranch(o.manifest.ID, origin)
	if err != nil {
		return model.WrapCLIError(model.ExitConfiguration, "invalid distribution branch", err)
	}
	o.branch = branch

	// Step 3: Remove whatever a previous, interrupted run left behind.
	if err := os.RemoveAll(o.targetPath); err != nil {
		return model.WrapCLIError(model.ExitExternalTool,
			fmt.Sprintf("failed to remove stale worktree %s", o.targetPath), err)
	}

	// Step 4: Make a content-independent initial commit to root new
	// distribution branches on.
	tree, err := o.source.MakeTree(ctx)
	if err != nil {
		return err
	}
	initial, err := o.source.CommitTree(ctx, tree)
	if err != nil {
		return err
	}

	// Step 5: Ensure the distribution branch exists. An existing local
	// branch is kept; otherwise follow origin's copy if one was fetched.
	if err := o.ensureBranch(ctx, initial); err != nil {
		return err
	}

	// Step 6: Refuse to take over a branch checked out somewhere else.
	if err := o.checkNotCheckedOut(ctx); err != nil {
		return err
	}

	// Step 7: Attach the worktree.
	if err := o.source.AddWorktree(ctx, o.targetPath, o.branch); err != nil {
		return err
	}
	o.attached = true
	return nil
}

func (o *Orchestrator) ensureBranch(ctx context.Context, initial model.CommitID) error {
	_, exists, err := o.source.ResolveBranch(ctx, o.branch.String())
	if err != nil {
		return err
	}
	if exists {
		logger.Debugf("reusing local branch %s", o.branch)
		return nil
	}

	remote := model.BranchName(tracking.OriginRemote + "/" + o.branch.String())
	_, tracked, err := o.source.ResolveBranch(ctx, "refs/remotes/"+remote.String())
	if err != nil {
		return err
	}
	if tracked {
		logger.Debugf("creating %s from %s", o.branch, remote)
		return o.source.CreateBranch(ctx, o.branch, model.BranchPoint(remote))
	}

	logger.Debugf("creating %s from initial commit %s", o.branch, initial)
	return o.source.CreateBranch(ctx, o.branch, model.CommitPoint(initial))
}

// checkNotCheckedOut fails when the distribution branch is checked out in a
// live worktree other than ours. Entries whose directory no longer exists
// are leftovers of interrupted runs and are ignored.
func (o *Orchestrator) checkNotCheckedOut(ctx context.Context) error {
	worktrees, err := o.source.Worktrees(ctx)
	if err != nil {
		return err
	}
	for _, w := range worktrees {
		if w.Branch != o.branch || w.Prunable || filepath.Clean(w.Path) == o.targetPath {
			continue
		}
		if _, err := os.Stat(w.Path); err != nil {
			continue
		}
		return model.NewCLIError(model.ExitPrecondition,
			fmt.Sprintf("branch %s is checked out at %s", o.branch, w.Path))
	}
	return nil
}

// Publish copies every manifest file into the worktree, commits and pushes
// the distribution branch to origin. An unchanged package yields a Result
// with Committed false; the push still runs so an earlier failed push is
// retried.
func (o *Orchestrator) Publish(ctx context.Context) (Result, error) {
	if o.state != StateReady {
		return Result{}, model.NewCLIError(model.ExitPrecondition,
			fmt.Sprintf("cannot publish: orchestrator is %s", o.state))
	}

	hasOrigin, err := o.source.HasRemote(ctx, tracking.OriginRemote)
	if err != nil {
		return Result{}, err
	}
	if !hasOrigin {
		return Result{}, model.NewCLIError(model.ExitPrecondition,
			fmt.Sprintf("repository %s has no remote named %q", o.sourcePath, tracking.OriginRemote))
	}

	result := Result{
		Branch: o.branch,
		Origin: o.origin,
		Files:  append(make([]string, 0, len(o.manifest.Files)), o.manifest.Files...),
	}

	for _, file := range o.manifest.Files {
		source := filepath.Join(o.sourcePath, filepath.FromSlash(file))
		if err := o.target.AddFile(ctx, source, file); err != nil {
			return result, err
		}
	}

	id, committed, err := o.target.Commit(ctx, PublishMessage)
	if err != nil {
		return result, err
	}
	result.Commit = id
	result.Committed = committed
	log := logger.WithField("branch", o.branch.String())
	if committed {
		log.Info().Str("commit", id.String()).Msg("committed")
	} else {
		log.Info().Msg("nothing changed")
	}

	if err := o.source.PushToOrigin(ctx, o.branch); err != nil {
		return result, err
	}
	result.Pushed = true
	log.Info().Str("remote", tracking.OriginRemote).Msg("pushed")

	return result, nil
}

// Close removes the ephemeral worktree and releases the lock. It is
// idempotent. A failure is returned, never swallowed: it means the
// repository is not in the state docpkg left it in.
func (o *Orchestrator) Close(ctx context.Context) error {
	if o.state == StateClosed {
		return nil
	}
	err := o.release(ctx)
	o.state = StateClosed
	return err
}

// release undoes what Open acquired, in reverse order.
func (o *Orchestrator) release(ctx context.Context) error {
	var errs []error
	if o.attached {
		if err := o.source.RemoveWorktree(ctx, o.targetPath); err != nil {
			logger.Errorf("worktree %s was left behind: %v", o.targetPath, err)
			errs = append(errs, err)
		} else {
			o.attached = false
			logger.Debugf("removed worktree %s", o.targetPath)
		}
	}
	if err := o.lock.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run opens an orchestrator on sourcePath, calls fn and always closes it.
// Close runs on a context detached from ctx's cancellation, so an
// interrupted run still removes its worktree. Errors from fn and from
// Close are joined.
func Run(ctx context.Context, sourcePath string, opts Options, fn func(*Orchestrator) error) (err error) {
	o, err := Open(ctx, sourcePath, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := o.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(o)
}

// Manifest returns the loaded package manifest.
func (o *Orchestrator) Manifest() *manifest.Manifest { return o.manifest }

// Branch returns the distribution branch.
func (o *Orchestrator) Branch() model.BranchName { return o.branch }

// Origin returns the branch the package is published from.
func (o *Orchestrator) Origin() model.BranchName { return o.origin }

// WorktreePath returns the absolute path of the ephemeral worktree.
func (o *Orchestrator) WorktreePath() string { return o.targetPath }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }
