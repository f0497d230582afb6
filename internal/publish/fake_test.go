package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shinji-kodama/docpkg/internal/model"
	"github.com/shinji-kodama/docpkg/internal/tracking"
)

// fakeRepo is an in-memory repository shared by every fakeService created
// from it, standing in for the on-disk state the git services would see.
type fakeRepo struct {
	targetPath string

	current   model.BranchName
	detached  bool
	remotes   []string
	branches  map[string]model.CommitID
	worktrees []tracking.Worktree

	staged    map[string][]byte
	committed map[string][]byte
	commits   int

	// failOn makes the named operation return the given error.
	failOn map[string]error

	calls []string

	// removeCtxErr records ctx.Err() as seen by RemoveWorktree.
	removeCtxErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		current:   "main",
		remotes:   []string{tracking.OriginRemote},
		branches:  map[string]model.CommitID{"main": "c-main"},
		staged:    map[string][]byte{},
		committed: map[string][]byte{},
		failOn:    map[string]error{},
	}
}

func (r *fakeRepo) factory() tracking.Factory {
	return func(path string) tracking.Service {
		return &fakeService{repo: r, path: path}
	}
}

func (r *fakeRepo) count(prefix string) int {
	n := 0
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeService struct {
	repo *fakeRepo
	path string
}

var _ tracking.Service = (*fakeService)(nil)

func (s *fakeService) record(op string, args ...interface{}) error {
	role := "source"
	if s.repo.targetPath != "" && s.path == s.repo.targetPath {
		role = "target"
	}
	call := role + " " + op
	for _, a := range args {
		call += " " + fmt.Sprint(a)
	}
	s.repo.calls = append(s.repo.calls, call)
	return s.repo.failOn[op]
}

func (s *fakeService) Path() string { return s.path }

func (s *fakeService) Initialize(ctx context.Context) error {
	return s.record("Initialize")
}

func (s *fakeService) CurrentBranch(ctx context.Context) (model.BranchName, bool, error) {
	if err := s.record("CurrentBranch"); err != nil {
		return "", false, err
	}
	if s.repo.detached {
		return "", false, nil
	}
	return s.repo.current, true, nil
}

func (s *fakeService) CloneTo(ctx context.Context, target string) error {
	return s.record("CloneTo", target)
}

func (s *fakeService) AddFile(ctx context.Context, source, target string) error {
	if err := s.record("AddFile", target); err != nil {
		return err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return model.WrapCLIError(model.ExitExternalTool, "copy failed", err)
	}
	s.repo.staged[target] = data
	return nil
}

func (s *fakeService) AddCurrentWorktree(ctx context.Context) error {
	return s.record("AddCurrentWorktree")
}

func (s *fakeService) AddWorktree(ctx context.Context, path string, branch model.BranchName) error {
	return s.record("AddWorktree", branch)
}

func (s *fakeService) RemoveWorktree(ctx context.Context, path string) error {
	s.repo.removeCtxErr = ctx.Err()
	return s.record("RemoveWorktree")
}

func (s *fakeService) Worktrees(ctx context.Context) ([]tracking.Worktree, error) {
	if err := s.record("Worktrees"); err != nil {
		return nil, err
	}
	return s.repo.worktrees, nil
}

func (s *fakeService) CreateBranch(ctx context.Context, name model.BranchName, point model.Point) error {
	if err := s.record("CreateBranch", name, point); err != nil {
		return err
	}
	id := model.CommitID(point.Reference())
	if point.Kind == model.PointBranch {
		id = s.repo.branches["refs/remotes/"+point.Reference()]
	}
	s.repo.branches[name.String()] = id
	return nil
}

func (s *fakeService) ResolveBranch(ctx context.Context, ref string) (model.CommitID, bool, error) {
	if err := s.record("ResolveBranch", ref); err != nil {
		return "", false, err
	}
	id, ok := s.repo.branches[ref]
	return id, ok, nil
}

func (s *fakeService) Commit(ctx context.Context, message model.CommitMessage) (model.CommitID, bool, error) {
	if err := s.record("Commit"); err != nil {
		return "", false, err
	}
	changed := false
	for name, data := range s.repo.staged {
		if prev, ok := s.repo.committed[name]; !ok || !bytes.Equal(prev, data) {
			changed = true
		}
		s.repo.committed[name] = data
	}
	if !changed {
		return "", false, nil
	}
	s.repo.commits++
	return model.CommitID(fmt.Sprintf("c-%d", s.repo.commits)), true, nil
}

func (s *fakeService) CommitTree(ctx context.Context, tree model.ObjectName) (model.CommitID, error) {
	if err := s.record("CommitTree", tree); err != nil {
		return "", err
	}
	return "c-initial", nil
}

func (s *fakeService) MakeTree(ctx context.Context) (model.ObjectName, error) {
	if err := s.record("MakeTree"); err != nil {
		return "", err
	}
	return model.EmptyTree, nil
}

func (s *fakeService) HasRemote(ctx context.Context, name string) (bool, error) {
	if err := s.record("HasRemote", name); err != nil {
		return false, err
	}
	for _, r := range s.repo.remotes {
		if r == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeService) PushToOrigin(ctx context.Context, branch model.BranchName) error {
	return s.record("PushToOrigin", branch)
}
