//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/shinji-kodama/docpkg/internal/model"
)

// fileLock is an exclusive flock(2) on a file next to the ephemeral
// worktree. The kernel releases it when the process exits, so a crashed
// run never leaves the source locked.
type fileLock struct {
	path string
	file *os.File
}

// acquireLock takes the lock without blocking. A lock held by another
// process is a PreconditionError.
func acquireLock(path string) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, model.WrapCLIError(model.ExitExternalTool,
			fmt.Sprintf("failed to create %s", filepath.Dir(path)), err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitExternalTool,
			fmt.Sprintf("failed to open lock file %s", path), err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, model.NewCLIError(model.ExitPrecondition,
				fmt.Sprintf("another docpkg run is using %s", filepath.Dir(path)))
		}
		return nil, model.WrapCLIError(model.ExitExternalTool,
			fmt.Sprintf("failed to lock %s", path), err)
	}

	return &fileLock{path: path, file: f}, nil
}

// release unlocks and closes the lock file. The file itself is left in
// place; removing it would race with a process that has just opened it.
func (l *fileLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	if err != nil {
		return model.WrapCLIError(model.ExitExternalTool,
			fmt.Sprintf("failed to release lock %s", l.path), err)
	}
	return nil
}
