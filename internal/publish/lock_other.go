//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package publish

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/model"
)

// fileLock is a placeholder on platforms without flock(2); concurrent runs
// on the same source are not detected there.
type fileLock struct {
	path string
}

func acquireLock(path string) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, model.WrapCLIError(model.ExitExternalTool,
			fmt.Sprintf("failed to create %s", filepath.Dir(path)), err)
	}
	logger.Debugf("advisory locking unavailable, not locking %s", path)
	return &fileLock{path: path}, nil
}

func (l *fileLock) release() error {
	return nil
}
