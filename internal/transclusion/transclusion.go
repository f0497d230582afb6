// Package transclusion expands Markdown transclusion blocks in place.
//
// A block looks like
//
//	<!-- Start transclusion: relative/path.md -->
//	anything, replaced on every run
//	<!-- End transclusion -->
//
// and is replaced by the referenced file's content. Referenced files are
// expanded recursively; only the top-level file keeps its markers, so
// re-running the expansion is stable.
package transclusion

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/model"
)

// blockRegex captures the start marker, the referenced path and the end
// marker. The body in between is matched lazily so adjacent blocks stay
// separate.
var blockRegex = regexp.MustCompile(`(?s)(<!-- *Start transclusion: ?(.*?[^ ]) *-->).*?(<!-- *End transclusion *-->)`)

// TranscludeFile expands every block in path and writes the result back.
func TranscludeFile(path string) error {
	expanded, err := Expand(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to stat %s", path), err)
	}
	if err := os.WriteFile(path, []byte(expanded), info.Mode().Perm()); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to write %s", path), err)
	}
	logger.Debugf("transcluded %s", path)
	return nil
}

// Expand returns path's content with every block expanded, keeping the
// top-level markers.
func Expand(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("invalid path %s", path), err)
	}
	return expand(abs, true, nil)
}

// expand reads path and replaces its blocks. stack holds the files being
// expanded above this one.
func expand(path string, renderTags bool, stack []string) (string, error) {
	for _, p := range stack {
		if p == path {
			return "", model.NewCLIError(model.ExitConfiguration,
				fmt.Sprintf("transclusion cycle: %s -> %s", strings.Join(stack, " -> "), path))
		}
	}
	stack = append(stack, path)

	data, err := os.ReadFile(path)
	if err != nil {
		if len(stack) > 1 {
			return "", model.WrapCLIError(model.ExitConfiguration,
				fmt.Sprintf("%s: cannot transclude %s", stack[len(stack)-2], path), err)
		}
		return "", model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to read %s", path), err)
	}
	content := string(data)

	var b strings.Builder
	last := 0
	for _, m := range blockRegex.FindAllStringSubmatchIndex(content, -1) {
		b.WriteString(content[last:m[0]])
		last = m[1]

		start := content[m[2]:m[3]]
		target := content[m[4]:m[5]]
		end := content[m[6]:m[7]]

		included, err := expand(filepath.Join(filepath.Dir(path), filepath.FromSlash(target)), false, stack)
		if err != nil {
			return "", err
		}
		included = strings.TrimSpace(included)

		if renderTags {
			b.WriteString(start)
			b.WriteString("\n")
			b.WriteString(included)
			b.WriteString("\n")
			b.WriteString(end)
		} else {
			b.WriteString(included)
		}
	}
	b.WriteString(content[last:])

	return b.String(), nil
}
