package tracking

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/shinji-kodama/docpkg/internal/model"
)

// SupportedVersions is the range of git releases docpkg is known to work
// with: 2.37 or later within the same major version.
const SupportedVersions = ">= 2.37.0, < 3.0.0"

// versionRegex matches `git version 2.39.2`, including vendor suffixes such
// as `2.39.3 (Apple Git-146)` or `2.41.0.windows.1`.
var versionRegex = regexp.MustCompile(`([^ ]+) version (\d+)\.(\d+)\.(\d+)`)

// ParseVersion extracts the version from `git version` output.
func ParseVersion(output string) (*semver.Version, error) {
	m := versionRegex.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("unrecognized version output %q", output)
	}
	return semver.NewVersion(fmt.Sprintf("%s.%s.%s", m[2], m[3], m[4]))
}

// Version runs `<git> version` outside any repository and parses the result.
func Version(ctx context.Context, git string) (*semver.Version, error) {
	if git == "" {
		git = "git"
	}
	out, err := runGit(ctx, git, "", nil, "version")
	if err != nil {
		return nil, err
	}
	v, err := ParseVersion(out)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitExternalTool, "failed to determine git version", err)
	}
	return v, nil
}

// RequireVersion fails with ExitExternalTool when v is outside
// SupportedVersions.
func RequireVersion(v *semver.Version) error {
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return model.NewCLIError(model.ExitExternalTool,
			fmt.Sprintf("git %s is not supported: need %s", v, SupportedVersions))
	}
	return nil
}
