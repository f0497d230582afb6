// Package model defines the domain types for the docpkg CLI.
//
// Key design decision: none of these types cache repository state. A
// BranchName or CommitID is only a name; every question about what it
// points at is answered by asking git again.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// BranchName identifies a named, mutable pointer to a commit
// (e.g., "main" or "docpkg/docs/main"). Compared by value.
type BranchName string

// String returns the branch name as git expects it on the command line.
func (b BranchName) String() string {
	return string(b)
}

// ParseBranchName validates s against the subset of git's ref-name rules
// that matter for branch names we build or receive from the environment.
//
// The rules mirror `git check-ref-format --branch`:
//   - not empty, no whitespace or control characters
//   - none of the characters ~ ^ : ? * [ \
//   - no "..", no "@{", not exactly "@"
//   - no component starting with "." or ending with ".lock"
//   - no leading "-" or "/", no trailing "/" or ".", no empty components
func ParseBranchName(s string) (BranchName, error) {
	if s == "" {
		return "", fmt.Errorf("branch name must not be empty")
	}
	if s == "@" {
		return "", fmt.Errorf("invalid branch name %q", s)
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "/") ||
		strings.HasSuffix(s, "/") || strings.HasSuffix(s, ".") {
		return "", fmt.Errorf("invalid branch name %q: bad leading or trailing character", s)
	}
	if strings.Contains(s, "..") || strings.Contains(s, "@{") {
		return "", fmt.Errorf("invalid branch name %q: contains a reserved sequence", s)
	}
	for _, r := range s {
		if r <= ' ' || r == 0x7f || strings.ContainsRune(`~^:?*[\`, r) {
			return "", fmt.Errorf("invalid branch name %q: contains %q", s, r)
		}
	}
	for _, component := range strings.Split(s, "/") {
		if component == "" {
			return "", fmt.Errorf("invalid branch name %q: empty path component", s)
		}
		if strings.HasPrefix(component, ".") || strings.HasSuffix(component, ".lock") {
			return "", fmt.Errorf("invalid branch name %q: bad path component %q", s, component)
		}
	}
	return BranchName(s), nil
}

// CommitID is the opaque identifier of an immutable commit object.
// It is produced only by a successful commit, commit-tree or ref resolution.
type CommitID string

// String returns the commit id as printed by git.
func (c CommitID) String() string {
	return string(c)
}

// ObjectName is the opaque identifier of an immutable tree object.
type ObjectName string

// String returns the object name as printed by git.
func (o ObjectName) String() string {
	return string(o)
}

// EmptyTree is the well-known object name of the tree with no entries.
// git computes it the same way in every repository.
const EmptyTree ObjectName = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// CommitMessage is the non-empty message attached to a commit.
type CommitMessage string

// String returns the message text.
func (m CommitMessage) String() string {
	return string(m)
}

// PointKind discriminates the variants of a Point.
type PointKind int

const (
	// PointBranch marks a Point that names a branch (local or remote-tracking).
	PointBranch PointKind = iota

	// PointCommit marks a Point that names a commit by id.
	PointCommit
)

// Point is where a new branch is created: either an existing branch or a
// commit. It is a tagged union; Reference yields the string git accepts
// for either variant.
type Point struct {
	Kind   PointKind
	Branch BranchName
	Commit CommitID
}

// BranchPoint returns a Point referring to the given branch.
func BranchPoint(name BranchName) Point {
	return Point{Kind: PointBranch, Branch: name}
}

// CommitPoint returns a Point referring to the given commit.
func CommitPoint(id CommitID) Point {
	return Point{Kind: PointCommit, Commit: id}
}

// Reference returns the VCS reference string for the point.
func (p Point) Reference() string {
	if p.Kind == PointCommit {
		return p.Commit.String()
	}
	return p.Branch.String()
}

// String satisfies fmt.Stringer for log output.
func (p Point) String() string {
	if p.Kind == PointCommit {
		return "commit " + p.Reference()
	}
	return "branch " + p.Reference()
}

// packageIDRegex restricts package ids to short lowercase slugs. Slashes are
// allowed so ids can mirror a directory structure; the id becomes part of
// the distribution branch name.
var packageIDRegex = regexp.MustCompile(`^[a-z][a-z0-9/-]{0,19}$`)

// PackageID identifies a documentation package.
type PackageID string

// String returns the package id.
func (p PackageID) String() string {
	return string(p)
}

// ParsePackageID validates s as a package id.
func ParsePackageID(s string) (PackageID, error) {
	if !packageIDRegex.MatchString(s) {
		return "", fmt.Errorf("invalid package id %q: must match %s", s, packageIDRegex.String())
	}
	return PackageID(s), nil
}

// DistributionBranch derives the branch that receives the published files
// of package id built from origin. The result is stable across runs, so
// repeated publishes update one branch rather than creating new ones.
func DistributionBranch(id PackageID, origin BranchName) (BranchName, error) {
	return ParseBranchName(fmt.Sprintf("docpkg/%s/%s", id, origin))
}
