package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParsePackageID checks the slug rule in both directions: every id the
// pattern admits parses, everything else is rejected.
func TestParsePackageID(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"a", true},
		{"docs", true},
		{"a/b", true},
		{"a-b", true},
		{"docpkg", true},
		{"a1/b-2", true},
		{"a" + strings.Repeat("b", 19), true}, // 20 characters
		{"", false},
		{"A", false},
		{"-", false},
		{"1docs", false},
		{"/docs", false},
		{"a:b", false},
		{"a_b", false},
		{"a b", false},
		{"a" + strings.Repeat("b", 20), false}, // 21 characters
		{strings.Repeat("a", 256), false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			id, err := ParsePackageID(tt.input)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.input, id.String())
			} else {
				assert.Error(t, err)
				assert.Empty(t, id)
			}
		})
	}
}

func TestParseBranchName(t *testing.T) {
	valid := []string{
		"main",
		"feature/login",
		"docpkg/docs/main",
		"release-1.2",
		"a/b/c",
	}
	for _, s := range valid {
		t.Run("valid "+s, func(t *testing.T) {
			name, err := ParseBranchName(s)
			require.NoError(t, err)
			assert.Equal(t, BranchName(s), name)
		})
	}

	invalid := []string{
		"",
		"@",
		"-main",
		"/main",
		"main/",
		"main.",
		"a..b",
		"a@{b",
		"has space",
		"tab\tname",
		"a~b",
		"a^b",
		"a:b",
		"a?b",
		"a*b",
		"a[b",
		`a\b`,
		"a//b",
		"a/.hidden",
		"a/b.lock",
	}
	for _, s := range invalid {
		t.Run(fmt.Sprintf("invalid %q", s), func(t *testing.T) {
			_, err := ParseBranchName(s)
			assert.Error(t, err)
		})
	}
}

func TestDistributionBranch(t *testing.T) {
	branch, err := DistributionBranch("docs", "main")
	require.NoError(t, err)
	assert.Equal(t, BranchName("docpkg/docs/main"), branch)

	// Derivation is deterministic so repeated runs hit the same branch.
	again, err := DistributionBranch("docs", "main")
	require.NoError(t, err)
	assert.Equal(t, branch, again)

	nested, err := DistributionBranch("team/docs", "feature/x")
	require.NoError(t, err)
	assert.Equal(t, BranchName("docpkg/team/docs/feature/x"), nested)

	// A package id ending in "/" produces an empty component.
	_, err = DistributionBranch("docs/", "main")
	assert.Error(t, err)
}

// TestPointReference verifies both variants of the tagged union yield the
// string git receives.
func TestPointReference(t *testing.T) {
	branch := BranchPoint("origin/docpkg/docs/main")
	assert.Equal(t, PointBranch, branch.Kind)
	assert.Equal(t, "origin/docpkg/docs/main", branch.Reference())
	assert.Equal(t, "branch origin/docpkg/docs/main", branch.String())

	commit := CommitPoint("0123abcd")
	assert.Equal(t, PointCommit, commit.Kind)
	assert.Equal(t, "0123abcd", commit.Reference())
	assert.Equal(t, "commit 0123abcd", commit.String())
}

func TestEmptyTree(t *testing.T) {
	assert.Equal(t, "4b825dc642cb6eb9a060e54bf8d69288fbee4904", EmptyTree.String())
}

// TestCLIError verifies the error message formatting and unwrap chain.
func TestCLIError(t *testing.T) {
	t.Run("without underlying error", func(t *testing.T) {
		err := NewCLIError(ExitPrecondition, "no origin branch")
		assert.Equal(t, "no origin branch", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("with underlying error", func(t *testing.T) {
		inner := errors.New("exit status 128")
		err := WrapCLIError(ExitExternalTool, "git push origin main failed", inner)
		assert.Equal(t, "git push origin main failed: exit status 128", err.Error())
		assert.True(t, errors.Is(err, inner))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ExitSuccess, CodeOf(nil))
	assert.Equal(t, ExitGeneralError, CodeOf(errors.New("plain")))
	assert.Equal(t, ExitConfiguration, CodeOf(NewCLIError(ExitConfiguration, "bad id")))

	// Wrapped with fmt.Errorf, the code still surfaces.
	wrapped := fmt.Errorf("opening: %w", NewCLIError(ExitPrecondition, "locked"))
	assert.Equal(t, ExitPrecondition, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ExitPrecondition))
	assert.False(t, IsCode(wrapped, ExitExternalTool))
	assert.False(t, IsCode(nil, ExitSuccess))

	// Joined errors report the first CLIError.
	joined := errors.Join(NewCLIError(ExitExternalTool, "publish"), NewCLIError(ExitPrecondition, "close"))
	assert.Equal(t, ExitExternalTool, CodeOf(joined))
}

func TestExitCodeString(t *testing.T) {
	tests := []struct {
		code     ExitCode
		expected string
	}{
		{ExitSuccess, "success"},
		{ExitGeneralError, "error"},
		{ExitConfiguration, "configuration error"},
		{ExitPrecondition, "precondition error"},
		{ExitExternalTool, "external tool error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.String())
		})
	}
}
