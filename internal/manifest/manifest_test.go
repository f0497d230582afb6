package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/docpkg/internal/model"
)

func TestParse(t *testing.T) {
	input := `
[package]
id = "docpkg"
name = "Documentation Packager"
files = ["README.md", "docs/guide.md"]
`
	m, err := Parse([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, model.PackageID("docpkg"), m.ID)
	assert.Equal(t, "Documentation Packager", m.Name)
	assert.Equal(t, []string{"README.md", "docs/guide.md"}, m.Files)
	assert.Empty(t, m.Releases)
	assert.Empty(t, m.Standards)
}

// TestParseFilesAreASet checks duplicates collapse and order is normalized.
func TestParseFilesAreASet(t *testing.T) {
	input := `
[package]
id = "docs"
files = ["b.md", "./a.md", "a.md", "docs/../b.md"]
`
	m, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, m.Files)
}

func TestParsePackageIDValidation(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"a", true},
		{"a/b", true},
		{"a-b", true},
		{"", false},
		{"A", false},
		{"-", false},
		{"a:b", false},
		{"abcdefghijklmnopqrstu", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := Parse([]byte("[package]\nid = \"" + tt.id + "\"\nfiles = []\n"))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseRejectsBadFiles(t *testing.T) {
	tests := map[string]string{
		"absolute":      `files = ["/etc/passwd"]`,
		"parent":        `files = ["../outside.md"]`,
		"nested parent": `files = ["docs/../../outside.md"]`,
		"dot":           `files = ["."]`,
		"empty":         `files = [""]`,
	}

	for name, files := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte("[package]\nid = \"docs\"\n" + files + "\n"))
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsMalformedTOML(t *testing.T) {
	_, err := Parse([]byte("[package\nid = docs"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[package]\nid = \"docs\"\nfile = [\"README.md\"]\n"))
	assert.Error(t, err)
}

// TestParseComplianceMetadata verifies the nested release/standard tables.
func TestParseComplianceMetadata(t *testing.T) {
	input := `
[package]
id = "docs"
files = ["README.md"]

[[release]]
id = "v1"

[[release]]
id = "v2"

[[standard]]
id = "ISO 9001"
title = "Quality management systems"

[[standard.requirement]]
id = "7.5"
annotation = "Documented information"

[standard.requirement.since.v1]
control = [
  { doc = "README.md", annotation = "Readme", demo = [{ person = ["QA"], thing = ["README"], instruction = ["Read it"] }] },
]

[standard.requirement.since.v2]
out = {}
`
	m, err := Parse([]byte(input))
	require.NoError(t, err)

	require.Len(t, m.Releases, 2)
	assert.Equal(t, "v1", m.Releases[0].ID)
	assert.Equal(t, "v2", m.Releases[1].ID)

	require.Len(t, m.Standards, 1)
	std := m.Standards[0]
	assert.Equal(t, "ISO 9001", std.ID)
	assert.Equal(t, "Quality management systems", std.Title)

	require.Len(t, std.Requirements, 1)
	req := std.Requirements[0]
	assert.Equal(t, "7.5", req.ID)
	assert.Equal(t, "Documented information", req.Annotation)

	v1 := req.Since["v1"]
	require.Len(t, v1.Control, 1)
	assert.Nil(t, v1.Out)
	assert.Equal(t, "README.md", v1.Control[0].Doc)
	require.Len(t, v1.Control[0].Demos, 1)
	assert.Equal(t, []string{"QA"}, v1.Control[0].Demos[0].People)

	v2 := req.Since["v2"]
	assert.NotNil(t, v2.Out)
	assert.Empty(t, v2.Control)
}

func TestParseRejectsDuplicateReleases(t *testing.T) {
	input := "[package]\nid = \"docs\"\n[[release]]\nid = \"v1\"\n[[release]]\nid = \"v1\"\n"
	_, err := Parse([]byte(input))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := "[package]\nid = \"docs\"\nfiles = [\"README.md\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, model.PackageID("docs"), m.ID)
	assert.Equal(t, []string{"README.md"}, m.Files)
}

// TestLoadErrorsAreConfigurationErrors verifies both a missing file and an
// invalid one surface with the configuration exit code.
func TestLoadErrorsAreConfigurationErrors(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ExitConfiguration))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[package]\nid = \"Docs\"\n"), 0644))
	_, err = Load(dir)
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ExitConfiguration))
}
