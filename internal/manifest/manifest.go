// Package manifest loads Docpkg.toml, the declarative description of a
// documentation package.
//
// The [package] table names the package and lists the files to publish.
// Optional [[release]] and [[standard]] tables carry the audit metadata
// consumed by the compliance report; they are parsed here so both commands
// share one file and one set of validation rules.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/shinji-kodama/docpkg/internal/model"
)

// FileName is the manifest's name inside the source root.
const FileName = "Docpkg.toml"

// Manifest is a validated package description.
type Manifest struct {
	// ID is the package slug; it becomes part of the distribution branch.
	ID model.PackageID

	// Name is the human-readable package title.
	Name string

	// Files are the paths to publish, relative to the source root, using
	// forward slashes. Unique and sorted; order carries no meaning.
	Files []string

	Releases  []Release
	Standards []Standard
}

// Release is one column of the compliance timeline, in declaration order.
type Release struct {
	ID string `toml:"id"`
}

// Standard is an external standard whose requirements are tracked.
// At least one of ID, Title and URI identifies it.
type Standard struct {
	ID           string        `toml:"id,omitempty"`
	Title        string        `toml:"title,omitempty"`
	URI          string        `toml:"uri,omitempty"`
	Requirements []Requirement `toml:"requirement"`
}

// Requirement is one clause of a standard.
type Requirement struct {
	ID         string `toml:"id"`
	Annotation string `toml:"annotation,omitempty"`

	// Since maps a release id to the requirement's applicability from that
	// release on. Releases without an entry inherit the previous one.
	Since map[string]Applicability `toml:"since,omitempty"`
}

// Applicability declares a requirement out of scope or lists the controls
// addressing it. Exactly one of Out and Control must be set.
type Applicability struct {
	Control []Control  `toml:"control,omitempty"`
	Out     *OutOfScope `toml:"out,omitempty"`
}

// OutOfScope marks a requirement as not applicable. It has no fields; its
// presence is the signal.
type OutOfScope struct{}

// Control is design evidence for a requirement: a document or a piece of
// code, optionally with demonstrations.
type Control struct {
	Doc        string `toml:"doc,omitempty"`
	Code       string `toml:"code,omitempty"`
	Annotation string `toml:"annotation,omitempty"`
	Demos      []Demo `toml:"demo,omitempty"`
}

// Demo describes who demonstrates what, and how.
type Demo struct {
	People       []string `toml:"person"`
	Things       []string `toml:"thing"`
	Instructions []string `toml:"instruction"`
}

// document is the raw TOML layout before validation.
type document struct {
	Package struct {
		ID    string   `toml:"id"`
		Name  string   `toml:"name"`
		Files []string `toml:"files"`
	} `toml:"package"`
	Releases  []Release  `toml:"release"`
	Standards []Standard `toml:"standard"`
}

// Load reads and validates dir/Docpkg.toml.
func Load(dir string) (*Manifest, error) {
	p := filepath.Join(dir, FileName)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfiguration,
			fmt.Sprintf("failed to read manifest %s", p), err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfiguration,
			fmt.Sprintf("invalid manifest %s", p), err)
	}
	return m, nil
}

// Parse decodes and validates manifest content. Unknown keys are rejected
// so that typos ("file" for "files") fail loudly instead of publishing
// nothing.
func Parse(data []byte) (*Manifest, error) {
	var doc document
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}

	id, err := model.ParsePackageID(doc.Package.ID)
	if err != nil {
		return nil, err
	}

	files, err := normalizeFiles(doc.Package.Files)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(doc.Releases))
	for _, r := range doc.Releases {
		if r.ID == "" {
			return nil, fmt.Errorf("release with empty id")
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate release %q", r.ID)
		}
		seen[r.ID] = true
	}

	return &Manifest{
		ID:        id,
		Name:      doc.Package.Name,
		Files:     files,
		Releases:  doc.Releases,
		Standards: doc.Standards,
	}, nil
}

// normalizeFiles cleans, de-duplicates and sorts the declared paths, and
// rejects any path that would leave the source root.
func normalizeFiles(files []string) ([]string, error) {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			return nil, fmt.Errorf("empty file path")
		}
		slashed := filepath.ToSlash(f)
		if path.IsAbs(slashed) || filepath.IsAbs(f) || filepath.VolumeName(f) != "" {
			return nil, fmt.Errorf("file path %q must be relative to the source root", f)
		}
		clean := path.Clean(slashed)
		if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
			return nil, fmt.Errorf("file path %q escapes the source root", f)
		}
		set[clean] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}
