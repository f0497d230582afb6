// Package compliance builds the compliance matrix of a documentation
// package: for every requirement of every declared standard, which controls
// address it in each release and how they are demonstrated.
package compliance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shinji-kodama/docpkg/internal/logger"
	"github.com/shinji-kodama/docpkg/internal/manifest"
	"github.com/shinji-kodama/docpkg/internal/model"
)

// notApplicable fills cells with no meaningful content.
const notApplicable = "N/A"

// Kind discriminates Applicability values.
type Kind int

const (
	// Undefined means no release so far has said anything.
	Undefined Kind = iota
	// NotApplicable means the requirement is declared out of scope.
	NotApplicable
	// Applicable means the requirement is addressed by controls.
	Applicable
)

// Applicability is a requirement's status in one release.
type Applicability struct {
	Kind     Kind
	Controls []Control
}

// EvidenceKind tells documents from code.
type EvidenceKind int

const (
	Document EvidenceKind = iota
	Code
)

// Control is one piece of design evidence with its demonstrations.
type Control struct {
	Evidence   EvidenceKind
	Path       string
	Annotation string
	Demos      []Demo
}

// Demo lists who demonstrates which things, and how.
type Demo struct {
	People       []string
	Things       []string
	Instructions []string
}

// Requirement carries one entry per release in Matrix.Releases.
type Requirement struct {
	ID         string
	Annotation string
	Timeline   []Applicability
}

// Standard groups requirements under an external standard.
type Standard struct {
	ID           string
	Title        string
	URI          string
	Requirements []Requirement
}

// Name is the first non-empty of ID, Title and URI.
func (s Standard) Name() string {
	for _, v := range []string{s.ID, s.Title, s.URI} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Matrix is the compliance state of every requirement across releases.
type Matrix struct {
	Releases  []string
	Standards []Standard
}

// Build resolves the timelines from manifest metadata. A release without an
// entry inherits the previous release's applicability.
func Build(releases []manifest.Release, standards []manifest.Standard) (*Matrix, error) {
	m := &Matrix{Releases: make([]string, 0, len(releases))}
	known := make(map[string]bool, len(releases))
	for _, r := range releases {
		m.Releases = append(m.Releases, r.ID)
		known[r.ID] = true
	}

	for i, s := range standards {
		std := Standard{ID: s.ID, Title: s.Title, URI: s.URI}
		if std.Name() == "" {
			return nil, model.NewCLIError(model.ExitConfiguration,
				fmt.Sprintf("standard #%d needs an id, title or uri", i+1))
		}

		for _, r := range s.Requirements {
			warnUnknownReleases(std.Name(), r, known)

			req := Requirement{ID: r.ID, Annotation: r.Annotation}
			last := Applicability{Kind: Undefined}
			for _, release := range m.Releases {
				if dto, ok := r.Since[release]; ok {
					a, err := applicability(dto)
					if err != nil {
						return nil, model.WrapCLIError(model.ExitConfiguration,
							fmt.Sprintf("%s requirement %s in release %s", std.Name(), r.ID, release), err)
					}
					last = a
				}
				req.Timeline = append(req.Timeline, last)
			}
			std.Requirements = append(std.Requirements, req)
		}
		m.Standards = append(m.Standards, std)
	}
	return m, nil
}

func applicability(dto manifest.Applicability) (Applicability, error) {
	switch {
	case dto.Out != nil && dto.Control == nil:
		return Applicability{Kind: NotApplicable}, nil
	case dto.Out == nil && dto.Control != nil:
		controls := make([]Control, 0, len(dto.Control))
		for _, c := range dto.Control {
			control, err := newControl(c)
			if err != nil {
				return Applicability{}, err
			}
			controls = append(controls, control)
		}
		return Applicability{Kind: Applicable, Controls: controls}, nil
	default:
		return Applicability{}, fmt.Errorf("exactly one of out and control must be set")
	}
}

func newControl(c manifest.Control) (Control, error) {
	control := Control{Annotation: c.Annotation}
	switch {
	case c.Code != "" && c.Doc == "":
		control.Evidence, control.Path = Code, c.Code
	case c.Doc != "" && c.Code == "":
		control.Evidence, control.Path = Document, c.Doc
	default:
		return Control{}, fmt.Errorf("control needs exactly one of doc and code")
	}
	for _, d := range c.Demos {
		control.Demos = append(control.Demos, Demo{
			People:       d.People,
			Things:       d.Things,
			Instructions: d.Instructions,
		})
	}
	return control, nil
}

func warnUnknownReleases(standard string, r manifest.Requirement, known map[string]bool) {
	var unknown []string
	for release := range r.Since {
		if !known[release] {
			unknown = append(unknown, release)
		}
	}
	if len(unknown) == 0 {
		return
	}
	sort.Strings(unknown)
	logger.Warnf("%s requirement %s refers to undeclared releases: %s",
		standard, r.ID, strings.Join(unknown, ", "))
}

// Header returns the column titles: identification, one design column per
// release, then three demo columns per release.
func (m *Matrix) Header() []string {
	header := []string{"Standard", "Requirement", "Annotation"}
	for _, r := range m.Releases {
		header = append(header, r+": Design")
	}
	for _, r := range m.Releases {
		header = append(header,
			r+": Demo – who",
			r+": Demo – what",
			r+": Demo – how",
		)
	}
	return header
}

// Rows returns one row per requirement, in declaration order.
func (m *Matrix) Rows() [][]string {
	var rows [][]string
	for _, s := range m.Standards {
		for _, r := range s.Requirements {
			annotation := r.Annotation
			if annotation == "" {
				annotation = notApplicable
			}
			row := []string{s.Name(), r.ID, annotation}
			for _, a := range r.Timeline {
				row = append(row, designCell(a))
			}
			for _, a := range r.Timeline {
				row = append(row, demoCells(a)...)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func designCell(a Applicability) string {
	switch a.Kind {
	case Undefined:
		return "?"
	case NotApplicable:
		return notApplicable
	}

	parts := make([]string, 0, len(a.Controls))
	for _, c := range a.Controls {
		label := "Document: "
		if c.Evidence == Code {
			label = "Code: "
		}
		cell := label + c.Path
		if c.Annotation != "" {
			cell += "\n" + c.Annotation
		}
		parts = append(parts, cell)
	}
	return strings.Join(parts, "\n\n")
}

func demoCells(a Applicability) []string {
	if a.Kind != Applicable {
		return []string{notApplicable, notApplicable, notApplicable}
	}
	var who, what, how []string
	for _, c := range a.Controls {
		for _, d := range c.Demos {
			who = append(who, d.People...)
			what = append(what, d.Things...)
			how = append(how, d.Instructions...)
		}
	}
	return []string{
		strings.Join(who, "\n\n"),
		strings.Join(what, "\n\n"),
		strings.Join(how, "\n\n"),
	}
}
