// Package render drives the template renderer.
//
// The heavy lifting (variable substitution, three-way merge updates) belongs
// to an external renderer reached through the Renderer interface. The
// package also renders single Jinja-style files itself, for generated
// artifacts that must enumerate every app in a project.
//
// Key components:
//   - Renderer: render-from-zero, render-update, single-file and version
//   - CopierRenderer: runs the copier CLI as a subprocess
//   - FileRenderer: pongo2-backed single-file rendering
//   - FakeRenderer: records requests for tests
package render

import "context"

// Source is a template pinned at a ref.
type Source struct {
	// URI is the template origin recorded in answers files.
	URI string

	// Dir is a local checkout of URI.
	Dir string

	// Ref is the ref checked out in Dir.
	Ref string
}

// CopyRequest renders a template into a destination from scratch.
type CopyRequest struct {
	Source Source

	// Dest is the project directory.
	Dest string

	// AnswersFile is the project-relative answers file path.
	AnswersFile string

	// Data is merged into the template answers.
	Data map[string]any

	// Excludes are glob rules for paths not to render.
	Excludes []string

	// Overwrite replaces existing files without asking.
	Overwrite bool
}

// UpdateRequest re-renders a template with a three-way merge against the
// previous render.
type UpdateRequest struct {
	Source      Source
	Dest        string
	AnswersFile string
	Data        map[string]any
	Excludes    []string

	// Overwrite replaces files without asking.
	Overwrite bool

	// SkipAnswered reuses recorded answers instead of asking again.
	SkipAnswered bool
}

// FileRequest renders a single template file from a checkout.
type FileRequest struct {
	Source Source

	// Path is the template file relative to Source.Dir.
	Path string

	// Dest is the project directory.
	Dest string

	// RenderPath is the output path relative to Dest.
	RenderPath string

	Data map[string]any
}

// FileResult reports what RenderFile wrote.
type FileResult struct {
	// Path is the project-relative output path.
	Path string

	// Changed is false when the output already had the rendered content.
	Changed bool
}

// Renderer is the external template engine.
type Renderer interface {
	// RenderFromZero renders the whole template, ignoring any previous render.
	RenderFromZero(ctx context.Context, req CopyRequest) error

	// RenderUpdate merges template changes into a previously rendered tree.
	RenderUpdate(ctx context.Context, req UpdateRequest) error

	// RenderFile renders one file.
	RenderFile(ctx context.Context, req FileRequest) (FileResult, error)

	// Version returns the opaque version token of the checked out source, in
	// the form the renderer records it.
	Version(ctx context.Context, src Source) (string, error)
}
