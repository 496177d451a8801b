package render

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/flosch/pongo2/v6"

	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/hash"
)

// FileRenderer renders single Jinja-compatible template files with pongo2.
type FileRenderer struct {
	fs     fsops.FS
	hasher hash.Hasher
}

// NewFileRenderer creates a FileRenderer.
func NewFileRenderer(fs fsops.FS, hasher hash.Hasher) *FileRenderer {
	return &FileRenderer{fs: fs, hasher: hasher}
}

// RenderFile renders req.Path from the checkout to req.RenderPath in the
// project. The output is left untouched when it already has the rendered
// content.
func (r *FileRenderer) RenderFile(ctx context.Context, req FileRequest) (FileResult, error) {
	if err := fsops.ValidateRelPath(req.RenderPath); err != nil {
		return FileResult{}, err
	}

	loader, err := pongo2.NewLocalFileSystemLoader(req.Source.Dir)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to load templates from %s: %w", req.Source.Dir, err)
	}
	set := pongo2.NewSet("scaffold", loader)

	tpl, err := set.FromFile(req.Path)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to parse %s: %w", req.Path, err)
	}

	out, err := tpl.ExecuteBytes(pongo2.Context(req.Data))
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to render %s: %w", req.Path, err)
	}

	dest := filepath.Join(req.Dest, filepath.FromSlash(req.RenderPath))
	result := FileResult{Path: req.RenderPath}
	if hash.Same(r.hasher, dest, out) {
		return result, nil
	}

	if err := r.fs.AtomicWrite(dest, out, 0644); err != nil {
		return FileResult{}, fmt.Errorf("failed to write %s: %w", req.RenderPath, err)
	}
	result.Changed = true
	return result, nil
}
