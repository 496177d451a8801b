// Package engine provides the core business logic for scaffold operations.
//
// The engine package acts as the orchestration layer between CLI commands and
// template instances. It resolves the project, wires instances to a shared
// clone cache, sequences install and update steps with commit checkpoints,
// and migrates projects from the legacy single-marker layout.
//
// Key components:
//   - Engine: Main orchestrator that coordinates all operations
//   - Infra: Base and app slices of the infrastructure template
//   - Apps: Single-slice application templates
//   - Migrate: Legacy marker migration
//   - Info: Project and template status reports
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/danieljhkim/scaffold/internal/config"
	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/gitx"
	"github.com/danieljhkim/scaffold/internal/project"
	"github.com/danieljhkim/scaffold/internal/render"
	"github.com/danieljhkim/scaffold/internal/template"
)

// Engine orchestrates all scaffold operations.
// It is the main API surface called by the CLI.
type Engine struct {
	vcs           gitx.VCS
	renderer      render.Renderer
	fs            fsops.FS
	configPaths   config.Paths
	projectConfig ProjectConfigSource
	log           *slog.Logger
}

// New creates a new Engine with the given dependencies.
func New(
	vcs gitx.VCS,
	renderer render.Renderer,
	fs fsops.FS,
	paths config.Paths,
	log *slog.Logger,
) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		vcs:           vcs,
		renderer:      renderer,
		fs:            fs,
		configPaths:   paths,
		projectConfig: NewTerraformProjectConfig(),
		log:           log,
	}
}

// SetProjectConfigSource replaces the source legacy migration reads project
// settings from.
func (e *Engine) SetProjectConfigSource(src ProjectConfigSource) {
	e.projectConfig = src
}

// openProject resolves dir to an existing project directory.
func (e *Engine) openProject(dir string) (*project.Project, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if !e.fs.IsDir(abs) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, abs)
	}
	return project.New(abs, e.fs), nil
}

// newCache creates the clone cache for one operation. Callers Close it.
func (e *Engine) newCache() *template.Cache {
	return template.NewCache(e.vcs, e.configPaths.Cache, e.log)
}

func (e *Engine) deps(cache *template.Cache) template.Deps {
	return template.Deps{
		VCS:      e.vcs,
		Renderer: e.renderer,
		Cache:    cache,
		Logger:   e.log,
	}
}

func (e *Engine) closeCache(cache *template.Cache) {
	if err := cache.Close(); err != nil {
		e.log.Warn("failed to remove template clones", "error", err)
	}
}
