package engine

import (
	"github.com/danieljhkim/scaffold/internal/planner"
	"github.com/danieljhkim/scaffold/internal/render"
	"github.com/danieljhkim/scaffold/internal/template"
)

// InstallResult represents the result of an install.
type InstallResult struct {
	// ProjectDir is the resolved project root
	ProjectDir string

	// Steps are the instance results in execution order
	Steps []*template.Result

	// NetworkConfig is set when the shared network file was regenerated
	NetworkConfig *render.FileResult
}

// UpdateResult represents the result of an update.
type UpdateResult struct {
	ProjectDir string

	// Plan is the executed plan, set for whole-template updates
	Plan *planner.UpdatePlan

	// Steps are the instance results in execution order. On a merge
	// conflict they hold the steps completed before it.
	Steps []*template.Result

	// DryRun indicates nothing was rendered
	DryRun bool

	NetworkConfig *render.FileResult
}

// UpToDate reports whether every step was already up to date.
func (r *UpdateResult) UpToDate() bool {
	for _, s := range r.Steps {
		if !s.UpToDate {
			return false
		}
	}
	return len(r.Steps) > 0
}

// MigrateResult represents the result of a legacy migration.
type MigrateResult struct {
	ProjectDir string

	// LegacyFile is the project-relative marker that was read
	LegacyFile string

	// LegacyVersion is the version token recorded in the new answers files
	LegacyVersion string

	// Written are the project-relative answers files created
	Written []string

	// Removed is set when the legacy marker was deleted
	Removed bool

	// ProjectConfig holds answers read from the project configuration
	ProjectConfig map[string]string

	// Commit is set when a commit was requested
	Commit *template.CommitResult
}
