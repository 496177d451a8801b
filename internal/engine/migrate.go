package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/danieljhkim/scaffold/internal/answers"
	"github.com/danieljhkim/scaffold/internal/project"
	"github.com/danieljhkim/scaffold/internal/template"
	"github.com/danieljhkim/scaffold/internal/tplname"
)

// LegacyVersionLength is the number of characters of the legacy marker kept
// as the version token.
const LegacyVersionLength = 7

// LegacyVersionToken returns the version token recorded by a legacy marker.
func LegacyVersionToken(content []byte) string {
	token := strings.TrimSpace(string(content))
	if len(token) > LegacyVersionLength {
		token = token[:LegacyVersionLength]
	}
	return token
}

// legacyInstance is one answers file written by a migration.
type legacyInstance struct {
	name    tplname.Name
	appName string
	data    map[string]any
}

func newLegacyInstance(name tplname.Name, appName string) legacyInstance {
	return legacyInstance{
		name:    name,
		appName: appName,
		data: map[string]any{
			answers.KeyAppName:      appName,
			answers.KeyTemplate:     name.Template,
			answers.KeyTemplateName: name.ID(),
		},
	}
}

// legacyMigration describes how one template's legacy marker maps to
// answers files. name owns the marker and the state directory.
type legacyMigration struct {
	name      tplname.Name
	marker    string
	instances []legacyInstance
}

// MigrateInfra converts the legacy infra marker into answers files for the
// base and every app directory under infra/.
func (e *Engine) MigrateInfra(ctx context.Context, req *MigrateRequest) (*MigrateResult, error) {
	if req.TemplateURI == "" {
		return nil, fmt.Errorf("%w: template URI is required", ErrValidation)
	}
	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}
	if err := e.requireLegacyMarker(proj, project.InfraLegacyMarker); err != nil {
		return nil, err
	}

	config := e.readProjectConfig(ctx, proj)

	base := newLegacyInstance(project.InfraBase, project.InfraBaseAppName)
	for k, v := range config {
		base.data[k] = v
	}
	m := legacyMigration{
		name:      project.InfraBase,
		marker:    project.InfraLegacyMarker,
		instances: []legacyInstance{base},
	}

	apps, err := proj.InfraAppDirs()
	if err != nil {
		return nil, err
	}
	for _, a := range apps {
		m.instances = append(m.instances, newLegacyInstance(project.InfraApp, a))
	}

	result, err := e.migrate(ctx, proj, req, m)
	if result != nil {
		result.ProjectConfig = config
	}
	return result, err
}

// MigrateApp converts the legacy marker of a single-slice application
// template into an answers file for req.AppName.
func (e *Engine) MigrateApp(ctx context.Context, req *MigrateRequest) (*MigrateResult, error) {
	if req.TemplateURI == "" {
		return nil, fmt.Errorf("%w: template URI is required", ErrValidation)
	}
	if req.AppName == "" {
		return nil, fmt.Errorf("%w: app name is required", ErrValidation)
	}
	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}

	name := tplname.FromURI(req.TemplateURI)
	marker := project.LegacyVersionFile(name)
	if err := e.requireLegacyMarker(proj, marker); err != nil {
		return nil, err
	}

	return e.migrate(ctx, proj, req, legacyMigration{
		name:      name,
		marker:    marker,
		instances: []legacyInstance{newLegacyInstance(name, req.AppName)},
	})
}

func (e *Engine) requireLegacyMarker(proj *project.Project, marker string) error {
	ok, err := proj.HasFile(marker)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w (looking for %s); are you sure this is a legacy template?", ErrMissingLegacyState, proj.Path(marker))
	}
	return nil
}

func (e *Engine) migrate(ctx context.Context, proj *project.Project, req *MigrateRequest, m legacyMigration) (*MigrateResult, error) {
	content, err := proj.ReadFile(m.marker)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.marker, err)
	}
	token := LegacyVersionToken(content)
	if token == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrValidation, m.marker)
	}

	result := &MigrateResult{
		ProjectDir:    proj.Dir,
		LegacyFile:    m.marker,
		LegacyVersion: token,
	}

	for _, inst := range m.instances {
		rec := &answers.Record{
			SourceURI:    req.TemplateURI,
			VersionToken: token,
			Data:         inst.data,
		}
		rel, err := proj.Answers().Write(proj.Dir, inst.name, inst.appName, rec)
		if err != nil {
			return result, fmt.Errorf("failed to write answers for %s: %w", inst.appName, err)
		}
		e.log.Info("migrated legacy version", "from", m.marker, "to", rel, "version", token)
		result.Written = append(result.Written, rel)
	}

	if !req.KeepLegacyFile {
		e.log.Info("deleting legacy file", "path", m.marker)
		if err := e.fs.Remove(proj.Path(m.marker)); err != nil {
			return result, fmt.Errorf("failed to delete %s: %w", m.marker, err)
		}
		result.Removed = true
	}

	if req.Commit {
		msg := fmt.Sprintf("Migrate %s to %s", m.marker, answers.StateDir(m.name))
		if !e.vcs.IsRepository(ctx, proj.Dir) {
			e.log.Warn("asked to commit, but project is not a git repository", "message", msg)
			result.Commit = &template.CommitResult{Message: msg, NotRepository: true}
			return result, nil
		}
		res, err := e.vcs.CommitAll(ctx, proj.Dir, msg)
		if err != nil {
			return result, err
		}
		result.Commit = &template.CommitResult{Message: msg, Committed: res.OK, Output: res.Stdout}
	}

	return result, nil
}

// readProjectConfig never fails; a broken project configuration only loses
// the enrichment.
func (e *Engine) readProjectConfig(ctx context.Context, proj *project.Project) map[string]string {
	if e.projectConfig == nil {
		return nil
	}
	values, err := e.projectConfig.Read(ctx, proj.Path(ProjectConfigDir))
	if err != nil {
		e.log.Warn("skipping project config migration", "error", err)
		return nil
	}
	return values
}
