package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/template"
	"github.com/danieljhkim/scaffold/internal/tplname"
)

// appTemplateName returns the explicit name, or the one derived from uri.
func appTemplateName(explicit, uri string) (tplname.Name, error) {
	if explicit != "" {
		name, err := tplname.Parse(explicit)
		if err != nil {
			return tplname.Name{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return name, nil
	}
	if uri == "" {
		return tplname.Name{}, fmt.Errorf("%w: template name or URI is required", ErrValidation)
	}
	return tplname.FromURI(uri), nil
}

// InstallApp renders a single-slice application template for one app.
func (e *Engine) InstallApp(ctx context.Context, req *InstallAppRequest) (*InstallResult, error) {
	if req.TemplateURI == "" {
		return nil, fmt.Errorf("%w: template URI is required", ErrValidation)
	}
	if err := fsops.ValidateAppName(req.AppName); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	name, err := appTemplateName(req.TemplateName, req.TemplateURI)
	if err != nil {
		return nil, err
	}

	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}
	cache := e.newCache()
	defer e.closeCache(cache)

	inst := template.New(req.TemplateURI, name, template.WholeTemplate, e.deps(cache))
	e.log.Info("installing application template", "template", name.ID(), "app", req.AppName)

	result := &InstallResult{ProjectDir: proj.Dir}
	step, err := inst.Install(ctx, proj, req.AppName, template.InstallOptions{
		Version: req.Version,
		Data:    req.Data,
		Commit:  req.Commit,
	})
	result.Steps = appendStep(result.Steps, step)
	return result, err
}

// UpdateApp updates a single-slice application template for one app.
func (e *Engine) UpdateApp(ctx context.Context, req *UpdateAppRequest) (*UpdateResult, error) {
	if req.AppName == "" {
		return nil, fmt.Errorf("%w: app name is required", ErrValidation)
	}
	name, err := appTemplateName(req.TemplateName, req.TemplateURI)
	if err != nil {
		return nil, err
	}

	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}
	cache := e.newCache()
	defer e.closeCache(cache)

	var inst *template.Instance
	if req.TemplateURI != "" {
		inst = template.New(req.TemplateURI, name, template.WholeTemplate, e.deps(cache))
	} else if inst, err = template.FromExisting(proj, name, req.AppName, template.WholeTemplate, e.deps(cache)); err != nil {
		return nil, err
	}

	e.log.Info("updating application template", "template", name.ID(), "app", req.AppName)
	result := &UpdateResult{ProjectDir: proj.Dir}
	step, err := inst.Update(ctx, proj, req.AppName, instanceUpdateOptions(req.UpdateOptions, req.Commit))
	result.Steps = appendStep(result.Steps, step)
	return result, err
}
