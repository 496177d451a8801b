package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/planner"
	"github.com/danieljhkim/scaffold/internal/project"
	"github.com/danieljhkim/scaffold/internal/render"
	"github.com/danieljhkim/scaffold/internal/template"
)

// NetworkConfigCandidates are the template paths of the shared network
// configuration, in lookup order.
var NetworkConfigCandidates = []string{
	"templates/base/infra/networks/main.tf.jinja",
	"infra/networks/main.tf.jinja",
}

// infraTemplate is the pair of instances rendered from the infra template.
type infraTemplate struct {
	uri  string
	base *template.Instance
	app  *template.Instance
}

func (e *Engine) infraTemplate(uri string, cache *template.Cache) *infraTemplate {
	deps := e.deps(cache)
	return &infraTemplate{
		uri:  uri,
		base: template.New(uri, project.InfraBase, template.BaseSlice, deps),
		app:  template.New(uri, project.InfraApp, template.AppSlice, deps),
	}
}

// existingInfraTemplate uses uri, or the source recorded by the base
// instance when uri is empty.
func (e *Engine) existingInfraTemplate(proj *project.Project, uri string, cache *template.Cache) (*infraTemplate, error) {
	if uri != "" {
		return e.infraTemplate(uri, cache), nil
	}
	base, err := template.FromExisting(proj, project.InfraBase, project.InfraBaseAppName, template.BaseSlice, e.deps(cache))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot determine existing %s source: %w", ErrUnknownSource, project.InfraRepo, err)
	}
	return e.infraTemplate(base.URI, cache), nil
}

// ValidateInfraAppName checks appName is usable as an infra app directory.
func ValidateInfraAppName(appName string) error {
	if err := fsops.ValidateAppName(appName); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	for _, r := range project.ReservedInfraDirs {
		if appName == r {
			return fmt.Errorf("%w: %q is reserved for infra/%s", ErrValidation, appName, r)
		}
	}
	return nil
}

// InstallInfra installs the infra base, then each requested app pinned at
// the base's version.
func (e *Engine) InstallInfra(ctx context.Context, req *InstallInfraRequest) (*InstallResult, error) {
	if req.TemplateURI == "" {
		return nil, fmt.Errorf("%w: template URI is required", ErrValidation)
	}
	appNames := sortedUnique(req.AppNames)
	for _, a := range appNames {
		if err := ValidateInfraAppName(a); err != nil {
			return nil, err
		}
	}

	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}
	cache := e.newCache()
	defer e.closeCache(cache)
	infra := e.infraTemplate(req.TemplateURI, cache)

	result := &InstallResult{ProjectDir: proj.Dir}

	e.log.Info("installing infra base", "uri", req.TemplateURI)
	base, err := infra.base.Install(ctx, proj, project.InfraBaseAppName, template.InstallOptions{
		Version: req.Version,
		Data:    req.Data,
		Commit:  req.Commit,
	})
	result.Steps = appendStep(result.Steps, base)
	if err != nil {
		return result, err
	}

	for _, a := range appNames {
		e.log.Info("installing infra app", "app", a)
		step, network, err := e.addApp(ctx, proj, infra, a, req.Version, req.Data, req.Commit)
		result.Steps = appendStep(result.Steps, step)
		if network != nil {
			result.NetworkConfig = network
		}
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// AddApp installs one infra app instance at the project's current infra
// version and regenerates the network configuration.
func (e *Engine) AddApp(ctx context.Context, req *AddAppRequest) (*InstallResult, error) {
	if err := ValidateInfraAppName(req.AppName); err != nil {
		return nil, err
	}

	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}

	rec, err := proj.ReadAnswers(project.InfraApp, req.AppName)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return nil, fmt.Errorf("%w: %s", ErrAppExists, req.AppName)
	}

	cache := e.newCache()
	defer e.closeCache(cache)
	infra, err := e.existingInfraTemplate(proj, req.TemplateURI, cache)
	if err != nil {
		return nil, err
	}

	result := &InstallResult{ProjectDir: proj.Dir}
	step, network, err := e.addApp(ctx, proj, infra, req.AppName, req.Version, req.Data, req.Commit)
	result.Steps = appendStep(result.Steps, step)
	result.NetworkConfig = network
	return result, err
}

func (e *Engine) addApp(ctx context.Context, proj *project.Project, infra *infraTemplate, appName, ref string, data map[string]any, commit bool) (*template.Result, *render.FileResult, error) {
	if ref == "" {
		current, err := proj.InfraTemplateVersion()
		if err != nil {
			return nil, nil, err
		}
		ref = current
	}

	step, err := infra.app.Install(ctx, proj, appName, template.InstallOptions{Version: ref, Data: data})
	if err != nil {
		return nil, nil, err
	}

	apps, err := proj.InfraAppNames()
	if err != nil {
		return step, nil, err
	}
	apps = sortedUnique(append(apps, appName))

	network, err := e.regenerateNetworkConfig(ctx, proj, infra, apps, ref)
	if err != nil {
		return step, nil, err
	}

	if commit {
		if step.Commit, err = infra.app.CommitAction(ctx, proj, template.ActionInstall, appName); err != nil {
			return step, network, err
		}
	}
	return step, network, nil
}

// PlanInfraUpdate returns the steps UpdateInfra would run.
func (e *Engine) PlanInfraUpdate(ctx context.Context, projectDir, version string) (*planner.UpdatePlan, error) {
	proj, err := e.openProject(projectDir)
	if err != nil {
		return nil, err
	}
	return planner.BuildInfraUpdatePlan(proj, version)
}

// UpdateInfra updates the infra base, then every installed app in name
// order, committing after each step. A merge conflict halts the sequence;
// the steps before it stay committed.
func (e *Engine) UpdateInfra(ctx context.Context, req *UpdateInfraRequest) (*UpdateResult, error) {
	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}

	plan, err := planner.BuildInfraUpdatePlan(proj, req.Version)
	if err != nil {
		return nil, err
	}
	for _, d := range plan.Drift {
		e.log.Warn("app instance drifted from base", "app", d.AppName, "app_version", d.AppToken, "base_version", d.BaseToken)
	}

	result := &UpdateResult{ProjectDir: proj.Dir, Plan: plan}
	if req.DryRun {
		result.DryRun = true
		return result, nil
	}

	cache := e.newCache()
	defer e.closeCache(cache)
	infra, err := e.existingInfraTemplate(proj, req.TemplateURI, cache)
	if err != nil {
		return nil, err
	}

	for _, s := range plan.Steps {
		var (
			step    *template.Result
			network *render.FileResult
		)
		switch s.Kind {
		case planner.StepBase:
			e.log.Info("updating infra base")
			step, network, err = e.updateBase(ctx, proj, infra, req.UpdateOptions, true)
		case planner.StepApp:
			e.log.Info("updating infra app", "app", s.AppName)
			step, err = infra.app.Update(ctx, proj, s.AppName, instanceUpdateOptions(req.UpdateOptions, true))
		default:
			err = fmt.Errorf("unknown step kind: %s", s.Kind)
		}

		result.Steps = appendStep(result.Steps, step)
		if network != nil {
			result.NetworkConfig = network
		}
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// UpdateBase updates the infra base and regenerates the network
// configuration.
func (e *Engine) UpdateBase(ctx context.Context, req *UpdateBaseRequest) (*UpdateResult, error) {
	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}
	cache := e.newCache()
	defer e.closeCache(cache)
	infra, err := e.existingInfraTemplate(proj, req.TemplateURI, cache)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{ProjectDir: proj.Dir}
	step, network, err := e.updateBase(ctx, proj, infra, req.UpdateOptions, req.Commit)
	result.Steps = appendStep(result.Steps, step)
	result.NetworkConfig = network
	return result, err
}

// updateBase defers the commit until the network configuration has been
// regenerated so both land in one commit.
func (e *Engine) updateBase(ctx context.Context, proj *project.Project, infra *infraTemplate, opts UpdateOptions, commit bool) (*template.Result, *render.FileResult, error) {
	step, err := infra.base.Update(ctx, proj, project.InfraBaseAppName, instanceUpdateOptions(opts, false))
	if err != nil {
		return step, nil, err
	}
	if step.UpToDate {
		return step, nil, nil
	}

	apps, err := proj.InfraAppNames()
	if err != nil {
		return step, nil, err
	}
	network, err := e.regenerateNetworkConfig(ctx, proj, infra, apps, step.Ref)
	if err != nil {
		return step, nil, err
	}

	if commit {
		if step.Commit, err = infra.base.CommitAction(ctx, proj, template.ActionUpdate, project.InfraBaseAppName); err != nil {
			return step, network, err
		}
	}
	return step, network, nil
}

// UpdateApps updates the requested infra app instances in order. A merge
// conflict halts the sequence.
func (e *Engine) UpdateApps(ctx context.Context, req *UpdateAppsRequest) (*UpdateResult, error) {
	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}

	apps := req.AppNames
	if req.All {
		if apps, err = proj.InfraAppNames(); err != nil {
			return nil, err
		}
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("%w: no apps to update", ErrValidation)
	}

	cache := e.newCache()
	defer e.closeCache(cache)
	infra, err := e.existingInfraTemplate(proj, req.TemplateURI, cache)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{ProjectDir: proj.Dir}
	for _, a := range apps {
		e.log.Info("updating infra app", "app", a)
		step, err := infra.app.Update(ctx, proj, a, instanceUpdateOptions(req.UpdateOptions, req.Commit))
		result.Steps = appendStep(result.Steps, step)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// regenerateNetworkConfig renders the shared network file from the base
// checkout at ref with every app name. Templates without the file are
// skipped.
func (e *Engine) regenerateNetworkConfig(ctx context.Context, proj *project.Project, infra *infraTemplate, apps []string, ref string) (*render.FileResult, error) {
	src, err := infra.base.Checkout(ctx, ref)
	if err != nil {
		return nil, err
	}

	found := ""
	for _, candidate := range NetworkConfigCandidates {
		ok, err := e.fs.Exists(filepath.Join(src.Dir, filepath.FromSlash(candidate)))
		if err != nil {
			return nil, err
		}
		if ok {
			found = candidate
			break
		}
	}
	if found == "" {
		e.log.Debug("template has no network configuration", "ref", ref)
		return nil, nil
	}

	renderPath := strings.TrimSuffix(strings.TrimPrefix(found, "templates/base/"), ".jinja")
	e.log.Info("regenerating network configuration", "path", renderPath, "apps", apps)

	res, err := e.renderer.RenderFile(ctx, render.FileRequest{
		Source:     src,
		Path:       found,
		Dest:       proj.Dir,
		RenderPath: renderPath,
		Data:       map[string]any{"app_names": apps},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate %s: %w", renderPath, err)
	}
	return &res, nil
}

func instanceUpdateOptions(opts UpdateOptions, commit bool) template.UpdateOptions {
	return template.UpdateOptions{
		Version:     opts.Version,
		Data:        opts.Data,
		AnswersOnly: opts.AnswersOnly,
		Force:       opts.Force,
		Commit:      commit,
	}
}

func appendStep(steps []*template.Result, step *template.Result) []*template.Result {
	if step == nil {
		return steps
	}
	return append(steps, step)
}

func sortedUnique(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// InfraAppDirs returns the app directories found under infra/, the apps a
// fresh infra install should manage.
func (e *Engine) InfraAppDirs(projectDir string) ([]string, error) {
	proj, err := e.openProject(projectDir)
	if err != nil {
		return nil, err
	}
	return proj.InfraAppDirs()
}

// InfraApps returns the apps with an installed infra app instance.
func (e *Engine) InfraApps(projectDir string) ([]string, error) {
	proj, err := e.openProject(projectDir)
	if err != nil {
		return nil, err
	}
	return proj.InfraAppNames()
}
