package engine

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/danieljhkim/scaffold/internal/answers"
	"github.com/danieljhkim/scaffold/internal/project"
	"github.com/danieljhkim/scaffold/internal/template"
	"github.com/danieljhkim/scaffold/internal/version"
)

// Info reports the template instances installed in a project. Release
// lookups that fail are logged and left out of the report.
func (e *Engine) Info(ctx context.Context, req *InfoRequest) (*InfoResult, error) {
	proj, err := e.openProject(req.ProjectDir)
	if err != nil {
		return nil, err
	}
	cache := e.newCache()
	defer e.closeCache(cache)

	entries, err := proj.Entries()
	if err != nil {
		return nil, err
	}

	result := &InfoResult{
		ProjectDir: proj.Dir,
		Name:       filepath.Base(proj.Dir),
		Instances:  []InstanceInfo{},
		Apps:       []AppInfo{},
	}

	byApp := map[string][]InstanceInfo{}
	for _, entry := range entries {
		info := e.instanceInfo(ctx, cache, entry, req.Offline)
		result.Instances = append(result.Instances, info)
		if !entry.Name.IsSingular(entry.AppName) {
			byApp[entry.AppName] = append(byApp[entry.AppName], info)
		}
	}

	appNames := make([]string, 0, len(byApp))
	for a := range byApp {
		appNames = append(appNames, a)
	}
	sort.Strings(appNames)
	for _, a := range appNames {
		result.Apps = append(result.Apps, AppInfo{Name: a, Templates: byApp[a]})
	}

	infra, err := e.infraInfo(ctx, cache, proj, req.Offline)
	if err != nil {
		return nil, err
	}
	result.Infra = infra

	return result, nil
}

func (e *Engine) instanceInfo(ctx context.Context, cache *template.Cache, entry answers.Entry, offline bool) InstanceInfo {
	info := InstanceInfo{
		ID:          entry.Name.ID(),
		AppName:     entry.AppName,
		AnswersFile: entry.Path,
	}
	if entry.Err != nil {
		info.Error = entry.Err.Error()
	}
	if entry.Record == nil {
		return info
	}

	info.SourceURI = entry.Record.SourceURI
	if entry.Record.VersionToken != "" {
		v := entry.Record.Version()
		info.Version = v.String()
		info.VersionKind = v.Kind().String()
	}
	if !offline {
		info.NewerReleases = e.newerReleases(ctx, cache, entry.Record.SourceURI, entry.Record.VersionToken)
	}
	return info
}

func (e *Engine) newerReleases(ctx context.Context, cache *template.Cache, uri, token string) []string {
	if uri == "" || token == "" {
		return nil
	}
	releases, err := cache.NewerReleases(ctx, uri, token)
	if err != nil {
		e.log.Warn("failed to list releases", "uri", uri, "error", err)
		return nil
	}
	return displayVersions(releases)
}

// infraInfo returns nil for projects without infra state.
func (e *Engine) infraInfo(ctx context.Context, cache *template.Cache, proj *project.Project, offline bool) (*InfraInfo, error) {
	base, err := proj.ReadAnswers(project.InfraBase, project.InfraBaseAppName)
	if err != nil {
		return nil, err
	}
	hasLegacy, err := proj.HasFile(project.InfraLegacyMarker)
	if err != nil {
		return nil, err
	}
	if base == nil && !hasLegacy {
		return nil, nil
	}

	info := &InfraInfo{Apps: []string{}}

	if base != nil {
		info.Installed = true
		info.SourceURI = base.SourceURI
		info.Version = base.Version().String()
		if !offline {
			info.NewerReleases = e.newerReleases(ctx, cache, base.SourceURI, base.VersionToken)
		}

		_, drift, err := proj.CheckDrift(project.InfraBase, project.InfraApp, project.InfraBaseAppName)
		if err != nil {
			return nil, err
		}
		for _, d := range drift {
			info.Drift = append(info.Drift, DriftInfo{
				AppName:     d.AppName,
				AppVersion:  version.Parse(d.AppToken).String(),
				BaseVersion: version.Parse(d.BaseToken).String(),
			})
		}
	}

	if hasLegacy {
		content, err := proj.ReadFile(project.InfraLegacyMarker)
		if err != nil {
			return nil, err
		}
		info.LegacyVersion = LegacyVersionToken(content)
		if !offline && info.SourceURI != "" {
			info.LegacyClosestTag = e.closestTag(ctx, cache, info.SourceURI, info.LegacyVersion)
		}
	}

	apps, err := proj.InfraAppNames()
	if err != nil {
		return nil, err
	}
	info.Apps = append(info.Apps, apps...)

	dirs, err := proj.InfraAppDirs()
	if err != nil {
		return nil, err
	}
	managed := make(map[string]bool, len(apps))
	for _, a := range apps {
		managed[a] = true
	}
	for _, d := range dirs {
		if !managed[d] {
			info.Unmanaged = append(info.Unmanaged, d)
		}
	}

	return info, nil
}

func (e *Engine) closestTag(ctx context.Context, cache *template.Cache, uri, commit string) string {
	co, err := cache.Checkout(ctx, uri)
	if err != nil {
		e.log.Warn("failed to fetch template", "uri", uri, "error", err)
		return ""
	}
	tag, err := e.vcs.ClosestTag(ctx, co.Dir, commit)
	if err != nil {
		e.log.Debug("no release contains legacy version", "commit", commit, "error", err)
		return ""
	}
	return tag
}

func displayVersions(vs []version.Version) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.String())
	}
	return out
}
