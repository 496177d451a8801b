// Package project answers questions about the template instances installed in
// a project directory.
//
// Every query rescans the state directories; nothing is cached, so instances
// created earlier in the same command are always visible.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danieljhkim/scaffold/internal/answers"
	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/tplname"
	"github.com/danieljhkim/scaffold/internal/version"
)

var (
	// ErrNotInstalled indicates a template instance has no answers file.
	ErrNotInstalled = errors.New("template not installed")

	// ErrVersionDrift indicates instances that should share a version do not.
	ErrVersionDrift = errors.New("template versions out of sync")
)

// InfraDir is the directory whose subdirectories name the project's apps.
const InfraDir = "infra"

// ReservedInfraDirs are subdirectories of InfraDir that are not apps.
var ReservedInfraDirs = []string{"accounts", "modules", "networks", "project-config", "test"}

// Project is a destination directory that templates are rendered into.
type Project struct {
	// Dir is the absolute project root.
	Dir string

	fs      fsops.FS
	answers *answers.Store
}

// New creates a Project rooted at dir.
func New(dir string, fs fsops.FS) *Project {
	return &Project{Dir: dir, fs: fs, answers: answers.NewStore(fs)}
}

// Path joins a slash-separated relative path onto the project root.
func (p *Project) Path(rel string) string {
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}

// Answers returns the project's answers store.
func (p *Project) Answers() *answers.Store {
	return p.answers
}

// ReadAnswers returns the record of an instance, or nil.
func (p *Project) ReadAnswers(name tplname.Name, appName string) (*answers.Record, error) {
	return p.answers.Read(p.Dir, name, appName)
}

// Entries returns every answers file in the project.
func (p *Project) Entries() ([]answers.Entry, error) {
	return p.answers.Discover(p.Dir)
}

// InstalledRepoNames returns the template repositories that have a state
// directory, including ones whose answers files cannot be parsed.
func (p *Project) InstalledRepoNames() ([]string, error) {
	dirs, err := p.answers.StateDirs(p.Dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dirs))
	for _, d := range dirs {
		names = append(names, strings.TrimPrefix(d, "."))
	}
	return names, nil
}

// InstalledInstances returns the distinct instances with at least one
// answers file, sorted by ID.
func (p *Project) InstalledInstances() ([]tplname.Name, error) {
	entries, err := p.Entries()
	if err != nil {
		return nil, err
	}
	return uniqueNames(entries, func(answers.Entry) bool { return true }), nil
}

// InstancesForApp returns the instances rendered for appName, sorted by ID.
func (p *Project) InstancesForApp(appName string) ([]tplname.Name, error) {
	entries, err := p.Entries()
	if err != nil {
		return nil, err
	}
	return uniqueNames(entries, func(e answers.Entry) bool { return e.AppName == appName }), nil
}

func uniqueNames(entries []answers.Entry, keep func(answers.Entry) bool) []tplname.Name {
	seen := map[string]tplname.Name{}
	for _, e := range entries {
		if keep(e) {
			seen[e.Name.ID()] = e.Name
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := make([]tplname.Name, 0, len(ids))
	for _, id := range ids {
		names = append(names, seen[id])
	}
	return names
}

// AppNames returns the apps that have an answers file for name, sorted. The
// app names are read from the file names so files without a template key
// are still found.
func (p *Project) AppNames(name tplname.Name) ([]string, error) {
	files, err := p.fs.ListDir(p.Path(answers.StateDir(name)))
	if err != nil {
		return nil, err
	}

	prefix := name.AnswersFilePrefix()
	var apps []string
	for _, f := range files {
		if f.IsDir || !strings.HasSuffix(f.Name, ".yml") {
			continue
		}
		base := strings.TrimSuffix(f.Name, ".yml")
		if prefix != "" {
			if !strings.HasPrefix(base, prefix) {
				continue
			}
			base = strings.TrimPrefix(base, prefix)
		}
		if base == "" || name.IsSingular(base) {
			continue
		}
		apps = append(apps, base)
	}
	sort.Strings(apps)
	return apps, nil
}

// InfraAppDirs returns subdirectories of InfraDir that are not reserved.
func (p *Project) InfraAppDirs() ([]string, error) {
	entries, err := p.fs.ListDir(p.Path(InfraDir))
	if err != nil {
		return nil, err
	}

	var apps []string
	for _, e := range entries {
		if !e.IsDir || strings.HasPrefix(e.Name, ".") || isReserved(e.Name) {
			continue
		}
		apps = append(apps, e.Name)
	}
	return apps, nil
}

func isReserved(dir string) bool {
	for _, r := range ReservedInfraDirs {
		if dir == r {
			return true
		}
	}
	return false
}

// PossibleAppNames is a best-effort list of the project's apps: infra
// subdirectories plus app names found in non-singular answers files.
func (p *Project) PossibleAppNames() ([]string, error) {
	set := map[string]struct{}{}

	dirs, err := p.InfraAppDirs()
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		set[d] = struct{}{}
	}

	entries, err := p.Entries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.Name.IsSingular(e.AppName) {
			set[e.AppName] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// LegacyVersionFile returns the project-relative legacy marker for a
// single-slice template, ".<repo>-version".
func LegacyVersionFile(name tplname.Name) string {
	return fmt.Sprintf(".%s-version", name.Repo)
}

// HasFile reports whether a project-relative file exists.
func (p *Project) HasFile(rel string) (bool, error) {
	return p.fs.Exists(p.Path(rel))
}

// ReadFile reads a project-relative file.
func (p *Project) ReadFile(rel string) ([]byte, error) {
	return p.fs.ReadFile(p.Path(rel))
}

// Drift is a disagreement between a base record and one app record.
type Drift struct {
	AppName   string
	BaseToken string
	AppToken  string
}

func (d Drift) String() string {
	return fmt.Sprintf("%s records %s, base records %s", d.AppName, d.AppToken, d.BaseToken)
}

// CheckDrift compares the raw version token of every app instance of app
// with the base instance recorded for baseApp.
func (p *Project) CheckDrift(base, app tplname.Name, baseApp string) (version.Version, []Drift, error) {
	baseRec, err := p.ReadAnswers(base, baseApp)
	if err != nil {
		return version.Version{}, nil, err
	}
	if baseRec == nil {
		return version.Version{}, nil, fmt.Errorf("%w: %s", ErrNotInstalled, base.ID())
	}
	baseVersion := baseRec.Version()

	apps, err := p.AppNames(app)
	if err != nil {
		return version.Version{}, nil, err
	}

	var drifts []Drift
	for _, a := range apps {
		rec, err := p.ReadAnswers(app, a)
		if err != nil {
			return version.Version{}, nil, err
		}
		if rec == nil {
			continue
		}
		if version.Drifted(baseVersion, rec.Version()) {
			drifts = append(drifts, Drift{AppName: a, BaseToken: baseRec.VersionToken, AppToken: rec.VersionToken})
		}
	}
	return baseVersion, drifts, nil
}

// TemplateVersion returns the version shared by the base and every app
// instance, failing with ErrVersionDrift when they disagree.
func (p *Project) TemplateVersion(base, app tplname.Name, baseApp string) (version.Version, error) {
	v, drifts, err := p.CheckDrift(base, app, baseApp)
	if err != nil {
		return version.Version{}, err
	}
	if len(drifts) > 0 {
		parts := make([]string, 0, len(drifts))
		for _, d := range drifts {
			parts = append(parts, d.String())
		}
		return version.Version{}, fmt.Errorf("%w: %s", ErrVersionDrift, strings.Join(parts, "; "))
	}
	return v, nil
}
