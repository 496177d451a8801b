// Package template binds one logical template slice to a project and renders
// it.
//
// An Instance knows its source URI, its TemplateName and which part of the
// physical template it owns. Install renders it from scratch; Update merges a
// newer version into the existing render; CommitAction records the result in
// the project's history. Clones and release lookups are shared through a
// Cache created once per command.
package template

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/danieljhkim/scaffold/internal/answers"
	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/gitx"
	"github.com/danieljhkim/scaffold/internal/partition"
	"github.com/danieljhkim/scaffold/internal/project"
	"github.com/danieljhkim/scaffold/internal/render"
	"github.com/danieljhkim/scaffold/internal/tplname"
	"github.com/danieljhkim/scaffold/internal/version"
)

// ExcludeRule selects the exclude globs an instance renders with, given the
// partition of its template's tracked files.
type ExcludeRule func(p partition.Result, appName string) []string

var (
	// BaseSlice renders everything except app-marker paths.
	BaseSlice ExcludeRule = partition.Result.BaseExcludes

	// AppSlice renders only app-marker paths.
	AppSlice ExcludeRule = partition.Result.AppExcludes

	// WholeTemplate renders the entire template.
	WholeTemplate ExcludeRule = func(partition.Result, string) []string {
		return []string{partition.TemplateOnlyPattern}
	}
)

// Deps are the collaborators an Instance renders through.
type Deps struct {
	VCS      gitx.VCS
	Renderer render.Renderer
	Cache    *Cache
	Logger   *slog.Logger
}

// Instance is a renderable template slice.
type Instance struct {
	URI  string
	Name tplname.Name

	rule     ExcludeRule
	vcs      gitx.VCS
	renderer render.Renderer
	cache    *Cache
	log      *slog.Logger
}

// New creates an Instance of name sourced from uri.
func New(uri string, name tplname.Name, rule ExcludeRule, deps Deps) *Instance {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if rule == nil {
		rule = WholeTemplate
	}
	return &Instance{
		URI:      uri,
		Name:     name,
		rule:     rule,
		vcs:      deps.VCS,
		renderer: deps.Renderer,
		cache:    deps.Cache,
		log:      log.With("template", name.ID()),
	}
}

// FromExisting creates an Instance whose source is the one recorded for
// appName in p.
func FromExisting(p *project.Project, name tplname.Name, appName string, rule ExcludeRule, deps Deps) (*Instance, error) {
	rec, err := p.ReadAnswers(name, appName)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, missingState(name, appName)
	}
	if rec.SourceURI == "" {
		return nil, fmt.Errorf("%s has no recorded source", answers.Location(name, appName))
	}
	return New(rec.SourceURI, name, rule, deps), nil
}

func missingState(name tplname.Name, appName string) error {
	return fmt.Errorf("%w: %s has no answers file at %s", ErrMissingState, name.ID(), answers.Location(name, appName))
}

// Action names the operation a commit records.
type Action string

const (
	ActionInstall Action = "install"
	ActionUpdate  Action = "update"
)

// InstallOptions configure Install.
type InstallOptions struct {
	// Version is the ref to render, latest release when empty.
	Version string

	// Data is merged into the template answers.
	Data map[string]any

	// Commit commits the result when the project is a repository.
	Commit bool
}

// UpdateOptions configure Update.
type UpdateOptions struct {
	Version string
	Data    map[string]any

	// AnswersOnly re-renders at the recorded version with new Data.
	AnswersOnly bool

	// Force renders from scratch instead of merging.
	Force bool

	Commit bool
}

// Result describes one install or update.
type Result struct {
	Action  Action
	AppName string

	// From is the display version before the operation, empty for installs.
	From string

	// To is the display version after the operation.
	To string

	// Ref is the template ref that was rendered.
	Ref string

	// UpToDate is set when an update had nothing to do.
	UpToDate bool

	// Commit is set when a commit was requested.
	Commit *CommitResult
}

// CommitResult describes the outcome of CommitAction.
type CommitResult struct {
	// Message is the commit message, used or not.
	Message string

	// Committed is false when there was nothing to commit or the project is
	// not a repository.
	Committed bool

	// NotRepository is set when the project is not under version control.
	NotRepository bool

	// Output is the VCS output of the commit.
	Output string
}

// Install renders the instance for appName into p from scratch.
func (i *Instance) Install(ctx context.Context, p *project.Project, appName string, opts InstallOptions) (*Result, error) {
	if err := fsops.ValidateAppName(appName); err != nil {
		return nil, err
	}

	ref, err := i.resolveRef(ctx, opts.Version)
	if err != nil {
		return nil, err
	}
	src, err := i.checkoutRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	excludes, err := i.excludes(ctx, src, appName)
	if err != nil {
		return nil, err
	}

	i.log.Info("installing", "app", appName, "ref", ref)
	err = i.renderer.RenderFromZero(ctx, render.CopyRequest{
		Source:      src,
		Dest:        p.Dir,
		AnswersFile: answers.Location(i.Name, appName),
		Data:        i.data(opts.Data, appName),
		Excludes:    excludes,
	})
	if err != nil {
		return nil, &RenderError{Op: string(ActionInstall), Instance: i.Name.ID(), Err: err}
	}

	to, err := i.recordedVersion(ctx, p, appName, src)
	if err != nil {
		return nil, err
	}
	result := &Result{Action: ActionInstall, AppName: appName, To: to.String(), Ref: src.Ref}

	if opts.Commit {
		if result.Commit, err = i.CommitAction(ctx, p, ActionInstall, appName); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Update merges the requested version into the existing render of appName.
func (i *Instance) Update(ctx context.Context, p *project.Project, appName string, opts UpdateOptions) (*Result, error) {
	rec, err := p.ReadAnswers(i.Name, appName)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, missingState(i.Name, appName)
	}
	current := rec.Version()

	var ref string
	if opts.AnswersOnly {
		if len(opts.Data) == 0 {
			return nil, ErrNoAnswersData
		}
		ref = rec.VersionToken
	} else if ref, err = i.resolveRef(ctx, opts.Version); err != nil {
		return nil, err
	}

	src, err := i.checkoutRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	token, err := i.renderer.Version(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve version of %s at %s: %w", i.URI, ref, err)
	}
	target := version.Parse(token)

	result := &Result{Action: ActionUpdate, AppName: appName, From: current.String(), To: target.String(), Ref: src.Ref}
	if !opts.AnswersOnly && !opts.Force && version.Equal(current, target) {
		i.log.Info("already up to date", "app", appName, "version", current.String())
		result.UpToDate = true
		return result, nil
	}

	excludes, err := i.excludes(ctx, src, appName)
	if err != nil {
		return nil, err
	}

	answersFile := answers.Location(i.Name, appName)
	data := i.data(opts.Data, appName)
	i.log.Info("updating", "app", appName, "from", current.String(), "to", target.String(), "force", opts.Force)

	if opts.Force {
		err = i.renderer.RenderFromZero(ctx, render.CopyRequest{
			Source:      src,
			Dest:        p.Dir,
			AnswersFile: answersFile,
			Data:        data,
			Excludes:    excludes,
			Overwrite:   true,
		})
	} else {
		err = i.renderer.RenderUpdate(ctx, render.UpdateRequest{
			Source:       src,
			Dest:         p.Dir,
			AnswersFile:  answersFile,
			Data:         data,
			Excludes:     excludes,
			Overwrite:    true,
			SkipAnswered: true,
		})
	}
	if err != nil {
		return nil, &RenderError{Op: string(ActionUpdate), Instance: i.Name.ID(), Err: err}
	}

	to, err := i.recordedVersion(ctx, p, appName, src)
	if err != nil {
		return nil, err
	}
	result.To = to.String()

	if opts.Commit {
		if result.Commit, err = i.CommitAction(ctx, p, ActionUpdate, appName); err != nil {
			return result, err
		}
	}
	return result, nil
}

// CurrentVersion returns the version recorded for appName.
func (i *Instance) CurrentVersion(p *project.Project, appName string) (version.Version, error) {
	rec, err := p.ReadAnswers(i.Name, appName)
	if err != nil {
		return version.Version{}, err
	}
	if rec == nil {
		return version.Version{}, missingState(i.Name, appName)
	}
	return rec.Version(), nil
}

// CommitMessage returns the message recording action for appName.
func (i *Instance) CommitMessage(action Action, appName, displayVersion string) string {
	prefix := ""
	if !i.Name.IsSingular(appName) {
		prefix = appName + ": "
	}
	if action == ActionInstall {
		return fmt.Sprintf("%sInstall `%s` at version %s", prefix, i.Name.ID(), displayVersion)
	}
	return fmt.Sprintf("%sUpdate `%s` to version %s", prefix, i.Name.ID(), displayVersion)
}

// CommitAction commits the project after action. A project that is not a
// repository is left alone and the would-be message returned; a tree with
// conflict markers fails with *MergeConflictsError.
func (i *Instance) CommitAction(ctx context.Context, p *project.Project, action Action, appName string) (*CommitResult, error) {
	v, err := i.CurrentVersion(p, appName)
	if err != nil {
		return nil, err
	}
	msg := i.CommitMessage(action, appName, v.String())

	if !i.vcs.IsRepository(ctx, p.Dir) {
		i.log.Warn("asked to commit, but project is not a git repository", "message", msg)
		return &CommitResult{Message: msg, NotRepository: true}, nil
	}

	conflicts, err := i.vcs.HasMergeConflicts(ctx, p.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check for merge conflicts: %w", err)
	}
	if conflicts {
		return nil, &MergeConflictsError{CommitMsg: msg}
	}

	res, err := i.vcs.CommitAll(ctx, p.Dir, msg)
	if err != nil {
		return nil, err
	}
	return &CommitResult{Message: msg, Committed: res.OK, Output: res.Stdout}, nil
}

// Checkout pins the template clone at ref and returns it as a render
// source. An empty ref resolves to the latest release.
func (i *Instance) Checkout(ctx context.Context, ref string) (render.Source, error) {
	resolved, err := i.resolveRef(ctx, ref)
	if err != nil {
		return render.Source{}, err
	}
	return i.checkoutRef(ctx, resolved)
}

// resolveRef returns requested, or the latest release tag, or HEAD.
func (i *Instance) resolveRef(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	releases, err := i.cache.Releases(ctx, i.URI)
	if err != nil {
		return "", err
	}
	if len(releases) == 0 {
		return "HEAD", nil
	}
	return releases[len(releases)-1].Raw(), nil
}

// checkoutRef checks ref out in the cached clone. Checking out the ref that
// is already checked out does nothing. A draft commit left at the tip by a
// previous dirty render is discarded.
func (i *Instance) checkoutRef(ctx context.Context, ref string) (render.Source, error) {
	if ref == "" {
		ref = "HEAD"
	}

	co, err := i.cache.Checkout(ctx, i.URI)
	if err != nil {
		return render.Source{}, err
	}
	src := render.Source{URI: i.URI, Dir: co.Dir, Ref: ref}
	if co.Ref == ref {
		return src, nil
	}

	if err := i.vcs.Checkout(ctx, co.Dir, ref); err != nil {
		return render.Source{}, fmt.Errorf("failed to check out %s of %s: %w", ref, i.URI, err)
	}

	if ref != "HEAD" {
		last, err := i.vcs.LastCommit(ctx, co.Dir)
		if err != nil {
			return render.Source{}, err
		}
		if last.IsDraft() {
			i.log.Debug("discarding draft commit", "dir", co.Dir)
			if err := i.vcs.ResetHard(ctx, co.Dir, "HEAD~1"); err != nil {
				return render.Source{}, fmt.Errorf("failed to discard draft commit: %w", err)
			}
		}
	}

	co.Ref = ref
	return src, nil
}

// excludes partitions the tracked files of src and applies the rule.
func (i *Instance) excludes(ctx context.Context, src render.Source, appName string) ([]string, error) {
	tracked, err := i.vcs.TrackedFiles(ctx, src.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}
	part := partition.Compute(tracked, partition.AppNameMarker, answers.StateDir(i.Name))
	return i.rule(part, appName), nil
}

// data merges caller data with the instance identity keys.
func (i *Instance) data(extra map[string]any, appName string) map[string]any {
	out := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		out[k] = v
	}
	out[answers.KeyAppName] = appName
	out[answers.KeyTemplate] = i.Name.Template
	out[answers.KeyTemplateName] = i.Name.ID()
	return out
}

// recordedVersion reads back the version the renderer recorded, falling
// back to the renderer's version of src.
func (i *Instance) recordedVersion(ctx context.Context, p *project.Project, appName string, src render.Source) (version.Version, error) {
	rec, err := p.ReadAnswers(i.Name, appName)
	if err != nil {
		return version.Version{}, err
	}
	if rec != nil && rec.VersionToken != "" {
		return rec.Version(), nil
	}
	token, err := i.renderer.Version(ctx, src)
	if err != nil {
		return version.Version{}, err
	}
	return version.Parse(token), nil
}
