package planner

import (
	"fmt"
	"sort"

	"github.com/danieljhkim/scaffold/internal/project"
	"github.com/danieljhkim/scaffold/internal/tplname"
	"github.com/danieljhkim/scaffold/internal/version"
)

// StepKind distinguishes the base step from app steps.
type StepKind string

// Step kind constants
const (
	StepBase StepKind = "base"
	StepApp  StepKind = "app"
)

// Step is one instance update.
type Step struct {
	// Kind is StepBase or StepApp
	Kind StepKind

	// Instance is the template instance to update
	Instance tplname.Name

	// AppName is the app the instance belongs to ("base" for the base step)
	AppName string

	// Current is the version recorded before the update
	Current version.Version
}

func (s Step) String() string {
	current := s.Current.String()
	if current == "" {
		current = "unknown"
	}
	if s.Instance.IsSingular(s.AppName) {
		return fmt.Sprintf("%s (currently %s)", s.Instance.ID(), current)
	}
	return fmt.Sprintf("%s for %s (currently %s)", s.Instance.ID(), s.AppName, current)
}

// UpdatePlan is an ordered list of instance updates.
type UpdatePlan struct {
	// Target is the requested version, empty for the latest release
	Target string

	// Steps are executed in order
	Steps []Step

	// Drift lists app instances whose recorded version disagrees with base
	Drift []project.Drift
}

// NewUpdatePlan creates an empty UpdatePlan.
func NewUpdatePlan(target string) *UpdatePlan {
	return &UpdatePlan{
		Target: target,
		Steps:  []Step{},
	}
}

// AddStep appends a step to the plan.
func (p *UpdatePlan) AddStep(s Step) {
	p.Steps = append(p.Steps, s)
}

// HasDrift returns true if any app instance drifted from base.
func (p *UpdatePlan) HasDrift() bool {
	return len(p.Drift) > 0
}

// Apps returns the app names of the app steps, in plan order.
func (p *UpdatePlan) Apps() []string {
	var apps []string
	for _, s := range p.Steps {
		if s.Kind == StepApp {
			apps = append(apps, s.AppName)
		}
	}
	return apps
}

// BuildUpdatePlan plans an update of the base instance (recorded under
// baseApp) followed by every installed instance of app.
func BuildUpdatePlan(proj *project.Project, base, app tplname.Name, baseApp, target string) (*UpdatePlan, error) {
	plan := NewUpdatePlan(target)

	baseVersion, drift, err := proj.CheckDrift(base, app, baseApp)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s state: %w", base.ID(), err)
	}
	plan.Drift = drift

	plan.AddStep(Step{
		Kind:     StepBase,
		Instance: base,
		AppName:  baseApp,
		Current:  baseVersion,
	})

	apps, err := proj.AppNames(app)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s instances: %w", app.ID(), err)
	}
	sort.Strings(apps)

	for _, a := range apps {
		rec, err := proj.ReadAnswers(app, a)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s state for %s: %w", app.ID(), a, err)
		}
		if rec == nil {
			continue
		}
		plan.AddStep(Step{
			Kind:     StepApp,
			Instance: app,
			AppName:  a,
			Current:  rec.Version(),
		})
	}

	return plan, nil
}

// BuildInfraUpdatePlan plans a full update of the infra template.
func BuildInfraUpdatePlan(proj *project.Project, target string) (*UpdatePlan, error) {
	return BuildUpdatePlan(proj, project.InfraBase, project.InfraApp, project.InfraBaseAppName, target)
}
