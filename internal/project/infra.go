package project

import "github.com/danieljhkim/scaffold/internal/tplname"

// Infrastructure template layout.
const (
	InfraRepo         = "template-infra"
	InfraBaseAppName  = "base"
	InfraLegacyMarker = ".template-version"
)

var (
	// InfraBase is the once-per-project slice of the infra template.
	InfraBase = tplname.New(InfraRepo, "base")

	// InfraApp is the once-per-app slice of the infra template.
	InfraApp = tplname.New(InfraRepo, tplname.AppTemplate)
)

// InfraAppNames returns the apps with infra app answers files.
func (p *Project) InfraAppNames() ([]string, error) {
	return p.AppNames(InfraApp)
}

// InfraTemplateVersion returns the infra version shared by base and apps.
func (p *Project) InfraTemplateVersion() (string, error) {
	v, err := p.TemplateVersion(InfraBase, InfraApp, InfraBaseAppName)
	if err != nil {
		return "", err
	}
	return v.Raw(), nil
}
