package engine

// InstallInfraRequest represents a request to install the infra template.
type InstallInfraRequest struct {
	// ProjectDir is the project root
	ProjectDir string

	// TemplateURI is the template source (local path or git URL)
	TemplateURI string

	// Version is the ref to install, latest release when empty
	Version string

	// Data is extra template answers
	Data map[string]any

	// AppNames are the apps installed after the base
	AppNames []string

	// Commit commits each instance after it is rendered
	Commit bool
}

// AddAppRequest represents a request to add one infra app instance.
type AddAppRequest struct {
	// ProjectDir is the project root
	ProjectDir string

	// TemplateURI overrides the source recorded by the base instance
	TemplateURI string

	// AppName is the app to add
	AppName string

	// Version overrides the project's current infra version
	Version string

	// Data is extra template answers
	Data map[string]any

	// Commit commits the new instance
	Commit bool
}

// UpdateOptions are shared by every update request.
type UpdateOptions struct {
	// TemplateURI overrides the source recorded by the existing instance
	TemplateURI string

	// Version is the ref to update to, latest release when empty
	Version string

	// Data is extra template answers
	Data map[string]any

	// AnswersOnly re-renders at the recorded version with new Data
	AnswersOnly bool

	// Force renders from scratch instead of merging
	Force bool
}

// UpdateInfraRequest represents a request to update the whole infra
// template: the base, then every app.
type UpdateInfraRequest struct {
	ProjectDir string
	UpdateOptions

	// DryRun returns the plan without rendering anything
	DryRun bool
}

// UpdateBaseRequest represents a request to update the infra base only.
type UpdateBaseRequest struct {
	ProjectDir string
	UpdateOptions

	// Commit commits the result
	Commit bool
}

// UpdateAppsRequest represents a request to update infra app instances.
type UpdateAppsRequest struct {
	ProjectDir string
	UpdateOptions

	// AppNames are the apps to update
	AppNames []string

	// All updates every installed app, ignoring AppNames
	All bool

	// Commit commits after each app
	Commit bool
}

// MigrateRequest represents a request to migrate a legacy project.
type MigrateRequest struct {
	// ProjectDir is the project root
	ProjectDir string

	// TemplateURI is recorded as the source of the migrated instances
	TemplateURI string

	// AppName is the app a single-slice template is migrated for; unused
	// for the infra template
	AppName string

	// KeepLegacyFile leaves the legacy marker in place
	KeepLegacyFile bool

	// Commit commits the migration
	Commit bool
}

// InstallAppRequest represents a request to install a single-slice
// application template.
type InstallAppRequest struct {
	ProjectDir  string
	TemplateURI string

	// TemplateName overrides the name derived from TemplateURI
	TemplateName string

	AppName string
	Version string
	Data    map[string]any
	Commit  bool
}

// UpdateAppRequest represents a request to update a single-slice
// application template.
type UpdateAppRequest struct {
	ProjectDir string
	UpdateOptions

	// TemplateName selects the installed template, "repo" or "repo:template"
	TemplateName string

	AppName string
	Commit  bool
}

// InfoRequest represents a request for project information.
type InfoRequest struct {
	ProjectDir string

	// Offline skips looking up newer releases
	Offline bool
}
