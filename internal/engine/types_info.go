package engine

// InfoResult describes a project and the template instances in it.
type InfoResult struct {
	// ProjectDir is the project root
	ProjectDir string `json:"project_dir"`

	// Name is the project directory name
	Name string `json:"name"`

	// Instances is every answers file, ordered by path
	Instances []InstanceInfo `json:"instances"`

	// Apps groups non-singular instances by app
	Apps []AppInfo `json:"apps"`

	// Infra is set when the infra template is installed or a legacy marker
	// exists
	Infra *InfraInfo `json:"infra,omitempty"`
}

// InstanceInfo describes one installed template instance.
type InstanceInfo struct {
	ID          string `json:"id"`
	AppName     string `json:"app_name"`
	AnswersFile string `json:"answers_file"`
	SourceURI   string `json:"source_uri,omitempty"`

	// Version is the display form of the recorded token
	Version string `json:"version,omitempty"`

	// VersionKind is "parsed" or "raw"
	VersionKind string `json:"version_kind,omitempty"`

	// NewerReleases are the releases at or above Version
	NewerReleases []string `json:"newer_releases,omitempty"`

	// Error is set when the answers file could not be read
	Error string `json:"error,omitempty"`
}

// AppInfo groups the instances rendered for one app.
type AppInfo struct {
	Name      string         `json:"name"`
	Templates []InstanceInfo `json:"templates"`
}

// InfraInfo describes the infra template state of a project.
type InfraInfo struct {
	Installed bool   `json:"installed"`
	SourceURI string `json:"source_uri,omitempty"`
	Version   string `json:"version,omitempty"`

	NewerReleases []string `json:"newer_releases,omitempty"`

	// LegacyVersion is the token of a legacy marker still present
	LegacyVersion string `json:"legacy_version,omitempty"`

	// LegacyClosestTag is the first release containing LegacyVersion
	LegacyClosestTag string `json:"legacy_closest_tag,omitempty"`

	// Apps have infra app answers files
	Apps []string `json:"apps"`

	Drift []DriftInfo `json:"drift,omitempty"`

	// Unmanaged are infra app directories without answers files
	Unmanaged []string `json:"unmanaged_apps,omitempty"`
}

// DriftInfo is an app whose recorded infra version differs from base.
type DriftInfo struct {
	AppName     string `json:"app_name"`
	AppVersion  string `json:"app_version"`
	BaseVersion string `json:"base_version"`
}
