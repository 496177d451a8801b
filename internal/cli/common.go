package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/danieljhkim/scaffold/internal/config"
	"github.com/danieljhkim/scaffold/internal/engine"
	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/gitx"
	"github.com/danieljhkim/scaffold/internal/hash"
	"github.com/danieljhkim/scaffold/internal/render"
	"github.com/danieljhkim/scaffold/internal/template"
)

// DefaultInfraTemplateURI is used when neither --template-uri nor
// defaults.infra_template_uri is set.
const DefaultInfraTemplateURI = "https://github.com/navapbc/template-infra"

// newEngine creates a new engine. Tests replace it to inject fakes.
var newEngine = newRealEngine

// newRealEngine creates a new engine with real implementations of all dependencies.
func newRealEngine() (*engine.Engine, error) {
	// Get default paths
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	// Ensure directories exist
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	// Create real implementations
	fs := fsops.NewRealFS()
	vcs := gitx.NewRealVCS()
	hasher := hash.NewSHA256Hasher()
	renderer := render.NewCopierRenderer(vcs, render.NewFileRenderer(fs, hasher))

	// Create engine
	return engine.New(vcs, renderer, fs, *paths, logger), nil
}

// loadSettings reads config.yaml from the scaffold root.
func loadSettings() (*config.Settings, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}
	return config.LoadSettings(paths.Config)
}

// infraTemplateURI resolves --template-uri for infra install.
func infraTemplateURI(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	settings, err := loadSettings()
	if err != nil {
		return "", err
	}
	if settings.Defaults.InfraTemplateURI != "" {
		return settings.Defaults.InfraTemplateURI, nil
	}
	return DefaultInfraTemplateURI, nil
}

// templateVersion resolves --version, falling back to defaults.version.
func templateVersion(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	settings, err := loadSettings()
	if err != nil {
		return "", err
	}
	return settings.Defaults.Version, nil
}

// parseData turns repeated --data KEY=VALUE flags into template answers.
func parseData(values []string) (map[string]any, error) {
	if len(values) == 0 {
		return nil, nil
	}

	data := make(map[string]any, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --data %q: expected KEY=VALUE", v)
		}
		if _, dup := data[key]; dup {
			return nil, fmt.Errorf("data %s is specified twice", key)
		}
		data[key] = value
	}
	return data, nil
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printMergeConflicts shows the commit message to use once the conflicts
// left by an update are resolved.
func printMergeConflicts(err *template.MergeConflictsError) {
	lines := []string{
		"Resolve the conflict markers, then commit with:",
		"",
	}
	if err.CommitMsg != "" {
		lines = append(lines, "  git commit -am '"+err.CommitMsg+"'")
	}
	fmt.Println()
	PrintPanel("Merge conflicts", lines)
}

// printSteps prints one line per instance result.
func printSteps(steps []*template.Result) {
	for _, s := range steps {
		label := s.AppName
		if label == "" {
			label = "-"
		}
		switch {
		case s.UpToDate:
			PrintInfo(fmt.Sprintf("  %s: already at %s", label, s.To))
		case s.Action == template.ActionInstall:
			PrintSuccess(fmt.Sprintf("%s: installed %s", label, s.To))
		default:
			PrintSuccess(fmt.Sprintf("%s: updated %s -> %s", label, s.From, s.To))
		}
		printCommit(s.Commit)
	}
}

func printCommit(c *template.CommitResult) {
	switch {
	case c == nil:
	case c.NotRepository:
		PrintWarning("Not a git repository, changes were not committed")
	case c.Committed:
		PrintLabelValue("Commit", c.Message)
	default:
		PrintEmptyState("Nothing to commit")
	}
}
