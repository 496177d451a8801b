// Package tplname identifies one logical slice of a physical template
// repository.
//
// A physical template (for example "template-infra") can expose several
// logical instances ("template-infra:base", "template-infra:app"). The Name
// type carries both halves and derives the identifiers used for answers files,
// state directories and commit messages.
package tplname

import (
	"fmt"
	"path"
	"strings"
)

// Separator joins the repository name and the sub-template name.
const Separator = ":"

// AppTemplate is the sub-template name reserved for per-app instances. An
// instance with this name is never singular.
const AppTemplate = "app"

// Name is a parsed template identifier.
type Name struct {
	// Repo is the physical template repository name.
	Repo string

	// Template is the logical sub-template name. Equal to Repo when the
	// repository exposes a single slice.
	Template string
}

// New returns a Name for repo and template. An empty template means the
// repository is used as a single slice.
func New(repo, template string) Name {
	if template == "" {
		template = repo
	}
	return Name{Repo: repo, Template: template}
}

// Parse parses "repo" or "repo:template". Everything after the first
// separator belongs to the template part.
func Parse(s string) (Name, error) {
	if s == "" {
		return Name{}, fmt.Errorf("invalid template name: empty")
	}
	repo, template, found := strings.Cut(s, Separator)
	if repo == "" {
		return Name{}, fmt.Errorf("invalid template name %q: empty repository", s)
	}
	if !found {
		return New(repo, ""), nil
	}
	if template == "" {
		return Name{}, fmt.Errorf("invalid template name %q: empty template", s)
	}
	return New(repo, template), nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Name {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// FromURI derives the repository name from a template URI: the last path
// element with any ".git" suffix removed.
func FromURI(uri string) Name {
	trimmed := strings.TrimRight(uri, "/")
	if i := strings.LastIndex(trimmed, ":"); i >= 0 && !strings.Contains(trimmed[i:], "/") {
		// scp-like "git@host:repo.git"
		trimmed = trimmed[i+1:]
	}
	base := path.Base(strings.ReplaceAll(trimmed, "\\", "/"))
	return New(strings.TrimSuffix(base, ".git"), "")
}

// ID returns the canonical identifier. The repository name alone when the
// instance is the whole repository, otherwise "repo:template".
func (n Name) ID() string {
	if n.Repo == n.Template {
		return n.Repo
	}
	return n.Repo + Separator + n.Template
}

// String implements fmt.Stringer.
func (n Name) String() string {
	return n.ID()
}

// AnswersFilePrefix returns the prefix used in answers file names. Empty
// when the instance is the whole repository.
func (n Name) AnswersFilePrefix() string {
	if n.Repo == n.Template {
		return ""
	}
	return n.Template + "-"
}

// IsSingular reports whether the instance exists at most once per project,
// which is the case when the app name equals the template name.
func (n Name) IsSingular(appName string) bool {
	if n.Template == AppTemplate {
		return false
	}
	return appName == n.Template
}

// WithTemplate returns a copy of n for another slice of the same repository.
func (n Name) WithTemplate(template string) Name {
	return New(n.Repo, template)
}
