//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danieljhkim/scaffold/internal/config"
	"github.com/danieljhkim/scaffold/internal/engine"
	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/gitx"
	"github.com/danieljhkim/scaffold/internal/hash"
	"github.com/danieljhkim/scaffold/internal/render"
)

const networkTemplate = `{% for app in app_names %}module "{{ app }}" { source = "../modules/network" }
{% endfor %}`

// testRenderer records instance renders through the fake and renders single
// files with pongo2, so network configuration output is real.
type testRenderer struct {
	*render.FakeRenderer
	files *render.FileRenderer
}

func (r *testRenderer) RenderFile(ctx context.Context, req render.FileRequest) (render.FileResult, error) {
	return r.files.RenderFile(ctx, req)
}

type testEnv struct {
	engine      *engine.Engine
	renderer    *testRenderer
	templateDir string
	projectDir  string
	tags        map[string]string
}

// setupTestEngine wires the engine to real git and a template repository
// with releases v0.1.0 and v0.2.0.
func setupTestEngine(t *testing.T) *testEnv {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	isolateGit(t)

	env := &testEnv{
		templateDir: filepath.Join(t.TempDir(), "template-infra"),
		projectDir:  t.TempDir(),
		tags:        map[string]string{},
	}

	writeFile(t, env.templateDir, "copier.yml", "_subdirectory: .\n")
	writeFile(t, env.templateDir, "infra/{{app_name}}/main.tf", "module \"service\" {}\n")
	writeFile(t, env.templateDir, "infra/modules/network/main.tf", "variable \"name\" {}\n")
	writeFile(t, env.templateDir, "infra/networks/main.tf.jinja", networkTemplate)
	writeFile(t, env.templateDir, "template-only-docs/README.md", "# template docs\n")
	runGit(t, env.templateDir, "init", "--initial-branch=main")
	runGit(t, env.templateDir, "add", "--all")
	runGit(t, env.templateDir, "commit", "-m", "Initial template")
	runGit(t, env.templateDir, "tag", "v0.1.0")
	env.tags["v0.1.0"] = runGit(t, env.templateDir, "rev-parse", "HEAD")

	writeFile(t, env.templateDir, "infra/networks/main.tf.jinja", "# networks\n"+networkTemplate)
	runGit(t, env.templateDir, "commit", "-am", "Add networks header")
	runGit(t, env.templateDir, "tag", "v0.2.0")
	env.tags["v0.2.0"] = runGit(t, env.templateDir, "rev-parse", "HEAD")

	runGit(t, env.projectDir, "init", "--initial-branch=main")
	writeFile(t, env.projectDir, "README.md", "# project\n")
	runGit(t, env.projectDir, "add", "--all")
	runGit(t, env.projectDir, "commit", "-m", "Initial commit")

	fs := fsops.NewRealFS()
	vcs := gitx.NewRealVCS()
	env.renderer = &testRenderer{
		FakeRenderer: render.NewFakeRenderer(),
		files:        render.NewFileRenderer(fs, hash.NewSHA256Hasher()),
	}
	paths := config.PathsAt(t.TempDir())
	env.engine = engine.New(vcs, env.renderer, fs, *paths, nil)
	return env
}

// isolateGit keeps the user's git configuration out of the tests.
func isolateGit(t *testing.T) {
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// commitSubjects returns the project's commit subjects, oldest first.
func (env *testEnv) commitSubjects(t *testing.T) []string {
	t.Helper()
	out := runGit(t, env.projectDir, "log", "--reverse", "--pretty=%s")
	return strings.Split(out, "\n")
}

func (env *testEnv) readFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(env.projectDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", rel, err)
	}
	return string(data)
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
