package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danieljhkim/scaffold/internal/config"
	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/gitx"
	"github.com/danieljhkim/scaffold/internal/project"
	"github.com/danieljhkim/scaffold/internal/render"
	"github.com/danieljhkim/scaffold/internal/template"
)

const infraURI = "/templates/template-infra"

// --- Test fixture ---

type testEnv struct {
	vcs        *gitx.FakeVCS
	tmpl       *gitx.FakeRepo
	renderer   *render.FakeRenderer
	engine     *Engine
	projectDir string
}

func newTestEnv(t *testing.T, tags ...string) *testEnv {
	t.Helper()
	vcs := gitx.NewFakeVCS()
	tmpl := vcs.AddRepo(infraURI)
	tmpl.Tracked = []string{
		".template-infra/{{_copier_conf.answers_file}}.jinja",
		"infra/{{app_name}}/main.tf",
		"infra/modules/network/main.tf",
		"infra/networks/main.tf.jinja",
		"template-only-docs/README.md",
	}
	tmpl.Files = map[string]string{
		"infra/networks/main.tf.jinja": "{% for app in app_names %}module \"{{ app }}\" {}\n{% endfor %}",
	}
	tmpl.TagList = tags

	renderer := render.NewFakeRenderer()
	paths := config.PathsAt(t.TempDir())
	eng := New(vcs, renderer, fsops.NewRealFS(), *paths, nil)
	eng.SetProjectConfigSource(&fakeProjectConfig{})

	return &testEnv{
		vcs:        vcs,
		tmpl:       tmpl,
		renderer:   renderer,
		engine:     eng,
		projectDir: t.TempDir(),
	}
}

// markRepository makes the project directory a repository.
func (env *testEnv) markRepository() *gitx.FakeRepo {
	return env.vcs.AddRepo(env.projectDir)
}

func (env *testEnv) project() *project.Project {
	return project.New(env.projectDir, fsops.NewRealFS())
}

func (env *testEnv) install(t *testing.T, version string, apps ...string) {
	t.Helper()
	_, err := env.engine.InstallInfra(context.Background(), &InstallInfraRequest{
		ProjectDir:  env.projectDir,
		TemplateURI: infraURI,
		Version:     version,
		AppNames:    apps,
		Commit:      true,
	})
	if err != nil {
		t.Fatalf("InstallInfra failed: %v", err)
	}
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

type fakeProjectConfig struct {
	values map[string]string
	err    error
	dirs   []string
}

func (f *fakeProjectConfig) Read(ctx context.Context, dir string) (map[string]string, error) {
	f.dirs = append(f.dirs, dir)
	return f.values, f.err
}

func networkApps(t *testing.T, req render.FileRequest) []string {
	t.Helper()
	apps, ok := req.Data["app_names"].([]string)
	if !ok {
		t.Fatalf("app_names is %T, want []string", req.Data["app_names"])
	}
	return apps
}

// --- InstallInfra ---

func TestInstallInfra(t *testing.T) {
	env := newTestEnv(t, "v0.1.0")
	repo := env.markRepository()

	result, err := env.engine.InstallInfra(context.Background(), &InstallInfraRequest{
		ProjectDir:  env.projectDir,
		TemplateURI: infraURI,
		AppNames:    []string{"web", "api"},
		Commit:      true,
	})
	if err != nil {
		t.Fatalf("InstallInfra failed: %v", err)
	}

	if len(result.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(result.Steps))
	}

	wantCommits := []string{
		"Install `template-infra:base` at version 0.1.0",
		"api: Install `template-infra:app` at version 0.1.0",
		"web: Install `template-infra:app` at version 0.1.0",
	}
	if diff := cmp.Diff(wantCommits, repo.Commits); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}

	if len(env.renderer.Files) != 2 {
		t.Fatalf("got %d network renders, want 2", len(env.renderer.Files))
	}
	last := env.renderer.Files[1]
	if last.RenderPath != "infra/networks/main.tf" {
		t.Errorf("got render path %s, want infra/networks/main.tf", last.RenderPath)
	}
	if diff := cmp.Diff([]string{"api", "web"}, networkApps(t, last)); diff != "" {
		t.Errorf("network apps mismatch (-want +got):\n%s", diff)
	}

	apps, err := env.project().InfraAppNames()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"api", "web"}, apps); diff != "" {
		t.Errorf("installed apps mismatch (-want +got):\n%s", diff)
	}

	if len(env.vcs.CloneCalls) != 1 {
		t.Errorf("got %d clones, want 1", len(env.vcs.CloneCalls))
	}
}

func TestInstallInfra_AppsPinnedToBaseVersion(t *testing.T) {
	env := newTestEnv(t, "v0.1.0", "v0.2.0")

	env.install(t, "", "api")

	for i, req := range env.renderer.Copies {
		if req.Source.Ref != "v0.2.0" {
			t.Errorf("copy %d: got ref %s, want v0.2.0", i, req.Source.Ref)
		}
	}
}

func TestInstallInfra_Validation(t *testing.T) {
	env := newTestEnv(t, "v0.1.0")

	tests := []struct {
		name string
		req  *InstallInfraRequest
	}{
		{"missing uri", &InstallInfraRequest{ProjectDir: env.projectDir}},
		{"reserved app name", &InstallInfraRequest{ProjectDir: env.projectDir, TemplateURI: infraURI, AppNames: []string{"modules"}}},
		{"invalid app name", &InstallInfraRequest{ProjectDir: env.projectDir, TemplateURI: infraURI, AppNames: []string{"../api"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.InstallInfra(context.Background(), tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}

	_, err := env.engine.InstallInfra(context.Background(), &InstallInfraRequest{
		ProjectDir:  filepath.Join(env.projectDir, "missing"),
		TemplateURI: infraURI,
	})
	if !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("got %v, want ErrProjectNotFound", err)
	}
}

// --- AddApp ---

func TestAddApp_UsesProjectVersion(t *testing.T) {
	env := newTestEnv(t, "v0.1.0", "v0.2.0")
	repo := env.markRepository()
	env.install(t, "v0.1.0", "api")

	result, err := env.engine.AddApp(context.Background(), &AddAppRequest{
		ProjectDir: env.projectDir,
		AppName:    "web",
		Commit:     true,
	})
	if err != nil {
		t.Fatalf("AddApp failed: %v", err)
	}

	last := env.renderer.Copies[len(env.renderer.Copies)-1]
	if last.Source.Ref != "v0.1.0" {
		t.Errorf("got ref %s, want v0.1.0", last.Source.Ref)
	}
	if last.Source.URI != infraURI {
		t.Errorf("got source %s, want %s", last.Source.URI, infraURI)
	}
	if result.NetworkConfig == nil {
		t.Fatal("expected network configuration to be regenerated")
	}
	network := env.renderer.Files[len(env.renderer.Files)-1]
	if diff := cmp.Diff([]string{"api", "web"}, networkApps(t, network)); diff != "" {
		t.Errorf("network apps mismatch (-want +got):\n%s", diff)
	}

	want := "web: Install `template-infra:app` at version 0.1.0"
	if got := repo.Commits[len(repo.Commits)-1]; got != want {
		t.Errorf("got commit %q, want %q", got, want)
	}
}

func TestAddApp_Errors(t *testing.T) {
	t.Run("already installed", func(t *testing.T) {
		env := newTestEnv(t, "v0.1.0")
		env.install(t, "", "api")

		_, err := env.engine.AddApp(context.Background(), &AddAppRequest{ProjectDir: env.projectDir, AppName: "api"})
		if !errors.Is(err, ErrAppExists) {
			t.Errorf("got %v, want ErrAppExists", err)
		}
	})

	t.Run("no infra installed", func(t *testing.T) {
		env := newTestEnv(t, "v0.1.0")

		_, err := env.engine.AddApp(context.Background(), &AddAppRequest{ProjectDir: env.projectDir, AppName: "api"})
		if !errors.Is(err, ErrUnknownSource) {
			t.Errorf("got %v, want ErrUnknownSource", err)
		}
		if !errors.Is(err, template.ErrMissingState) {
			t.Errorf("got %v, want wrapped ErrMissingState", err)
		}
	})

	t.Run("version drift", func(t *testing.T) {
		env := newTestEnv(t, "v0.1.0")
		env.install(t, "", "api")
		writeFile(t, env.projectDir, ".template-infra/app-api.yml", "_commit: v0.0.9\n_src_path: "+infraURI+"\napp_name: api\ntemplate: app\n")

		_, err := env.engine.AddApp(context.Background(), &AddAppRequest{ProjectDir: env.projectDir, AppName: "web"})
		if !errors.Is(err, project.ErrVersionDrift) {
			t.Errorf("got %v, want ErrVersionDrift", err)
		}
	})
}

// --- UpdateInfra ---

func TestUpdateInfra(t *testing.T) {
	env := newTestEnv(t, "v0.1.0", "v0.2.0")
	repo := env.markRepository()
	env.install(t, "v0.1.0", "web", "api")
	installCommits := len(repo.Commits)
	env.renderer.Files = nil

	result, err := env.engine.UpdateInfra(context.Background(), &UpdateInfraRequest{ProjectDir: env.projectDir})
	if err != nil {
		t.Fatalf("UpdateInfra failed: %v", err)
	}

	wantCommits := []string{
		"Update `template-infra:base` to version 0.2.0",
		"api: Update `template-infra:app` to version 0.2.0",
		"web: Update `template-infra:app` to version 0.2.0",
	}
	if diff := cmp.Diff(wantCommits, repo.Commits[installCommits:]); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
	if len(result.Steps) != 3 {
		t.Errorf("got %d steps, want 3", len(result.Steps))
	}
	if result.UpToDate() {
		t.Error("expected changes")
	}

	if len(env.renderer.Files) != 1 {
		t.Fatalf("got %d network renders, want 1", len(env.renderer.Files))
	}
	if diff := cmp.Diff([]string{"api", "web"}, networkApps(t, env.renderer.Files[0])); diff != "" {
		t.Errorf("network apps mismatch (-want +got):\n%s", diff)
	}

	version, err := env.project().InfraTemplateVersion()
	if err != nil {
		t.Fatalf("InfraTemplateVersion failed: %v", err)
	}
	if version != "v0.2.0" {
		t.Errorf("got version %s, want v0.2.0", version)
	}
}

func TestUpdateInfra_Idempotent(t *testing.T) {
	env := newTestEnv(t, "v0.1.0")
	repo := env.markRepository()
	env.install(t, "", "api")
	commits := len(repo.Commits)
	renders := len(env.renderer.Files)

	result, err := env.engine.UpdateInfra(context.Background(), &UpdateInfraRequest{ProjectDir: env.projectDir})
	if err != nil {
		t.Fatalf("UpdateInfra failed: %v", err)
	}

	if !result.UpToDate() {
		t.Error("expected every step to be up to date")
	}
	if len(env.renderer.Updates) != 0 {
		t.Errorf("got %d renderer updates, want 0", len(env.renderer.Updates))
	}
	if len(repo.Commits) != commits {
		t.Errorf("got %d new commits, want 0", len(repo.Commits)-commits)
	}
	if len(env.renderer.Files) != renders {
		t.Errorf("got %d new network renders, want 0", len(env.renderer.Files)-renders)
	}
}

func TestUpdateInfra_HaltsOnMergeConflict(t *testing.T) {
	env := newTestEnv(t, "v0.1.0", "v0.2.0")
	repo := env.markRepository()
	env.install(t, "v0.1.0", "api", "web")
	installCommits := len(repo.Commits)

	// the base update renders first, so the second update is api
	env.renderer.OnRender = func(string) {
		if len(env.renderer.Updates) == 2 {
			repo.Conflicts = true
		}
	}

	result, err := env.engine.UpdateInfra(context.Background(), &UpdateInfraRequest{ProjectDir: env.projectDir})
	var conflict *template.MergeConflictsError
	if !errors.As(err, &conflict) {
		t.Fatalf("got %v, want *MergeConflictsError", err)
	}
	if want := "api: Update `template-infra:app` to version 0.2.0"; conflict.CommitMsg != want {
		t.Errorf("got commit message %q, want %q", conflict.CommitMsg, want)
	}

	wantCommits := []string{"Update `template-infra:base` to version 0.2.0"}
	if diff := cmp.Diff(wantCommits, repo.Commits[installCommits:]); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
	if len(env.renderer.Updates) != 2 {
		t.Errorf("got %d renderer updates, want 2 (web must not be attempted)", len(env.renderer.Updates))
	}
	if len(result.Steps) != 2 {
		t.Errorf("got %d steps, want 2", len(result.Steps))
	}
}

func TestUpdateInfra_DryRun(t *testing.T) {
	env := newTestEnv(t, "v0.1.0", "v0.2.0")
	env.install(t, "v0.1.0", "api")

	result, err := env.engine.UpdateInfra(context.Background(), &UpdateInfraRequest{ProjectDir: env.projectDir, DryRun: true})
	if err != nil {
		t.Fatalf("UpdateInfra failed: %v", err)
	}
	if !result.DryRun {
		t.Error("expected dry run result")
	}
	if len(result.Plan.Steps) != 2 {
		t.Errorf("got %d planned steps, want 2", len(result.Plan.Steps))
	}
	if len(env.renderer.Updates) != 0 {
		t.Errorf("got %d renderer updates, want 0", len(env.renderer.Updates))
	}
}

// --- UpdateBase / UpdateApps ---

func TestUpdateBase(t *testing.T) {
	env := newTestEnv(t, "v0.1.0", "v0.2.0")
	repo := env.markRepository()
	env.install(t, "v0.1.0", "api")
	installCommits := len(repo.Commits)

	result, err := env.engine.UpdateBase(context.Background(), &UpdateBaseRequest{
		ProjectDir: env.projectDir,
		Commit:     true,
	})
	if err != nil {
		t.Fatalf("UpdateBase failed: %v", err)
	}
	if result.NetworkConfig == nil {
		t.Error("expected network configuration to be regenerated")
	}
	wantCommits := []string{"Update `template-infra:base` to version 0.2.0"}
	if diff := cmp.Diff(wantCommits, repo.Commits[installCommits:]); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}

	// apps are left behind, so the project now drifts
	if _, err := env.project().InfraTemplateVersion(); !errors.Is(err, project.ErrVersionDrift) {
		t.Errorf("got %v, want ErrVersionDrift", err)
	}
}

func TestUpdateApps(t *testing.T) {
	env := newTestEnv(t, "v0.1.0", "v0.2.0")
	env.install(t, "v0.1.0", "api", "web")

	t.Run("no apps", func(t *testing.T) {
		_, err := env.engine.UpdateApps(context.Background(), &UpdateAppsRequest{ProjectDir: env.projectDir})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("got %v, want ErrValidation", err)
		}
	})

	t.Run("selected app", func(t *testing.T) {
		result, err := env.engine.UpdateApps(context.Background(), &UpdateAppsRequest{
			ProjectDir: env.projectDir,
			AppNames:   []string{"web"},
		})
		if err != nil {
			t.Fatalf("UpdateApps failed: %v", err)
		}
		if len(result.Steps) != 1 || result.Steps[0].AppName != "web" {
			t.Errorf("got steps %+v, want web only", result.Steps)
		}
	})

	t.Run("all apps", func(t *testing.T) {
		result, err := env.engine.UpdateApps(context.Background(), &UpdateAppsRequest{
			ProjectDir: env.projectDir,
			All:        true,
		})
		if err != nil {
			t.Fatalf("UpdateApps failed: %v", err)
		}
		var got []string
		for _, s := range result.Steps {
			got = append(got, s.AppName)
		}
		if diff := cmp.Diff([]string{"api", "web"}, got); diff != "" {
			t.Errorf("apps mismatch (-want +got):\n%s", diff)
		}
		if !result.Steps[1].UpToDate {
			t.Error("web was already updated")
		}
	})

	t.Run("unknown app", func(t *testing.T) {
		_, err := env.engine.UpdateApps(context.Background(), &UpdateAppsRequest{
			ProjectDir: env.projectDir,
			AppNames:   []string{"worker"},
		})
		if !errors.Is(err, template.ErrMissingState) {
			t.Errorf("got %v, want ErrMissingState", err)
		}
	})
}

func TestRegenerateNetworkConfig_MissingTemplateFile(t *testing.T) {
	env := newTestEnv(t, "v0.1.0")
	env.tmpl.Files = nil

	result, err := env.engine.InstallInfra(context.Background(), &InstallInfraRequest{
		ProjectDir:  env.projectDir,
		TemplateURI: infraURI,
		AppNames:    []string{"api"},
	})
	if err != nil {
		t.Fatalf("InstallInfra failed: %v", err)
	}
	if result.NetworkConfig != nil {
		t.Errorf("got %+v, want no network render", result.NetworkConfig)
	}
	if len(env.renderer.Files) != 0 {
		t.Errorf("got %d network renders, want 0", len(env.renderer.Files))
	}
}

func TestInfraAppQueries(t *testing.T) {
	env := newTestEnv(t, "v0.1.0")
	writeFile(t, env.projectDir, "infra/api/main.tf", "")
	writeFile(t, env.projectDir, "infra/worker/main.tf", "")
	writeFile(t, env.projectDir, "infra/modules/main.tf", "")

	dirs, err := env.engine.InfraAppDirs(env.projectDir)
	if err != nil {
		t.Fatalf("InfraAppDirs failed: %v", err)
	}
	if diff := cmp.Diff([]string{"api", "worker"}, dirs); diff != "" {
		t.Errorf("app dirs mismatch (-want +got):\n%s", diff)
	}

	env.install(t, "", "api")

	apps, err := env.engine.InfraApps(env.projectDir)
	if err != nil {
		t.Fatalf("InfraApps failed: %v", err)
	}
	if diff := cmp.Diff([]string{"api"}, apps); diff != "" {
		t.Errorf("installed apps mismatch (-want +got):\n%s", diff)
	}

	if _, err := env.engine.InfraApps(filepath.Join(env.projectDir, "missing")); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("got %v, want ErrProjectNotFound", err)
	}
}
