package answers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/tplname"
)

func writeProjectFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name string
		app  string
		want string
	}{
		{"template-infra:base", "base", ".template-infra/base.yml"},
		{"template-infra:app", "api", ".template-infra/app-api.yml"},
		{"template-infra:app", "app", ".template-infra/app-app.yml"},
		{"template-application-flask", "api", ".template-application-flask/api.yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.app, func(t *testing.T) {
			got := Location(tplname.MustParse(tt.name), tt.app)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStore_Read(t *testing.T) {
	store := NewStore(fsops.NewRealFS())
	dir := t.TempDir()
	name := tplname.MustParse("template-infra:app")

	t.Run("missing file", func(t *testing.T) {
		rec, err := store.Read(dir, name, "api")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if rec != nil {
			t.Errorf("expected nil record, got %+v", rec)
		}
	})

	t.Run("existing file", func(t *testing.T) {
		writeProjectFile(t, dir, ".template-infra/app-api.yml", `# Changes here will be overwritten by Copier
_commit: v0.1.0-3-g1a2b3c4
_src_path: https://github.com/navapbc/template-infra
app_name: api
template: app
`)

		rec, err := store.Read(dir, name, "api")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if rec.VersionToken != "v0.1.0-3-g1a2b3c4" {
			t.Errorf("VersionToken: got %s", rec.VersionToken)
		}
		if rec.SourceURI != "https://github.com/navapbc/template-infra" {
			t.Errorf("SourceURI: got %s", rec.SourceURI)
		}
		if rec.Get(KeyAppName) != "api" {
			t.Errorf("app_name: got %s", rec.Get(KeyAppName))
		}
		if _, ok := rec.Data[KeyCommit]; ok {
			t.Error("reserved key leaked into Data")
		}
		if rec.Version().String() != "0.1.0.post3.dev0+1a2b3c4" {
			t.Errorf("Version: got %s", rec.Version())
		}
	})

	t.Run("leading zero commit", func(t *testing.T) {
		writeProjectFile(t, dir, ".template-infra/app-zero.yml", "_commit: 0123456\n")
		rec, err := store.Read(dir, name, "zero")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if rec.VersionToken != "0123456" {
			t.Errorf("VersionToken: got %s", rec.VersionToken)
		}
	})

	t.Run("numeric commit", func(t *testing.T) {
		writeProjectFile(t, dir, ".template-infra/app-num.yml", "_commit: 1234567\n")
		rec, err := store.Read(dir, name, "num")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if rec.VersionToken != "1234567" {
			t.Errorf("VersionToken: got %s", rec.VersionToken)
		}
	})
}

func TestStore_WriteThenRead(t *testing.T) {
	store := NewStore(fsops.NewRealFS())
	dir := t.TempDir()
	name := tplname.MustParse("template-infra:base")

	rec := &Record{
		SourceURI:    "https://github.com/navapbc/template-infra",
		VersionToken: "abcdef1",
		Data: map[string]any{
			KeyTemplate:         "base",
			"base_project_name": "platform-test",
		},
	}

	rel, err := store.Write(dir, name, "base", rec)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if rel != ".template-infra/base.yml" {
		t.Errorf("path: got %s", rel)
	}

	raw, err := os.ReadFile(filepath.Join(dir, ".template-infra", "base.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "# Changes here will be overwritten") {
		t.Errorf("missing header:\n%s", raw)
	}
	if !strings.Contains(string(raw), "_commit: abcdef1\n_src_path: https://github.com/navapbc/template-infra\n") {
		t.Errorf("reserved keys not first:\n%s", raw)
	}

	got, err := store.Read(dir, name, "base")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Discover(t *testing.T) {
	store := NewStore(fsops.NewRealFS())
	dir := t.TempDir()

	writeProjectFile(t, dir, ".template-infra/base.yml", "_commit: v0.1.0\ntemplate: base\n")
	writeProjectFile(t, dir, ".template-infra/app-api.yml", "_commit: v0.1.0\ntemplate: app\napp_name: api\n")
	writeProjectFile(t, dir, ".template-infra/app-web.yml", "_commit: v0.1.0\ntemplate: app\napp_name: web\n")
	writeProjectFile(t, dir, ".template-application-flask/api.yml", "_commit: v0.3.0\n")
	writeProjectFile(t, dir, ".template-application-magic/foo.yml", "blah")
	writeProjectFile(t, dir, ".github/dependabot.yml", "version: 2\n")
	writeProjectFile(t, dir, ".template-infra/notes.txt", "ignored")

	entries, err := store.Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	type summary struct {
		ID   string
		App  string
		Path string
		Err  bool
	}
	var got []summary
	for _, e := range entries {
		got = append(got, summary{e.Name.ID(), e.AppName, e.Path, e.Err != nil})
	}

	want := []summary{
		{"template-application-flask", "api", ".template-application-flask/api.yml", false},
		{"template-application-magic", "foo", ".template-application-magic/foo.yml", true},
		{"template-infra:app", "api", ".template-infra/app-api.yml", false},
		{"template-infra:app", "web", ".template-infra/app-web.yml", false},
		{"template-infra:base", "base", ".template-infra/base.yml", false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}

	for _, e := range entries {
		if e.Err == nil && Location(e.Name, e.AppName) != e.Path {
			t.Errorf("Location(%s, %s) = %s, discovered at %s", e.Name, e.AppName, Location(e.Name, e.AppName), e.Path)
		}
	}
}
