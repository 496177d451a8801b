package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	t.Run("returns paths based on home directory", func(t *testing.T) {
		t.Setenv(RootEnv, "")

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths failed: %v", err)
		}

		if paths.Root == "" {
			t.Error("Root should not be empty")
		}
		if paths.Cache != filepath.Join(paths.Root, "cache") {
			t.Errorf("Cache path incorrect: got %s", paths.Cache)
		}
		if paths.Config != filepath.Join(paths.Root, "config.yaml") {
			t.Errorf("Config path incorrect: got %s", paths.Config)
		}
		if filepath.Base(paths.Root) != ".scaffold" {
			t.Errorf("Root should end with .scaffold, got: %s", paths.Root)
		}
	})

	t.Run("respects SCAFFOLD_ROOT", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "custom")
		t.Setenv(RootEnv, root)

		paths, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths failed: %v", err)
		}
		if paths.Root != root {
			t.Errorf("got root %s, want %s", paths.Root, root)
		}
	})
}

func TestEnsureDirectories(t *testing.T) {
	paths := PathsAt(filepath.Join(t.TempDir(), "scaffold"))

	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{paths.Root, paths.Cache} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory %s not created: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		s, err := LoadSettings(filepath.Join(dir, "missing.yaml"))
		if err != nil {
			t.Fatalf("LoadSettings failed: %v", err)
		}
		if s.Defaults != (Defaults{}) {
			t.Errorf("got %+v, want empty defaults", s.Defaults)
		}
	})

	t.Run("reads defaults", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		content := "defaults:\n  infra_template_uri: https://github.com/example/template-infra\n  version: v0.15.0\n  log_format: json\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		s, err := LoadSettings(path)
		if err != nil {
			t.Fatalf("LoadSettings failed: %v", err)
		}
		want := Defaults{
			InfraTemplateURI: "https://github.com/example/template-infra",
			Version:          "v0.15.0",
			LogFormat:        LogFormatJSON,
		}
		if s.Defaults != want {
			t.Errorf("got %+v, want %+v", s.Defaults, want)
		}
	})

	t.Run("rejects unknown log format", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("defaults:\n  log_format: xml\n"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := LoadSettings(path)
		if err == nil || !strings.Contains(err.Error(), "log_format") {
			t.Errorf("got %v, want log_format error", err)
		}
	})
}
