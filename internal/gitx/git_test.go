package gitx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// setupGitRepo creates a temporary git repository for testing.
func setupGitRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	tmpDir := t.TempDir()

	g := NewRealVCS()
	if err := g.Init(context.Background(), tmpDir); err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}

	for _, kv := range [][]string{
		{"user.email", "test@example.com"},
		{"user.name", "Test User"},
		{"commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", "config", kv[0], kv[1])
		cmd.Dir = tmpDir
		if err := cmd.Run(); err != nil {
			t.Fatalf("failed to configure git %s: %v", kv[0], err)
		}
	}

	return tmpDir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func TestRealVCS_CommitAll(t *testing.T) {
	ctx := context.Background()
	g := NewRealVCS()
	dir := setupGitRepo(t)

	t.Run("commits new files", func(t *testing.T) {
		writeFile(t, dir, "a.txt", "a\n")

		res, err := g.CommitAll(ctx, dir, "Add a")
		if err != nil {
			t.Fatalf("CommitAll failed: %v", err)
		}
		if !res.OK {
			t.Fatal("expected a commit")
		}

		last, err := g.LastCommit(ctx, dir)
		if err != nil {
			t.Fatalf("LastCommit failed: %v", err)
		}
		if last.Subject != "Add a" {
			t.Errorf("Subject: got %s, want Add a", last.Subject)
		}
		if last.AuthorName != "Test User" {
			t.Errorf("AuthorName: got %s, want Test User", last.AuthorName)
		}
	})

	t.Run("nothing to commit", func(t *testing.T) {
		res, err := g.CommitAll(ctx, dir, "Empty")
		if err != nil {
			t.Fatalf("CommitAll failed: %v", err)
		}
		if res.OK {
			t.Error("expected OK=false with a clean tree")
		}
	})

	t.Run("clean after commit", func(t *testing.T) {
		clean, err := g.IsClean(ctx, dir)
		if err != nil {
			t.Fatalf("IsClean failed: %v", err)
		}
		if !clean {
			t.Error("expected a clean work tree")
		}
	})
}

func TestRealVCS_HasMergeConflicts(t *testing.T) {
	ctx := context.Background()
	g := NewRealVCS()
	dir := setupGitRepo(t)

	writeFile(t, dir, "main.tf", "resource {}\n")
	if _, err := g.CommitAll(ctx, dir, "init"); err != nil {
		t.Fatalf("CommitAll failed: %v", err)
	}

	t.Run("trailing whitespace is not a conflict", func(t *testing.T) {
		writeFile(t, dir, "main.tf", "resource {}   \n")
		conflicts, err := g.HasMergeConflicts(ctx, dir)
		if err != nil {
			t.Fatalf("HasMergeConflicts failed: %v", err)
		}
		if conflicts {
			t.Error("whitespace changes should not count as conflicts")
		}
	})

	t.Run("conflict markers", func(t *testing.T) {
		writeFile(t, dir, "main.tf", "<<<<<<< before\nresource {}\n=======\nresource { a = 1 }\n>>>>>>> after\n")
		conflicts, err := g.HasMergeConflicts(ctx, dir)
		if err != nil {
			t.Fatalf("HasMergeConflicts failed: %v", err)
		}
		if !conflicts {
			t.Error("expected conflict markers to be detected")
		}
	})
}

func TestRealVCS_TagsAndDescribe(t *testing.T) {
	ctx := context.Background()
	g := NewRealVCS()
	dir := setupGitRepo(t)

	writeFile(t, dir, "README.md", "v1\n")
	if _, err := g.CommitAll(ctx, dir, "first"); err != nil {
		t.Fatalf("CommitAll failed: %v", err)
	}
	if err := g.Tag(ctx, dir, "v0.1.0"); err != nil {
		t.Fatalf("Tag failed: %v", err)
	}
	if err := g.Tag(ctx, dir, "other"); err != nil {
		t.Fatalf("Tag failed: %v", err)
	}

	tags, err := g.Tags(ctx, dir, "v*")
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(tags) != 1 || tags[0] != "v0.1.0" {
		t.Errorf("Tags: got %v, want [v0.1.0]", tags)
	}

	writeFile(t, dir, "README.md", "v2\n")
	if _, err := g.CommitAll(ctx, dir, "second"); err != nil {
		t.Fatalf("CommitAll failed: %v", err)
	}

	desc, err := g.Describe(ctx, dir, "HEAD")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if !strings.HasPrefix(desc, "v0.1.0-1-g") && !strings.HasPrefix(desc, "other-1-g") {
		t.Errorf("Describe: got %s, want a describe string one commit past a tag", desc)
	}

	files, err := g.TrackedFiles(ctx, dir)
	if err != nil {
		t.Fatalf("TrackedFiles failed: %v", err)
	}
	if len(files) != 1 || files[0] != "README.md" {
		t.Errorf("TrackedFiles: got %v, want [README.md]", files)
	}
}

func TestRealVCS_IsRepository(t *testing.T) {
	g := NewRealVCS()
	dir := setupGitRepo(t)

	if !g.IsRepository(context.Background(), dir) {
		t.Error("expected repository")
	}
	if g.IsRepository(context.Background(), t.TempDir()) {
		t.Error("plain temp dir should not be a repository")
	}
}

func TestRealVCS_CloneIfNecessary_LocalPath(t *testing.T) {
	g := NewRealVCS()
	dir := setupGitRepo(t)

	got, cleanup, err := g.CloneIfNecessary(context.Background(), dir)
	if err != nil {
		t.Fatalf("CloneIfNecessary failed: %v", err)
	}
	defer func() { _ = cleanup() }()

	if got != dir {
		t.Errorf("got %s, want %s", got, dir)
	}
}

func TestCommitInfo_IsDraft(t *testing.T) {
	draft := CommitInfo{AuthorName: DraftAuthorName, AuthorEmail: DraftAuthorEmail, Subject: DraftSubject}
	if !draft.IsDraft() {
		t.Error("expected draft commit")
	}

	other := draft
	other.Subject = "Release v1.0.0"
	if other.IsDraft() {
		t.Error("regular commit reported as draft")
	}
}

func TestFakeVCS_Clone(t *testing.T) {
	ctx := context.Background()
	f := NewFakeVCS()
	src := f.AddRepo("https://example.com/template-infra")
	src.Tracked = []string{"a.txt"}
	src.TagList = []string{"v0.2.0", "v0.1.0", "latest"}

	if err := f.Clone(ctx, "https://example.com/template-infra", "/tmp/checkout"); err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	tags, err := f.Tags(ctx, "/tmp/checkout", "v*")
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if strings.Join(tags, ",") != "v0.1.0,v0.2.0" {
		t.Errorf("Tags: got %v", tags)
	}

	// The clone is independent of its source.
	src.Tracked = append(src.Tracked, "b.txt")
	files, _ := f.TrackedFiles(ctx, "/tmp/checkout")
	if len(files) != 1 {
		t.Errorf("clone shares state with source: %v", files)
	}
}
