package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// mergeMarkerCheck disables whitespace checks so "diff --check" only flags
// conflict markers.
const mergeMarkerCheck = "core.whitespace=-trailing-space,-space-before-tab,-indent-with-non-tab,-tab-in-indent,-cr-at-eol"

// RealVCS implements VCS with the git binary.
type RealVCS struct {
	// Binary is the git executable, "git" when empty.
	Binary string
}

// NewRealVCS creates a new RealVCS.
func NewRealVCS() *RealVCS {
	return &RealVCS{Binary: "git"}
}

// runGit executes git in dir and returns trimmed stdout.
func (g *RealVCS) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w\nstderr: %s", args[0], dir, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// exitCode returns the exit status carried by err, or -1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// lines splits output into non-empty lines.
func lines(out string) []string {
	if out == "" {
		return nil
	}
	var result []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			result = append(result, l)
		}
	}
	return result
}

// Init initializes a repository with "main" as the initial branch.
func (g *RealVCS) Init(ctx context.Context, dir string) error {
	_, err := g.runGit(ctx, dir, "init", "--initial-branch=main")
	return err
}

// IsRepository reports whether dir is inside a git work tree.
func (g *RealVCS) IsRepository(ctx context.Context, dir string) bool {
	out, err := g.runGit(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// IsClean reports whether "git status --porcelain" is empty.
func (g *RealVCS) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := g.runGit(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// CommitAll stages all changes and commits them. Returns OK=false when the
// index has nothing to commit.
func (g *RealVCS) CommitAll(ctx context.Context, dir, message string) (CommitResult, error) {
	if _, err := g.runGit(ctx, dir, "add", "--all"); err != nil {
		return CommitResult{}, fmt.Errorf("failed to stage changes: %w", err)
	}

	// "diff --cached --quiet" exits 1 when something is staged.
	if _, err := g.runGit(ctx, dir, "diff", "--cached", "--quiet"); err == nil {
		return CommitResult{OK: false}, nil
	} else if exitCode(err) != 1 {
		return CommitResult{}, fmt.Errorf("failed to check staged changes: %w", err)
	}

	out, err := g.runGit(ctx, dir, "commit", "-m", message)
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to commit: %w", err)
	}
	return CommitResult{OK: true, Stdout: out}, nil
}

// HasMergeConflicts reports whether the work tree contains conflict markers.
func (g *RealVCS) HasMergeConflicts(ctx context.Context, dir string) (bool, error) {
	_, err := g.runGit(ctx, dir, "-c", mergeMarkerCheck, "diff", "--check")
	if err == nil {
		return false, nil
	}
	if exitCode(err) > 0 {
		return true, nil
	}
	return false, err
}

// Checkout checks out ref.
func (g *RealVCS) Checkout(ctx context.Context, dir, ref string) error {
	_, err := g.runGit(ctx, dir, "checkout", "--quiet", ref)
	return err
}

// Tag creates a lightweight tag at HEAD.
func (g *RealVCS) Tag(ctx context.Context, dir, name string) error {
	_, err := g.runGit(ctx, dir, "tag", name)
	return err
}

// TrackedFiles returns "git ls-files".
func (g *RealVCS) TrackedFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := g.runGit(ctx, dir, "ls-files")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Tags lists tags matching patterns.
func (g *RealVCS) Tags(ctx context.Context, dir string, patterns ...string) ([]string, error) {
	args := append([]string{"tag", "--list"}, patterns...)
	out, err := g.runGit(ctx, dir, args...)
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Describe returns "git describe --tags --always" for ref.
func (g *RealVCS) Describe(ctx context.Context, dir, ref string) (string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	return g.runGit(ctx, dir, "describe", "--tags", "--always", ref)
}

// ClosestTag returns the nearest tag that contains commit, without the
// "~N" or "^N" suffix git appends.
func (g *RealVCS) ClosestTag(ctx context.Context, dir, commit string) (string, error) {
	out, err := g.runGit(ctx, dir, "describe", "--tags", "--contains", commit)
	if err != nil {
		return "", err
	}
	if i := strings.IndexAny(out, "~^"); i >= 0 {
		out = out[:i]
	}
	return out, nil
}

// LastCommit returns author name, email and subject of HEAD.
func (g *RealVCS) LastCommit(ctx context.Context, dir string) (CommitInfo, error) {
	out, err := g.runGit(ctx, dir, "log", "-1", "--pretty=%an%x09%ae%x09%s")
	if err != nil {
		return CommitInfo{}, err
	}
	parts := strings.SplitN(out, "\t", 3)
	if len(parts) != 3 {
		return CommitInfo{}, fmt.Errorf("unexpected git log output: %q", out)
	}
	return CommitInfo{AuthorName: parts[0], AuthorEmail: parts[1], Subject: parts[2]}, nil
}

// ResetHard runs "git reset --hard ref".
func (g *RealVCS) ResetHard(ctx context.Context, dir, ref string) error {
	_, err := g.runGit(ctx, dir, "reset", "--hard", ref)
	return err
}

// Clone clones uri into dest without blobs until they are needed.
func (g *RealVCS) Clone(ctx context.Context, uri, dest string) error {
	_, err := g.runGit(ctx, "", "clone", "--quiet", "--filter=blob:none", uri, dest)
	return err
}

// CloneIfNecessary uses local directories in place and clones anything else
// into a temporary directory.
func (g *RealVCS) CloneIfNecessary(ctx context.Context, uri string) (string, func() error, error) {
	if info, err := os.Stat(uri); err == nil && info.IsDir() {
		return uri, func() error { return nil }, nil
	}

	tmp, err := os.MkdirTemp("", "scaffold-clone-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(tmp) }

	if err := g.Clone(ctx, uri, tmp); err != nil {
		_ = cleanup()
		return "", nil, err
	}
	return tmp, cleanup, nil
}
