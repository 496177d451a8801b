// Package gitx provides the version-control operations the orchestrator
// needs, behind the VCS interface.
//
// RealVCS shells out to git. FakeVCS keeps repositories in memory and is
// used by tests across the module.
package gitx

import "context"

// Author identity and subject the renderer uses for draft commits it creates
// in a dirty template checkout.
const (
	DraftAuthorName  = "Copier"
	DraftAuthorEmail = "copier@copier"
	DraftSubject     = "Copier automated commit for draft changes"
)

// CommitResult is the outcome of CommitAll.
type CommitResult struct {
	// OK is false when there was nothing to commit.
	OK bool

	// Stdout is git's output for the commit.
	Stdout string
}

// CommitInfo describes a single commit.
type CommitInfo struct {
	AuthorName  string
	AuthorEmail string
	Subject     string
}

// IsDraft reports whether the commit is a renderer draft commit.
func (c CommitInfo) IsDraft() bool {
	return c.AuthorName == DraftAuthorName &&
		c.AuthorEmail == DraftAuthorEmail &&
		c.Subject == DraftSubject
}

// VCS is the git-shaped collaborator. Every method operates on the working
// tree at dir.
type VCS interface {
	// Init creates a repository with "main" as the initial branch.
	Init(ctx context.Context, dir string) error

	// IsRepository reports whether dir is inside a work tree.
	IsRepository(ctx context.Context, dir string) bool

	// IsClean reports whether the work tree has no changes.
	IsClean(ctx context.Context, dir string) (bool, error)

	// CommitAll stages everything and commits it.
	CommitAll(ctx context.Context, dir, message string) (CommitResult, error)

	// HasMergeConflicts reports whether conflict markers are present.
	HasMergeConflicts(ctx context.Context, dir string) (bool, error)

	// Checkout checks out ref.
	Checkout(ctx context.Context, dir, ref string) error

	// Tag creates a lightweight tag at HEAD.
	Tag(ctx context.Context, dir, name string) error

	// TrackedFiles lists tracked paths relative to dir.
	TrackedFiles(ctx context.Context, dir string) ([]string, error)

	// Tags lists tags matching the given patterns (all tags when none).
	Tags(ctx context.Context, dir string, patterns ...string) ([]string, error)

	// Describe returns "git describe --tags --always" for ref.
	Describe(ctx context.Context, dir, ref string) (string, error)

	// ClosestTag returns the first tag containing commit.
	ClosestTag(ctx context.Context, dir, commit string) (string, error)

	// LastCommit returns the author and subject of HEAD.
	LastCommit(ctx context.Context, dir string) (CommitInfo, error)

	// ResetHard resets the work tree to ref.
	ResetHard(ctx context.Context, dir, ref string) error

	// Clone clones uri into dest.
	Clone(ctx context.Context, uri, dest string) error

	// CloneIfNecessary returns a local directory for uri. Local paths are
	// returned as-is; remote URIs are cloned into a temporary directory that
	// cleanup removes.
	CloneIfNecessary(ctx context.Context, uri string) (dir string, cleanup func() error, err error)
}
