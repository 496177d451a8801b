package gitx

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// FakeRepo is the in-memory state of one repository in a FakeVCS.
type FakeRepo struct {
	// Tracked is returned by TrackedFiles.
	Tracked []string

	// Files are written into the destination directory on Clone, keyed by
	// slash-separated relative path.
	Files map[string]string

	// TagList is returned by Tags, filtered by pattern.
	TagList []string

	// Descriptions maps refs to describe output. Unknown refs describe as
	// themselves.
	Descriptions map[string]string

	// ContainingTags maps commits to the tag ClosestTag returns.
	ContainingTags map[string]string

	// Head is the ref last checked out.
	Head string

	// Last is returned by LastCommit.
	Last CommitInfo

	// Conflicts is returned by HasMergeConflicts.
	Conflicts bool

	// Clean is returned by IsClean.
	Clean bool

	// NothingToCommit makes CommitAll report OK=false.
	NothingToCommit bool

	// Recorded calls.
	Commits   []string
	Checkouts []string
	Resets    []string
}

func (r *FakeRepo) clone() *FakeRepo {
	c := &FakeRepo{
		Tracked:        append([]string(nil), r.Tracked...),
		Files:          r.Files,
		TagList:        append([]string(nil), r.TagList...),
		Descriptions:   make(map[string]string, len(r.Descriptions)),
		ContainingTags: make(map[string]string, len(r.ContainingTags)),
		Head:           "HEAD",
		Last:           r.Last,
		Clean:          true,
	}
	for k, v := range r.Descriptions {
		c.Descriptions[k] = v
	}
	for k, v := range r.ContainingTags {
		c.ContainingTags[k] = v
	}
	return c
}

// FakeVCS implements VCS over in-memory repositories keyed by directory.
type FakeVCS struct {
	Repos map[string]*FakeRepo

	// Error injection, returned by the matching operation when set.
	CommitErr   error
	CheckoutErr error
	CloneErr    error

	// Recorded calls.
	CloneCalls        []string
	ResolveCalls      []string
	HasConflictsCalls []string
}

// NewFakeVCS creates an empty FakeVCS.
func NewFakeVCS() *FakeVCS {
	return &FakeVCS{Repos: make(map[string]*FakeRepo)}
}

// AddRepo registers a repository at dir and returns it for configuration.
func (f *FakeVCS) AddRepo(dir string) *FakeRepo {
	r := &FakeRepo{
		Descriptions:   make(map[string]string),
		ContainingTags: make(map[string]string),
		Head:           "HEAD",
		Clean:          true,
	}
	f.Repos[dir] = r
	return r
}

func (f *FakeVCS) repo(dir string) (*FakeRepo, error) {
	r, ok := f.Repos[dir]
	if !ok {
		return nil, fmt.Errorf("not a git repository: %s", dir)
	}
	return r, nil
}

// Init registers an empty repository at dir.
func (f *FakeVCS) Init(ctx context.Context, dir string) error {
	if _, ok := f.Repos[dir]; !ok {
		f.AddRepo(dir)
	}
	return nil
}

// IsRepository reports whether dir is registered.
func (f *FakeVCS) IsRepository(ctx context.Context, dir string) bool {
	_, ok := f.Repos[dir]
	return ok
}

// IsClean returns the configured value.
func (f *FakeVCS) IsClean(ctx context.Context, dir string) (bool, error) {
	r, err := f.repo(dir)
	if err != nil {
		return false, err
	}
	return r.Clean, nil
}

// CommitAll records message.
func (f *FakeVCS) CommitAll(ctx context.Context, dir, message string) (CommitResult, error) {
	if f.CommitErr != nil {
		return CommitResult{}, f.CommitErr
	}
	r, err := f.repo(dir)
	if err != nil {
		return CommitResult{}, err
	}
	if r.NothingToCommit {
		return CommitResult{OK: false}, nil
	}
	r.Commits = append(r.Commits, message)
	return CommitResult{OK: true, Stdout: fmt.Sprintf("[main] %s", message)}, nil
}

// HasMergeConflicts returns the configured value.
func (f *FakeVCS) HasMergeConflicts(ctx context.Context, dir string) (bool, error) {
	f.HasConflictsCalls = append(f.HasConflictsCalls, dir)
	r, err := f.repo(dir)
	if err != nil {
		return false, err
	}
	return r.Conflicts, nil
}

// Checkout records ref as HEAD.
func (f *FakeVCS) Checkout(ctx context.Context, dir, ref string) error {
	if f.CheckoutErr != nil {
		return f.CheckoutErr
	}
	r, err := f.repo(dir)
	if err != nil {
		return err
	}
	r.Head = ref
	r.Checkouts = append(r.Checkouts, ref)
	return nil
}

// Tag appends name to the tag list.
func (f *FakeVCS) Tag(ctx context.Context, dir, name string) error {
	r, err := f.repo(dir)
	if err != nil {
		return err
	}
	r.TagList = append(r.TagList, name)
	return nil
}

// TrackedFiles returns the configured paths.
func (f *FakeVCS) TrackedFiles(ctx context.Context, dir string) ([]string, error) {
	r, err := f.repo(dir)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), r.Tracked...), nil
}

// Tags returns configured tags matching any of patterns, sorted.
func (f *FakeVCS) Tags(ctx context.Context, dir string, patterns ...string) ([]string, error) {
	r, err := f.repo(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, tag := range r.TagList {
		if len(patterns) == 0 {
			out = append(out, tag)
			continue
		}
		for _, p := range patterns {
			if ok, _ := path.Match(p, tag); ok {
				out = append(out, tag)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Describe returns the configured description for ref, resolving HEAD to
// the last checked out ref.
func (f *FakeVCS) Describe(ctx context.Context, dir, ref string) (string, error) {
	r, err := f.repo(dir)
	if err != nil {
		return "", err
	}
	if ref == "" || ref == "HEAD" {
		ref = r.Head
	}
	if d, ok := r.Descriptions[ref]; ok {
		return d, nil
	}
	return ref, nil
}

// ClosestTag returns the configured containing tag.
func (f *FakeVCS) ClosestTag(ctx context.Context, dir, commit string) (string, error) {
	r, err := f.repo(dir)
	if err != nil {
		return "", err
	}
	tag, ok := r.ContainingTags[commit]
	if !ok {
		return "", fmt.Errorf("no tag contains %s", commit)
	}
	return tag, nil
}

// LastCommit returns the configured commit info.
func (f *FakeVCS) LastCommit(ctx context.Context, dir string) (CommitInfo, error) {
	r, err := f.repo(dir)
	if err != nil {
		return CommitInfo{}, err
	}
	return r.Last, nil
}

// ResetHard records ref and clears the last commit.
func (f *FakeVCS) ResetHard(ctx context.Context, dir, ref string) error {
	r, err := f.repo(dir)
	if err != nil {
		return err
	}
	r.Resets = append(r.Resets, ref)
	r.Last = CommitInfo{}
	return nil
}

// Clone copies the repository registered at uri to dest.
func (f *FakeVCS) Clone(ctx context.Context, uri, dest string) error {
	f.CloneCalls = append(f.CloneCalls, uri)
	if f.CloneErr != nil {
		return f.CloneErr
	}
	src, err := f.repo(uri)
	if err != nil {
		return fmt.Errorf("repository not found: %s", uri)
	}
	for rel, content := range src.Files {
		p := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return err
		}
	}
	f.Repos[dest] = src.clone()
	return nil
}

// CloneIfNecessary returns uri itself when it is registered.
func (f *FakeVCS) CloneIfNecessary(ctx context.Context, uri string) (string, func() error, error) {
	f.ResolveCalls = append(f.ResolveCalls, uri)
	if _, err := f.repo(uri); err != nil {
		return "", nil, fmt.Errorf("repository not found: %s", uri)
	}
	return uri, func() error { return nil }, nil
}

var _ VCS = (*FakeVCS)(nil)
var _ VCS = (*RealVCS)(nil)
