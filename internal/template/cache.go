package template

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/danieljhkim/scaffold/internal/gitx"
	"github.com/danieljhkim/scaffold/internal/version"
)

// ReleaseTagPattern selects release tags.
const ReleaseTagPattern = "v*"

// Checkout is a private clone of a template source.
type Checkout struct {
	// URI is the template origin.
	URI string

	// Dir is the clone's work tree.
	Dir string

	// Ref is the ref currently checked out, "" before the first checkout.
	Ref string
}

// Cache holds template clones and release lists for one command invocation.
// Close removes every clone it created.
type Cache struct {
	vcs     gitx.VCS
	tempDir string
	log     *slog.Logger

	checkouts map[string]*Checkout
	releases  map[string][]version.Version
	cleanups  []func() error
}

// NewCache creates a Cache that clones into tempDir (the system temp
// directory when empty).
func NewCache(vcs gitx.VCS, tempDir string, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		vcs:       vcs,
		tempDir:   tempDir,
		log:       log,
		checkouts: make(map[string]*Checkout),
		releases:  make(map[string][]version.Version),
	}
}

// Checkout returns the clone of uri, cloning on first use. The clone is
// private, so checking out refs never touches a local template's work tree.
func (c *Cache) Checkout(ctx context.Context, uri string) (*Checkout, error) {
	if co, ok := c.checkouts[uri]; ok {
		return co, nil
	}

	if c.tempDir != "" {
		if err := os.MkdirAll(c.tempDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(c.tempDir, "template-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout directory: %w", err)
	}
	c.cleanups = append(c.cleanups, func() error { return os.RemoveAll(dir) })

	c.log.Debug("cloning template", "uri", uri, "dir", dir)
	if err := c.vcs.Clone(ctx, uri, dir); err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", uri, err)
	}

	co := &Checkout{URI: uri, Dir: dir}
	c.checkouts[uri] = co
	return co, nil
}

// Releases returns the parsed release tags of uri, ascending. Reuses an
// existing clone when there is one.
func (c *Cache) Releases(ctx context.Context, uri string) ([]version.Version, error) {
	if r, ok := c.releases[uri]; ok {
		return r, nil
	}

	var (
		dir     string
		cleanup func() error
	)
	if co, ok := c.checkouts[uri]; ok {
		dir = co.Dir
	} else {
		d, cl, err := c.vcs.CloneIfNecessary(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", uri, err)
		}
		dir, cleanup = d, cl
	}

	tags, err := c.vcs.Tags(ctx, dir, ReleaseTagPattern)
	if cleanup != nil {
		if cerr := cleanup(); cerr != nil {
			c.log.Warn("failed to remove temporary clone", "uri", uri, "error", cerr)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", uri, err)
	}

	releases := version.ParseReleases(tags)
	c.releases[uri] = releases
	return releases, nil
}

// NewerReleases returns releases of uri at or above currentToken, or nil
// when currentToken does not parse.
func (c *Cache) NewerReleases(ctx context.Context, uri, currentToken string) ([]version.Version, error) {
	releases, err := c.Releases(ctx, uri)
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(releases))
	for _, r := range releases {
		tags = append(tags, r.Raw())
	}
	return version.ListNewerReleases(currentToken, tags), nil
}

// Close removes every clone created by the cache.
func (c *Cache) Close() error {
	var errs []error
	for _, cleanup := range c.cleanups {
		if err := cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	c.cleanups = nil
	c.checkouts = make(map[string]*Checkout)
	return errors.Join(errs...)
}
