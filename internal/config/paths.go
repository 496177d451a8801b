// Package config manages scaffold configuration and filesystem paths.
//
// The default root is ~/.scaffold/, overridable with SCAFFOLD_ROOT. It holds
// the template clone cache and an optional config.yaml with defaults for
// command flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnv overrides the root directory.
const RootEnv = "SCAFFOLD_ROOT"

// Paths contains all the filesystem paths used by scaffold.
type Paths struct {
	// Root is the base directory for all scaffold data (default: ~/.scaffold)
	Root string

	// Cache is the directory template clones are created in
	Cache string

	// Config is the path to the global config file
	Config string
}

// DefaultPaths returns the default paths for scaffold.
// Paths can be overridden with environment variables:
// - SCAFFOLD_ROOT: Override the root directory
func DefaultPaths() (*Paths, error) {
	root := os.Getenv(RootEnv)
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".scaffold")
	}
	return PathsAt(root), nil
}

// PathsAt returns the paths rooted at root.
func PathsAt(root string) *Paths {
	return &Paths{
		Root:   root,
		Cache:  filepath.Join(root, "cache"),
		Config: filepath.Join(root, "config.yaml"),
	}
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.Root,
		p.Cache,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
