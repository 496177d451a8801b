package answers

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/tplname"
)

// StateDirPrefix is the prefix shared by all state directories scaffold
// recognises during discovery.
const StateDirPrefix = ".template"

// StateDir returns the state directory name for a template.
func StateDir(name tplname.Name) string {
	return "." + name.Repo
}

// FileName returns the answers file name of an instance.
func FileName(name tplname.Name, appName string) string {
	if name.IsSingular(appName) {
		return appName + ".yml"
	}
	return name.AnswersFilePrefix() + appName + ".yml"
}

// Location returns the project-relative answers file path of an instance,
// using forward slashes.
func Location(name tplname.Name, appName string) string {
	return path.Join(StateDir(name), FileName(name, appName))
}

// Entry is one answers file found by Discover.
type Entry struct {
	// Name identifies the instance.
	Name tplname.Name

	// AppName is derived from the file name.
	AppName string

	// Path is the project-relative location of the file.
	Path string

	// Record is nil when the file could not be parsed.
	Record *Record

	// Err is the parse error, if any.
	Err error
}

// Store reads and writes answers files in project directories.
type Store struct {
	fs fsops.FS
}

// NewStore creates a new Store.
func NewStore(fs fsops.FS) *Store {
	return &Store{fs: fs}
}

// Read returns the record of an instance, or nil if it has none.
func (s *Store) Read(projectDir string, name tplname.Name, appName string) (*Record, error) {
	return s.ReadFile(filepath.Join(projectDir, filepath.FromSlash(Location(name, appName))))
}

// ReadFile reads an answers file. A missing file yields nil and no error.
func (s *Store) ReadFile(p string) (*Record, error) {
	data, err := s.fs.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read answers file: %w", err)
	}

	rec, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return rec, nil
}

// Write creates or replaces the answers file of an instance and returns its
// project-relative path. Only legacy migration writes answers directly;
// renders write them through the renderer.
func (s *Store) Write(projectDir string, name tplname.Name, appName string, rec *Record) (string, error) {
	rel := Location(name, appName)
	if err := fsops.ValidateRelPath(rel); err != nil {
		return "", err
	}

	data, err := rec.Marshal()
	if err != nil {
		return "", err
	}

	if err := s.fs.AtomicWrite(filepath.Join(projectDir, filepath.FromSlash(rel)), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write answers file %s: %w", rel, err)
	}
	return rel, nil
}

// StateDirs returns the names of the state directories in projectDir.
func (s *Store) StateDirs(projectDir string) ([]string, error) {
	entries, err := s.fs.ListDir(projectDir)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir && strings.HasPrefix(e.Name, StateDirPrefix) {
			dirs = append(dirs, e.Name)
		}
	}
	return dirs, nil
}

// Discover scans every state directory of projectDir and returns one entry
// per answers file, ordered by path. The result is never cached.
func (s *Store) Discover(projectDir string) ([]Entry, error) {
	dirs, err := s.StateDirs(projectDir)
	if err != nil {
		return nil, err
	}

	var result []Entry
	for _, dir := range dirs {
		repo := strings.TrimPrefix(dir, ".")

		files, err := s.fs.ListDir(filepath.Join(projectDir, dir))
		if err != nil {
			return nil, err
		}

		for _, f := range files {
			if f.IsDir || !isAnswersFile(f.Name) {
				continue
			}

			rel := path.Join(dir, f.Name)
			entry := Entry{Path: rel}

			rec, err := s.ReadFile(filepath.Join(projectDir, dir, f.Name))
			if err != nil {
				entry.Err = err
			}
			entry.Record = rec

			template := ""
			if rec != nil {
				template = rec.Get(KeyTemplate)
			}
			entry.Name = tplname.New(repo, template)
			entry.AppName = appNameFromFile(entry.Name, f.Name)

			result = append(result, entry)
		}
	}
	return result, nil
}

func isAnswersFile(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}

// appNameFromFile inverts FileName.
func appNameFromFile(name tplname.Name, file string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(file, ".yml"), ".yaml")
	if prefix := name.AnswersFilePrefix(); prefix != "" && strings.HasPrefix(base, prefix) {
		return strings.TrimPrefix(base, prefix)
	}
	return base
}
