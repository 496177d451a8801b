// Package partition splits a physical template's tracked files into the
// base slice and the app slice.
//
// Paths are first built into an in-memory arena tree, then folded bottom-up.
// A path containing the app-name marker belongs to the app slice as a single
// include; a directory with no app content below it becomes a single exclude.
// Paths containing the template-only marker are dropped.
package partition

import (
	"path"
	"sort"
	"strings"
)

const (
	// AppNameMarker is the placeholder templates use for the app name.
	AppNameMarker = "{{app_name}}"

	// TemplateOnlyMarker marks files that are never rendered into a project.
	TemplateOnlyMarker = "template-only"

	// TemplateOnlyPattern is always present in the exclude set.
	TemplateOnlyPattern = "*template-only*"
)

// Result is a partition of tracked paths for one app-name marker.
type Result struct {
	// Marker is the app-name marker the partition was computed for.
	Marker string

	// Includes are the paths belonging to the app slice, sorted.
	Includes []string

	// Excludes are the paths belonging to the base slice plus the
	// template-only wildcard, sorted.
	Excludes []string
}

// node is an arena entry. Children are indexes into tree.nodes.
type node struct {
	name     string
	path     string
	children []int
	isFile   bool
}

type tree struct {
	nodes []node
}

const rootIndex = 0

func newTree() *tree {
	return &tree{nodes: []node{{name: ".", path: "."}}}
}

// add inserts a relative file path, creating ancestor directories.
func (t *tree) add(p string) {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if p == "." || p == "" || strings.HasPrefix(p, "../") || p == ".." {
		return
	}

	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	current := rootIndex
	for i, part := range parts {
		child := t.child(current, part)
		if child < 0 {
			childPath := part
			if current != rootIndex {
				childPath = t.nodes[current].path + "/" + part
			}
			t.nodes = append(t.nodes, node{name: part, path: childPath})
			child = len(t.nodes) - 1
			t.nodes[current].children = append(t.nodes[current].children, child)
		}
		if i == len(parts)-1 && len(t.nodes[child].children) == 0 {
			t.nodes[child].isFile = true
		} else {
			t.nodes[child].isFile = false
		}
		current = child
	}
}

func (t *tree) child(parent int, name string) int {
	for _, c := range t.nodes[parent].children {
		if t.nodes[c].name == name {
			return c
		}
	}
	return -1
}

// fold returns the includes and excludes under n.
func (t *tree) fold(n int, marker string) (includes, excludes []string) {
	nd := t.nodes[n]

	if n != rootIndex {
		if marker != "" && strings.Contains(nd.path, marker) {
			return []string{nd.path}, nil
		}
		if strings.Contains(nd.path, TemplateOnlyMarker) {
			return nil, nil
		}
		if nd.isFile {
			return nil, []string{nd.path}
		}
	}

	if len(nd.children) == 0 {
		return nil, nil
	}

	var childExcludes []string
	for _, c := range nd.children {
		inc, exc := t.fold(c, marker)
		includes = append(includes, inc...)
		childExcludes = append(childExcludes, exc...)
	}

	// The root has no self entry; it always reports its children.
	if len(includes) == 0 && n != rootIndex {
		return nil, []string{nd.path}
	}
	return includes, childExcludes
}

// Compute partitions tracked for marker. stateDir is the project state
// directory name (for example ".template-infra"); it is never excluded so the
// app slice can write its answers file.
func Compute(tracked []string, marker, stateDir string) Result {
	t := newTree()
	for _, p := range tracked {
		t.add(p)
	}

	includes, excludes := t.fold(rootIndex, marker)

	excludeSet := make(map[string]struct{}, len(excludes)+1)
	for _, e := range excludes {
		excludeSet[e] = struct{}{}
	}
	delete(excludeSet, ".")
	delete(excludeSet, ".git")
	if stateDir != "" {
		delete(excludeSet, stateDir)
	}
	excludeSet[TemplateOnlyPattern] = struct{}{}

	return Result{
		Marker:   marker,
		Includes: sortedUnique(includes),
		Excludes: sortedKeys(excludeSet),
	}
}

// ForApp substitutes appName for the marker in every entry.
func (r Result) ForApp(appName string) Result {
	if r.Marker == "" {
		return r
	}
	return Result{
		Marker:   "",
		Includes: replaceAll(r.Includes, r.Marker, appName),
		Excludes: replaceAll(r.Excludes, r.Marker, appName),
	}
}

// BaseExcludes is the exclude rule set for the base slice: everything the
// app slice owns, plus the template-only wildcard.
func (r Result) BaseExcludes(appName string) []string {
	rendered := r.ForApp(appName)
	out := append([]string{TemplateOnlyPattern}, rendered.Includes...)
	return sortedUnique(out)
}

// AppExcludes is the exclude rule set for the app slice.
func (r Result) AppExcludes(appName string) []string {
	return r.ForApp(appName).Excludes
}

func replaceAll(in []string, old, new string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ReplaceAll(s, old, new)
	}
	return sortedUnique(out)
}

func sortedUnique(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
