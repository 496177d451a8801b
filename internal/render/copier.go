package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/danieljhkim/scaffold/internal/gitx"
)

// CopierRenderer implements Renderer with the copier CLI.
type CopierRenderer struct {
	// Binary is the copier executable, "copier" when empty.
	Binary string

	vcs   gitx.VCS
	files *FileRenderer
}

// NewCopierRenderer creates a CopierRenderer. Single files are rendered by
// files; versions are read through vcs.
func NewCopierRenderer(vcs gitx.VCS, files *FileRenderer) *CopierRenderer {
	return &CopierRenderer{Binary: "copier", vcs: vcs, files: files}
}

// CommandError is a failed copier invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("copier %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (r *CopierRenderer) run(ctx context.Context, args []string) error {
	bin := r.Binary
	if bin == "" {
		bin = "copier"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

// RenderFromZero runs "copier copy".
func (r *CopierRenderer) RenderFromZero(ctx context.Context, req CopyRequest) error {
	return r.run(ctx, copyArgs(req))
}

// RenderUpdate runs "copier update". Copier reads the source from the
// answers file, so req.Source only contributes its ref.
func (r *CopierRenderer) RenderUpdate(ctx context.Context, req UpdateRequest) error {
	return r.run(ctx, updateArgs(req))
}

// RenderFile delegates to the single-file renderer.
func (r *CopierRenderer) RenderFile(ctx context.Context, req FileRequest) (FileResult, error) {
	return r.files.RenderFile(ctx, req)
}

// Version returns "git describe" of the checkout, which is what copier
// records as the template commit.
func (r *CopierRenderer) Version(ctx context.Context, src Source) (string, error) {
	return r.vcs.Describe(ctx, src.Dir, "HEAD")
}

func copyArgs(req CopyRequest) []string {
	args := []string{"copy", "--trust", "--defaults", "--quiet"}
	args = append(args, commonArgs(req.AnswersFile, req.Source.Ref, req.Data, req.Excludes)...)
	if req.Overwrite {
		args = append(args, "--overwrite")
	}
	return append(args, req.Source.URI, req.Dest)
}

func updateArgs(req UpdateRequest) []string {
	args := []string{"update", "--trust", "--defaults", "--quiet", "--conflict", "inline"}
	args = append(args, commonArgs(req.AnswersFile, req.Source.Ref, req.Data, req.Excludes)...)
	if req.Overwrite {
		args = append(args, "--overwrite")
	}
	if req.SkipAnswered {
		args = append(args, "--skip-answered")
	}
	return append(args, req.Dest)
}

func commonArgs(answersFile, ref string, data map[string]any, excludes []string) []string {
	var args []string
	if answersFile != "" {
		args = append(args, "--answers-file", answersFile)
	}
	if ref != "" {
		args = append(args, "--vcs-ref", ref)
	}
	for _, kv := range dataArgs(data) {
		args = append(args, "--data", kv)
	}
	for _, x := range excludes {
		args = append(args, "--exclude", x)
	}
	return args
}

// dataArgs formats data as sorted KEY=VALUE pairs. Non-string values are
// encoded as JSON, which copier parses as YAML.
func dataArgs(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		var value string
		switch v := data[k].(type) {
		case string:
			value = v
		default:
			b, err := json.Marshal(v)
			if err != nil {
				value = fmt.Sprint(v)
			} else {
				value = string(b)
			}
		}
		out = append(out, k+"="+value)
	}
	return out
}
