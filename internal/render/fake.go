package render

import (
	"context"
	"os"
	"path/filepath"

	"github.com/danieljhkim/scaffold/internal/answers"
)

// FakeRenderer implements Renderer for tests. Renders write only the answers
// file, the way the real renderer records what it rendered.
type FakeRenderer struct {
	// Tokens maps refs to the version token Version reports. Refs not in the
	// map report themselves.
	Tokens map[string]string

	// Error injection.
	CopyErr   error
	UpdateErr error
	FileErr   error

	// Recorded requests.
	Copies  []CopyRequest
	Updates []UpdateRequest
	Files   []FileRequest

	// OnRender runs after each successful render with the destination.
	OnRender func(dest string)
}

// NewFakeRenderer creates a FakeRenderer.
func NewFakeRenderer() *FakeRenderer {
	return &FakeRenderer{Tokens: make(map[string]string)}
}

func (f *FakeRenderer) token(ref string) string {
	if t, ok := f.Tokens[ref]; ok {
		return t
	}
	return ref
}

// RenderFromZero records req and writes a fresh answers file.
func (f *FakeRenderer) RenderFromZero(ctx context.Context, req CopyRequest) error {
	if f.CopyErr != nil {
		return f.CopyErr
	}
	f.Copies = append(f.Copies, req)

	rec := &answers.Record{SourceURI: req.Source.URI, VersionToken: f.token(req.Source.Ref), Data: copyData(req.Data)}
	return f.finish(req.Dest, req.AnswersFile, rec)
}

// RenderUpdate records req and rewrites the answers file, keeping recorded
// data not overridden by req.Data.
func (f *FakeRenderer) RenderUpdate(ctx context.Context, req UpdateRequest) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.Updates = append(f.Updates, req)

	path := filepath.Join(req.Dest, filepath.FromSlash(req.AnswersFile))
	data := map[string]any{}
	if raw, err := os.ReadFile(path); err == nil {
		if prev, err := answers.Unmarshal(raw); err == nil {
			data = prev.Data
		}
	}
	for k, v := range req.Data {
		data[k] = v
	}

	rec := &answers.Record{SourceURI: req.Source.URI, VersionToken: f.token(req.Source.Ref), Data: data}
	return f.finish(req.Dest, req.AnswersFile, rec)
}

func (f *FakeRenderer) finish(dest, answersFile string, rec *answers.Record) error {
	out, err := rec.Marshal()
	if err != nil {
		return err
	}
	path := filepath.Join(dest, filepath.FromSlash(answersFile))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return err
	}
	if f.OnRender != nil {
		f.OnRender(dest)
	}
	return nil
}

// RenderFile records req.
func (f *FakeRenderer) RenderFile(ctx context.Context, req FileRequest) (FileResult, error) {
	if f.FileErr != nil {
		return FileResult{}, f.FileErr
	}
	f.Files = append(f.Files, req)
	return FileResult{Path: req.RenderPath, Changed: true}, nil
}

// Version reports the token configured for src.Ref.
func (f *FakeRenderer) Version(ctx context.Context, src Source) (string, error) {
	return f.token(src.Ref), nil
}

func copyData(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var (
	_ Renderer = (*FakeRenderer)(nil)
	_ Renderer = (*CopierRenderer)(nil)
)
