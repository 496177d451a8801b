package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/danieljhkim/scaffold/internal/config"
	"github.com/danieljhkim/scaffold/internal/engine"
	"github.com/danieljhkim/scaffold/internal/fsops"
	"github.com/danieljhkim/scaffold/internal/gitx"
	"github.com/danieljhkim/scaffold/internal/render"
)

const testTemplateURI = "/templates/template-infra"

// cliEnv wires the command tree to fakes.
type cliEnv struct {
	vcs        *gitx.FakeVCS
	tmpl       *gitx.FakeRepo
	renderer   *render.FakeRenderer
	prompter   *fakePrompter
	projectDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv(config.RootEnv, t.TempDir())

	vcs := gitx.NewFakeVCS()
	tmpl := vcs.AddRepo(testTemplateURI)
	tmpl.Tracked = []string{
		"infra/{{app_name}}/main.tf",
		"infra/modules/network/main.tf",
		"template-only-docs/README.md",
	}
	tmpl.TagList = []string{"v0.1.0", "v0.2.0"}

	env := &cliEnv{
		vcs:        vcs,
		tmpl:       tmpl,
		renderer:   render.NewFakeRenderer(),
		prompter:   &fakePrompter{},
		projectDir: t.TempDir(),
	}

	cachePaths := config.PathsAt(t.TempDir())
	oldEngine, oldPrompter := newEngine, prompter
	newEngine = func() (*engine.Engine, error) {
		return engine.New(env.vcs, env.renderer, fsops.NewRealFS(), *cachePaths, nil), nil
	}
	prompter = env.prompter
	t.Cleanup(func() {
		newEngine, prompter = oldEngine, oldPrompter
	})

	resetFlags()
	return env
}

// run executes the root command and returns what it printed to stdout.
func (env *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	rootCmd.SetArgs(args)
	var errBuf bytes.Buffer
	rootCmd.SetErr(&errBuf)

	var err error
	out := captureStdout(t, func() {
		err = rootCmd.Execute()
	})
	return out, err
}

// resetFlags restores every flag to its default; cobra keeps parsed values
// in package variables between executions.
func resetFlags() {
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		reset := func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

type fakePrompter struct {
	input    string
	confirm  bool
	selected []string
	err      error

	inputCalls   []string
	confirmCalls []string
	selectCalls  [][]string
}

func (p *fakePrompter) Input(message, help string, validate func(string) error) (string, error) {
	p.inputCalls = append(p.inputCalls, message)
	if p.err != nil {
		return "", p.err
	}
	if validate != nil {
		if err := validate(p.input); err != nil {
			return "", err
		}
	}
	return p.input, nil
}

func (p *fakePrompter) Confirm(message string, def bool) (bool, error) {
	p.confirmCalls = append(p.confirmCalls, message)
	if p.err != nil {
		return false, p.err
	}
	return p.confirm, nil
}

func (p *fakePrompter) MultiSelect(message string, options []string) ([]string, error) {
	p.selectCalls = append(p.selectCalls, options)
	if p.err != nil {
		return nil, p.err
	}
	return p.selected, nil
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	oldColorOutput := color.Output
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w
	color.Output = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = oldStdout
	color.Output = oldColorOutput
	return <-done
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
