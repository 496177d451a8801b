package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ProjectConfigDir is the project-relative terraform root holding project
// settings.
const ProjectConfigDir = "infra/project-config"

// ProjectConfigAnswers maps project configuration outputs to base answers.
var ProjectConfigAnswers = map[string]string{
	"project_name":        "base_project_name",
	"owner":               "base_owner",
	"code_repository_url": "base_code_repository_url",
	"default_region":      "base_default_region",
}

// ProjectConfigSource reads project settings as base answers.
type ProjectConfigSource interface {
	// Read returns answers for the configuration in dir. A directory without
	// configuration yields nil.
	Read(ctx context.Context, dir string) (map[string]string, error)
}

// TerraformProjectConfig reads project settings from terraform outputs.
type TerraformProjectConfig struct {
	// Binary is the terraform executable.
	Binary string
}

// NewTerraformProjectConfig creates a TerraformProjectConfig using the
// terraform found on PATH.
func NewTerraformProjectConfig() *TerraformProjectConfig {
	return &TerraformProjectConfig{Binary: "terraform"}
}

// Read refreshes the state in dir and maps `terraform output -json`.
// Missing configuration or a missing terraform binary yield nil.
func (t *TerraformProjectConfig) Read(ctx context.Context, dir string) (map[string]string, error) {
	if _, err := os.Stat(filepath.Join(dir, "main.tf")); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	bin, err := exec.LookPath(t.Binary)
	if err != nil {
		return nil, nil
	}

	refresh := exec.CommandContext(ctx, bin, "refresh")
	refresh.Dir = dir
	_ = refresh.Run()

	var stdout, stderr bytes.Buffer
	output := exec.CommandContext(ctx, bin, "output", "-json")
	output.Dir = dir
	output.Stdout = &stdout
	output.Stderr = &stderr
	if err := output.Run(); err != nil {
		return nil, fmt.Errorf("terraform output failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return ParseTerraformOutputs(stdout.Bytes())
}

// ParseTerraformOutputs maps the JSON printed by `terraform output -json`
// to base answers. Empty values are dropped.
func ParseTerraformOutputs(data []byte) (map[string]string, error) {
	var outputs map[string]struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, fmt.Errorf("project config is not in the expected format: %w", err)
	}

	answers := make(map[string]string)
	for key, answer := range ProjectConfigAnswers {
		out, ok := outputs[key]
		if !ok || out.Value == nil {
			continue
		}
		if v := strings.TrimSpace(fmt.Sprint(out.Value)); v != "" {
			answers[answer] = v
		}
	}
	return answers, nil
}
