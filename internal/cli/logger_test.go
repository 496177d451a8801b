package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewCommandLogger(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantJSON bool
	}{
		// A buffer is never a terminal.
		{"auto", "auto", true},
		{"empty is auto", "", true},
		{"text", "text", false},
		{"json", "json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := NewCommandLogger(&buf, slog.LevelInfo, tt.format)
			if err != nil {
				t.Fatalf("NewCommandLogger() error = %v", err)
			}
			l.Info("rendered", "app", "api")

			var v map[string]any
			isJSON := json.Unmarshal(buf.Bytes(), &v) == nil
			if isJSON != tt.wantJSON {
				t.Errorf("got JSON=%v, want %v: %q", isJSON, tt.wantJSON, buf.String())
			}
			if !strings.Contains(buf.String(), "api") {
				t.Errorf("expected attribute in output, got %q", buf.String())
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		if _, err := NewCommandLogger(&bytes.Buffer{}, slog.LevelInfo, "xml"); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		verbose, quiet bool
		want           slog.Level
	}{
		{false, false, slog.LevelInfo},
		{true, false, slog.LevelDebug},
		{false, true, slog.LevelError},
	}
	for _, tt := range tests {
		if got := logLevel(tt.verbose, tt.quiet); got != tt.want {
			t.Errorf("logLevel(%v, %v) = %v, want %v", tt.verbose, tt.quiet, got, tt.want)
		}
	}
}

func TestCommandLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewCommandLogger(&buf, logLevel(false, true), "text")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Error("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info should be dropped at error level, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected error record, got %q", buf.String())
	}
}
