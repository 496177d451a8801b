package hash

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSHA256Hasher(t *testing.T) {
	h := NewSHA256Hasher()
	path := filepath.Join(t.TempDir(), "main.tf")
	content := []byte("module \"network\" {}\n")

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	fileHash, err := h.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if fileHash != h.HashBytes(content) {
		t.Errorf("HashFile and HashBytes disagree: %s vs %s", fileHash, h.HashBytes(content))
	}
	if len(fileHash) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(fileHash))
	}
}

func TestSame(t *testing.T) {
	h := NewSHA256Hasher()
	path := filepath.Join(t.TempDir(), "main.tf")

	t.Run("missing file", func(t *testing.T) {
		if Same(h, path, []byte("x")) {
			t.Error("missing file reported as same")
		}
	})

	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("identical content", func(t *testing.T) {
		if !Same(h, path, []byte("x")) {
			t.Error("identical content reported as different")
		}
	})

	t.Run("different content", func(t *testing.T) {
		if Same(h, path, []byte("y")) {
			t.Error("different content reported as same")
		}
	})
}
