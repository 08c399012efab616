package safefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureDir_CreatesNested(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, ".vibecheck", "artifacts")

	created, err := EnsureDir(target, 0o700)
	if err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if created != target {
		t.Fatalf("unexpected created path: got %s want %s", created, target)
	}
	if _, err := EnsureDir(target, 0o700); err != nil {
		t.Fatalf("EnsureDir on existing directory failed: %v", err)
	}
}

func TestWriteFileAtomic_RejectsSymlinkTarget(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target.json")
	link := filepath.Join(root, "link.json")
	if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}

	err := WriteFileAtomic(link, []byte("new"), 0o600)
	if err == nil {
		t.Fatal("expected symlink target to be rejected")
	}
	if !strings.Contains(err.Error(), "symlinked file target") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteFileAtomic_OverwritesRegularFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "scan.json")
	if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(target, []byte("new"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("unexpected contents: %s", got)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".vibecheck-tmp-") {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}
