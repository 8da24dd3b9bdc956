package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte(`{"cells":[],"nbformat":4}`)
	if err := s.Write("Untitled.ipynb", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("Untitled.ipynb")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/c.ipynb", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Read("a/b/c.ipynb"); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestMove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("old.ipynb", []byte("data"))
	if err := s.Move("old.ipynb", "sub/new.ipynb"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.ipynb")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.ipynb"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestStat(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("n.ipynb", []byte("12345"))
	info, err := s.Stat("n.ipynb")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("size = %d", info.Size())
	}
	if _, err := s.Stat("missing.ipynb"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.ipynb",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if _, err := s.Abs(p); err == nil {
			t.Errorf("expected error resolving %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.ipynb", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.ipynb", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.ipynb")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".nbsave-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "nbsave-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
