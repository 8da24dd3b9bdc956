package gitstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/nbsave/internal/apperr"
	"github.com/starford/nbsave/internal/models"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	tick := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s, err := Open(dir, WithAuthor("Test User"), WithNow(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, dir
}

func notebook(cells ...string) []byte {
	parts := make([]string, len(cells))
	for i, id := range cells {
		parts[i] = `{"cell_type":"code","id":"` + id + `","source":["` + id + `"],"metadata":{},"outputs":[]}`
	}
	return []byte(`{"cells":[` + strings.Join(parts, ",") + `],"metadata":{},"nbformat":4,"nbformat_minor":5}`)
}

func cellIDs(t *testing.T, data []byte) []string {
	t.Helper()
	var nb struct {
		Cells []struct {
			ID string `json:"id"`
		} `json:"cells"`
	}
	if err := json.Unmarshal(data, &nb); err != nil {
		t.Fatalf("decode notebook: %v", err)
	}
	ids := make([]string, len(nb.Cells))
	for i, c := range nb.Cells {
		ids[i] = c.ID
	}
	return ids
}

func TestSaveWritesCellsAndOrder(t *testing.T) {
	s, dir := testStore(t)

	rev, err := s.SaveNotebook("work/a.ipynb", notebook("one", "two"))
	if err != nil {
		t.Fatalf("SaveNotebook: %v", err)
	}
	if rev.Kind != models.RevisionSave || rev.Path != "work/a.ipynb" || len(rev.Commit) != 40 {
		t.Errorf("rev = %+v", rev)
	}

	uuids, err := os.ReadFile(filepath.Join(dir, "work", "a.ipynb", "UUIDS"))
	if err != nil {
		t.Fatal(err)
	}
	if string(uuids) != "one\ntwo\n" {
		t.Errorf("UUIDS = %q", uuids)
	}
	for _, id := range []string{"one", "two"} {
		if _, err := os.Stat(filepath.Join(dir, "work", "a.ipynb", "cells", id)); err != nil {
			t.Errorf("cell %s: %v", id, err)
		}
	}
}

func TestSaveRemovesDeletedCells(t *testing.T) {
	s, dir := testStore(t)

	first, err := s.SaveNotebook("a.ipynb", notebook("one", "two", "three"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveNotebook("a.ipynb", notebook("three", "one")); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "a.ipynb", "cells", "two")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("deleted cell still on disk: %v", err)
	}

	head, err := s.ReadNotebook("a.ipynb", "")
	if err != nil {
		t.Fatalf("ReadNotebook head: %v", err)
	}
	if got := cellIDs(t, head); strings.Join(got, ",") != "three,one" {
		t.Errorf("head cells = %v", got)
	}

	old, err := s.ReadNotebook("a.ipynb", first.Commit)
	if err != nil {
		t.Fatalf("ReadNotebook first: %v", err)
	}
	if got := cellIDs(t, old); strings.Join(got, ",") != "one,two,three" {
		t.Errorf("first cells = %v", got)
	}
}

func TestSaveUnchangedReturnsHead(t *testing.T) {
	s, _ := testStore(t)

	first, err := s.SaveNotebook("a.ipynb", notebook("one"))
	if err != nil {
		t.Fatal(err)
	}
	again, err := s.SaveNotebook("a.ipynb", notebook("one"))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if again.Commit != first.Commit {
		t.Errorf("commit = %s, want %s", again.Commit, first.Commit)
	}

	hist, err := s.History("a.ipynb", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 {
		t.Errorf("history len = %d, want 1", len(hist))
	}
}

func TestRenameMovesNotebook(t *testing.T) {
	s, dir := testStore(t)

	if _, err := s.SaveNotebook("old/a.ipynb", notebook("one")); err != nil {
		t.Fatal(err)
	}
	rev, err := s.RenameNotebook("old/a.ipynb", "b.ipynb")
	if err != nil {
		t.Fatalf("RenameNotebook: %v", err)
	}
	if rev.Kind != models.RevisionRename || rev.OldPath != "old/a.ipynb" || rev.Path != "b.ipynb" {
		t.Errorf("rev = %+v", rev)
	}
	if _, err := os.Stat(filepath.Join(dir, "old")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("old directory not pruned: %v", err)
	}

	names, err := s.Notebooks()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "b.ipynb" {
		t.Errorf("Notebooks = %v", names)
	}

	data, err := s.ReadNotebook("b.ipynb", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := cellIDs(t, data); len(got) != 1 || got[0] != "one" {
		t.Errorf("cells = %v", got)
	}

	hist, err := s.History("b.ipynb", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].Kind != models.RevisionRename {
		t.Errorf("history = %+v", hist)
	}
}

func TestRenameErrors(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.SaveNotebook("a.ipynb", notebook("one")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveNotebook("b.ipynb", notebook("two")); err != nil {
		t.Fatal(err)
	}

	if _, err := s.RenameNotebook("missing.ipynb", "c.ipynb"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing source: %v", err)
	}
	if _, err := s.RenameNotebook("a.ipynb", "b.ipynb"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("existing target: %v", err)
	}
	if _, err := s.RenameNotebook("a.ipynb", "a.ipynb"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("same path: %v", err)
	}
}

func TestHistoryNewestFirstWithLimit(t *testing.T) {
	s, _ := testStore(t)
	for _, cells := range [][]string{{"a"}, {"a", "b"}, {"b"}} {
		if _, err := s.SaveNotebook("n.ipynb", notebook(cells...)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.SaveNotebook("other.ipynb", notebook("x")); err != nil {
		t.Fatal(err)
	}

	all, err := s.History("n.ipynb", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("history len = %d, want 3", len(all))
	}
	if !all[0].CreatedAt.After(all[2].CreatedAt) {
		t.Errorf("history not newest first: %v then %v", all[0].CreatedAt, all[2].CreatedAt)
	}

	limited, err := s.History("n.ipynb", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[0].Commit != all[0].Commit {
		t.Errorf("limited = %+v", limited)
	}
}

func TestEmptyRepository(t *testing.T) {
	s, _ := testStore(t)

	names, err := s.Notebooks()
	if err != nil || len(names) != 0 {
		t.Errorf("Notebooks = %v, %v", names, err)
	}
	hist, err := s.History("a.ipynb", 0)
	if err != nil || len(hist) != 0 {
		t.Errorf("History = %v, %v", hist, err)
	}
	if _, err := s.ReadNotebook("a.ipynb", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ReadNotebook = %v", err)
	}
}

func TestRejectsReservedPaths(t *testing.T) {
	s, _ := testStore(t)
	for _, p := range []string{"", "/", ".git/config", "../../.git"} {
		if _, err := s.SaveNotebook(p, notebook("one")); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("SaveNotebook(%q) = %v", p, err)
		}
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	s, dir := testStore(t)
	if _, err := s.SaveNotebook("a.ipynb", notebook("one")); err != nil {
		t.Fatal(err)
	}

	again, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	names, err := again.Notebooks()
	if err != nil || len(names) != 1 {
		t.Errorf("Notebooks after reopen = %v, %v", names, err)
	}
}
