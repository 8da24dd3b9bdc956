// Package gitstore keeps notebook revisions in a git repository, one file
// per cell with a UUIDS file recording cell order.
//
// A notebook at "work/a.ipynb" is stored as the directory "work/a.ipynb/"
// holding HEADER (the notebook without its cells), UUIDS and cells/<id>.
package gitstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/starford/nbsave/internal/apperr"
	"github.com/starford/nbsave/internal/checksum"
	"github.com/starford/nbsave/internal/models"
	"github.com/starford/nbsave/internal/parser"
	"github.com/starford/nbsave/internal/storage"
)

const (
	headerFile = "HEADER"
	uuidsFile  = "UUIDS"
	cellsDir   = "cells"
)

// Store is a git-backed notebook revision store.
type Store struct {
	mu     sync.Mutex
	repo   *git.Repository
	files  *storage.FS
	author string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithAuthor sets the commit author name.
func WithAuthor(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.author = name
		}
	}
}

// WithNow overrides the commit timestamp source.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens the repository at dir, initialising it when missing.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("gitstore: create dir: %w", err)
	}
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return nil, fmt.Errorf("gitstore: open repo: %w", err)
	}
	files, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("gitstore: %w", err)
	}
	s := &Store{repo: repo, files: files, author: "nbsave", now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// SaveNotebook stores content as the latest revision of the notebook at
// nbPath. New cells are added, cells no longer present are removed and the
// UUIDS file is rewritten to the current order. A save that changes nothing
// returns the existing head revision.
func (s *Store) SaveNotebook(nbPath string, content []byte) (models.Revision, error) {
	dir, err := notebookDir(nbPath)
	if err != nil {
		return models.Revision{}, err
	}
	parsed, err := parser.Parse(content)
	if err != nil {
		return models.Revision{}, fmt.Errorf("gitstore: save %s: %w: %w", nbPath, apperr.ErrInvalidContent, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.repo.Worktree()
	if err != nil {
		return models.Revision{}, fmt.Errorf("gitstore: open worktree: %w", err)
	}

	previous, err := s.storedIDs(dir)
	if err != nil {
		return models.Revision{}, err
	}
	current := parsed.IDs()

	if err := s.files.Write(path.Join(dir, headerFile), append(parsed.Header, '\n')); err != nil {
		return models.Revision{}, fmt.Errorf("gitstore: write header: %w", err)
	}
	for _, c := range parsed.Cells {
		if err := s.files.Write(cellPath(dir, c.ID), append(c.Raw, '\n')); err != nil {
			return models.Revision{}, fmt.Errorf("gitstore: write cell %s: %w", c.ID, err)
		}
	}
	if err := s.files.Write(path.Join(dir, uuidsFile), formatIDs(current)); err != nil {
		return models.Revision{}, fmt.Errorf("gitstore: write uuids: %w", err)
	}

	toAdd := []string{path.Join(dir, headerFile), path.Join(dir, uuidsFile)}
	for _, id := range current {
		toAdd = append(toAdd, cellPath(dir, id))
	}
	for _, p := range toAdd {
		if _, err := wt.Add(p); err != nil {
			return models.Revision{}, fmt.Errorf("gitstore: git add %s: %w", p, err)
		}
	}
	for _, id := range removedIDs(previous, current) {
		if _, err := wt.Remove(cellPath(dir, id)); err != nil {
			return models.Revision{}, fmt.Errorf("gitstore: git rm %s: %w", id, err)
		}
	}

	rev := models.Revision{
		Path:     dir,
		Kind:     models.RevisionSave,
		Checksum: checksum.Notebook(content),
	}
	hash, when, err := s.commit(wt, saveMessage(dir))
	if err != nil {
		return models.Revision{}, err
	}
	rev.Commit = hash
	rev.CreatedAt = when
	return rev, nil
}

// RenameNotebook moves the stored notebook from oldPath to newPath.
func (s *Store) RenameNotebook(oldPath, newPath string) (models.Revision, error) {
	oldDir, err := notebookDir(oldPath)
	if err != nil {
		return models.Revision{}, err
	}
	newDir, err := notebookDir(newPath)
	if err != nil {
		return models.Revision{}, err
	}
	if oldDir == newDir {
		return models.Revision{}, fmt.Errorf("gitstore: rename %s: %w", oldDir, apperr.ErrConflict)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.files.Stat(path.Join(oldDir, uuidsFile)); err != nil {
		return models.Revision{}, fmt.Errorf("gitstore: rename %s: %w", oldDir, apperr.ErrNotFound)
	}
	if _, err := s.files.Stat(newDir); err == nil {
		return models.Revision{}, fmt.Errorf("gitstore: rename to %s: %w", newDir, apperr.ErrAlreadyExists)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return models.Revision{}, fmt.Errorf("gitstore: open worktree: %w", err)
	}
	idx, err := s.repo.Storer.Index()
	if err != nil {
		return models.Revision{}, fmt.Errorf("gitstore: read index: %w", err)
	}
	var tracked []string
	for _, e := range idx.Entries {
		if strings.HasPrefix(e.Name, oldDir+"/") {
			tracked = append(tracked, e.Name)
		}
	}
	for _, from := range tracked {
		to := newDir + strings.TrimPrefix(from, oldDir)
		abs, err := s.files.Abs(to)
		if err != nil {
			return models.Revision{}, fmt.Errorf("gitstore: rename: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return models.Revision{}, fmt.Errorf("gitstore: mkdir: %w", err)
		}
		if _, err := wt.Move(from, to); err != nil {
			return models.Revision{}, fmt.Errorf("gitstore: git mv %s: %w", from, err)
		}
	}
	s.pruneEmpty(oldDir)

	hash, when, err := s.commit(wt, renameMessage(oldDir, newDir))
	if err != nil {
		return models.Revision{}, err
	}
	return models.Revision{
		Path:      newDir,
		Kind:      models.RevisionRename,
		OldPath:   oldDir,
		Commit:    hash,
		CreatedAt: when,
	}, nil
}

// History returns the revisions touching nbPath, newest first. A limit of
// zero or less returns all of them.
func (s *Store) History(nbPath string, limit int) ([]models.Revision, error) {
	dir, err := notebookDir(nbPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	head, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []models.Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gitstore: resolve head: %w", err)
	}

	iter, err := s.repo.Log(&git.LogOptions{
		From: head.Hash(),
		PathFilter: func(p string) bool {
			return strings.HasPrefix(p, dir+"/")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gitstore: read log: %w", err)
	}
	defer iter.Close()

	out := []models.Revision{}
	err = iter.ForEach(func(c *object.Commit) error {
		out = append(out, toRevision(c))
		if limit > 0 && len(out) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("gitstore: iterate log: %w", err)
	}
	return out, nil
}

// ReadNotebook reassembles the notebook at nbPath as of rev. An empty rev
// reads the head revision.
func (s *Store) ReadNotebook(nbPath, rev string) ([]byte, error) {
	dir, err := notebookDir(nbPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	commit, err := s.resolve(rev)
	if err != nil {
		return nil, err
	}
	header, err := readCommitFile(commit, path.Join(dir, headerFile))
	if err != nil {
		return nil, err
	}
	order, err := readCommitFile(commit, path.Join(dir, uuidsFile))
	if err != nil {
		return nil, err
	}
	ids := parseIDs(order)
	cells := make([]parser.Cell, 0, len(ids))
	for _, id := range ids {
		raw, err := readCommitFile(commit, cellPath(dir, id))
		if err != nil {
			return nil, err
		}
		cells = append(cells, parser.Cell{ID: id, Raw: raw})
	}
	data, err := parser.Join(header, cells)
	if err != nil {
		return nil, fmt.Errorf("gitstore: read %s: %w", dir, err)
	}
	return data, nil
}

// Notebooks lists the notebooks present at head, sorted by path.
func (s *Store) Notebooks() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, err := s.resolve("")
	if errors.Is(err, apperr.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("gitstore: read tree: %w", err)
	}

	out := []string{}
	err = tree.Files().ForEach(func(f *object.File) error {
		if path.Base(f.Name) == uuidsFile && path.Dir(f.Name) != "." {
			out = append(out, path.Dir(f.Name))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitstore: walk tree: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) commit(wt *git.Worktree, message string) (string, time.Time, error) {
	when := s.now().Truncate(time.Second)
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.author,
			Email: fmt.Sprintf("%s@nbsave.local", sanitizeEmail(s.author)),
			When:  when,
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		head, herr := s.repo.Head()
		if herr != nil {
			return "", time.Time{}, fmt.Errorf("gitstore: resolve head: %w", herr)
		}
		c, herr := s.repo.CommitObject(head.Hash())
		if herr != nil {
			return "", time.Time{}, fmt.Errorf("gitstore: read head: %w", herr)
		}
		return c.Hash.String(), c.Author.When, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("gitstore: commit: %w", err)
	}
	return hash.String(), when, nil
}

func (s *Store) resolve(rev string) (*object.Commit, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("gitstore: revision %s: %w", rev, apperr.ErrNotFound)
	}
	c, err := s.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("gitstore: commit %s: %w", rev, err)
	}
	return c, nil
}

func (s *Store) storedIDs(dir string) ([]string, error) {
	data, err := s.files.Read(path.Join(dir, uuidsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gitstore: read uuids: %w", err)
	}
	return parseIDs(data), nil
}

// pruneEmpty removes the moved notebook directory and any parents the move
// left empty.
func (s *Store) pruneEmpty(dir string) {
	abs, err := s.files.Abs(dir)
	if err != nil || removeEmptyTree(abs) != nil {
		return
	}
	for d := path.Dir(dir); d != "."; d = path.Dir(d) {
		parent, err := s.files.Abs(d)
		if err != nil || os.Remove(parent) != nil {
			return
		}
	}
}

// removeEmptyTree deletes abs if it only contains empty directories.
func removeEmptyTree(abs string) error {
	entries, err := os.ReadDir(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			return fmt.Errorf("gitstore: %s not empty", abs)
		}
		if err := removeEmptyTree(filepath.Join(abs, e.Name())); err != nil {
			return err
		}
	}
	return os.Remove(abs)
}

func readCommitFile(c *object.Commit, name string) ([]byte, error) {
	f, err := c.File(name)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("gitstore: %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gitstore: load %s: %w", name, err)
	}
	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("gitstore: read %s: %w", name, err)
	}
	return []byte(strings.TrimRight(content, "\n")), nil
}

// notebookDir cleans a notebook path into its directory inside the repo.
func notebookDir(p string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))[1:]
	if cleaned == "" {
		return "", fmt.Errorf("gitstore: empty path: %w", apperr.ErrInvalidName)
	}
	first, _, _ := strings.Cut(cleaned, "/")
	if first == ".git" {
		return "", fmt.Errorf("gitstore: reserved path %q: %w", p, apperr.ErrInvalidName)
	}
	return cleaned, nil
}

func cellPath(dir, id string) string {
	return path.Join(dir, cellsDir, id)
}

func formatIDs(ids []string) []byte {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func parseIDs(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func removedIDs(previous, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, id := range current {
		keep[id] = struct{}{}
	}
	var out []string
	for _, id := range previous {
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func saveMessage(dir string) string {
	return models.RevisionSave + ": " + dir
}

func renameMessage(oldDir, newDir string) string {
	return models.RevisionRename + ": " + oldDir + " -> " + newDir
}

// toRevision recovers a revision from a commit written by this store.
func toRevision(c *object.Commit) models.Revision {
	rev := models.Revision{Commit: c.Hash.String(), CreatedAt: c.Author.When}
	kind, rest, _ := strings.Cut(strings.TrimSpace(c.Message), ": ")
	if kind == models.RevisionRename {
		oldDir, newDir, _ := strings.Cut(rest, " -> ")
		rev.Kind, rev.OldPath, rev.Path = kind, oldDir, newDir
		return rev
	}
	rev.Kind, rev.Path = models.RevisionSave, rest
	return rev
}
