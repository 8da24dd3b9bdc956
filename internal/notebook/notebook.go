// Package notebook implements a file-backed notebook document model that
// publishes its lifecycle to an events bus.
package notebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"github.com/starford/nbsave/internal/apperr"
	"github.com/starford/nbsave/internal/events"
	"github.com/starford/nbsave/internal/models"
	"github.com/starford/nbsave/internal/nbname"
	"github.com/starford/nbsave/internal/storage"
)

// CheckpointDir is the hidden directory, next to each notebook, holding
// its checkpoint copy.
const CheckpointDir = ".ipynb_checkpoints"

// CheckpointID identifies the single checkpoint kept per notebook.
const CheckpointID = "checkpoint"

// emptyNotebook is written when the notebook file does not exist yet.
var emptyNotebook = json.RawMessage(`{
 "cells": [],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}
`)

// Notebook is one open notebook file.
type Notebook struct {
	store   storage.Provider
	bus     events.Publisher
	logger  *slog.Logger
	baseURL string

	// opMu serializes Save and Rename.
	opMu sync.Mutex

	mu       sync.Mutex
	path     string
	content  json.RawMessage
	version  uint64
	dirty    bool
	readOnly bool
}

// Option configures a Notebook.
type Option func(*Notebook)

// WithBaseURL sets the URL prefix the notebook is served under.
func WithBaseURL(u string) Option {
	return func(n *Notebook) {
		n.baseURL = u
	}
}

// WithReadOnly forces read-only mode regardless of file permissions.
func WithReadOnly(ro bool) Option {
	return func(n *Notebook) {
		n.readOnly = n.readOnly || ro
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notebook) {
		n.logger = l
	}
}

// Open reads the notebook at p, creating an empty one when missing. It
// publishes nothing; call Load once observers are bound.
func Open(store storage.Provider, bus events.Publisher, p string, opts ...Option) (*Notebook, error) {
	n := &Notebook{
		store:   store,
		bus:     bus,
		logger:  slog.Default(),
		baseURL: "/",
		path:    path.Clean(p),
	}
	for _, opt := range opts {
		opt(n)
	}

	data, err := store.Read(n.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = emptyNotebook
		if err := store.Write(n.path, data); err != nil {
			return nil, fmt.Errorf("notebook: create %s: %w", n.path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("notebook: open %s: %w", n.path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("notebook: open %s: %w", n.path, apperr.ErrInvalidContent)
	}
	n.content = data

	info, err := store.Stat(n.path)
	if err != nil {
		return nil, fmt.Errorf("notebook: open %s: %w", n.path, err)
	}
	if info.Mode().Perm()&0o200 == 0 {
		n.readOnly = true
	}
	return n, nil
}

// Load announces the notebook to observers: loaded, the checkpoint list,
// and read-only mode when applicable.
func (n *Notebook) Load() {
	n.bus.Publish(events.Event{Name: events.Loaded})
	n.RefreshCheckpoints()
	if n.ReadOnly() {
		n.bus.Publish(events.Event{Name: events.ReadOnly})
	}
}

// DisplayName returns the file name without extension.
func (n *Notebook) DisplayName() string {
	return nbname.Display(path.Base(n.Path()))
}

// Path returns the notebook path relative to the storage root.
func (n *Notebook) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// BaseURL returns the URL prefix the notebook is served under.
func (n *Notebook) BaseURL() string {
	return n.baseURL
}

// Serialize returns a copy of the current content.
func (n *Notebook) Serialize() (json.RawMessage, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append(json.RawMessage(nil), n.content...), nil
}

// ValidateName reports whether name can be used by Rename.
func (n *Notebook) ValidateName(name string) bool {
	return nbname.Valid(name)
}

// Dirty reports whether there are unsaved changes.
func (n *Notebook) Dirty() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dirty
}

// ReadOnly reports whether saving is disabled.
func (n *Notebook) ReadOnly() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.readOnly
}

// Update replaces the in-memory content. The first change after a save
// publishes DirtyChanged{true}.
func (n *Notebook) Update(content json.RawMessage) error {
	if !json.Valid(content) {
		return fmt.Errorf("notebook: update: %w", apperr.ErrInvalidContent)
	}
	n.mu.Lock()
	n.content = append(json.RawMessage(nil), content...)
	n.version++
	becameDirty := !n.dirty
	n.dirty = true
	n.mu.Unlock()

	if becameDirty {
		n.bus.Publish(events.Event{Name: events.DirtyChanged, Data: events.Dirty{Value: true}})
	}
	return nil
}

// Save writes the content to storage and refreshes the checkpoint. A write
// failure publishes SaveFailed.
func (n *Notebook) Save(ctx context.Context) error {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	n.mu.Lock()
	if n.readOnly {
		n.mu.Unlock()
		return apperr.ErrReadOnly
	}
	p, content, version := n.path, n.content, n.version
	n.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.store.Write(p, content); err != nil {
		n.logger.Warn("notebook: save failed", slog.String("path", p), slog.String("error", err.Error()))
		n.bus.Publish(events.Event{Name: events.SaveFailed})
		return fmt.Errorf("notebook: save %s: %w", p, err)
	}

	n.mu.Lock()
	clean := n.version == version
	if clean {
		n.dirty = false
	}
	n.mu.Unlock()

	n.bus.Publish(events.Event{Name: events.Saved, Data: events.SavedNotebook{Path: p, Content: content}})
	if clean {
		n.bus.Publish(events.Event{Name: events.DirtyChanged, Data: events.Dirty{Value: false}})
	}

	cp, err := n.writeCheckpoint(p, content)
	if err != nil {
		n.logger.Warn("notebook: checkpoint failed", slog.String("path", p), slog.String("error", err.Error()))
		return nil
	}
	n.bus.Publish(events.Event{Name: events.CheckpointCreated, Data: cp})
	return nil
}

// Rename renames the notebook within its directory. The extension is
// appended when missing. Renaming onto an existing notebook fails.
func (n *Notebook) Rename(ctx context.Context, name string) error {
	if err := nbname.Validate(name); err != nil {
		return err
	}

	n.opMu.Lock()
	defer n.opMu.Unlock()

	n.mu.Lock()
	oldPath, ro := n.path, n.readOnly
	n.mu.Unlock()
	if ro {
		return apperr.ErrReadOnly
	}

	newName := nbname.Normalize(name)
	newPath := path.Join(path.Dir(oldPath), newName)
	if newPath == oldPath {
		return nil
	}
	if _, err := n.store.Stat(newPath); err == nil {
		return fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, newName)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.store.Move(oldPath, newPath); err != nil {
		return fmt.Errorf("notebook: rename %s: %w", oldPath, err)
	}

	oldCP, newCP := CheckpointPath(oldPath), CheckpointPath(newPath)
	if _, err := n.store.Stat(oldCP); err == nil {
		if err := n.store.Move(oldCP, newCP); err != nil {
			n.logger.Warn("notebook: move checkpoint failed",
				slog.String("path", oldCP), slog.String("error", err.Error()))
		}
	}

	n.mu.Lock()
	n.path = newPath
	n.mu.Unlock()

	n.logger.Info("notebook: renamed", slog.String("old_path", oldPath), slog.String("new_path", newPath))
	n.bus.Publish(events.Event{Name: events.Renamed})
	return nil
}

// ListCheckpoints returns the notebook's checkpoints, newest first.
func (n *Notebook) ListCheckpoints() ([]models.Checkpoint, error) {
	cp := CheckpointPath(n.Path())
	info, err := n.store.Stat(cp)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Checkpoint{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notebook: list checkpoints: %w", err)
	}
	return []models.Checkpoint{{ID: CheckpointID, LastModified: info.ModTime()}}, nil
}

// RefreshCheckpoints publishes the current checkpoint list.
func (n *Notebook) RefreshCheckpoints() {
	list, err := n.ListCheckpoints()
	if err != nil {
		n.logger.Warn("notebook: refresh checkpoints failed", slog.String("error", err.Error()))
		return
	}
	n.bus.Publish(events.Event{Name: events.CheckpointsListed, Data: list})
}

func (n *Notebook) writeCheckpoint(p string, content []byte) (models.Checkpoint, error) {
	cp := CheckpointPath(p)
	if err := n.store.Write(cp, content); err != nil {
		return models.Checkpoint{}, err
	}
	info, err := n.store.Stat(cp)
	if err != nil {
		return models.Checkpoint{}, err
	}
	return models.Checkpoint{ID: CheckpointID, LastModified: info.ModTime()}, nil
}

// CheckpointPath returns the checkpoint file for notebook path p.
func CheckpointPath(p string) string {
	stem := nbname.Display(path.Base(p))
	return path.Join(path.Dir(p), CheckpointDir, stem+"-"+CheckpointID+nbname.Extension)
}
