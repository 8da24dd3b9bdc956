package savewidget

import (
	"context"
	"log/slog"
	"sync"
)

// Dialog is the modal form used by a rename session.
type Dialog interface {
	SetTitle(title string)
	SetMessage(msg string)
	// Value returns the current contents of the name input.
	Value() string
	SetValue(v string)
	SetInputEnabled(enabled bool)
	// FocusAndSelect focuses the name input and selects its text.
	FocusAndSelect()
	Close()
}

// Rename dialog texts.
const (
	RenameTitle         = "Rename Notebook"
	RenamePrompt        = "Enter a new notebook name:"
	InvalidNameMessage  = "Invalid notebook name. Notebook names must have 1 or more characters and can contain any characters except :/\\. Please enter a new notebook name:"
	RenamingMessage     = "Renaming..."
	UnknownErrorMessage = "Unknown error"
)

// KeyEnter is the confirm key in the name input.
const KeyEnter = "Enter"

// RenameSession is one open rename dialog.
type RenameSession struct {
	ctx       context.Context
	doc       Document
	dialog    Dialog
	telemetry Telemetry
	logger    *slog.Logger

	mu         sync.Mutex
	submitting bool
	closed     bool

	inflight sync.WaitGroup
}

// Rename opens a rename session for doc in dialog. The input is filled with
// the current name and focused once. ctx bounds the rename calls made by
// the session.
func (w *Widget) Rename(ctx context.Context, doc Document, dialog Dialog) *RenameSession {
	s := &RenameSession{
		ctx:       ctx,
		doc:       doc,
		dialog:    dialog,
		telemetry: w.telemetry,
		logger:    w.logger,
	}
	dialog.SetTitle(RenameTitle)
	dialog.SetMessage(RenamePrompt)
	dialog.SetValue(doc.DisplayName())
	dialog.SetInputEnabled(true)
	dialog.FocusAndSelect()
	return s
}

// Confirm is the primary button action. It validates the input and, when
// valid, starts the rename in the background. It reports whether a rename
// was started; the dialog stays open either way until the rename succeeds.
func (s *RenameSession) Confirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.submitting {
		return false
	}

	name := s.dialog.Value()
	if !s.doc.ValidateName(name) {
		s.dialog.SetMessage(InvalidNameMessage)
		s.dialog.SetInputEnabled(true)
		return false
	}

	s.dialog.SetMessage(RenamingMessage)
	s.dialog.SetInputEnabled(false)
	s.submitting = true

	s.inflight.Add(1)
	go s.submit(name, s.doc.Path())
	return true
}

func (s *RenameSession) submit(name, oldPath string) {
	defer s.inflight.Done()

	err := s.doc.Rename(s.ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = UnknownErrorMessage
		}
		s.logger.Info("savewidget: rename failed",
			slog.String("path", oldPath),
			slog.String("name", name),
			slog.String("error", msg))
		s.dialog.SetMessage(msg)
		s.dialog.SetInputEnabled(true)
		s.dialog.FocusAndSelect()
		return
	}

	s.closed = true
	s.dialog.Close()
	newPath := s.doc.Path()
	if newPath == oldPath {
		return
	}
	s.logger.Debug("savewidget: renamed",
		slog.String("old_path", oldPath),
		slog.String("new_path", newPath))
	s.telemetry.NotebookRenamed(oldPath, newPath)
}

// KeyDown handles a key pressed in the name input. Enter confirms. It
// reports whether the key was consumed.
func (s *RenameSession) KeyDown(key string) bool {
	if key != KeyEnter {
		return false
	}
	s.Confirm()
	return true
}

// Cancel closes the dialog without renaming. It is refused while a rename
// is in flight.
func (s *RenameSession) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.submitting {
		return false
	}
	s.closed = true
	s.dialog.Close()
	return true
}

// Wait blocks until any rename started by Confirm has finished.
func (s *RenameSession) Wait() {
	s.inflight.Wait()
}

// Submitting reports whether a rename is in flight.
func (s *RenameSession) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Closed reports whether the dialog was closed.
func (s *RenameSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
