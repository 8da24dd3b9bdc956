package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/starford/nbsave/internal/apperr"
	"github.com/starford/nbsave/internal/savewidget"
)

// Notebook is the document a Controller drives.
type Notebook interface {
	savewidget.Document
	Update(content json.RawMessage) error
	Save(ctx context.Context) error
}

// Controller turns browser actions into notebook and rename-session calls.
// At most one rename session is open at a time.
type Controller struct {
	ctx    context.Context
	nb     Notebook
	widget *savewidget.Widget
	page   *Page

	mu      sync.Mutex
	session *savewidget.RenameSession
}

// NewController creates a controller. ctx bounds renames started from the
// browser.
func NewController(ctx context.Context, nb Notebook, widget *savewidget.Widget, page *Page) *Controller {
	return &Controller{ctx: ctx, nb: nb, widget: widget, page: page}
}

// Snapshot returns the current page state.
func (c *Controller) Snapshot() Snapshot {
	return c.page.Snapshot()
}

// Update replaces the notebook content without saving.
func (c *Controller) Update(content json.RawMessage) error {
	return c.nb.Update(content)
}

// Save writes the notebook.
func (c *Controller) Save(ctx context.Context) error {
	return c.nb.Save(ctx)
}

// OpenRename opens the rename dialog. An already open dialog is left as is.
func (c *Controller) OpenRename() DialogState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.Closed() {
		c.session = c.widget.Rename(c.ctx, c.nb, c.page.OpenDialog())
	}
	return c.page.Snapshot().Dialog
}

// ConfirmRename types name into the dialog and presses the primary button.
// It reports whether a rename was started.
func (c *Controller) ConfirmRename(name string) (bool, error) {
	s, err := c.active()
	if err != nil {
		return false, err
	}
	if s.Submitting() {
		return false, fmt.Errorf("host: rename in progress: %w", apperr.ErrConflict)
	}
	(&Dialog{page: c.page}).SetValue(name)
	return s.Confirm(), nil
}

// RenameKey delivers a key press from the dialog's name input.
func (c *Controller) RenameKey(key string) (bool, error) {
	s, err := c.active()
	if err != nil {
		return false, err
	}
	return s.KeyDown(key), nil
}

// CancelRename closes the dialog without renaming.
func (c *Controller) CancelRename() error {
	s, err := c.active()
	if err != nil {
		return err
	}
	if !s.Cancel() {
		return fmt.Errorf("host: rename in progress: %w", apperr.ErrConflict)
	}
	return nil
}

// WaitRename blocks until the open session's rename, if any, finishes.
func (c *Controller) WaitRename() {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s != nil {
		s.Wait()
	}
}

func (c *Controller) active() (*savewidget.RenameSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.Closed() {
		return nil, fmt.Errorf("host: no rename dialog open: %w", apperr.ErrNotFound)
	}
	return c.session, nil
}
