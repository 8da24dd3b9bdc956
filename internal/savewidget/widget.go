// Package savewidget reflects a notebook's save, checkpoint and rename
// lifecycle into display regions and navigation state.
//
// A Widget reacts to lifecycle events from an events bus through a single
// dispatch table, keeps a self-refreshing "Last Checkpoint" label, and runs
// rename sessions against an injected dialog. Every side effect outside the
// widget (regions, window title, history entry, persistence telemetry) goes
// through an interface supplied by the host.
package savewidget

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/nbsave/internal/clock"
	"github.com/starford/nbsave/internal/events"
)

// Document is the notebook model the widget observes.
type Document interface {
	// DisplayName is the notebook name without its extension.
	DisplayName() string
	// Path is the notebook path relative to the server root.
	Path() string
	// BaseURL is the URL prefix the notebook server is mounted under.
	BaseURL() string
	// Serialize returns the full notebook content.
	Serialize() (json.RawMessage, error)
	// Rename renames the notebook. On success Path reflects the new,
	// possibly normalized, path.
	Rename(ctx context.Context, name string) error
	// ValidateName reports whether name is acceptable to Rename.
	ValidateName(name string) bool
}

// Region is a text area on screen with an optional tooltip.
type Region interface {
	SetText(text, tooltip string)
}

// Regions are the three areas the widget owns.
type Regions struct {
	Status     Region
	Filename   Region
	Checkpoint Region
}

// Chrome is the document chrome around the page.
type Chrome interface {
	SetTitle(title string)
}

// NavState is the state stored with a history entry.
type NavState struct {
	Path string `json:"path"`
}

// Navigation replaces the current history entry.
type Navigation interface {
	ReplaceState(state NavState, url string)
}

// Telemetry receives best-effort persistence notifications. Calls must not
// block; failures are the sink's concern and never reach the widget.
type Telemetry interface {
	NotebookSaved(path string, content json.RawMessage)
	NotebookRenamed(oldPath, newPath string)
}

// Subscriber is the read side of the events bus.
type Subscriber interface {
	Subscribe(name string, h events.Handler) func()
}

// Status messages.
const (
	StatusSaveFailed = "Autosave Failed!"
	StatusReadOnly   = "(read only)"
	StatusUnsaved    = "(unsaved changes)"
	StatusAutosaved  = "(autosaved)"
)

// Widget is the save status controller for one notebook.
type Widget struct {
	doc       Document
	regions   Regions
	chrome    Chrome
	nav       Navigation
	telemetry Telemetry
	logger    *slog.Logger

	mu        sync.Mutex
	setStatus func(msg string)

	checkpoints *checkpointScheduler
	handlers    map[string]events.Handler
	unsubs      []func()
}

// Option configures a Widget.
type Option func(*Widget)

// WithClock sets the time source for checkpoint rendering.
func WithClock(c clock.Clock) Option {
	return func(w *Widget) {
		w.checkpoints.clock = c
	}
}

// WithChrome sets the document chrome.
func WithChrome(c Chrome) Option {
	return func(w *Widget) {
		w.chrome = c
	}
}

// WithNavigation sets the history updater.
func WithNavigation(n Navigation) Option {
	return func(w *Widget) {
		w.nav = n
	}
}

// WithTelemetry sets the persistence telemetry sink.
func WithTelemetry(t Telemetry) Option {
	return func(w *Widget) {
		w.telemetry = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) {
		w.logger = l
	}
}

// New creates a widget for doc. Nil regions and unset collaborators are
// replaced with no-ops.
func New(doc Document, regions Regions, opts ...Option) *Widget {
	regions.Status = orDiscard(regions.Status)
	regions.Filename = orDiscard(regions.Filename)
	regions.Checkpoint = orDiscard(regions.Checkpoint)

	w := &Widget{
		doc:       doc,
		regions:   regions,
		chrome:    nopChrome{},
		nav:       nopNavigation{},
		telemetry: NopTelemetry{},
		logger:    slog.Default(),
		checkpoints: &checkpointScheduler{
			clock:  clock.Real(),
			region: regions.Checkpoint,
		},
	}
	w.setStatus = w.writeStatus
	for _, opt := range opts {
		opt(w)
	}
	w.handlers = w.dispatchTable()
	return w
}

// Bind subscribes every handler in the dispatch table to sub.
func (w *Widget) Bind(sub Subscriber) {
	for _, name := range w.Events() {
		w.unsubs = append(w.unsubs, sub.Subscribe(name, w.handlers[name]))
	}
}

// Events returns the names of the events the widget reacts to.
func (w *Widget) Events() []string {
	names := make([]string, 0, len(w.handlers))
	for name := range w.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler registered for ev, if any.
func (w *Widget) Dispatch(ev events.Event) {
	if h, ok := w.handlers[ev.Name]; ok {
		h(ev)
	}
}

// Close unsubscribes from the bus and cancels the pending checkpoint render.
func (w *Widget) Close() {
	for _, unsub := range w.unsubs {
		unsub()
	}
	w.unsubs = nil
	w.checkpoints.stop()
}

// SetStatus writes msg to the status region unless the notebook has been
// marked read-only.
func (w *Widget) SetStatus(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setStatus(msg)
}

func (w *Widget) writeStatus(msg string) {
	w.regions.Status.SetText(msg, "")
}

// lockStatus shows msg and then disables status writes for good.
func (w *Widget) lockStatus(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setStatus(msg)
	w.setStatus = func(string) {}
}

func (w *Widget) updateName() {
	w.regions.Filename.SetText(w.doc.DisplayName(), "")
}

func (w *Widget) updateTitle() {
	w.chrome.SetTitle(w.doc.DisplayName())
}

func (w *Widget) updateAddress() {
	p := w.doc.Path()
	w.nav.ReplaceState(NavState{Path: p}, NotebookURL(w.doc.BaseURL(), p))
}

type discardRegion struct{}

func (discardRegion) SetText(string, string) {}

func orDiscard(r Region) Region {
	if r == nil {
		return discardRegion{}
	}
	return r
}

type nopChrome struct{}

func (nopChrome) SetTitle(string) {}

type nopNavigation struct{}

func (nopNavigation) ReplaceState(NavState, string) {}

// NopTelemetry drops every notification.
type NopTelemetry struct{}

func (NopTelemetry) NotebookSaved(string, json.RawMessage) {}
func (NopTelemetry) NotebookRenamed(string, string)        {}
