// Package host renders the save widget into a browser page over SSE.
//
// Page implements the regions, chrome, navigation and dialog the widget
// writes to. Each write is remembered for snapshots and pushed to the
// browser as a retained SSE state event.
package host

import (
	"sync"

	"github.com/starford/nbsave/internal/savewidget"
	"github.com/starford/nbsave/internal/sse"
)

// SSE event types pushed by a Page.
const (
	EventStatus     = "region.status"
	EventFilename   = "region.filename"
	EventCheckpoint = "region.checkpoint"
	EventTitle      = "chrome.title"
	EventNavigation = "navigation"
	EventDialog     = "dialog"
)

// Publisher is the SSE side of a Page.
type Publisher interface {
	PublishState(sse.Event)
}

// TextState is the content of one region.
type TextState struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip,omitempty"`
}

// NavEntry is the current history entry.
type NavEntry struct {
	State savewidget.NavState `json:"state"`
	URL   string              `json:"url"`
}

// DialogState is the rename dialog as the browser should draw it.
type DialogState struct {
	Open         bool   `json:"open"`
	Title        string `json:"title,omitempty"`
	Message      string `json:"message,omitempty"`
	Value        string `json:"value"`
	InputEnabled bool   `json:"input_enabled"`
	// Focus counts focus-and-select requests so the browser can tell a new
	// request from a repeated snapshot.
	Focus int `json:"focus"`
}

// Snapshot is the full page state.
type Snapshot struct {
	Status     TextState   `json:"status"`
	Filename   TextState   `json:"filename"`
	Checkpoint TextState   `json:"checkpoint"`
	Title      string      `json:"title"`
	Navigation NavEntry    `json:"navigation"`
	Dialog     DialogState `json:"dialog"`
}

// Page holds the widget's rendered state.
type Page struct {
	pub Publisher

	mu    sync.Mutex
	state Snapshot
}

// NewPage creates a page publishing to pub.
func NewPage(pub Publisher) *Page {
	return &Page{pub: pub}
}

// Regions returns the widget regions backed by the page.
func (p *Page) Regions() savewidget.Regions {
	return savewidget.Regions{
		Status:     region{page: p, event: EventStatus, field: func(s *Snapshot) *TextState { return &s.Status }},
		Filename:   region{page: p, event: EventFilename, field: func(s *Snapshot) *TextState { return &s.Filename }},
		Checkpoint: region{page: p, event: EventCheckpoint, field: func(s *Snapshot) *TextState { return &s.Checkpoint }},
	}
}

// Snapshot returns a copy of the current page state.
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetTitle implements savewidget.Chrome.
func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Title = title
	p.pub.PublishState(sse.Event{Type: EventTitle, Data: map[string]string{"title": title}})
}

// ReplaceState implements savewidget.Navigation.
func (p *Page) ReplaceState(state savewidget.NavState, url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Navigation = NavEntry{State: state, URL: url}
	p.pub.PublishState(sse.Event{Type: EventNavigation, Data: p.state.Navigation})
}

// OpenDialog resets the dialog to an open, empty form.
func (p *Page) OpenDialog() *Dialog {
	p.updateDialog(func(d *DialogState) {
		focus := d.Focus
		*d = DialogState{Open: true, Focus: focus}
	})
	return &Dialog{page: p}
}

// updateDialog applies fn to the dialog state and publishes the result.
// Publishing under the lock keeps the event stream in mutation order.
func (p *Page) updateDialog(fn func(*DialogState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state.Dialog)
	p.pub.PublishState(sse.Event{Type: EventDialog, Data: p.state.Dialog})
}

type region struct {
	page  *Page
	event string
	field func(*Snapshot) *TextState
}

func (r region) SetText(text, tooltip string) {
	r.page.mu.Lock()
	defer r.page.mu.Unlock()
	ts := r.field(&r.page.state)
	*ts = TextState{Text: text, Tooltip: tooltip}
	r.page.pub.PublishState(sse.Event{Type: r.event, Data: *ts})
}

// Dialog is the page's rename dialog. It implements savewidget.Dialog.
type Dialog struct {
	page *Page
}

func (d *Dialog) SetTitle(title string) {
	d.page.updateDialog(func(s *DialogState) { s.Title = title })
}

func (d *Dialog) SetMessage(msg string) {
	d.page.updateDialog(func(s *DialogState) { s.Message = msg })
}

func (d *Dialog) Value() string {
	d.page.mu.Lock()
	defer d.page.mu.Unlock()
	return d.page.state.Dialog.Value
}

func (d *Dialog) SetValue(v string) {
	d.page.updateDialog(func(s *DialogState) { s.Value = v })
}

func (d *Dialog) SetInputEnabled(enabled bool) {
	d.page.updateDialog(func(s *DialogState) { s.InputEnabled = enabled })
}

func (d *Dialog) FocusAndSelect() {
	d.page.updateDialog(func(s *DialogState) { s.Focus++ })
}

func (d *Dialog) Close() {
	d.page.updateDialog(func(s *DialogState) {
		focus := s.Focus
		*s = DialogState{Focus: focus}
	})
}
