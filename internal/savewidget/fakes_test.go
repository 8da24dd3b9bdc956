package savewidget

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/starford/nbsave/internal/nbname"
)

type regionWrite struct {
	text    string
	tooltip string
}

type recRegion struct {
	mu     sync.Mutex
	writes []regionWrite
}

func (r *recRegion) SetText(text, tooltip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, regionWrite{text, tooltip})
}

func (r *recRegion) last() regionWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.writes) == 0 {
		return regionWrite{}
	}
	return r.writes[len(r.writes)-1]
}

func (r *recRegion) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes)
}

type fakeDoc struct {
	mu       sync.Mutex
	path     string
	baseURL  string
	content  string
	serErr   error
	renameFn func(ctx context.Context, name string) error
}

func newFakeDoc(path string) *fakeDoc {
	return &fakeDoc{path: path, baseURL: "/", content: `{"cells":[]}`}
}

func (d *fakeDoc) DisplayName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.path
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return nbname.Display(p)
}

func (d *fakeDoc) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

func (d *fakeDoc) BaseURL() string { return d.baseURL }

func (d *fakeDoc) Serialize() (json.RawMessage, error) {
	if d.serErr != nil {
		return nil, d.serErr
	}
	return json.RawMessage(d.content), nil
}

func (d *fakeDoc) ValidateName(name string) bool { return nbname.Valid(name) }

func (d *fakeDoc) Rename(ctx context.Context, name string) error {
	if d.renameFn != nil {
		return d.renameFn(ctx, name)
	}
	d.setPath(name)
	return nil
}

func (d *fakeDoc) setPath(p string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = p
}

type fakeChrome struct {
	mu    sync.Mutex
	title string
}

func (c *fakeChrome) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

type navEntry struct {
	state NavState
	url   string
}

type fakeNav struct {
	mu      sync.Mutex
	entries []navEntry
}

func (n *fakeNav) ReplaceState(state NavState, url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, navEntry{state, url})
}

type saveNotice struct {
	path    string
	content string
}

type renameNotice struct {
	oldPath string
	newPath string
}

type fakeTelemetry struct {
	mu      sync.Mutex
	saves   []saveNotice
	renames []renameNotice
}

func (t *fakeTelemetry) NotebookSaved(path string, content json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saves = append(t.saves, saveNotice{path, string(content)})
}

func (t *fakeTelemetry) NotebookRenamed(oldPath, newPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renames = append(t.renames, renameNotice{oldPath, newPath})
}

func (t *fakeTelemetry) renameCalls() []renameNotice {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]renameNotice(nil), t.renames...)
}

type fakeDialog struct {
	mu         sync.Mutex
	title      string
	message    string
	value      string
	enabled    bool
	focusCount int
	closed     bool
}

func (d *fakeDialog) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

func (d *fakeDialog) SetMessage(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.message = msg
}

func (d *fakeDialog) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

func (d *fakeDialog) SetValue(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
}

func (d *fakeDialog) SetInputEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

func (d *fakeDialog) FocusAndSelect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focusCount++
}

func (d *fakeDialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *fakeDialog) snapshot() fakeDialog {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fakeDialog{
		title:      d.title,
		message:    d.message,
		value:      d.value,
		enabled:    d.enabled,
		focusCount: d.focusCount,
		closed:     d.closed,
	}
}

var errNameTaken = errors.New("name taken")

type emptyError struct{}

func (emptyError) Error() string { return "" }
