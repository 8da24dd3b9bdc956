package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/nbsave/internal/host"
	"github.com/starford/nbsave/internal/models"
	"github.com/starford/nbsave/internal/savewidget"
	"github.com/starford/nbsave/internal/testutil"
)

type testApp struct {
	c   *components
	url string
}

// newTestApp builds the full component graph behind an httptest server
// whose receiver is also the widget's telemetry endpoint.
func newTestApp(t *testing.T, mutate func(*Config)) *testApp {
	t.Helper()
	dir := t.TempDir()

	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))

	cfg := NewDefaultConfig()
	cfg.Notebook.Root = filepath.Join(dir, "notebooks")
	cfg.Notebook.Path = "work/Untitled.ipynb"
	cfg.GitStore.Path = filepath.Join(dir, "repo")
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	cfg.Telemetry.Endpoint = ts.URL
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	c, err := newComponents(context.Background(), cfg, testutil.Logger())
	if err != nil {
		t.Fatalf("newComponents: %v", err)
	}
	handler = c.handler
	t.Cleanup(func() {
		ts.Close()
		c.Close()
	})
	c.bus.Flush()
	return &testApp{c: c, url: ts.URL}
}

func (a *testApp) do(t *testing.T, method, route string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, a.url+route, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, route, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) snapshot(t *testing.T) host.Snapshot {
	t.Helper()
	a.c.bus.Flush()
	var snap host.Snapshot
	resp := a.do(t, http.MethodGet, "/api/widget", nil)
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func (a *testApp) notebooks(t *testing.T) []models.NotebookMetadata {
	t.Helper()
	var list struct {
		Notebooks []models.NotebookMetadata `json:"notebooks"`
	}
	resp := a.do(t, http.MethodGet, "/notebooks", nil)
	_ = json.NewDecoder(resp.Body).Decode(&list)
	return list.Notebooks
}

func TestLoadedNotebookSnapshot(t *testing.T) {
	app := newTestApp(t, nil)
	snap := app.snapshot(t)

	if snap.Filename.Text != "Untitled" || snap.Title != "Untitled" {
		t.Errorf("filename = %q, title = %q", snap.Filename.Text, snap.Title)
	}
	if snap.Checkpoint.Text != savewidget.NoCheckpointLabel {
		t.Errorf("checkpoint = %q", snap.Checkpoint.Text)
	}
}

func TestSaveFlow(t *testing.T) {
	app := newTestApp(t, nil)

	content := json.RawMessage(`{"cells":[{"cell_type":"code","id":"c1","metadata":{},"source":["x = 1"],"outputs":[],"execution_count":null}],"metadata":{},"nbformat":4,"nbformat_minor":5}`)
	if resp := app.do(t, http.MethodPut, "/api/notebook", map[string]any{"content": content}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update = %d", resp.StatusCode)
	}
	if got := app.snapshot(t).Status.Text; got != savewidget.StatusUnsaved {
		t.Errorf("status after update = %q", got)
	}

	if resp := app.do(t, http.MethodPost, "/api/notebook/save", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("save = %d", resp.StatusCode)
	}
	snap := app.snapshot(t)
	if snap.Status.Text != savewidget.StatusAutosaved {
		t.Errorf("status after save = %q", snap.Status.Text)
	}
	if !strings.HasPrefix(snap.Checkpoint.Text, "Last Checkpoint: ") {
		t.Errorf("checkpoint = %q", snap.Checkpoint.Text)
	}

	testutil.Eventually(t, 5*time.Second, func() bool {
		list := app.notebooks(t)
		return len(list) == 1 && list[0].Path == "work/Untitled.ipynb"
	}, "saved notebook never reached the revision store")
}

func TestRenameFlow(t *testing.T) {
	app := newTestApp(t, nil)

	app.do(t, http.MethodPost, "/api/notebook/save", nil)
	testutil.Eventually(t, 5*time.Second, func() bool {
		return len(app.notebooks(t)) == 1
	}, "save telemetry not received")

	app.do(t, http.MethodPost, "/api/notebook/rename", nil)
	resp := app.do(t, http.MethodPost, "/api/notebook/rename/confirm", map[string]string{"name": "Report"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm = %d", resp.StatusCode)
	}
	app.c.controller.WaitRename()

	snap := app.snapshot(t)
	if snap.Dialog.Open {
		t.Error("dialog should close after a successful rename")
	}
	if snap.Filename.Text != "Report" || snap.Navigation.URL != "/notebooks/work/Report.ipynb" {
		t.Errorf("after rename: filename %q, url %q", snap.Filename.Text, snap.Navigation.URL)
	}

	testutil.Eventually(t, 5*time.Second, func() bool {
		list := app.notebooks(t)
		return len(list) == 1 && list[0].Path == "work/Report.ipynb"
	}, "rename never reached the revision store")

	var hist struct {
		Revisions []models.Revision `json:"revisions"`
	}
	resp = app.do(t, http.MethodGet, "/history?path=work/Report.ipynb", nil)
	_ = json.NewDecoder(resp.Body).Decode(&hist)
	if len(hist.Revisions) == 0 || hist.Revisions[0].Kind != models.RevisionRename ||
		hist.Revisions[0].OldPath != "work/Untitled.ipynb" {
		t.Errorf("history = %+v", hist.Revisions)
	}
}

func TestReadOnlyNotebook(t *testing.T) {
	app := newTestApp(t, func(cfg *Config) { cfg.Notebook.ReadOnly = true })

	if got := app.snapshot(t).Status.Text; got != savewidget.StatusReadOnly {
		t.Errorf("status = %q", got)
	}
	if resp := app.do(t, http.MethodPost, "/api/notebook/save", nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("read-only save = %d, want 403", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t, func(cfg *Config) {
		cfg.Auth.Mode = AuthModeToken
		cfg.Auth.Token = "secret"
	})
	for _, route := range []string{"/health/live", "/health/ready"} {
		if resp := app.do(t, http.MethodGet, route, nil); resp.StatusCode != http.StatusOK {
			t.Errorf("%s = %d", route, resp.StatusCode)
		}
	}
	if resp := app.do(t, http.MethodGet, "/api/widget", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("widget without token = %d, want 401", resp.StatusCode)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}
