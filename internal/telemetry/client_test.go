package telemetry

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type captured struct {
	path string
	body []byte
}

func newReceiver(t *testing.T, status int) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, captured{path: r.URL.Path, body: body})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), got...)
	}
}

func TestNotebookSavedPayload(t *testing.T) {
	srv, got := newReceiver(t, http.StatusOK)
	c := New(srv.URL + "/")

	c.NotebookSaved("work/a.ipynb", json.RawMessage(`{"cells":[]}`))
	c.Wait()

	reqs := got()
	if len(reqs) != 1 || reqs[0].path != "/save_notebook" {
		t.Fatalf("requests = %+v", reqs)
	}
	var body struct {
		Name     string `json:"nb_name"`
		Contents struct {
			Type    string          `json:"type"`
			Content json.RawMessage `json:"content"`
		} `json:"nb_contents"`
	}
	if err := json.Unmarshal(reqs[0].body, &body); err != nil {
		t.Fatal(err)
	}
	if body.Name != "work/a.ipynb" || body.Contents.Type != "notebook" || string(body.Contents.Content) != `{"cells":[]}` {
		t.Errorf("body = %s", reqs[0].body)
	}
}

func TestNotebookRenamedPayload(t *testing.T) {
	srv, got := newReceiver(t, http.StatusOK)
	c := New(srv.URL)

	c.NotebookRenamed("a.ipynb", "b.ipynb")
	c.Wait()

	reqs := got()
	if len(reqs) != 1 || reqs[0].path != "/rename_notebook" {
		t.Fatalf("requests = %+v", reqs)
	}
	var body RenameRequest
	if err := json.Unmarshal(reqs[0].body, &body); err != nil {
		t.Fatal(err)
	}
	if body.OldName != "a.ipynb" || body.NewName != "b.ipynb" {
		t.Errorf("body = %+v", body)
	}
}

func TestFailureIsLoggedNotRetried(t *testing.T) {
	srv, got := newReceiver(t, http.StatusInternalServerError)
	var buf syncBuffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	c := New(srv.URL, WithLogger(logger))

	c.NotebookRenamed("a.ipynb", "b.ipynb")
	c.Wait()

	if n := len(got()); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
	if !strings.Contains(buf.String(), "telemetry failed") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestUnreachableEndpointDoesNotBlock(t *testing.T) {
	c := New("http://127.0.0.1:1", WithTimeout(time.Second), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	start := time.Now()
	c.NotebookSaved("a.ipynb", json.RawMessage(`{}`))
	if time.Since(start) > 100*time.Millisecond {
		t.Error("NotebookSaved blocked the caller")
	}
	c.Wait()
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBearerToken(t *testing.T) {
	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithToken("tok"))
	c.NotebookRenamed("a.ipynb", "b.ipynb")
	c.Wait()

	if got := <-auth; got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
}
