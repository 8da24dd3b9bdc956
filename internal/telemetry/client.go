// Package telemetry posts best-effort save and rename notifications to the
// persistence receiver.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 10 * time.Second

// SaveRequest is the body of POST /save_notebook.
type SaveRequest struct {
	Name     string        `json:"nb_name"`
	Contents SavedContents `json:"nb_contents"`
}

// SavedContents wraps the notebook content as the receiver expects it.
type SavedContents struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// RenameRequest is the body of POST /rename_notebook.
type RenameRequest struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// Client sends notifications without blocking the caller. Failures are
// logged and never retried.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	token    string
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a Client posting to endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     http.DefaultClient,
		timeout:  defaultTimeout,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NotebookSaved reports a saved notebook.
func (c *Client) NotebookSaved(path string, content json.RawMessage) {
	c.send("/save_notebook", SaveRequest{
		Name:     path,
		Contents: SavedContents{Type: "notebook", Content: content},
	})
}

// NotebookRenamed reports a rename from oldPath to newPath.
func (c *Client) NotebookRenamed(oldPath, newPath string) {
	c.send("/rename_notebook", RenameRequest{OldName: oldPath, NewName: newPath})
}

// Wait blocks until all in-flight requests have finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) send(route string, body any) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.post(ctx, route, body); err != nil {
			c.logger.Warn("telemetry failed", slog.String("route", route), slog.String("error", err.Error()))
			return
		}
		c.logger.Debug("telemetry sent", slog.String("route", route))
	}()
}

func (c *Client) post(ctx context.Context, route string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("telemetry: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+route, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("telemetry: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("telemetry: %s: status %d", route, resp.StatusCode)
	}
	return nil
}
