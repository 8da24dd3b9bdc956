package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nbsave/internal/models"
)

// Store is the persistence side the receiver routes use.
type Store interface {
	SaveNotebook(ctx context.Context, path string, content json.RawMessage) (models.Revision, error)
	RenameNotebook(ctx context.Context, oldPath, newPath string) (models.Revision, error)
	History(ctx context.Context, path string, limit int) ([]models.Revision, error)
	Notebooks(ctx context.Context) ([]models.NotebookMetadata, error)
	ReadNotebook(ctx context.Context, path, rev string) ([]byte, error)
}

// Handler holds the persistence receiver route handlers.
type Handler struct {
	store Store
}

// NewHandler creates a new Handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// notebookPath extracts the notebook path from the URL (everything after
// /notebooks/). Supports encoded slashes (e.g. work%2Fa.ipynb).
func notebookPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// SaveNotebook handles POST /save_notebook.
//
//	@Summary		Commit a saved notebook, one file per cell
//	@Tags			receiver
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveNotebookRequest	true	"Saved notebook"
//	@Success		200		{object}	RevisionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/save_notebook [post]
func (h *Handler) SaveNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	var req SaveNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" || len(req.Contents.Content) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("nb_name and nb_contents.content are required"))
		return
	}
	if req.Contents.Type != "" && req.Contents.Type != "notebook" {
		writeJSON(w, http.StatusBadRequest, errorBody("nb_contents.type must be notebook"))
		return
	}
	rev, err := h.store.SaveNotebook(r.Context(), req.Name, req.Contents.Content)
	if err != nil {
		writeError(w, err, "save notebook", req.Name)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// RenameNotebook handles POST /rename_notebook.
//
//	@Summary		Move a stored notebook
//	@Tags			receiver
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameNotebookRequest	true	"Old and new paths"
//	@Success		200		{object}	RevisionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rename_notebook [post]
func (h *Handler) RenameNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RenameNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.OldName == "" || req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("old_name and new_name are required"))
		return
	}
	rev, err := h.store.RenameNotebook(r.Context(), req.OldName, req.NewName)
	if err != nil {
		writeError(w, err, "rename notebook", req.OldName)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// History handles GET /history.
//
//	@Summary		List a notebook's saves and renames, newest first
//	@Tags			history
//	@Produce		json
//	@Param			path	query		string	true	"Notebook path"
//	@Param			limit	query		int		false	"Max revisions"
//	@Success		200		{object}	HistoryResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	revs, err := h.store.History(r.Context(), path, limit)
	if err != nil {
		writeError(w, err, "history", path)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Path: path, Revisions: revs})
}

// ListNotebooks handles GET /notebooks.
//
//	@Summary		List journaled notebooks
//	@Tags			history
//	@Produce		json
//	@Success		200	{object}	NotebookListResponse
//	@Security		BearerAuth
//	@Router			/notebooks [get]
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Notebooks(r.Context())
	if err != nil {
		writeError(w, err, "list notebooks", "")
		return
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: items})
}

// GetNotebook handles GET /notebooks/*.
//
//	@Summary		Reassemble a stored notebook
//	@Tags			history
//	@Produce		json
//	@Param			path	path		string	true	"Notebook path"
//	@Param			rev		query		string	false	"Commit hash or revision; head when empty"
//	@Success		200		{object}	object
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notebooks/{path} [get]
func (h *Handler) GetNotebook(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	data, err := h.store.ReadNotebook(r.Context(), path, r.URL.Query().Get("rev"))
	if err != nil {
		writeError(w, err, "read notebook", path)
		return
	}
	w.Header().Set("Content-Type", "application/x-ipynb+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
