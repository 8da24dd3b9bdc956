package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/starford/nbsave/internal/host"
)

// Widget is the browser-facing side of the save widget.
type Widget interface {
	Snapshot() host.Snapshot
	Update(content json.RawMessage) error
	Save(ctx context.Context) error
	OpenRename() host.DialogState
	ConfirmRename(name string) (bool, error)
	RenameKey(key string) (bool, error)
	CancelRename() error
}

// WidgetHandler holds the widget route handlers.
type WidgetHandler struct {
	widget Widget
}

// NewWidgetHandler creates a new WidgetHandler.
func NewWidgetHandler(widget Widget) *WidgetHandler {
	return &WidgetHandler{widget: widget}
}

// GetWidget handles GET /api/widget.
//
//	@Summary		Current status, filename, checkpoint, title and dialog state
//	@Tags			widget
//	@Produce		json
//	@Success		200	{object}	WidgetResponse
//	@Security		BearerAuth
//	@Router			/api/widget [get]
func (h *WidgetHandler) GetWidget(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.widget.Snapshot())
}

// UpdateNotebook handles PUT /api/notebook.
//
//	@Summary		Replace the notebook content without saving
//	@Tags			widget
//	@Accept			json
//	@Param			body	body	UpdateNotebookRequest	true	"Notebook content"
//	@Success		204		"Content replaced"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/notebook [put]
func (h *WidgetHandler) UpdateNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	var req UpdateNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Content) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	if err := h.widget.Update(req.Content); err != nil {
		writeError(w, err, "update notebook", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveNotebook handles POST /api/notebook/save.
//
//	@Summary		Save the notebook
//	@Tags			widget
//	@Success		204	"Saved"
//	@Failure		403	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/notebook/save [post]
func (h *WidgetHandler) SaveNotebook(w http.ResponseWriter, r *http.Request) {
	if err := h.widget.Save(r.Context()); err != nil {
		writeError(w, err, "save notebook", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenRename handles POST /api/notebook/rename.
//
//	@Summary		Open the rename dialog
//	@Tags			widget
//	@Produce		json
//	@Success		200	{object}	RenameActionResponse
//	@Security		BearerAuth
//	@Router			/api/notebook/rename [post]
func (h *WidgetHandler) OpenRename(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RenameActionResponse{Dialog: h.widget.OpenRename()})
}

// ConfirmRename handles POST /api/notebook/rename/confirm.
//
//	@Summary		Submit a new name from the rename dialog
//	@Tags			widget
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConfirmRenameRequest	true	"New name"
//	@Success		200		{object}	RenameActionResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/notebook/rename/confirm [post]
func (h *WidgetHandler) ConfirmRename(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ConfirmRenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	started, err := h.widget.ConfirmRename(req.Name)
	if err != nil {
		writeError(w, err, "confirm rename", req.Name)
		return
	}
	h.writeDialog(w, started)
}

// RenameKey handles POST /api/notebook/rename/key.
//
//	@Summary		Deliver a key press from the rename dialog input
//	@Tags			widget
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameKeyRequest	true	"Key name"
//	@Success		200		{object}	RenameActionResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/notebook/rename/key [post]
func (h *WidgetHandler) RenameKey(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RenameKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	used, err := h.widget.RenameKey(req.Key)
	if err != nil {
		writeError(w, err, "rename key", "")
		return
	}
	h.writeDialog(w, used)
}

// CancelRename handles POST /api/notebook/rename/cancel.
//
//	@Summary		Close the rename dialog without renaming
//	@Tags			widget
//	@Produce		json
//	@Success		200	{object}	RenameActionResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/notebook/rename/cancel [post]
func (h *WidgetHandler) CancelRename(w http.ResponseWriter, _ *http.Request) {
	if err := h.widget.CancelRename(); err != nil {
		writeError(w, err, "cancel rename", "")
		return
	}
	h.writeDialog(w, false)
}

func (h *WidgetHandler) writeDialog(w http.ResponseWriter, started bool) {
	writeJSON(w, http.StatusOK, RenameActionResponse{Started: started, Dialog: h.widget.Snapshot().Dialog})
}
