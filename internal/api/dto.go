package api

import (
	"encoding/json"

	"github.com/starford/nbsave/internal/host"
	"github.com/starford/nbsave/internal/models"
	"github.com/starford/nbsave/internal/telemetry"
)

// SaveNotebookRequest is the body of POST /save_notebook.
type SaveNotebookRequest = telemetry.SaveRequest

// RenameNotebookRequest is the body of POST /rename_notebook.
type RenameNotebookRequest = telemetry.RenameRequest

// RevisionResponse is returned after a save or rename is committed.
type RevisionResponse = models.Revision

// HistoryResponse wraps a notebook's revisions.
type HistoryResponse struct {
	Path      string            `json:"path" example:"work/analysis.ipynb" validate:"required"`
	Revisions []models.Revision `json:"revisions" validate:"required"`
}

// NotebookListResponse wraps journaled notebooks.
type NotebookListResponse struct {
	Notebooks []models.NotebookMetadata `json:"notebooks" validate:"required"`
}

// WidgetResponse is the full widget state.
type WidgetResponse = host.Snapshot

// UpdateNotebookRequest is the body of PUT /api/notebook.
type UpdateNotebookRequest struct {
	Content json.RawMessage `json:"content" validate:"required"`
}

// ConfirmRenameRequest is the body of POST /api/notebook/rename/confirm.
type ConfirmRenameRequest struct {
	Name string `json:"name" example:"analysis-v2" validate:"required"`
}

// RenameKeyRequest is the body of POST /api/notebook/rename/key.
type RenameKeyRequest struct {
	Key string `json:"key" example:"Enter" validate:"required"`
}

// RenameActionResponse reports the outcome of a dialog action.
type RenameActionResponse struct {
	Started bool             `json:"started"`
	Dialog  host.DialogState `json:"dialog"`
}
