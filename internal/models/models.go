// Package models defines the domain types shared across nbsave packages.
package models

import "time"

// Checkpoint is a timestamped snapshot of a notebook kept next to it.
type Checkpoint struct {
	ID           string    `json:"id"`
	LastModified time.Time `json:"last_modified"`
}

// NotebookMetadata is a lightweight representation returned by list operations.
type NotebookMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Commit    string    `json:"commit,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Revision is one commit recorded for a notebook in the revision store.
type Revision struct {
	Path      string    `json:"path"`
	Kind      string    `json:"kind"` // "save" or "rename"
	OldPath   string    `json:"old_path,omitempty"`
	Commit    string    `json:"commit"`
	Checksum  string    `json:"checksum,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Revision kinds.
const (
	RevisionSave   = "save"
	RevisionRename = "rename"
)
