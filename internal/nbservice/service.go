// Package nbservice coordinates the git revision store and the journal
// behind the persistence receiver.
package nbservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/nbsave/internal/apperr"
	"github.com/starford/nbsave/internal/gitstore"
	"github.com/starford/nbsave/internal/journal"
	"github.com/starford/nbsave/internal/models"
)

// Service coordinates revision store and journal operations.
type Service struct {
	store  *gitstore.Store
	db     journal.Journal
	logger *slog.Logger
}

// NewService creates a new notebook persistence service.
func NewService(store *gitstore.Store, db journal.Journal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, db: db, logger: logger}
}

// SaveNotebook commits content as the notebook's latest revision. The git
// store is authoritative; a journal failure is logged and repaired by the
// next Sync.
func (s *Service) SaveNotebook(_ context.Context, path string, content json.RawMessage) (models.Revision, error) {
	if !json.Valid(content) {
		return models.Revision{}, fmt.Errorf("nbservice: save %s: %w", path, apperr.ErrInvalidContent)
	}
	rev, err := s.store.SaveNotebook(path, content)
	if err != nil {
		return models.Revision{}, err
	}
	s.record(rev)
	return rev, nil
}

// RenameNotebook moves a stored notebook.
func (s *Service) RenameNotebook(_ context.Context, oldPath, newPath string) (models.Revision, error) {
	rev, err := s.store.RenameNotebook(oldPath, newPath)
	if err != nil {
		return models.Revision{}, err
	}
	s.record(rev)
	return rev, nil
}

// History returns journaled revisions for path, newest first.
func (s *Service) History(_ context.Context, path string, limit int) ([]models.Revision, error) {
	return s.db.History(path, limit)
}

// Notebooks lists journaled notebooks.
func (s *Service) Notebooks(_ context.Context) ([]models.NotebookMetadata, error) {
	return s.db.Notebooks()
}

// ReadNotebook reassembles a notebook at rev, or at head when rev is empty.
func (s *Service) ReadNotebook(_ context.Context, path, rev string) ([]byte, error) {
	return s.store.ReadNotebook(path, rev)
}

// Sync reconciles the journal with the revision store.
func (s *Service) Sync(_ context.Context) error {
	return journal.Sync(s.db, s.store, s.logger)
}

func (s *Service) record(rev models.Revision) {
	if err := s.db.Record(rev); err != nil {
		s.logger.Warn("journal record failed",
			slog.String("path", rev.Path),
			slog.String("commit", rev.Commit),
			slog.String("error", err.Error()))
	}
}
