package journal

import "github.com/starford/nbsave/internal/models"

// Journal records notebook saves and renames.
// Consumers should depend on this interface rather than the concrete *DB
// type so tests can substitute it.
type Journal interface {
	Record(rev models.Revision) error
	History(path string, limit int) ([]models.Revision, error)
	Notebooks() ([]models.NotebookMetadata, error)
	LastCommit(path string) (string, error)
	DeleteNotebook(path string) error
	Close() error
}

// Verify *DB satisfies Journal at compile time.
var _ Journal = (*DB)(nil)
