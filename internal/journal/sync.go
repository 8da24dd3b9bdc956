package journal

import (
	"log/slog"

	"github.com/starford/nbsave/internal/models"
)

// Source is the revision store the journal mirrors.
type Source interface {
	Notebooks() ([]string, error)
	History(path string, limit int) ([]models.Revision, error)
}

// Sync brings the journal up to date with src:
//   - notebooks whose head commit the journal has not seen get their
//     history backfilled
//   - notebooks no longer in src are dropped (their revisions stay)
func Sync(db Journal, src Source, logger *slog.Logger) error {
	names, err := src.Notebooks()
	if err != nil {
		return err
	}
	known, err := db.Notebooks()
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[name] = struct{}{}

		head, err := src.History(name, 1)
		if err != nil || len(head) == 0 {
			logger.Warn("sync: history failed", slog.String("path", name), slog.Any("error", err))
			continue
		}
		last, err := db.LastCommit(name)
		if err != nil {
			return err
		}
		if last == head[0].Commit {
			continue
		}

		revs, err := src.History(name, 0)
		if err != nil {
			logger.Warn("sync: history failed", slog.String("path", name), slog.String("error", err.Error()))
			continue
		}
		// Oldest first so the notebook row ends at the head revision.
		for i := len(revs) - 1; i >= 0; i-- {
			if err := db.Record(revs[i]); err != nil {
				logger.Warn("sync: record failed", slog.String("path", name), slog.String("error", err.Error()))
			}
		}
		logger.Debug("sync: backfilled", slog.String("path", name), slog.Int("revisions", len(revs)))
	}

	for _, m := range known {
		if _, ok := present[m.Path]; ok {
			continue
		}
		if err := db.DeleteNotebook(m.Path); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", m.Path))
		}
	}
	return nil
}
