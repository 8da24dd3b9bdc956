package savewidget

import (
	"log/slog"

	"github.com/starford/nbsave/internal/events"
	"github.com/starford/nbsave/internal/models"
)

// dispatchTable maps every lifecycle event to its reaction. It is built
// once in New.
func (w *Widget) dispatchTable() map[string]events.Handler {
	return map[string]events.Handler{
		events.Loaded:            w.onLoaded,
		events.Saved:             w.onSaved,
		events.Renamed:           w.onRenamed,
		events.SaveFailed:        w.onSaveFailed,
		events.ReadOnly:          w.onReadOnly,
		events.CheckpointsListed: w.onCheckpointsListed,
		events.CheckpointCreated: w.onCheckpointCreated,
		events.DirtyChanged:      w.onDirtyChanged,
	}
}

func (w *Widget) onLoaded(events.Event) {
	w.updateName()
	w.updateTitle()
}

// onSaved reports the content the model wrote. Without a payload it falls
// back to the document's current state.
func (w *Widget) onSaved(ev events.Event) {
	w.updateName()
	w.updateTitle()

	if saved, ok := ev.Data.(events.SavedNotebook); ok {
		w.telemetry.NotebookSaved(saved.Path, saved.Content)
		return
	}
	if ev.Data != nil {
		w.logger.Warn("savewidget: unexpected save payload", slog.Any("data", ev.Data))
	}

	content, err := w.doc.Serialize()
	if err != nil {
		w.logger.Warn("savewidget: serialize for save notice failed",
			slog.String("path", w.doc.Path()),
			slog.String("error", err.Error()))
		return
	}
	w.telemetry.NotebookSaved(w.doc.Path(), content)
}

func (w *Widget) onRenamed(events.Event) {
	w.updateName()
	w.updateTitle()
	w.updateAddress()
}

func (w *Widget) onSaveFailed(events.Event) {
	w.SetStatus(StatusSaveFailed)
}

func (w *Widget) onReadOnly(events.Event) {
	w.lockStatus(StatusReadOnly)
}

func (w *Widget) onCheckpointsListed(ev events.Event) {
	list, ok := ev.Data.([]models.Checkpoint)
	if !ok && ev.Data != nil {
		w.logger.Warn("savewidget: unexpected checkpoints payload", slog.Any("data", ev.Data))
		return
	}
	if len(list) == 0 {
		w.checkpoints.set(nil)
		return
	}
	w.checkpoints.set(&list[0])
}

func (w *Widget) onCheckpointCreated(ev events.Event) {
	switch cp := ev.Data.(type) {
	case models.Checkpoint:
		w.checkpoints.set(&cp)
	case *models.Checkpoint:
		if cp == nil {
			w.logger.Warn("savewidget: nil checkpoint payload")
			return
		}
		w.checkpoints.set(cp)
	default:
		w.logger.Warn("savewidget: unexpected checkpoint payload", slog.Any("data", ev.Data))
	}
}

func (w *Widget) onDirtyChanged(ev events.Event) {
	d, ok := ev.Data.(events.Dirty)
	if !ok {
		w.logger.Warn("savewidget: unexpected dirty payload", slog.Any("data", ev.Data))
		return
	}
	if d.Value {
		w.SetStatus(StatusUnsaved)
	} else {
		w.SetStatus(StatusAutosaved)
	}
}
