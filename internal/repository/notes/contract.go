package notes

import (
	"context"

	"github.com/kotche/notes/internal/model"
)

type (
	Repository interface {
		CreateNote(ctx context.Context, note model.Note) (model.Note, error)
		NoteExists(ctx context.Context, noteID model.NoteID, userID model.UserID) (bool, error)
		GetNote(ctx context.Context, noteID model.NoteID, userID model.UserID) (*model.Note, error)
		DeleteNote(ctx context.Context, noteID model.NoteID, userID model.UserID) error
		ListNotes(ctx context.Context, userID model.UserID) ([]model.Note, error)
		ListPendingReminders(ctx context.Context) ([]model.Note, error)
		MarkNotificationSent(ctx context.Context, noteID model.NoteID) error
	}
)
