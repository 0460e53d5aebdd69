package notes

import (
	"context"
	"time"

	"github.com/kotche/notes/internal/model"
)

type (
	Service interface {
		Create(ctx context.Context, userID model.UserID, content string, notificationTime *time.Time) (model.Note, error)
		Get(ctx context.Context, noteID model.NoteID, userID model.UserID) (*model.Note, error)
		Delete(ctx context.Context, noteID model.NoteID, userID model.UserID) error
		List(ctx context.Context, userID model.UserID) ([]model.Note, error)
		PendingReminders(ctx context.Context) ([]model.Note, error)
		MarkSent(ctx context.Context, noteID model.NoteID) error
	}

	// EventPublisher is the publishing half of the kafka broker.
	EventPublisher interface {
		Publish(ctx context.Context, event model.NoteEvent) error
	}
)
