package kafka

import (
	"context"

	"github.com/kotche/notes/internal/model"
)

type MessageBroker interface {
	Publish(ctx context.Context, event model.NoteEvent) error
	Consume(ctx context.Context) (model.NoteEvent, error)
	Close() error
}
