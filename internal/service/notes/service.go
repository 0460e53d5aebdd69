package notes

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kotche/notes/internal/model"
	"github.com/kotche/notes/internal/repository/notes"
)

type DefaultService struct {
	repo   notes.Repository
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewDefaultService wires the store. events may be nil, in which case the
// notifier only learns about changes on its next reload.
func NewDefaultService(repo notes.Repository, events EventPublisher, log *zap.Logger) *DefaultService {
	return &DefaultService{repo: repo, events: events, log: log, now: time.Now}
}

func (d *DefaultService) Create(ctx context.Context, userID model.UserID, content string, notificationTime *time.Time) (model.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Note{}, model.ErrEmptyContent
	}

	note := model.Note{UserID: userID, Content: content}
	if notificationTime != nil {
		t := notificationTime.UTC()
		note.NotificationTime = &t
	}

	created, err := d.repo.CreateNote(ctx, note)
	if err != nil {
		return model.Note{}, err
	}

	if created.NotificationTime != nil {
		d.publish(ctx, model.NoteEvent{
			Type:             model.EventNoteCreated,
			NoteID:           created.ID,
			UserID:           created.UserID,
			Content:          created.Content,
			NotificationTime: created.NotificationTime,
		})
	}

	return created, nil
}

func (d *DefaultService) Get(ctx context.Context, noteID model.NoteID, userID model.UserID) (*model.Note, error) {
	return d.repo.GetNote(ctx, noteID, userID)
}

func (d *DefaultService) Delete(ctx context.Context, noteID model.NoteID, userID model.UserID) error {
	exists, err := d.repo.NoteExists(ctx, noteID, userID)
	if err != nil {
		return err
	}

	if !exists {
		return model.ErrNoteNotFound
	}

	if err = d.repo.DeleteNote(ctx, noteID, userID); err != nil {
		return err
	}

	d.publish(ctx, model.NoteEvent{Type: model.EventNoteDeleted, NoteID: noteID, UserID: userID})
	return nil
}

func (d *DefaultService) List(ctx context.Context, userID model.UserID) ([]model.Note, error) {
	return d.repo.ListNotes(ctx, userID)
}

func (d *DefaultService) PendingReminders(ctx context.Context) ([]model.Note, error) {
	return d.repo.ListPendingReminders(ctx)
}

func (d *DefaultService) MarkSent(ctx context.Context, noteID model.NoteID) error {
	return d.repo.MarkNotificationSent(ctx, noteID)
}

// publish never fails the caller: the row is already committed and the
// notifier reload picks it up regardless.
func (d *DefaultService) publish(ctx context.Context, event model.NoteEvent) {
	if d.events == nil {
		return
	}
	event.OccurredAt = d.now().UTC()
	if err := d.events.Publish(ctx, event); err != nil {
		d.log.Warn("failed to publish note event",
			zap.String("type", string(event.Type)),
			zap.Int64("note_id", int64(event.NoteID)),
			zap.Error(err),
		)
	}
}
