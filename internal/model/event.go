package model

import "time"

type EventType string

const (
	EventNoteCreated      EventType = "note.created"
	EventNoteDeleted      EventType = "note.deleted"
	EventNotificationSent EventType = "notification.sent"
)

// NoteEvent is the broker message shared by the api and the notifier.
type NoteEvent struct {
	Type             EventType  `json:"type"`
	NoteID           NoteID     `json:"note_id"`
	UserID           UserID     `json:"user_id"`
	Content          string     `json:"content,omitempty"`
	NotificationTime *time.Time `json:"notification_time,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// Note rebuilds the part of a note the scheduler needs from a created event.
func (e NoteEvent) Note() Note {
	return Note{
		ID:               e.NoteID,
		UserID:           e.UserID,
		Content:          e.Content,
		NotificationTime: e.NotificationTime,
	}
}
