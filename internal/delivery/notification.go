package delivery

import (
	"encoding/json"

	"github.com/kotche/notes/internal/model"
)

const (
	DefaultTitle = "Note Reminder"
	DefaultIcon  = "/icon-512.png"
	DefaultURL   = "/"
)

// Notification is what the service worker (or the chat) shows to the user.
type Notification struct {
	NoteID model.NoteID `json:"-"`
	UserID model.UserID `json:"-"`
	Title  string       `json:"title"`
	Body   string       `json:"body"`
	Icon   string       `json:"icon"`
	Badge  string       `json:"badge,omitempty"`
	Data   Data         `json:"data"`
}

type Data struct {
	URL    string       `json:"url"`
	NoteID model.NoteID `json:"note_id,omitempty"`
}

func FromNote(note model.Note) Notification {
	return Notification{
		NoteID: note.ID,
		UserID: note.UserID,
		Title:  DefaultTitle,
		Body:   note.Content,
		Icon:   DefaultIcon,
		Badge:  DefaultIcon,
		Data:   Data{URL: DefaultURL, NoteID: note.ID},
	}
}

// Payload is the push message body the service worker parses.
func (n Notification) Payload() ([]byte, error) {
	return json.Marshal(n)
}
