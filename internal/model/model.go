package model

import (
	"time"

	"github.com/google/uuid"
)

type (
	NoteID int64

	// UserID is the subject of the provider-issued access token.
	UserID = uuid.UUID

	Note struct {
		ID               NoteID     `json:"id"`
		UserID           UserID     `json:"user_id"`
		Content          string     `json:"content"`
		CreatedAt        time.Time  `json:"created_at"`
		NotificationTime *time.Time `json:"notification_time,omitempty"`
		NotificationSent bool       `json:"notification_sent"`
	}

	PushKeys struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	}

	PushSubscription struct {
		Endpoint string   `json:"endpoint"`
		Keys     PushKeys `json:"keys"`
	}

	UserSettings struct {
		UserID               UserID            `json:"user_id"`
		NotificationsEnabled bool              `json:"notifications_enabled"`
		PushSubscription     *PushSubscription `json:"push_subscription,omitempty"`
		TelegramChatID       *int64            `json:"telegram_chat_id,omitempty"`
		UpdatedAt            time.Time         `json:"updated_at"`
	}

	Profile struct {
		UserID      UserID    `json:"user_id"`
		DisplayName string    `json:"display_name"`
		UpdatedAt   time.Time `json:"updated_at"`
	}
)

// HasPendingReminder reports whether the note still owes a notification.
func (n Note) HasPendingReminder() bool {
	return n.NotificationTime != nil && !n.NotificationSent
}

// Valid reports whether the subscription carries everything a push service needs.
func (s PushSubscription) Valid() bool {
	return s.Endpoint != "" && s.Keys.P256dh != "" && s.Keys.Auth != ""
}

// Permission mirrors the browser Notification.permission states plus a value
// for platforms without the Notification API at all.
type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionDefault     Permission = "default"
	PermissionUnsupported Permission = "unsupported"
)
