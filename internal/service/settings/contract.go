package settings

import (
	"context"

	"github.com/kotche/notes/internal/model"
)

type (
	Service interface {
		Settings(ctx context.Context, userID model.UserID) (*model.UserSettings, error)
		Subscribe(ctx context.Context, userID model.UserID, permission model.Permission, sub model.PushSubscription) error
		Unsubscribe(ctx context.Context, userID model.UserID) error
		ClearSubscription(ctx context.Context, userID model.UserID) error
		SetNotificationsEnabled(ctx context.Context, userID model.UserID, enabled bool) error
		LinkTelegram(ctx context.Context, userID model.UserID, chatID int64) error
		UserByChat(ctx context.Context, chatID int64) (model.UserID, error)
		Profile(ctx context.Context, userID model.UserID) (*model.Profile, error)
		UpdateProfile(ctx context.Context, userID model.UserID, displayName string) (*model.Profile, error)
	}
)
