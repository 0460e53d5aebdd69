package settings

import (
	"context"

	"github.com/kotche/notes/internal/model"
)

type (
	Repository interface {
		GetSettings(ctx context.Context, userID model.UserID) (*model.UserSettings, error)
		UpsertSubscription(ctx context.Context, userID model.UserID, sub model.PushSubscription) error
		ClearSubscription(ctx context.Context, userID model.UserID) error
		SetNotificationsEnabled(ctx context.Context, userID model.UserID, enabled bool) error
		SetTelegramChat(ctx context.Context, userID model.UserID, chatID int64) error
		UserByTelegramChat(ctx context.Context, chatID int64) (model.UserID, error)
		GetProfile(ctx context.Context, userID model.UserID) (*model.Profile, error)
		UpsertProfile(ctx context.Context, profile model.Profile) error
	}
)
