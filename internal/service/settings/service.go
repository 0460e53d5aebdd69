package settings

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kotche/notes/internal/metrics"
	"github.com/kotche/notes/internal/model"
	"github.com/kotche/notes/internal/repository/settings"
)

const maxDisplayName = 64

type DefaultService struct {
	repo settings.Repository
	log  *zap.Logger
}

func NewDefaultService(repo settings.Repository, log *zap.Logger) *DefaultService {
	return &DefaultService{repo: repo, log: log}
}

// CheckPermission turns the permission state reported by the client into an
// error. Denied and unsupported are distinct so callers can tell a refusal
// from a platform without notifications.
func CheckPermission(permission model.Permission) error {
	switch permission {
	case model.PermissionGranted:
		return nil
	case model.PermissionDenied:
		return model.ErrPermissionDenied
	case model.PermissionDefault:
		return model.ErrPermissionRequired
	default:
		return model.ErrCapabilityMissing
	}
}

func (d *DefaultService) Settings(ctx context.Context, userID model.UserID) (*model.UserSettings, error) {
	return d.repo.GetSettings(ctx, userID)
}

// Subscribe stores a fresh push subscription. Any subscription stored before
// is torn down first so stale endpoints do not pile up.
func (d *DefaultService) Subscribe(ctx context.Context, userID model.UserID, permission model.Permission, sub model.PushSubscription) error {
	if err := CheckPermission(permission); err != nil {
		return err
	}
	if !sub.Valid() {
		return model.ErrInvalidSubscription
	}

	current, err := d.repo.GetSettings(ctx, userID)
	if err != nil {
		return err
	}

	if current.PushSubscription != nil {
		if err = d.repo.ClearSubscription(ctx, userID); err != nil {
			return fmt.Errorf("failed to tear down previous subscription: %w", err)
		}
		metrics.SubscriptionsReplaced.Inc()
		d.log.Debug("previous push subscription removed",
			zap.Stringer("user_id", userID),
			zap.String("endpoint", current.PushSubscription.Endpoint),
		)
	}

	return d.repo.UpsertSubscription(ctx, userID, sub)
}

func (d *DefaultService) Unsubscribe(ctx context.Context, userID model.UserID) error {
	current, err := d.repo.GetSettings(ctx, userID)
	if err != nil {
		return err
	}
	if current.PushSubscription == nil {
		return model.ErrSubscriptionNotFound
	}
	return d.repo.ClearSubscription(ctx, userID)
}

func (d *DefaultService) ClearSubscription(ctx context.Context, userID model.UserID) error {
	return d.repo.ClearSubscription(ctx, userID)
}

func (d *DefaultService) SetNotificationsEnabled(ctx context.Context, userID model.UserID, enabled bool) error {
	return d.repo.SetNotificationsEnabled(ctx, userID, enabled)
}

func (d *DefaultService) LinkTelegram(ctx context.Context, userID model.UserID, chatID int64) error {
	return d.repo.SetTelegramChat(ctx, userID, chatID)
}

func (d *DefaultService) UserByChat(ctx context.Context, chatID int64) (model.UserID, error) {
	return d.repo.UserByTelegramChat(ctx, chatID)
}

func (d *DefaultService) Profile(ctx context.Context, userID model.UserID) (*model.Profile, error) {
	return d.repo.GetProfile(ctx, userID)
}

func (d *DefaultService) UpdateProfile(ctx context.Context, userID model.UserID, displayName string) (*model.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if len([]rune(displayName)) > maxDisplayName {
		displayName = string([]rune(displayName)[:maxDisplayName])
	}

	profile := model.Profile{UserID: userID, DisplayName: displayName}
	if err := d.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return d.repo.GetProfile(ctx, userID)
}
