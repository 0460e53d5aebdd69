package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/kotche/notes/internal/model"
)

type DefaultRepository struct {
	db *sql.DB
}

func NewDefaultRepository(pg *sql.DB) *DefaultRepository {
	return &DefaultRepository{pg}
}

// GetSettings returns the zero settings (notifications disabled, no
// channels) for users that never saved any.
func (d *DefaultRepository) GetSettings(ctx context.Context, userID model.UserID) (*model.UserSettings, error) {
	query, args, err := squirrel.
		Select("notifications_enabled", "push_subscription", "telegram_chat_id", "updated_at").
		From("user_settings").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var (
		settings = &model.UserSettings{UserID: userID}
		rawSub   []byte
		chatID   sql.NullInt64
	)
	err = d.db.QueryRowContext(ctx, query, args...).Scan(
		&settings.NotificationsEnabled, &rawSub, &chatID, &settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to get settings for user '%s': %w", userID, err)
	}

	if len(rawSub) > 0 {
		var sub model.PushSubscription
		if err = json.Unmarshal(rawSub, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode push subscription for user '%s': %w", userID, err)
		}
		settings.PushSubscription = &sub
	}
	if chatID.Valid {
		settings.TelegramChatID = &chatID.Int64
	}

	return settings, nil
}

func (d *DefaultRepository) UpsertSubscription(ctx context.Context, userID model.UserID, sub model.PushSubscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode push subscription: %w", err)
	}

	query := `
		INSERT INTO user_settings (user_id, notifications_enabled, push_subscription, updated_at)
		VALUES ($1, TRUE, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_enabled = TRUE, push_subscription = EXCLUDED.push_subscription, updated_at = NOW()
	`
	if _, err = d.db.ExecContext(ctx, query, userID, raw); err != nil {
		return fmt.Errorf("failed to save push subscription for user '%s': %w", userID, err)
	}
	return nil
}

func (d *DefaultRepository) ClearSubscription(ctx context.Context, userID model.UserID) error {
	query := `UPDATE user_settings SET push_subscription = NULL, updated_at = NOW() WHERE user_id = $1`
	if _, err := d.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear push subscription for user '%s': %w", userID, err)
	}
	return nil
}

func (d *DefaultRepository) SetNotificationsEnabled(ctx context.Context, userID model.UserID, enabled bool) error {
	query := `
		INSERT INTO user_settings (user_id, notifications_enabled, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_enabled = EXCLUDED.notifications_enabled, updated_at = NOW()
	`
	if _, err := d.db.ExecContext(ctx, query, userID, enabled); err != nil {
		return fmt.Errorf("failed to update notifications flag for user '%s': %w", userID, err)
	}
	return nil
}

// SetTelegramChat links a chat to the user. Linking a chat also enables
// notifications, the same way saving a push subscription does. A chat belongs
// to one user at a time, so any previous owner loses it in the same transaction.
func (d *DefaultRepository) SetTelegramChat(ctx context.Context, userID model.UserID, chatID int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin telegram link for user '%s': %w", userID, err)
	}
	defer tx.Rollback()

	unlink := `UPDATE user_settings SET telegram_chat_id = NULL, updated_at = NOW() WHERE telegram_chat_id = $2 AND user_id <> $1`
	if _, err := tx.ExecContext(ctx, unlink, userID, chatID); err != nil {
		return fmt.Errorf("failed to release telegram chat %d: %w", chatID, err)
	}

	query := `
		INSERT INTO user_settings (user_id, notifications_enabled, telegram_chat_id, updated_at)
		VALUES ($1, TRUE, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_enabled = TRUE, telegram_chat_id = EXCLUDED.telegram_chat_id, updated_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, query, userID, chatID); err != nil {
		return fmt.Errorf("failed to link telegram chat for user '%s': %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit telegram link for user '%s': %w", userID, err)
	}
	return nil
}

func (d *DefaultRepository) UserByTelegramChat(ctx context.Context, chatID int64) (model.UserID, error) {
	var userID model.UserID
	query := `SELECT user_id FROM user_settings WHERE telegram_chat_id = $1`
	if err := d.db.QueryRowContext(ctx, query, chatID).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserID{}, model.ErrUnauthorized
		}
		return model.UserID{}, fmt.Errorf("failed to find user for chat %d: %w", chatID, err)
	}
	return userID, nil
}

func (d *DefaultRepository) GetProfile(ctx context.Context, userID model.UserID) (*model.Profile, error) {
	profile := &model.Profile{UserID: userID}
	query := `SELECT display_name, updated_at FROM profiles WHERE user_id = $1`
	err := d.db.QueryRowContext(ctx, query, userID).Scan(&profile.DisplayName, &profile.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get profile for user '%s': %w", userID, err)
	}
	return profile, nil
}

func (d *DefaultRepository) UpsertProfile(ctx context.Context, profile model.Profile) error {
	query := `
		INSERT INTO profiles (user_id, display_name, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name, updated_at = NOW()
	`
	if _, err := d.db.ExecContext(ctx, query, profile.UserID, profile.DisplayName); err != nil {
		return fmt.Errorf("failed to save profile for user '%s': %w", profile.UserID, err)
	}
	return nil
}
