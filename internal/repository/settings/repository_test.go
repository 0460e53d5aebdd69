package settings

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotche/notes/internal/model"
)

func TestGetSettings_DecodesSubscription(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := uuid.New()
	raw := []byte(`{"endpoint":"https://push.example/abc","keys":{"p256dh":"pk","auth":"ak"}}`)
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_settings WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"notifications_enabled", "push_subscription", "telegram_chat_id", "updated_at"}).
			AddRow(true, raw, int64(42), time.Now()))

	settings, err := NewDefaultRepository(db).GetSettings(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, settings.NotificationsEnabled)
	require.NotNil(t, settings.PushSubscription)
	assert.Equal(t, "https://push.example/abc", settings.PushSubscription.Endpoint)
	assert.Equal(t, "ak", settings.PushSubscription.Keys.Auth)
	require.NotNil(t, settings.TelegramChatID)
	assert.Equal(t, int64(42), *settings.TelegramChatID)
}

func TestGetSettings_MissingRowIsDisabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := uuid.New()
	mock.ExpectQuery("FROM user_settings").WillReturnError(sql.ErrNoRows)

	settings, err := NewDefaultRepository(db).GetSettings(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, settings.NotificationsEnabled)
	assert.Nil(t, settings.PushSubscription)
	assert.Nil(t, settings.TelegramChatID)
}

func TestUpsertProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := uuid.New()
	mock.ExpectExec("INSERT INTO profiles").
		WithArgs(userID, "Ada").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDefaultRepository(db)
	require.NoError(t, repo.UpsertProfile(context.Background(), profileOf(userID, "Ada")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTelegramChat_MovesChatFromPreviousOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_settings SET telegram_chat_id = NULL")).
		WithArgs(userID, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_settings").
		WithArgs(userID, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewDefaultRepository(db).SetTelegramChat(context.Background(), userID, 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTelegramChat_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_settings SET telegram_chat_id = NULL")).
		WithArgs(userID, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO user_settings").
		WithArgs(userID, int64(42)).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err = NewDefaultRepository(db).SetTelegramChat(context.Background(), userID, 42)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func profileOf(userID uuid.UUID, name string) model.Profile {
	return model.Profile{UserID: userID, DisplayName: name}
}
