package settings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/model"
)

type memoryRepo struct {
	settings map[model.UserID]*model.UserSettings
	profiles map[model.UserID]model.Profile
	cleared  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		settings: map[model.UserID]*model.UserSettings{},
		profiles: map[model.UserID]model.Profile{},
	}
}

func (m *memoryRepo) get(userID model.UserID) *model.UserSettings {
	s, ok := m.settings[userID]
	if !ok {
		s = &model.UserSettings{UserID: userID}
		m.settings[userID] = s
	}
	return s
}

func (m *memoryRepo) GetSettings(_ context.Context, userID model.UserID) (*model.UserSettings, error) {
	cp := *m.get(userID)
	return &cp, nil
}

func (m *memoryRepo) UpsertSubscription(_ context.Context, userID model.UserID, sub model.PushSubscription) error {
	s := m.get(userID)
	s.PushSubscription = &sub
	s.NotificationsEnabled = true
	return nil
}

func (m *memoryRepo) ClearSubscription(_ context.Context, userID model.UserID) error {
	m.cleared++
	m.get(userID).PushSubscription = nil
	return nil
}

func (m *memoryRepo) SetNotificationsEnabled(_ context.Context, userID model.UserID, enabled bool) error {
	m.get(userID).NotificationsEnabled = enabled
	return nil
}

func (m *memoryRepo) SetTelegramChat(_ context.Context, userID model.UserID, chatID int64) error {
	s := m.get(userID)
	s.TelegramChatID = &chatID
	s.NotificationsEnabled = true
	return nil
}

func (m *memoryRepo) UserByTelegramChat(_ context.Context, chatID int64) (model.UserID, error) {
	for id, s := range m.settings {
		if s.TelegramChatID != nil && *s.TelegramChatID == chatID {
			return id, nil
		}
	}
	return model.UserID{}, model.ErrUnauthorized
}

func (m *memoryRepo) GetProfile(_ context.Context, userID model.UserID) (*model.Profile, error) {
	p := m.profiles[userID]
	p.UserID = userID
	return &p, nil
}

func (m *memoryRepo) UpsertProfile(_ context.Context, profile model.Profile) error {
	m.profiles[profile.UserID] = profile
	return nil
}

var sub = model.PushSubscription{
	Endpoint: "https://push.example/1",
	Keys:     model.PushKeys{P256dh: "p", Auth: "a"},
}

func TestSubscribe_PermissionOutcomesAreDistinct(t *testing.T) {
	svc := NewDefaultService(newMemoryRepo(), zap.NewNop())
	userID := uuid.New()

	denied := svc.Subscribe(context.Background(), userID, model.PermissionDenied, sub)
	missing := svc.Subscribe(context.Background(), userID, model.PermissionUnsupported, sub)
	pending := svc.Subscribe(context.Background(), userID, model.PermissionDefault, sub)

	assert.ErrorIs(t, denied, model.ErrPermissionDenied)
	assert.ErrorIs(t, missing, model.ErrCapabilityMissing)
	assert.ErrorIs(t, pending, model.ErrPermissionRequired)
	assert.NotErrorIs(t, denied, model.ErrCapabilityMissing)
}

func TestSubscribe_TearsDownExisting(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewDefaultService(repo, zap.NewNop())
	userID := uuid.New()

	require.NoError(t, svc.Subscribe(context.Background(), userID, model.PermissionGranted, sub))
	assert.Equal(t, 0, repo.cleared)

	next := sub
	next.Endpoint = "https://push.example/2"
	require.NoError(t, svc.Subscribe(context.Background(), userID, model.PermissionGranted, next))
	assert.Equal(t, 1, repo.cleared)

	settings, err := svc.Settings(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, settings.NotificationsEnabled)
	assert.Equal(t, "https://push.example/2", settings.PushSubscription.Endpoint)
}

func TestSubscribe_RejectsIncompleteSubscription(t *testing.T) {
	svc := NewDefaultService(newMemoryRepo(), zap.NewNop())

	err := svc.Subscribe(context.Background(), uuid.New(), model.PermissionGranted, model.PushSubscription{Endpoint: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidSubscription)
}

func TestUnsubscribe_WithoutSubscription(t *testing.T) {
	svc := NewDefaultService(newMemoryRepo(), zap.NewNop())

	err := svc.Unsubscribe(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrSubscriptionNotFound)
}

func TestUpdateProfile_TrimsName(t *testing.T) {
	svc := NewDefaultService(newMemoryRepo(), zap.NewNop())
	userID := uuid.New()

	profile, err := svc.UpdateProfile(context.Background(), userID, "  Ada  ")
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.DisplayName)
}
