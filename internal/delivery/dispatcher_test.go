package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/model"
)

type stubSettings struct {
	settings *model.UserSettings
	cleared  bool
}

func (s *stubSettings) Settings(_ context.Context, _ model.UserID) (*model.UserSettings, error) {
	return s.settings, nil
}

func (s *stubSettings) ClearSubscription(_ context.Context, _ model.UserID) error {
	s.cleared = true
	return nil
}

type stubChannel struct {
	name  string
	ready bool
	err   error
	sent  []Notification
}

func (c *stubChannel) Name() string                    { return c.name }
func (c *stubChannel) Ready(_ *model.UserSettings) bool { return c.ready }

func (c *stubChannel) Deliver(_ context.Context, _ *model.UserSettings, n Notification) error {
	c.sent = append(c.sent, n)
	return c.err
}

func note() model.Note {
	return model.Note{ID: 11, UserID: uuid.New(), Content: "water plants"}
}

func TestDeliver_DisabledNotificationsIsPermissionDenied(t *testing.T) {
	ch := &stubChannel{name: "push", ready: true}
	d := NewDispatcher(&stubSettings{settings: &model.UserSettings{}}, zap.NewNop(), ch)

	err := d.Deliver(context.Background(), note())
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	assert.Empty(t, ch.sent)
}

func TestDeliver_NoReadyChannelIsCapabilityMissing(t *testing.T) {
	ch := &stubChannel{name: "push"}
	d := NewDispatcher(&stubSettings{settings: &model.UserSettings{NotificationsEnabled: true}}, zap.NewNop(), ch)

	err := d.Deliver(context.Background(), note())
	assert.ErrorIs(t, err, model.ErrCapabilityMissing)
	assert.Empty(t, ch.sent)
}

func TestDeliver_FallsBackToNextChannel(t *testing.T) {
	push := &stubChannel{name: "push", ready: true, err: model.ErrSubscriptionGone}
	tg := &stubChannel{name: "telegram", ready: true}
	settings := &stubSettings{settings: &model.UserSettings{NotificationsEnabled: true}}
	d := NewDispatcher(settings, zap.NewNop(), push, tg)

	require.NoError(t, d.Deliver(context.Background(), note()))
	assert.True(t, settings.cleared)
	require.Len(t, tg.sent, 1)
	assert.Equal(t, DefaultTitle, tg.sent[0].Title)
	assert.Equal(t, "water plants", tg.sent[0].Body)
}

func TestDeliver_AllChannelsFail(t *testing.T) {
	boom := errors.New("boom")
	push := &stubChannel{name: "push", ready: true, err: boom}
	d := NewDispatcher(&stubSettings{settings: &model.UserSettings{NotificationsEnabled: true}}, zap.NewNop(), push)

	err := d.Deliver(context.Background(), note())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrCapabilityMissing)
}
