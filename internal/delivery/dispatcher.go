package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kotche/notes/internal/metrics"
	"github.com/kotche/notes/internal/model"
)

type (
	Channel interface {
		Name() string
		Ready(settings *model.UserSettings) bool
		Deliver(ctx context.Context, settings *model.UserSettings, n Notification) error
	}

	SettingsProvider interface {
		Settings(ctx context.Context, userID model.UserID) (*model.UserSettings, error)
		ClearSubscription(ctx context.Context, userID model.UserID) error
	}
)

// Dispatcher picks the first channel that can reach the user. Availability is
// checked before anything is sent, so a missing channel or disabled
// notifications never count as a delivery.
type Dispatcher struct {
	settings SettingsProvider
	channels []Channel
	log      *zap.Logger
}

// NewDispatcher tries channels in the given order.
func NewDispatcher(settings SettingsProvider, log *zap.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{settings: settings, channels: channels, log: log}
}

func (d *Dispatcher) Deliver(ctx context.Context, note model.Note) error {
	settings, err := d.settings.Settings(ctx, note.UserID)
	if err != nil {
		return fmt.Errorf("failed to load notification settings: %w", err)
	}
	if !settings.NotificationsEnabled {
		return model.ErrPermissionDenied
	}

	ready := make([]Channel, 0, len(d.channels))
	for _, c := range d.channels {
		if c.Ready(settings) {
			ready = append(ready, c)
		}
	}
	if len(ready) == 0 {
		return model.ErrCapabilityMissing
	}

	n := FromNote(note)
	log := d.log.With(zap.Int64("note_id", int64(note.ID)), zap.Stringer("user_id", note.UserID))

	var errs []error
	for _, c := range ready {
		started := time.Now()
		err = c.Deliver(ctx, settings, n)
		if err == nil {
			due := started
			if note.NotificationTime != nil {
				due = *note.NotificationTime
			}
			metrics.Delivered(c.Name(), started, due)
			log.Debug("notification delivered", zap.String("channel", c.Name()))
			return nil
		}

		if errors.Is(err, model.ErrSubscriptionGone) {
			log.Info("push subscription expired, removing it")
			if cerr := d.settings.ClearSubscription(ctx, note.UserID); cerr != nil {
				log.Warn("failed to remove expired subscription", zap.Error(cerr))
			}
		}
		log.Debug("channel failed", zap.String("channel", c.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
	}

	return errors.Join(errs...)
}
