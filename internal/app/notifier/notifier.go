package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kotche/notes/internal/model"
	"github.com/kotche/notes/internal/reminder"
	"github.com/kotche/notes/internal/service/kafka"
	"github.com/kotche/notes/internal/service/notes"
)

const (
	defaultReloadInterval = time.Minute
	consumeErrorPause     = time.Second
)

// Notifier keeps the reminder scheduler in step with the store. Note events
// from the broker update it right away; a periodic reload from the store
// repairs anything an event missed.
type Notifier struct {
	notes     notes.Service
	broker    kafka.MessageBroker
	scheduler *reminder.Scheduler
	log       *zap.Logger

	reloadInterval time.Duration
}

// New builds the notifier and its scheduler. broker may be nil, in which
// case sent flags are written to the store directly and changes are only
// seen on reload.
func New(
	notesServ notes.Service,
	broker kafka.MessageBroker,
	deliverer reminder.Deliverer,
	log *zap.Logger,
	reloadInterval time.Duration,
	opts ...reminder.Option,
) *Notifier {
	if reloadInterval <= 0 {
		reloadInterval = defaultReloadInterval
	}

	n := &Notifier{
		notes:          notesServ,
		broker:         broker,
		log:            log,
		reloadInterval: reloadInterval,
	}
	n.scheduler = reminder.New(deliverer, n, log, opts...)
	return n
}

func (n *Notifier) Scheduler() *reminder.Scheduler {
	return n.scheduler
}

// Start loads pending reminders and runs until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) error {
	n.log.Info("notifier started")

	if err := n.reload(ctx); err != nil {
		return fmt.Errorf("initial reload: %w", err)
	}

	eg, groupCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return n.scheduler.Run(groupCtx)
	})

	eg.Go(func() error {
		return n.runReload(groupCtx)
	})

	if n.broker != nil {
		eg.Go(func() error {
			return n.runEvents(groupCtx)
		})
	}

	err := eg.Wait()
	n.scheduler.Wait()
	n.log.Info("notifier stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RecordSent persists a delivered reminder. The flip normally travels
// through the broker so every notifier replica learns about it; without a
// broker, or when publishing fails, it is written directly.
func (n *Notifier) RecordSent(ctx context.Context, note model.Note) error {
	if n.broker != nil {
		err := n.broker.Publish(ctx, model.NoteEvent{
			Type:             model.EventNotificationSent,
			NoteID:           note.ID,
			UserID:           note.UserID,
			NotificationTime: note.NotificationTime,
			OccurredAt:       time.Now().UTC(),
		})
		if err == nil {
			return nil
		}
		n.log.Warn("failed to publish sent event, writing flag directly",
			zap.Int64("note_id", int64(note.ID)),
			zap.Error(err),
		)
	}

	return n.notes.MarkSent(ctx, note.ID)
}

func (n *Notifier) reload(ctx context.Context) error {
	pending, err := n.notes.PendingReminders(ctx)
	if err != nil {
		return err
	}

	n.scheduler.Load(ctx, pending)
	n.log.Debug("pending reminders reloaded", zap.Int("count", len(pending)))
	return nil
}

func (n *Notifier) runReload(ctx context.Context) error {
	ticker := time.NewTicker(n.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.reload(ctx); err != nil && ctx.Err() == nil {
				n.log.Warn("failed to reload pending reminders", zap.Error(err))
			}
		}
	}
}

func (n *Notifier) runEvents(ctx context.Context) error {
	for {
		event, err := n.broker.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, kafka.ErrNoConsumer) {
				n.log.Info("no consumer group configured, relying on reload")
				return nil
			}
			n.log.Warn("failed to read note event", zap.Error(err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(consumeErrorPause):
			}
			continue
		}

		n.handle(ctx, event)
	}
}

func (n *Notifier) handle(ctx context.Context, event model.NoteEvent) {
	log := n.log.With(zap.String("type", string(event.Type)), zap.Int64("note_id", int64(event.NoteID)))

	switch event.Type {
	case model.EventNoteCreated:
		n.scheduler.Track(event.Note())
		log.Debug("reminder tracked")
	case model.EventNoteDeleted:
		n.scheduler.Untrack(event.NoteID)
		log.Debug("reminder untracked")
	case model.EventNotificationSent:
		if err := n.notes.MarkSent(ctx, event.NoteID); err != nil {
			// the fired note stays re-recordable until the store reports it sent
			log.Warn("failed to persist sent flag", zap.Error(err))
			return
		}
		n.scheduler.MarkSent(event.Note())
		log.Debug("sent flag persisted")
	default:
		log.Debug("unknown note event ignored")
	}
}
