package reminder

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kotche/notes/infrastructure/tracing"
	"github.com/kotche/notes/internal/metrics"
	"github.com/kotche/notes/internal/model"
)

const (
	defaultPollInterval    = time.Second
	defaultDeliveryTimeout = 10 * time.Second
	defaultConcurrency     = 16
)

type (
	// Deliverer surfaces one notification for a due note. It returns
	// model.ErrCapabilityMissing or model.ErrPermissionDenied when no
	// delivery was attempted.
	Deliverer interface {
		Deliver(ctx context.Context, note model.Note) error
	}

	// SentRecorder persists the sent flag. It runs after delivery, off the
	// tick path.
	SentRecorder interface {
		RecordSent(ctx context.Context, note model.Note) error
	}

	// Claimer arbitrates between several schedulers watching the same store.
	Claimer interface {
		Claim(ctx context.Context, noteID model.NoteID) (bool, error)
		Release(ctx context.Context, noteID model.NoteID) error
	}
)

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.deliveryTimeout = d
		}
	}
}

// WithConcurrency bounds how many deliveries of one tick run at once.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClaimer(c Claimer) Option {
	return func(s *Scheduler) { s.claimer = c }
}

// Scheduler fires each pending reminder once. Notes move through three
// states: queued (in the heap), in flight (popped, delivery running) and
// fired (delivered, sent flag possibly not yet persisted). A note is in at
// most one of them, which is what keeps concurrent ticks and reloads from
// delivering it twice.
type Scheduler struct {
	deliverer Deliverer
	recorder  SentRecorder
	claimer   Claimer
	log       *zap.Logger

	now             func() time.Time
	pollInterval    time.Duration
	deliveryTimeout time.Duration
	concurrency     int

	mu        sync.Mutex
	queue     queue
	queued    map[model.NoteID]*item
	inflight  map[model.NoteID]struct{}
	fired     map[model.NoteID]model.Note
	recording map[model.NoteID]struct{}

	wake    chan struct{}
	records sync.WaitGroup
}

func New(deliverer Deliverer, recorder SentRecorder, log *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		deliverer:       deliverer,
		recorder:        recorder,
		log:             log,
		now:             time.Now,
		pollInterval:    defaultPollInterval,
		deliveryTimeout: defaultDeliveryTimeout,
		concurrency:     defaultConcurrency,
		queued:          make(map[model.NoteID]*item),
		inflight:        make(map[model.NoteID]struct{}),
		fired:           make(map[model.NoteID]model.Note),
		recording:       make(map[model.NoteID]struct{}),
		wake:            make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the queued set with a freshly fetched note list. Fired notes
// the store still reports as unsent get their sent flag recorded again;
// fired notes the store reports as sent, or no longer has, are forgotten.
func (s *Scheduler) Load(ctx context.Context, notes []model.Note) {
	s.mu.Lock()

	pending := make(map[model.NoteID]model.Note, len(notes))
	for _, n := range notes {
		if n.HasPendingReminder() {
			pending[n.ID] = n
		}
	}

	var rerecord []model.Note
	for id, n := range s.fired {
		if _, ok := pending[id]; !ok {
			delete(s.fired, id)
			delete(s.recording, id)
			continue
		}
		if _, ok := s.recording[id]; !ok {
			rerecord = append(rerecord, n)
		}
	}

	s.queue = s.queue[:0]
	s.queued = make(map[model.NoteID]*item, len(pending))
	for id, n := range pending {
		if s.handledLocked(id) {
			continue
		}
		it := &item{note: n, due: *n.NotificationTime}
		s.queued[id] = it
		s.queue = append(s.queue, it)
	}
	for i, it := range s.queue {
		it.index = i
	}
	heap.Init(&s.queue)
	metrics.RemindersPending.Set(float64(len(s.queue)))

	s.mu.Unlock()

	for _, n := range rerecord {
		s.log.Debug("sent flag not persisted yet, recording again", zap.Int64("note_id", int64(n.ID)))
		s.record(ctx, n)
	}
	s.signal()
}

// Track adds or reschedules a single note.
func (s *Scheduler) Track(note model.Note) {
	if !note.HasPendingReminder() {
		s.Untrack(note.ID)
		return
	}

	s.mu.Lock()
	if s.handledLocked(note.ID) {
		s.mu.Unlock()
		return
	}
	if it, ok := s.queued[note.ID]; ok {
		it.note = note
		it.due = *note.NotificationTime
		heap.Fix(&s.queue, it.index)
	} else {
		it = &item{note: note, due: *note.NotificationTime}
		heap.Push(&s.queue, it)
		s.queued[note.ID] = it
	}
	metrics.RemindersPending.Set(float64(len(s.queue)))
	s.mu.Unlock()

	s.signal()
}

// Untrack drops a note, typically because it was deleted.
func (s *Scheduler) Untrack(noteID model.NoteID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(noteID)
	delete(s.fired, noteID)
}

// MarkSent records that the note was delivered elsewhere, e.g. by another
// scheduler replica.
func (s *Scheduler) MarkSent(note model.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(note.ID)
	if _, ok := s.inflight[note.ID]; !ok {
		note.NotificationSent = true
		s.fired[note.ID] = note
	}
}

// Pending returns the number of queued reminders.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Next returns the due time of the earliest queued reminder.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.queue.peek()
	if it == nil {
		return time.Time{}, false
	}
	return it.due, true
}

// Tick delivers every reminder due at or before now and returns how many
// were delivered. Deliveries run concurrently, so a slow channel for one user
// does not hold back the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	due := s.popDue(now)
	if len(due) == 0 {
		return 0
	}

	ctx, span := tracing.StartSpan(ctx, "reminder.Tick", attribute.Int("due", len(due)))
	defer span.End()

	var delivered atomic.Int64
	eg := errgroup.Group{}
	eg.SetLimit(s.concurrency)
	for _, n := range due {
		n := n
		eg.Go(func() error {
			if s.fire(ctx, n) {
				delivered.Add(1)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return int(delivered.Load())
}

// Run ticks until ctx is done. It sleeps until the next reminder is due but
// never longer than the poll interval, and wakes early when notes change.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("reminder scheduler started", zap.Duration("poll_interval", s.pollInterval))

	for {
		s.Tick(ctx, s.now())

		wait := s.pollInterval
		if next, ok := s.Next(); ok {
			if d := next.Sub(s.now()); d < wait {
				wait = max(d, 0)
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.records.Wait()
			s.log.Info("reminder scheduler stopped")
			return ctx.Err()
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Wait blocks until every pending sent-flag write has finished.
func (s *Scheduler) Wait() {
	s.records.Wait()
}

func (s *Scheduler) popDue(now time.Time) []model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []model.Note
	for {
		it := s.queue.peek()
		if it == nil || it.due.After(now) {
			break
		}
		heap.Pop(&s.queue)
		delete(s.queued, it.note.ID)
		s.inflight[it.note.ID] = struct{}{}
		due = append(due, it.note)
	}
	metrics.RemindersPending.Set(float64(len(s.queue)))
	return due
}

func (s *Scheduler) fire(ctx context.Context, note model.Note) bool {
	log := s.log.With(zap.Int64("note_id", int64(note.ID)), zap.Stringer("user_id", note.UserID))

	if s.claimer != nil {
		claimed, err := s.claimer.Claim(ctx, note.ID)
		switch {
		case err != nil:
			log.Warn("reminder claim failed, delivering anyway", zap.Error(err))
		case !claimed:
			log.Debug("reminder claimed by another scheduler")
			s.finish(note, true)
			return false
		}
	}

	dctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	err := s.deliverer.Deliver(dctx, note)
	cancel()

	if err != nil {
		s.finish(note, false)
		s.release(ctx, note.ID, log)

		switch {
		case errors.Is(err, model.ErrCapabilityMissing):
			metrics.Skipped("capability_missing")
			log.Debug("reminder skipped, no delivery channel", zap.Error(err))
		case errors.Is(err, model.ErrPermissionDenied):
			metrics.Skipped("permission_denied")
			log.Debug("reminder skipped, notifications disabled", zap.Error(err))
		default:
			metrics.Skipped("delivery_failed")
			log.Warn("reminder delivery failed", zap.Error(err))
		}
		return false
	}

	s.finish(note, true)
	log.Debug("reminder delivered", zap.Timep("notification_time", note.NotificationTime))
	s.record(ctx, note)
	return true
}

// finish moves a note out of flight. Delivered notes become fired; failed
// ones are dropped until the next Load brings them back.
func (s *Scheduler) finish(note model.Note, delivered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, note.ID)
	if delivered {
		note.NotificationSent = true
		s.fired[note.ID] = note
	}
}

func (s *Scheduler) release(ctx context.Context, noteID model.NoteID, log *zap.Logger) {
	if s.claimer == nil {
		return
	}
	if err := s.claimer.Release(ctx, noteID); err != nil {
		log.Warn("failed to release reminder claim", zap.Error(err))
	}
}

func (s *Scheduler) record(ctx context.Context, note model.Note) {
	if s.recorder == nil {
		return
	}

	s.mu.Lock()
	if _, ok := s.recording[note.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.recording[note.ID] = struct{}{}
	s.mu.Unlock()

	// detached: the delivery already happened and the flag must not be lost
	// because the tick context ended
	rctx := context.WithoutCancel(ctx)

	s.records.Add(1)
	go func() {
		defer s.records.Done()

		err := s.recorder.RecordSent(rctx, note)

		s.mu.Lock()
		delete(s.recording, note.ID)
		s.mu.Unlock()

		if err != nil {
			s.log.Warn("failed to record sent reminder",
				zap.Int64("note_id", int64(note.ID)),
				zap.Error(err),
			)
		}
	}()
}

func (s *Scheduler) handledLocked(noteID model.NoteID) bool {
	if _, ok := s.inflight[noteID]; ok {
		return true
	}
	_, ok := s.fired[noteID]
	return ok
}

func (s *Scheduler) removeLocked(noteID model.NoteID) {
	if it, ok := s.queued[noteID]; ok {
		heap.Remove(&s.queue, it.index)
		delete(s.queued, noteID)
		metrics.RemindersPending.Set(float64(len(s.queue)))
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
