package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/model"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []model.NoteID
	err       error
	gate      chan struct{}
	entered   chan struct{}
}

func (f *fakeDeliverer) Deliver(_ context.Context, note model.Note) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, note.ID)
	return nil
}

func (f *fakeDeliverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

type fakeRecorder struct {
	mu   sync.Mutex
	sent []model.NoteID
}

func (f *fakeRecorder) RecordSent(_ context.Context, note model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, note.ID)
	return nil
}

func (f *fakeRecorder) ids() []model.NoteID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NoteID(nil), f.sent...)
}

func noteAt(id model.NoteID, due *time.Time) model.Note {
	return model.Note{ID: id, UserID: uuid.New(), Content: "note", NotificationTime: due}
}

func at(d time.Duration) *time.Time {
	t := t0.Add(d)
	return &t
}

func TestTick_NullReminderNeverFires(t *testing.T) {
	d := &fakeDeliverer{}
	s := New(d, &fakeRecorder{}, zap.NewNop())

	s.Load(context.Background(), []model.Note{noteAt(1, nil)})

	assert.Equal(t, 0, s.Tick(context.Background(), t0.Add(24*365*time.Hour)))
	assert.Equal(t, 0, d.count())
	assert.Equal(t, 0, s.Pending())
}

func TestTick_FiresOnceAtDueTime(t *testing.T) {
	d := &fakeDeliverer{}
	r := &fakeRecorder{}
	s := New(d, r, zap.NewNop())

	s.Load(context.Background(), []model.Note{noteAt(1, at(time.Minute))})

	assert.Equal(t, 0, s.Tick(context.Background(), t0.Add(time.Minute-time.Millisecond)))
	assert.Equal(t, 1, s.Tick(context.Background(), t0.Add(time.Minute)))
	assert.Equal(t, 0, s.Tick(context.Background(), t0.Add(time.Minute+time.Second)))

	s.Wait()
	assert.Equal(t, []model.NoteID{1}, d.delivered)
	assert.Equal(t, []model.NoteID{1}, r.ids())
}

func TestTick_AlreadySentProducesNothing(t *testing.T) {
	d := &fakeDeliverer{}
	s := New(d, &fakeRecorder{}, zap.NewNop())

	sent := noteAt(1, at(-time.Hour))
	sent.NotificationSent = true
	s.Load(context.Background(), []model.Note{sent})

	assert.Equal(t, 0, s.Tick(context.Background(), t0))
	assert.Equal(t, 0, d.count())
}

func TestLoad_BeforeFlipRoundTripsDoesNotRefire(t *testing.T) {
	d := &fakeDeliverer{}
	r := &fakeRecorder{}
	s := New(d, r, zap.NewNop())
	stale := noteAt(1, at(0))

	s.Load(context.Background(), []model.Note{stale})
	require.Equal(t, 1, s.Tick(context.Background(), t0))
	s.Wait()

	// the store still reports the row as unsent
	s.Load(context.Background(), []model.Note{stale})
	assert.Equal(t, 0, s.Tick(context.Background(), t0.Add(time.Second)))
	s.Wait()

	assert.Equal(t, 1, d.count())
	assert.Equal(t, []model.NoteID{1, 1}, r.ids(), "flag is recorded again on refetch")
}

func TestLoad_DuringDeliveryDoesNotRefire(t *testing.T) {
	d := &fakeDeliverer{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := New(d, &fakeRecorder{}, zap.NewNop())
	n := noteAt(1, at(0))
	s.Load(context.Background(), []model.Note{n})

	done := make(chan int)
	go func() { done <- s.Tick(context.Background(), t0) }()

	<-d.entered
	s.Load(context.Background(), []model.Note{n})
	s.Track(n)
	assert.Equal(t, 0, s.Pending())
	close(d.gate)

	assert.Equal(t, 1, <-done)
	d.entered = nil
	assert.Equal(t, 0, s.Tick(context.Background(), t0.Add(time.Second)))
	assert.Equal(t, 1, d.count())
}

func TestTick_SkippedDeliveryIsNotMarkedSent(t *testing.T) {
	d := &fakeDeliverer{err: model.ErrCapabilityMissing}
	r := &fakeRecorder{}
	s := New(d, r, zap.NewNop())
	n := noteAt(1, at(0))
	s.Load(context.Background(), []model.Note{n})

	assert.Equal(t, 0, s.Tick(context.Background(), t0))
	s.Wait()
	assert.Empty(t, r.ids())

	// a later refetch brings it back once a channel exists
	d.err = nil
	s.Load(context.Background(), []model.Note{n})
	assert.Equal(t, 1, s.Tick(context.Background(), t0.Add(time.Second)))
}

func TestTick_DeliversInDueOrder(t *testing.T) {
	d := &fakeDeliverer{}
	s := New(d, nil, zap.NewNop(), WithConcurrency(1))

	s.Load(context.Background(), []model.Note{
		noteAt(3, at(3*time.Second)),
		noteAt(1, at(time.Second)),
		noteAt(2, at(2*time.Second)),
	})
	next, ok := s.Next()
	require.True(t, ok)
	assert.True(t, next.Equal(*at(time.Second)))

	assert.Equal(t, 3, s.Tick(context.Background(), t0.Add(time.Minute)))
	assert.Equal(t, []model.NoteID{1, 2, 3}, d.delivered)
}

type stallingDeliverer struct {
	fakeDeliverer
	stall   model.NoteID
	release chan struct{}
}

func (s *stallingDeliverer) Deliver(ctx context.Context, note model.Note) error {
	if note.ID == s.stall {
		<-s.release
	}
	return s.fakeDeliverer.Deliver(ctx, note)
}

func (s *stallingDeliverer) has(id model.NoteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, got := range s.delivered {
		if got == id {
			return true
		}
	}
	return false
}

func TestTick_DeliversConcurrently(t *testing.T) {
	d := &stallingDeliverer{stall: 1, release: make(chan struct{})}
	s := New(d, nil, zap.NewNop())
	s.Load(context.Background(), []model.Note{noteAt(1, at(0)), noteAt(2, at(0)), noteAt(3, at(0))})

	done := make(chan int)
	go func() { done <- s.Tick(context.Background(), t0) }()

	require.Eventually(t, func() bool { return d.count() == 2 }, time.Second, time.Millisecond)
	assert.False(t, d.has(1))
	close(d.release)
	assert.Equal(t, 3, <-done)
}

func TestRun_SlowDeliveryDoesNotDelayOthers(t *testing.T) {
	const poll = 20 * time.Millisecond
	d := &stallingDeliverer{stall: 1, release: make(chan struct{})}
	s := New(d, nil, zap.NewNop(), WithPollInterval(poll))

	due := time.Now().Add(10 * time.Millisecond)
	s.Track(model.Note{ID: 1, UserID: uuid.New(), Content: "slow", NotificationTime: &due})
	s.Track(model.Note{ID: 2, UserID: uuid.New(), Content: "fast", NotificationTime: &due})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return d.has(2) }, time.Second, time.Millisecond)
	assert.Less(t, time.Since(due), 10*poll, "note 2 waited on note 1")
	assert.False(t, d.has(1))

	close(d.release)
	require.Eventually(t, func() bool { return d.has(1) }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestTrackAndUntrack(t *testing.T) {
	d := &fakeDeliverer{}
	s := New(d, nil, zap.NewNop())

	s.Track(noteAt(1, at(time.Minute)))
	s.Track(noteAt(2, at(time.Minute)))
	s.Untrack(2)
	assert.Equal(t, 1, s.Pending())

	// rescheduling moves the due time
	s.Track(noteAt(1, at(time.Hour)))
	assert.Equal(t, 0, s.Tick(context.Background(), t0.Add(time.Minute)))
	assert.Equal(t, 1, s.Tick(context.Background(), t0.Add(time.Hour)))
}

func TestMarkSent_RemovesQueuedReminder(t *testing.T) {
	d := &fakeDeliverer{}
	s := New(d, nil, zap.NewNop())
	n := noteAt(1, at(0))

	s.Track(n)
	s.MarkSent(n)
	s.Track(n)

	assert.Equal(t, 0, s.Tick(context.Background(), t0))
	assert.Equal(t, 0, d.count())
}

func TestRun_FiresWithinPollInterval(t *testing.T) {
	d := &fakeDeliverer{}
	s := New(d, &fakeRecorder{}, zap.NewNop(), WithPollInterval(20*time.Millisecond))

	due := time.Now().Add(50 * time.Millisecond)
	s.Track(model.Note{ID: 1, UserID: uuid.New(), Content: "soon", NotificationTime: &due})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, time.Now().Before(due))

	time.Sleep(60 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, 1, d.count())
}

func TestRedisClaimer_OnlyOneSchedulerDelivers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	d := &fakeDeliverer{}
	first := New(d, nil, zap.NewNop(), WithClaimer(NewRedisClaimer(rdb)))
	second := New(d, nil, zap.NewNop(), WithClaimer(NewRedisClaimer(rdb)))
	n := noteAt(1, at(0))
	first.Track(n)
	second.Track(n)

	assert.Equal(t, 1, first.Tick(context.Background(), t0))
	assert.Equal(t, 0, second.Tick(context.Background(), t0))
	assert.Equal(t, 1, d.count())
}

func TestRedisClaimer_ReleasedAfterFailedDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	claimer := NewRedisClaimer(rdb)
	d := &fakeDeliverer{err: model.ErrPermissionDenied}
	s := New(d, nil, zap.NewNop(), WithClaimer(claimer))
	s.Track(noteAt(7, at(0)))

	assert.Equal(t, 0, s.Tick(context.Background(), t0))
	ok, err := claimer.Claim(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)
}
