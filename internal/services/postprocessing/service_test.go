package postprocessing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/notification"
	"intrusion-worker-go/internal/storage"
)

const testSnapshot = "data:image/jpeg;base64,/9j/AAAA"

type memoryLogStore struct {
	mu      sync.Mutex
	entries []models.IntrusionLogEntry
	err     error
}

func (m *memoryLogStore) Append(_ context.Context, entry models.IntrusionLogEntry) (models.IntrusionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.IntrusionLogEntry{}, m.err
	}
	entry.ID = fmt.Sprintf("log-%d", len(m.entries)+1)
	m.entries = append(m.entries, entry)
	return entry, nil
}

type fakeMailer struct {
	mu      sync.Mutex
	enabled bool
	err     error
	sent    []notification.EmailMessage
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(_ context.Context, msg notification.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type staticRecipient struct {
	email string
	err   error
}

func (s staticRecipient) AlertEmail(context.Context) (string, error) { return s.email, s.err }

type recordingEvents struct {
	mu     sync.Mutex
	events []models.IntrusionEvent
}

func (r *recordingEvents) PublishIntrusion(event models.IntrusionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type fakePusher struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakePusher) Enabled() bool { return true }

func (f *fakePusher) Send(_ context.Context, _, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return errors.New("push gateway down")
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestDispatchPersistsAndEmails(t *testing.T) {
	store := &memoryLogStore{}
	mailer := &fakeMailer{enabled: true}
	events := &recordingEvents{}

	svc, err := NewService(store, Options{
		WorkerID:   "worker-1",
		Mailer:     mailer,
		Recipients: staticRecipient{email: "guard@example.com"},
		Events:     events,
		Now:        fixedClock,
	})
	require.NoError(t, err)

	entry, err := svc.DispatchFor(context.Background(), "cam-1", testSnapshot, "Front Door")
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, "log-1", entry.ID)
	assert.Equal(t, "Front Door", entry.CameraName)
	assert.Equal(t, testSnapshot, entry.FaceImage)
	assert.Equal(t, fixedClock(), entry.Timestamp)

	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "guard@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Subject, "Front Door")
	assert.NotEmpty(t, mailer.sent[0].Inline)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.IntrusionEvent{
		LogID:      "log-1",
		CameraID:   "cam-1",
		CameraName: "Front Door",
		Timestamp:  fixedClock(),
		WorkerID:   "worker-1",
	}, events.events[0])
}

func TestDispatchSucceedsWhenNotificationsFail(t *testing.T) {
	store := &memoryLogStore{}
	mailer := &fakeMailer{enabled: true, err: errors.New("smtp unreachable")}
	push := &fakePusher{}

	svc, err := NewService(store, Options{
		Mailer:     mailer,
		Recipients: staticRecipient{email: "guard@example.com"},
		Push:       push,
	})
	require.NoError(t, err)

	entry, err := svc.Dispatch(context.Background(), testSnapshot, "Lobby")
	require.NoError(t, err)
	svc.Wait()

	assert.NotEmpty(t, entry.ID)
	assert.Len(t, store.entries, 1)
	assert.Equal(t, 1, mailer.count())
	assert.Len(t, push.messages, 1)
}

func TestDispatchSkipsEmailWithoutRecipient(t *testing.T) {
	tests := []struct {
		name      string
		recipient RecipientSource
		mailer    *fakeMailer
	}{
		{"no recipient configured", staticRecipient{}, &fakeMailer{enabled: true}},
		{"invalid recipient", staticRecipient{email: "not-an-email"}, &fakeMailer{enabled: true}},
		{"recipient lookup fails", staticRecipient{err: errors.New("db down")}, &fakeMailer{enabled: true}},
		{"mailer disabled", staticRecipient{email: "guard@example.com"}, &fakeMailer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryLogStore{}
			svc, err := NewService(store, Options{Mailer: tt.mailer, Recipients: tt.recipient})
			require.NoError(t, err)

			_, err = svc.Dispatch(context.Background(), testSnapshot, "Lobby")
			require.NoError(t, err)
			svc.Wait()

			assert.Len(t, store.entries, 1)
			assert.Zero(t, tt.mailer.count())
		})
	}
}

func TestDispatchFailsWhenPersistFails(t *testing.T) {
	store := &memoryLogStore{err: errors.New("disk full")}
	mailer := &fakeMailer{enabled: true}

	svc, err := NewService(store, Options{
		Mailer:     mailer,
		Recipients: staticRecipient{email: "guard@example.com"},
	})
	require.NoError(t, err)

	_, err = svc.Dispatch(context.Background(), testSnapshot, "Lobby")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	svc.Wait()
	assert.Zero(t, mailer.count(), "nothing is sent for an intrusion that was not logged")
}

func TestDispatchRejectsEmptySnapshot(t *testing.T) {
	store := &memoryLogStore{}
	svc, err := NewService(store, Options{})
	require.NoError(t, err)

	_, err = svc.Dispatch(context.Background(), "  ", "Lobby")
	assert.ErrorIs(t, err, storage.ErrValidation)
	assert.Empty(t, store.entries)
}

func TestDispatchCreatesEntryPerCall(t *testing.T) {
	store := &memoryLogStore{}
	svc, err := NewService(store, Options{})
	require.NoError(t, err)

	first, err := svc.Dispatch(context.Background(), testSnapshot, "Lobby")
	require.NoError(t, err)
	second, err := svc.Dispatch(context.Background(), testSnapshot, "Lobby")
	require.NoError(t, err)
	svc.Wait()

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, store.entries, 2)
}

func TestShutdownWaitsForNotifications(t *testing.T) {
	store := &memoryLogStore{}
	svc, err := NewService(store, Options{
		Mailer:     &fakeMailer{enabled: true},
		Recipients: staticRecipient{email: "guard@example.com"},
	})
	require.NoError(t, err)

	_, err = svc.Dispatch(context.Background(), testSnapshot, "Lobby")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.Shutdown(ctx))
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(nil, Options{})
	assert.Error(t, err)
}
