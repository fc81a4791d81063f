package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neovoice/escapebot/internal/domain"
)

// stubRecognizer returns a canned transcript, optionally blocking until
// released so concurrency can be exercised.
type stubRecognizer struct {
	transcript string
	err        error

	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (r *stubRecognizer) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if r.started != nil {
		r.once.Do(func() { close(r.started) })
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.transcript, r.err
}

func voiceFixture(t *testing.T, rec *stubRecognizer) (*memStore, *VoiceService, *domain.User) {
	t.Helper()
	store := newMemStore()
	catalog := testCatalog(t)
	user := seedUser(t, store, catalog, 600)
	attempts := NewAttemptService(store, catalog, 3)
	progress := NewProgressService(store, catalog)
	svc := NewVoiceService(rec, attempts, progress, catalog, NewGuard())
	return store, svc, user
}

func TestProcessVoiceDurationBounds(t *testing.T) {
	ctx := context.Background()
	_, svc, user := voiceFixture(t, &stubRecognizer{transcript: "my name is anna"})

	_, err := svc.ProcessVoice(ctx, user, []byte("ogg"), "audio/ogg", 0.5)
	assert.ErrorIs(t, err, domain.ErrVoiceTooShort)

	_, err = svc.ProcessVoice(ctx, user, []byte("ogg"), "audio/ogg", 31)
	assert.ErrorIs(t, err, domain.ErrVoiceTooLong)
}

func TestProcessVoiceCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	store, svc, user := voiceFixture(t, &stubRecognizer{transcript: "Hello, my name is Anna"})

	verdict, err := svc.ProcessVoice(ctx, user, []byte("ogg"), "audio/ogg", 5)
	require.NoError(t, err)
	assert.True(t, verdict.IsCorrect)
	assert.Equal(t, "Anna", verdict.Name)
	assert.Equal(t, "Hello, my name is Anna", verdict.Transcript)
	assert.Equal(t, 1, verdict.Attempt.Attempts)

	// The attempt row carries the transcript for later review.
	attempt, err := store.AttemptByTask(ctx, user.ID, 1, 2)
	require.NoError(t, err)
	assert.True(t, attempt.IsCorrect)
	assert.Equal(t, "Hello, my name is Anna", attempt.RecognizedText)
	assert.Equal(t, float64(5), attempt.VoiceDuration)
}

func TestProcessVoiceWrongAnswerConsumesAttempt(t *testing.T) {
	ctx := context.Background()
	_, svc, user := voiceFixture(t, &stubRecognizer{transcript: "completely unrelated words"})

	verdict, err := svc.ProcessVoice(ctx, user, []byte("ogg"), "audio/ogg", 5)
	require.NoError(t, err)
	assert.False(t, verdict.IsCorrect)
	assert.Empty(t, verdict.Name)
	assert.Equal(t, 2, verdict.Attempt.Remaining)
}

func TestProcessVoiceRecognizerFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("speech api down")
	store, svc, user := voiceFixture(t, &stubRecognizer{err: boom})

	_, err := svc.ProcessVoice(ctx, user, []byte("ogg"), "audio/ogg", 5)
	assert.ErrorIs(t, err, boom)

	// No attempt burned on infrastructure failure.
	_, err = store.AttemptByTask(ctx, user.ID, 1, 2)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestProcessVoiceRejectsConcurrentRequest(t *testing.T) {
	ctx := context.Background()
	rec := &stubRecognizer{
		transcript: "my name is neo",
		block:      make(chan struct{}),
		started:    make(chan struct{}),
	}
	_, svc, user := voiceFixture(t, rec)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ProcessVoice(ctx, user, []byte("ogg"), "audio/ogg", 5)
		done <- err
	}()

	<-rec.started
	_, err := svc.ProcessVoice(ctx, user, []byte("ogg"), "audio/ogg", 5)
	assert.ErrorIs(t, err, domain.ErrActiveRequest)

	close(rec.block)
	require.NoError(t, <-done)
}
