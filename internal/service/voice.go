package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neovoice/escapebot/internal/config"
	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/speech"
)

// VoiceVerdict is the outcome of one voice submission, ready for the
// handler to render.
type VoiceVerdict struct {
	Transcript string
	Name       string
	IsCorrect  bool
	Attempt    AttemptResult
}

// VoiceService runs a voice submission through recognition and grades it
// against the active day's voice task.
type VoiceService struct {
	recognizer speech.Recognizer
	attempts   *AttemptService
	progress   *ProgressService
	catalog    *content.Catalog
	guard      *Guard
}

func NewVoiceService(recognizer speech.Recognizer, attempts *AttemptService, progress *ProgressService, catalog *content.Catalog, guard *Guard) *VoiceService {
	return &VoiceService{
		recognizer: recognizer,
		attempts:   attempts,
		progress:   progress,
		catalog:    catalog,
		guard:      guard,
	}
}

// ProcessVoice grades one voice message for the user's active voice task.
// Recognition is slow, so a second voice message from the same user while
// one is in flight is rejected with ErrActiveRequest instead of queueing.
func (s *VoiceService) ProcessVoice(ctx context.Context, user *domain.User, audio []byte, mimeType string, duration float64) (*VoiceVerdict, error) {
	if duration < config.VoiceMinDuration {
		return nil, domain.ErrVoiceTooShort
	}
	if duration > config.VoiceMaxDuration {
		return nil, domain.ErrVoiceTooLong
	}

	if !s.guard.TryAcquire(user.TelegramID) {
		return nil, domain.ErrActiveRequest
	}
	defer s.guard.Release(user.TelegramID)

	day := s.progress.ResolveActiveDay(ctx, user)
	task, err := s.voiceTask(day)
	if err != nil {
		return nil, err
	}

	transcribeCtx, cancel := context.WithTimeout(ctx, config.TranscribeTimeout)
	defer cancel()
	transcript, err := s.recognizer.Transcribe(transcribeCtx, audio, mimeType)
	if err != nil {
		return nil, fmt.Errorf("transcribe voice: %w", err)
	}

	verdict := s.grade(task, transcript)
	slog.Info("voice graded",
		"telegram_id", user.TelegramID,
		"day", day,
		"task", task.TaskNumber,
		"correct", verdict.IsCorrect,
	)

	result, err := s.attempts.RecordAttempt(ctx, user.TelegramID, day, task.TaskNumber, domain.TaskKindVoice, verdict.IsCorrect, AttemptPayload{
		Answer:         transcript,
		CorrectAnswer:  strings.Join(task.VoiceKeywords, ", "),
		VoiceDuration:  duration,
		RecognizedText: transcript,
	})
	if err != nil {
		return nil, err
	}
	verdict.Attempt = result
	return verdict, nil
}

// voiceTask finds the day's voice task.
func (s *VoiceService) voiceTask(day int) (*content.Task, error) {
	for _, task := range s.catalog.Tasks(day) {
		if task.Type == domain.TaskKindVoice {
			t := task
			return &t, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

// grade checks the transcript against the task's keywords, and for
// introduction tasks pulls out the spoken name.
func (s *VoiceService) grade(task *content.Task, transcript string) *VoiceVerdict {
	verdict := &VoiceVerdict{Transcript: transcript}

	if speech.ContainsPhrase(transcript, "my name is") {
		verdict.Name = speech.ExtractName(transcript)
	}

	if len(task.VoiceKeywords) > 0 {
		verdict.IsCorrect = speech.MatchKeywords(transcript, task.VoiceKeywords)
		return verdict
	}

	// No keyword list: any non-empty transcript passes.
	verdict.IsCorrect = strings.TrimSpace(transcript) != ""
	return verdict
}
