package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/neovoice/escapebot/internal/config"
)

// Recognizer turns raw voice audio into text.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// HTTPRecognizer sends audio to an external speech-to-text endpoint and
// reads back the transcript.
type HTTPRecognizer struct {
	apiURL     string
	httpClient *http.Client
}

func NewHTTPRecognizer(apiURL string) *HTTPRecognizer {
	return &HTTPRecognizer{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: config.TranscribeTimeout},
	}
}

func (r *HTTPRecognizer) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", r.apiURL, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("speech api status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse transcript: %w", err)
	}
	return result.Text, nil
}
