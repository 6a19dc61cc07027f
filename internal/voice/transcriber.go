package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrTranscription is returned when speech could not be turned into text
var ErrTranscription = errors.New("transcription failed")

// Transcriber turns recorded speech into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// HTTPTranscriber posts audio to a speech-to-text endpoint that answers
// with {"text": "..."}.
type HTTPTranscriber struct {
	url         string
	contentType string
	client      *http.Client
}

// NewHTTPTranscriber creates a transcriber for url. timeout bounds each call
// in addition to the caller's context.
func NewHTTPTranscriber(url, contentType string, timeout time.Duration) *HTTPTranscriber {
	if contentType == "" {
		contentType = "audio/wav"
	}
	return &HTTPTranscriber{
		url:         url,
		contentType: contentType,
		client:      &http.Client{Timeout: timeout},
	}
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe returns the recognised text; empty text is ErrTranscription
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, audio)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	req.Header.Set("Content-Type", t.contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	defer resp.Body.Close()

	var body transcriptionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: status %d: invalid response: %v", ErrTranscription, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrTranscription, resp.StatusCode, body.Error)
	}

	text := strings.TrimSpace(body.Text)
	if text == "" {
		return "", fmt.Errorf("%w: could not understand audio", ErrTranscription)
	}
	return text, nil
}
