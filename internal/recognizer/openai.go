package recognizer

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// OpenAI transcribes audio through the OpenAI Whisper API.
type OpenAI struct {
	client *openai.Client
	cfg    Config
	log    zerolog.Logger
}

func NewOpenAI(cfg Config, log zerolog.Logger) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		log:    log,
	}
}

func (o *OpenAI) Recognize(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	wavData := encodeWAV(pcm, o.cfg.SampleRate, o.cfg.Channels)

	req := openai.AudioRequest{
		Model:    o.cfg.Model,
		Reader:   bytes.NewReader(wavData),
		FilePath: "audio.wav",
		Language: o.cfg.Language,
	}

	start := time.Now()
	resp, err := o.client.CreateTranscription(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		o.log.Error().Err(err).Dur("elapsed", elapsed).Msg("transcription request failed")
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text)
	o.log.Info().
		Int("pcm_bytes", len(pcm)).
		Dur("elapsed", elapsed).
		Str("text", text).
		Msg("transcription completed")

	return text, nil
}

// classify maps transport and API failures onto the typed error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &NetworkError{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &NetworkError{Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ServiceError{Err: err}
	}

	return &ServiceError{Err: err}
}
