package recognizer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Recognizer turns one captured utterance into text.
// A single attempt per call: the caller decides whether to re-trigger,
// which keeps latency predictable and avoids silently repeating a
// possibly-expensive remote call.
type Recognizer interface {
	// Recognize returns the transcript for the given s16le PCM buffer.
	// An empty transcript with a nil error means the service understood
	// the audio as silence.
	Recognize(ctx context.Context, pcm []byte) (string, error)
}

type Config struct {
	Provider   string
	APIKey     string
	Language   string
	Model      string
	Timeout    time.Duration
	SampleRate int
	Channels   int
}

func DefaultConfig() Config {
	return Config{
		Provider:   "openai",
		Language:   "es",
		Model:      "whisper-1",
		Timeout:    30 * time.Second,
		SampleRate: 16000,
		Channels:   1,
	}
}

// New builds the recognizer for the configured provider.
func New(cfg Config, log zerolog.Logger) (Recognizer, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAI(cfg, log), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
