package recognizer

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := DefaultConfig()
	cfg.APIKey = ""

	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Error("expected error when API key is missing")
	}
}

func TestNewUsesEnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg := DefaultConfig()
	cfg.APIKey = ""

	r, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := r.(*OpenAI); !ok {
		t.Errorf("New returned %T, want *OpenAI", r)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "carrier-pigeon"
	cfg.APIKey = "key"

	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestRecognizeEmptyBuffer(t *testing.T) {
	o := NewOpenAI(Config{APIKey: "key", Model: "whisper-1", SampleRate: 16000, Channels: 1}, zerolog.Nop())

	text, err := o.Recognize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Recognize(nil) returned error: %v", err)
	}
	if text != "" {
		t.Errorf("Recognize(nil) = %q, want empty", text)
	}
}

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline exceeded", context.DeadlineExceeded, "timeout"},
		{"wrapped deadline", &url.Error{Op: "Post", URL: "x", Err: context.DeadlineExceeded}, "timeout"},
		{"net timeout", timeoutNetError{}, "timeout"},
		{"url error", &url.Error{Op: "Post", URL: "x", Err: errors.New("connection refused")}, "network"},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("no route to host")}, "network"},
		{"api error", &openai.APIError{HTTPStatusCode: 500}, "service"},
		{"request error", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, "service"},
		{"unknown", errors.New("weird"), "service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)

			var (
				netErr     *NetworkError
				serviceErr *ServiceError
				timeoutErr *TimeoutError
			)
			var kind string
			switch {
			case errors.As(got, &timeoutErr):
				kind = "timeout"
			case errors.As(got, &netErr):
				kind = "network"
			case errors.As(got, &serviceErr):
				kind = "service"
			}

			if kind != tt.want {
				t.Errorf("classify(%v) = %s, want %s", tt.err, kind, tt.want)
			}
		})
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	inner := errors.New("root cause")

	for _, err := range []error{
		&NetworkError{Err: inner},
		&ServiceError{Err: inner},
		&TimeoutError{Err: inner},
	} {
		if !errors.Is(err, inner) {
			t.Errorf("%T should unwrap to inner error", err)
		}
		if err.Error() == "" {
			t.Errorf("%T.Error() should not be empty", err)
		}
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 320) // 10ms of 16kHz mono s16le
	wav := encodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("WAV length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if string(wav[36:40]) != "data" {
		t.Error("missing data chunk marker")
	}

	sampleRate := uint32(wav[24]) | uint32(wav[25])<<8 | uint32(wav[26])<<16 | uint32(wav[27])<<24
	if sampleRate != 16000 {
		t.Errorf("sample rate in header = %d, want 16000", sampleRate)
	}
}

func TestRecognizeTimeoutConfig(t *testing.T) {
	// A cancelled parent context must surface as a classified error, not a panic.
	o := NewOpenAI(Config{
		APIKey:     "key",
		Model:      "whisper-1",
		SampleRate: 16000,
		Channels:   1,
		Timeout:    time.Nanosecond,
	}, zerolog.Nop())

	_, err := o.Recognize(context.Background(), make([]byte, 320))
	if err == nil {
		t.Fatal("expected error from expired deadline")
	}

	var timeoutErr *TimeoutError
	var netErr *NetworkError
	if !errors.As(err, &timeoutErr) && !errors.As(err, &netErr) {
		t.Errorf("error %v should classify as timeout or network", err)
	}
}
