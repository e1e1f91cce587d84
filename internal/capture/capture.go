package capture

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoSpeech reports that no voiced audio was detected before the leading
// silence timeout. It is a valid outcome, not a device failure.
var ErrNoSpeech = errors.New("no speech detected")

// DeviceError wraps a microphone/stream failure.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	if e == nil || e.Err == nil {
		return "audio device error"
	}
	return "audio device error: " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Capturer produces one bounded utterance per call.
type Capturer interface {
	// Capture blocks until the utterance ends: trailing silence after speech
	// onset, the hard duration cap, or context cancellation. Cancellation
	// finalizes early and returns the audio buffered so far.
	Capture(ctx context.Context) ([]byte, error)
}

// Frame is one chunk of raw PCM read from the recorder.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

type Config struct {
	SampleRate        int
	Channels          int
	Format            string
	BufferSize        int
	Device            string
	ChannelBufferSize int

	MaxDuration      time.Duration // hard cap on one utterance
	SilenceTimeout   time.Duration // trailing silence after speech onset
	LeadingTimeout   time.Duration // leading silence before any speech
	SilenceThreshold float64       // normalized RMS below this is silence
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16le",
		BufferSize:        4096,
		Device:            "",
		ChannelBufferSize: 30,
		MaxDuration:       2 * time.Minute,
		SilenceTimeout:    1500 * time.Millisecond,
		LeadingTimeout:    8 * time.Second,
		SilenceThreshold:  0.015,
	}
}

// Recorder streams raw audio frames until stopped.
type Recorder interface {
	Start(ctx context.Context) (<-chan Frame, <-chan error, error)
	Stop() error
}

// Session turns a frame stream into one finite utterance buffer.
type Session struct {
	cfg         Config
	log         zerolog.Logger
	newRecorder func() Recorder

	tick time.Duration
}

type Option func(*Session)

// WithRecorderFactory overrides the recorder used for each capture.
func WithRecorderFactory(f func() Recorder) Option {
	return func(s *Session) { s.newRecorder = f }
}

func New(cfg Config, log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		cfg:  cfg,
		log:  log,
		tick: 50 * time.Millisecond,
	}
	s.newRecorder = func() Recorder {
		return NewPipeWireRecorder(cfg, log)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Capture(ctx context.Context) ([]byte, error) {
	recorder := s.newRecorder()

	frameCh, errCh, err := recorder.Start(ctx)
	if err != nil {
		return nil, &DeviceError{Err: err}
	}
	defer recorder.Stop()

	var buffer []byte
	started := time.Now()
	var onset time.Time
	var lastSpeech time.Time

	deadline := time.NewTimer(s.cfg.MaxDuration)
	defer deadline.Stop()
	check := time.NewTicker(s.tick)
	defer check.Stop()

	finalize := func() ([]byte, error) {
		if onset.IsZero() || len(buffer) == 0 {
			return nil, ErrNoSpeech
		}
		return buffer, nil
	}

	for {
		select {
		case frame, ok := <-frameCh:
			if !ok {
				return finalize()
			}
			buffer = append(buffer, frame.Data...)
			if RMS(frame.Data) >= s.cfg.SilenceThreshold {
				now := time.Now()
				if onset.IsZero() {
					onset = now
					s.log.Debug().Dur("after", now.Sub(started)).Msg("speech onset")
				}
				lastSpeech = now
			}

		case recErr, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if recErr != nil {
				return nil, &DeviceError{Err: recErr}
			}

		case <-check.C:
			now := time.Now()
			if onset.IsZero() {
				if now.Sub(started) >= s.cfg.LeadingTimeout {
					return nil, ErrNoSpeech
				}
			} else if now.Sub(lastSpeech) >= s.cfg.SilenceTimeout {
				s.log.Debug().Int("bytes", len(buffer)).Msg("trailing silence, utterance complete")
				return finalize()
			}

		case <-deadline.C:
			s.log.Warn().Dur("max_duration", s.cfg.MaxDuration).Msg("capture hit duration cap")
			return finalize()

		case <-ctx.Done():
			// Cooperative stop: buffered audio is treated as the full utterance.
			return finalize()
		}
	}
}
