package session

import (
	"errors"
	"time"

	"voiceclip/internal/capture"
	"voiceclip/internal/recognizer"
)

// State is the controller's single session state. Exactly one value at any
// time; no state is terminal.
type State string

const (
	Idle         State = "idle"
	Listening    State = "listening"
	Transcribing State = "transcribing"
	Error        State = "error"
)

// FailureKind classifies why a session failed.
type FailureKind string

const (
	FailureDevice  FailureKind = "device"
	FailureNetwork FailureKind = "network"
	FailureService FailureKind = "service"
	FailureTimeout FailureKind = "timeout"
)

// StartPolicy pins what Start does while a session is already active.
type StartPolicy string

const (
	// PolicyIgnore makes Start a no-op while Listening or Transcribing.
	PolicyIgnore StartPolicy = "ignore"
	// PolicyRestart cancels the active session and begins a new one.
	PolicyRestart StartPolicy = "restart"
)

// ErrSessionActive is returned by Start under PolicyIgnore while a session
// is in flight.
var ErrSessionActive = errors.New("session already active")

// Result is the outcome of one capture+recognition pipeline run,
// produced once per session and consumed exactly once by the controller.
type Result struct {
	Text     string
	NoSpeech bool
	Aborted  bool
	Failure  FailureKind // empty when the session did not fail
	Err      error
}

type Config struct {
	StartPolicy StartPolicy
	ErrorHold   time.Duration // how long the Error state is shown before Idle

	Capture     capture.Config
	Recognition recognizer.Config
}

func DefaultConfig() Config {
	return Config{
		StartPolicy: PolicyIgnore,
		ErrorHold:   2 * time.Second,
		Capture:     capture.DefaultConfig(),
		Recognition: recognizer.DefaultConfig(),
	}
}

// failureKindOf maps pipeline errors onto the failure taxonomy.
func failureKindOf(err error) FailureKind {
	var devErr *capture.DeviceError
	if errors.As(err, &devErr) {
		return FailureDevice
	}

	var timeoutErr *recognizer.TimeoutError
	if errors.As(err, &timeoutErr) {
		return FailureTimeout
	}

	var netErr *recognizer.NetworkError
	if errors.As(err, &netErr) {
		return FailureNetwork
	}

	return FailureService
}
