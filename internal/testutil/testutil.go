package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"voiceclip/internal/capture"
	"voiceclip/internal/recognizer"
)

// TestContext returns a context with a timeout suitable for unit tests.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition polls until the condition holds or the timeout expires.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// MockCapturer implements capture.Capturer with a scripted outcome.
type MockCapturer struct {
	Buffer []byte
	Err    error

	// Block makes Capture wait for Release or context cancellation.
	// On cancellation the scripted buffer is returned, mirroring the real
	// session's finalize-early behavior.
	Block bool

	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func NewMockCapturer(buffer []byte) *MockCapturer {
	return &MockCapturer{
		Buffer:  buffer,
		release: make(chan struct{}),
	}
}

func (m *MockCapturer) Capture(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Block {
		select {
		case <-ctx.Done():
		case <-m.release:
		}
	}
	return m.Buffer, m.Err
}

// Release unblocks a blocking Capture as if trailing silence was detected.
func (m *MockCapturer) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.release:
	default:
		close(m.release)
	}
}

func (m *MockCapturer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockRecognizer implements recognizer.Recognizer with a scripted transcript.
type MockRecognizer struct {
	Text string
	Err  error

	// Block makes Recognize wait for Release or context cancellation.
	Block bool

	mu      sync.Mutex
	inputs  [][]byte
	release chan struct{}
}

func NewMockRecognizer(text string) *MockRecognizer {
	return &MockRecognizer{
		Text:    text,
		release: make(chan struct{}),
	}
}

func (m *MockRecognizer) Recognize(ctx context.Context, pcm []byte) (string, error) {
	m.mu.Lock()
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	m.inputs = append(m.inputs, buf)
	m.mu.Unlock()

	if m.Block {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-m.release:
		}
	}
	return m.Text, m.Err
}

func (m *MockRecognizer) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.release:
	default:
		close(m.release)
	}
}

// Inputs returns the PCM buffers passed to Recognize so far.
func (m *MockRecognizer) Inputs() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.inputs))
	copy(out, m.inputs)
	return out
}

// MockSink records clipboard writes.
type MockSink struct {
	Err error

	mu    sync.Mutex
	texts []string
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Set(text string) error {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	return m.Err
}

func (m *MockSink) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

// MockNotifier records feedback events, both per kind and in arrival order.
type MockNotifier struct {
	mu        sync.Mutex
	listening []string
	success   []string
	noSpeech  []string
	failures  []string // failure kinds
	events    []string
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Listening(msg string) {
	m.mu.Lock()
	m.listening = append(m.listening, msg)
	m.events = append(m.events, "listening")
	m.mu.Unlock()
}

func (m *MockNotifier) Success(text, msg string) {
	m.mu.Lock()
	m.success = append(m.success, text)
	m.events = append(m.events, "success")
	m.mu.Unlock()
}

func (m *MockNotifier) NoSpeech(msg string) {
	m.mu.Lock()
	m.noSpeech = append(m.noSpeech, msg)
	m.events = append(m.events, "no_speech")
	m.mu.Unlock()
}

func (m *MockNotifier) Failure(kind, msg string) {
	m.mu.Lock()
	m.failures = append(m.failures, kind)
	m.events = append(m.events, "failure")
	m.mu.Unlock()
}

// Events returns every notification in the order it was delivered.
func (m *MockNotifier) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockNotifier) ListeningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listening)
}

func (m *MockNotifier) SuccessTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.success))
	copy(out, m.success)
	return out
}

func (m *MockNotifier) NoSpeechCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.noSpeech)
}

func (m *MockNotifier) FailureKinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.failures))
	copy(out, m.failures)
	return out
}

// Factory helpers matching the controller's functional options.

func MockCapturerFactory(mock *MockCapturer) func(capture.Config) capture.Capturer {
	return func(capture.Config) capture.Capturer {
		return mock
	}
}

func MockRecognizerFactory(mock *MockRecognizer) func(recognizer.Config) (recognizer.Recognizer, error) {
	return func(recognizer.Config) (recognizer.Recognizer, error) {
		return mock, nil
	}
}
