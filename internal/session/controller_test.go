package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voiceclip/internal/capture"
	"voiceclip/internal/recognizer"
	"voiceclip/internal/testutil"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ErrorHold = 0 // failures settle to Idle immediately unless a test opts in
	return cfg
}

func newTestController(t *testing.T, cfg Config, cap *testutil.MockCapturer, rec *testutil.MockRecognizer, sink *testutil.MockSink, n *testutil.MockNotifier) *Controller {
	t.Helper()

	c := New(cfg, zerolog.Nop(),
		WithCapturerFactory(testutil.MockCapturerFactory(cap)),
		WithRecognizerFactory(testutil.MockRecognizerFactory(rec)),
		WithSink(sink),
		WithNotifier(n),
	)
	t.Cleanup(c.Close)
	return c
}

func TestInitialState(t *testing.T) {
	c := New(testConfig(), zerolog.Nop(), WithNotifier(testutil.NewMockNotifier()))
	defer c.Close()

	if got := c.State(); got != Idle {
		t.Errorf("initial state = %s, want %s", got, Idle)
	}
	if got := c.SessionID(); got != 0 {
		t.Errorf("initial session id = %d, want 0", got)
	}
}

func TestTranscriptionReachesClipboard(t *testing.T) {
	cap := testutil.NewMockCapturer([]byte{1, 2, 3, 4})
	rec := testutil.NewMockRecognizer("hola mundo")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if n.ListeningCount() != 1 {
		t.Errorf("Listening notifications = %d, want 1", n.ListeningCount())
	}

	testutil.WaitForCondition(t, func() bool {
		return len(sink.Texts()) == 1
	}, time.Second)

	if texts := sink.Texts(); texts[0] != "hola mundo" {
		t.Errorf("clipboard text = %q, want %q", texts[0], "hola mundo")
	}
	if got := n.SuccessTexts(); len(got) != 1 || got[0] != "hola mundo" {
		t.Errorf("success notifications = %v, want one with %q", got, "hola mundo")
	}

	testutil.WaitForCondition(t, func() bool {
		return c.State() == Idle
	}, time.Second)
}

func TestNoSpeechNeverWritesClipboard(t *testing.T) {
	cap := testutil.NewMockCapturer(nil)
	cap.Err = capture.ErrNoSpeech
	rec := testutil.NewMockRecognizer("should never be used")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	testutil.WaitForCondition(t, func() bool {
		return n.NoSpeechCount() == 1
	}, time.Second)

	if len(sink.Texts()) != 0 {
		t.Errorf("clipboard written on no-speech: %v", sink.Texts())
	}
	if len(rec.Inputs()) != 0 {
		t.Errorf("recognizer invoked on no-speech: %d calls", len(rec.Inputs()))
	}
	testutil.WaitForCondition(t, func() bool {
		return c.State() == Idle
	}, time.Second)
}

func TestRecognitionTimeoutFailure(t *testing.T) {
	cap := testutil.NewMockCapturer([]byte{1, 2})
	rec := testutil.NewMockRecognizer("")
	rec.Err = &recognizer.TimeoutError{Err: context.DeadlineExceeded}
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	testutil.WaitForCondition(t, func() bool {
		kinds := n.FailureKinds()
		return len(kinds) == 1 && kinds[0] == string(FailureTimeout)
	}, time.Second)

	if len(sink.Texts()) != 0 {
		t.Errorf("clipboard written on failure: %v", sink.Texts())
	}
	testutil.WaitForCondition(t, func() bool {
		return c.State() == Idle
	}, time.Second)
}

func TestDeviceFailure(t *testing.T) {
	cap := testutil.NewMockCapturer(nil)
	cap.Err = &capture.DeviceError{Err: errors.New("microphone busy")}
	rec := testutil.NewMockRecognizer("")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	testutil.WaitForCondition(t, func() bool {
		kinds := n.FailureKinds()
		return len(kinds) == 1 && kinds[0] == string(FailureDevice)
	}, time.Second)

	testutil.WaitForCondition(t, func() bool {
		return c.State() == Idle
	}, time.Second)
}

func TestErrorStateHoldsThenSettles(t *testing.T) {
	cfg := testConfig()
	cfg.ErrorHold = 50 * time.Millisecond

	cap := testutil.NewMockCapturer(nil)
	cap.Err = &capture.DeviceError{Err: errors.New("boom")}
	rec := testutil.NewMockRecognizer("")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, cfg, cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	testutil.WaitForCondition(t, func() bool {
		return c.State() == Error
	}, time.Second)

	testutil.WaitForCondition(t, func() bool {
		return c.State() == Idle
	}, time.Second)
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	cap := testutil.NewMockCapturer(nil)
	rec := testutil.NewMockRecognizer("")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	c.Stop()
	c.Stop()

	if got := c.State(); got != Idle {
		t.Errorf("state after Stop on Idle = %s, want %s", got, Idle)
	}
	if got := c.SessionID(); got != 0 {
		t.Errorf("session id after Stop on Idle = %d, want 0", got)
	}
	if cap.Calls() != 0 {
		t.Errorf("capture started by Stop: %d calls", cap.Calls())
	}
}

func TestStartPolicyIgnore(t *testing.T) {
	cfg := testConfig()
	cfg.StartPolicy = PolicyIgnore

	cap := testutil.NewMockCapturer([]byte{1})
	cap.Block = true
	rec := testutil.NewMockRecognizer("primero")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, cfg, cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start error = %v, want ErrSessionActive", err)
	}
	if got := c.SessionID(); got != 1 {
		t.Errorf("session id after ignored Start = %d, want 1", got)
	}

	cap.Release()
	testutil.WaitForCondition(t, func() bool {
		return len(sink.Texts()) == 1
	}, time.Second)
}

func TestStartPolicyRestart(t *testing.T) {
	cfg := testConfig()
	cfg.StartPolicy = PolicyRestart

	cap := testutil.NewMockCapturer([]byte{1})
	cap.Block = true
	rec := testutil.NewMockRecognizer("segundo")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, cfg, cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restarting Start returned error: %v", err)
	}
	if got := c.SessionID(); got <= 1 {
		t.Errorf("session id after restart = %d, want > 1", got)
	}
	if got := c.State(); got != Listening {
		t.Errorf("state after restart = %s, want %s", got, Listening)
	}

	cap.Release()
	testutil.WaitForCondition(t, func() bool {
		return len(sink.Texts()) == 1
	}, time.Second)

	// Only the surviving session delivers.
	if texts := sink.Texts(); texts[0] != "segundo" {
		t.Errorf("clipboard text = %q, want %q", texts[0], "segundo")
	}
}

func TestStopMidListeningStillRecognizes(t *testing.T) {
	buffer := []byte{9, 8, 7}
	cap := testutil.NewMockCapturer(buffer)
	cap.Block = true
	rec := testutil.NewMockRecognizer("recortado")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	c.Stop()

	testutil.WaitForCondition(t, func() bool {
		return len(sink.Texts()) == 1
	}, time.Second)

	inputs := rec.Inputs()
	if len(inputs) != 1 || len(inputs[0]) != len(buffer) {
		t.Fatalf("recognizer inputs = %v, want the partial buffer", inputs)
	}
	if sink.Texts()[0] != "recortado" {
		t.Errorf("clipboard text = %q, want %q", sink.Texts()[0], "recortado")
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	cap := testutil.NewMockCapturer([]byte{1})
	cap.Block = true
	rec := testutil.NewMockRecognizer("nunca")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	c.Cancel()

	if got := c.State(); got != Idle {
		t.Errorf("state after Cancel = %s, want %s", got, Idle)
	}

	// Give the aborted pipeline time to finish; nothing may be delivered.
	time.Sleep(50 * time.Millisecond)
	if len(sink.Texts()) != 0 {
		t.Errorf("clipboard written after Cancel: %v", sink.Texts())
	}
	if len(n.SuccessTexts()) != 0 {
		t.Errorf("success notified after Cancel")
	}
}

func TestStaleResultRejected(t *testing.T) {
	cap := testutil.NewMockCapturer([]byte{1})
	cap.Block = true
	rec := testutil.NewMockRecognizer("nuevo")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	current := c.SessionID()

	// A completion for an older session must not touch state or clipboard.
	c.complete(current-1, Result{Text: "viejo"})

	if got := c.State(); got != Listening {
		t.Errorf("state after stale result = %s, want %s", got, Listening)
	}
	if len(sink.Texts()) != 0 {
		t.Errorf("clipboard written by stale result: %v", sink.Texts())
	}
	if len(n.SuccessTexts()) != 0 {
		t.Error("success notified for stale result")
	}
}

func TestToggleCycle(t *testing.T) {
	cap := testutil.NewMockCapturer([]byte{5})
	cap.Block = true
	rec := testutil.NewMockRecognizer("ciclo")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if got := c.State(); got != Listening {
		t.Fatalf("state after first Toggle = %s, want %s", got, Listening)
	}

	// Second toggle ends the capture; the session proceeds to recognition.
	if err := c.Toggle(context.Background()); err != nil {
		t.Fatalf("second Toggle returned error: %v", err)
	}

	testutil.WaitForCondition(t, func() bool {
		return len(sink.Texts()) == 1 && c.State() == Idle
	}, time.Second)
}

func TestClipboardFailureIsNonFatal(t *testing.T) {
	cap := testutil.NewMockCapturer([]byte{1})
	rec := testutil.NewMockRecognizer("texto")
	sink := testutil.NewMockSink()
	sink.Err = errors.New("no clipboard utility")
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	testutil.WaitForCondition(t, func() bool {
		return len(n.SuccessTexts()) == 1 && c.State() == Idle
	}, time.Second)
}

func TestEmptyTranscriptIsNoSpeech(t *testing.T) {
	cap := testutil.NewMockCapturer([]byte{1})
	rec := testutil.NewMockRecognizer("   ")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	testutil.WaitForCondition(t, func() bool {
		return n.NoSpeechCount() == 1 && c.State() == Idle
	}, time.Second)

	if len(sink.Texts()) != 0 {
		t.Errorf("clipboard written for empty transcript: %v", sink.Texts())
	}
}

func TestStateAlwaysDefined(t *testing.T) {
	cap := testutil.NewMockCapturer([]byte{1})
	rec := testutil.NewMockRecognizer("x")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	valid := map[State]bool{Idle: true, Listening: true, Transcribing: true, Error: true}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = c.Start(context.Background())
			time.Sleep(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.Stop()
			time.Sleep(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if s := c.State(); !valid[s] {
				t.Errorf("observed undefined state %q", s)
				return
			}
		}
	}()

	time.Sleep(100 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestFailureKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"device", &capture.DeviceError{Err: errors.New("x")}, FailureDevice},
		{"timeout", &recognizer.TimeoutError{Err: errors.New("x")}, FailureTimeout},
		{"network", &recognizer.NetworkError{Err: errors.New("x")}, FailureNetwork},
		{"service", &recognizer.ServiceError{Err: errors.New("x")}, FailureService},
		{"unknown", errors.New("x"), FailureService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureKindOf(tt.err); got != tt.want {
				t.Errorf("failureKindOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToggleDuringErrorHoldIsNoop(t *testing.T) {
	cfg := testConfig()
	cfg.ErrorHold = 5 * time.Second

	cap := testutil.NewMockCapturer(nil)
	cap.Err = &capture.DeviceError{Err: errors.New("microphone gone")}
	rec := testutil.NewMockRecognizer("")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, cfg, cap, rec, sink, n)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	testutil.WaitForCondition(t, func() bool {
		return c.State() == Error
	}, time.Second)
	id := c.SessionID()

	// The error message stays visible; a click must not cut the hold short.
	if err := c.Toggle(ctx); err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if got := c.State(); got != Error {
		t.Errorf("state after Toggle during error hold = %s, want %s", got, Error)
	}
	if got := c.SessionID(); got != id {
		t.Errorf("session id after Toggle during error hold = %d, want %d", got, id)
	}
	if got := n.ListeningCount(); got != 1 {
		t.Errorf("Listening notifications = %d, want 1", got)
	}
}

// ctxRecordingCapturer remembers the context it was captured with.
type ctxRecordingCapturer struct {
	mu  sync.Mutex
	ctx context.Context
}

func (f *ctxRecordingCapturer) Capture(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()
	return []byte{1}, nil
}

func (f *ctxRecordingCapturer) capturedCtx() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctx
}

func TestCompletedSessionReleasesContext(t *testing.T) {
	fc := &ctxRecordingCapturer{}
	rec := testutil.NewMockRecognizer("hecho")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()

	c := New(testConfig(), zerolog.Nop(),
		WithCapturerFactory(func(capture.Config) capture.Capturer { return fc }),
		WithRecognizerFactory(testutil.MockRecognizerFactory(rec)),
		WithSink(sink),
		WithNotifier(n),
	)
	t.Cleanup(c.Close)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	testutil.WaitForCondition(t, func() bool {
		return len(sink.Texts()) == 1 && c.State() == Idle
	}, time.Second)

	// The session contexts detach from the parent once delivery is done,
	// so a long-lived daemon does not accumulate one node per dictation.
	testutil.WaitForCondition(t, func() bool {
		captured := fc.capturedCtx()
		return captured != nil && captured.Err() != nil
	}, time.Second)
}

func TestListeningPrecedesCompletionFeedback(t *testing.T) {
	// Instant capture and recognition: the tightest race against Listening.
	cap := testutil.NewMockCapturer([]byte{1})
	rec := testutil.NewMockRecognizer("rápido")
	sink := testutil.NewMockSink()
	n := testutil.NewMockNotifier()
	c := newTestController(t, testConfig(), cap, rec, sink, n)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 10; i++ {
		if err := c.Start(ctx); err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		testutil.WaitForCondition(t, func() bool {
			return len(n.SuccessTexts()) == i+1
		}, time.Second)
	}

	events := n.Events()
	if len(events) != 20 {
		t.Fatalf("events = %v, want 10 listening/success pairs", events)
	}
	for i := 0; i < len(events); i += 2 {
		if events[i] != "listening" || events[i+1] != "success" {
			t.Fatalf("events[%d:%d] = %v, want [listening success]", i, i+2, events[i:i+2])
		}
	}
}
