package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voiceclip/internal/capture"
	"voiceclip/internal/clipboard"
	"voiceclip/internal/messages"
	"voiceclip/internal/notify"
	"voiceclip/internal/recognizer"
)

// Controller is the single authority over session state. It mediates between
// user commands and the asynchronous capture+recognition pipeline: Start
// spawns one background goroutine per session, and every state or id mutation
// goes through one mutex, including the completion handler.
type Controller struct {
	cfg Config
	log zerolog.Logger

	newCapturer   func(capture.Config) capture.Capturer
	newRecognizer func(recognizer.Config) (recognizer.Recognizer, error)
	sink          clipboard.Sink
	notifier      notify.Notifier

	mu        sync.Mutex
	state     State
	id        uint64
	cancel    context.CancelFunc // aborts the whole session
	finalize  context.CancelFunc // ends capture early, recognition proceeds
	holdTimer *time.Timer

	wg sync.WaitGroup
}

type Option func(*Controller)

func WithCapturerFactory(f func(capture.Config) capture.Capturer) Option {
	return func(c *Controller) { c.newCapturer = f }
}

func WithRecognizerFactory(f func(recognizer.Config) (recognizer.Recognizer, error)) Option {
	return func(c *Controller) { c.newRecognizer = f }
}

func WithSink(s clipboard.Sink) Option {
	return func(c *Controller) { c.sink = s }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func New(cfg Config, log zerolog.Logger, opts ...Option) *Controller {
	if cfg.StartPolicy == "" {
		cfg.StartPolicy = PolicyIgnore
	}

	c := &Controller{
		cfg:      cfg,
		log:      log,
		state:    Idle,
		sink:     clipboard.System{},
		notifier: notify.Nop{},
	}
	c.newCapturer = func(cc capture.Config) capture.Capturer {
		return capture.New(cc, log)
	}
	c.newRecognizer = func(rc recognizer.Config) (recognizer.Recognizer, error) {
		return recognizer.New(rc, log)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetConfig replaces the configuration. It applies from the next session;
// an in-flight session keeps the snapshot it started with.
func (c *Controller) SetConfig(cfg Config) {
	if cfg.StartPolicy == "" {
		cfg.StartPolicy = PolicyIgnore
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the id of the most recently started session.
func (c *Controller) SessionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Start begins a new session and returns immediately. While a session is
// active the configured StartPolicy applies: PolicyIgnore returns
// ErrSessionActive, PolicyRestart cancels the active session first.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Listening || c.state == Transcribing {
		if c.cfg.StartPolicy != PolicyRestart {
			c.mu.Unlock()
			return ErrSessionActive
		}
		c.abortLocked()
	}
	launch := c.startLocked(ctx)
	c.mu.Unlock()

	launch()
	return nil
}

// Stop signals the active capture to finalize early: buffered audio is
// treated as the complete utterance and still goes to recognition.
// No-op when no session is active.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Listening && c.state != Transcribing {
		return
	}
	if c.finalize != nil {
		c.finalize()
	}
}

// Cancel aborts the active session outright, discarding captured audio and
// any in-flight recognition. No-op when no session is active.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Listening && c.state != Transcribing {
		return
	}
	c.abortLocked()
	c.state = Idle
	c.log.Info().Msg("session cancelled")
}

// Toggle wires a single user action to the state machine: Idle starts,
// Listening stops. Transcribing and Error are no-ops; the error message
// stays visible for its configured hold.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Idle:
		launch := c.startLocked(ctx)
		c.mu.Unlock()
		launch()
		return nil

	case Listening:
		if c.finalize != nil {
			c.finalize()
		}
		c.mu.Unlock()
		return nil

	default:
		c.mu.Unlock()
		return nil
	}
}

// Close aborts any active session and waits for its goroutine to exit.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.stopHoldLocked()
	c.mu.Unlock()

	c.wg.Wait()
}

// startLocked arms a new session and returns a launch func the caller must
// invoke after releasing the mutex. Launching outside the lock keeps the
// notifier out of the critical section, and notifying before the goroutine
// spawns guarantees Listening precedes any completion feedback.
func (c *Controller) startLocked(ctx context.Context) func() {
	c.stopHoldLocked()

	c.id++
	id := c.id

	runCtx, cancel := context.WithCancel(ctx)
	capCtx, capCancel := context.WithCancel(runCtx)
	c.cancel = cancel
	c.finalize = capCancel
	c.state = Listening

	c.log.Info().Uint64("session", id).Msg("listening")

	cfg := c.cfg // snapshot; SetConfig must not affect a running session
	c.wg.Add(1)

	return func() {
		c.notifier.Listening(messages.Greeting())
		go c.run(runCtx, capCtx, id, cfg)
	}
}

func (c *Controller) abortLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.finalize = nil
	// Orphan the in-flight session: its late result must not touch state.
	c.id++
}

func (c *Controller) run(ctx, capCtx context.Context, id uint64, cfg Config) {
	defer c.wg.Done()
	c.complete(id, c.pipeline(ctx, capCtx, id, cfg))
}

func (c *Controller) pipeline(ctx, capCtx context.Context, id uint64, cfg Config) Result {
	capturer := c.newCapturer(cfg.Capture)

	buffer, err := capturer.Capture(capCtx)
	if err != nil {
		if errors.Is(err, capture.ErrNoSpeech) {
			return Result{NoSpeech: true}
		}
		return Result{Failure: failureKindOf(err), Err: err}
	}

	// An early capture end from Stop keeps going; a full abort does not.
	if ctx.Err() != nil {
		return Result{Aborted: true}
	}
	if !c.transition(id, Transcribing) {
		return Result{Aborted: true}
	}

	rec, err := c.newRecognizer(cfg.Recognition)
	if err != nil {
		return Result{Failure: FailureService, Err: err}
	}

	text, err := rec.Recognize(ctx, buffer)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return Result{Aborted: true}
		}
		return Result{Failure: failureKindOf(err), Err: err}
	}

	if strings.TrimSpace(text) == "" {
		return Result{NoSpeech: true}
	}
	return Result{Text: text}
}

// transition moves the session to the given state only if it is still the
// current one.
func (c *Controller) transition(id uint64, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.id {
		return false
	}
	c.state = s
	return true
}

// complete is the single completion handler. Results from superseded
// sessions are discarded before any state change or clipboard write.
func (c *Controller) complete(id uint64, res Result) {
	c.mu.Lock()
	if id != c.id {
		c.mu.Unlock()
		c.log.Debug().
			Uint64("session", id).
			Uint64("current", c.id).
			Msg("discarding stale result")
		return
	}

	// The pipeline has returned; cancel the session contexts so they
	// detach from the daemon context instead of accumulating under it.
	if c.finalize != nil {
		c.finalize()
		c.finalize = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	var deliver func()
	switch {
	case res.Aborted:
		c.state = Idle

	case res.Failure != "":
		c.log.Error().
			Uint64("session", id).
			Str("kind", string(res.Failure)).
			Err(res.Err).
			Msg("session failed")

		if c.cfg.ErrorHold > 0 {
			c.state = Error
			c.scheduleIdleLocked(id)
		} else {
			c.state = Idle
		}

		kind, msg := res.Failure, failureMessage(res.Failure)
		deliver = func() { c.notifier.Failure(string(kind), msg) }

	case res.NoSpeech:
		c.state = Idle
		c.log.Info().Uint64("session", id).Msg("no speech detected")
		deliver = func() { c.notifier.NoSpeech(messages.NoSpeech) }

	default:
		c.state = Idle
		text := res.Text
		ack := messages.Acknowledgment()
		deliver = func() {
			if err := c.sink.Set(text); err != nil {
				// Clipboard trouble is not fatal; the control stays usable.
				c.log.Warn().Err(err).Msg("clipboard write failed")
			}
			c.notifier.Success(text, ack)
		}
	}
	c.mu.Unlock()

	if deliver != nil {
		deliver()
	}
}

func (c *Controller) scheduleIdleLocked(id uint64) {
	c.stopHoldLocked()
	c.holdTimer = time.AfterFunc(c.cfg.ErrorHold, func() {
		c.mu.Lock()
		if c.id == id && c.state == Error {
			c.state = Idle
		}
		c.mu.Unlock()
	})
}

func (c *Controller) stopHoldLocked() {
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
}

func failureMessage(kind FailureKind) string {
	switch kind {
	case FailureDevice:
		return messages.DeviceFailure
	case FailureNetwork:
		return messages.NetworkFailure
	case FailureTimeout:
		return messages.TimeoutFailure
	default:
		return messages.ServiceFailure
	}
}
