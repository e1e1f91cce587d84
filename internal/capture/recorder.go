package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// PipeWireRecorder reads raw PCM from pw-record until stopped.
type PipeWireRecorder struct {
	cfg       Config
	log       zerolog.Logger
	recording atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewPipeWireRecorder(cfg Config, log zerolog.Logger) *PipeWireRecorder {
	return &PipeWireRecorder{cfg: cfg, log: log}
}

func (r *PipeWireRecorder) Start(ctx context.Context) (<-chan Frame, <-chan error, error) {
	if r.recording.Load() {
		return nil, nil, fmt.Errorf("already recording")
	}

	if err := r.validateConfig(); err != nil {
		return nil, nil, err
	}

	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, nil, fmt.Errorf("PipeWire not available: %w", err)
	}

	// Cancellable context specific to this recording session.
	recordingCtx, cancel := context.WithCancel(ctx)

	frameCh := make(chan Frame, r.cfg.ChannelBufferSize)
	errCh := make(chan error, 1)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(recordingCtx, frameCh, errCh)

	return frameCh, errCh, nil
}

func (r *PipeWireRecorder) Stop() error {
	if !r.recording.Load() {
		return nil
	}

	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// Wait for the capture loop so pw-record is reaped before returning.
	r.wg.Wait()
	return nil
}

func (r *PipeWireRecorder) captureLoop(ctx context.Context, frameCh chan<- Frame, errCh chan<- error) {
	defer func() {
		close(frameCh)
		close(errCh)
		r.recording.Store(false)

		// Ensure any child process is reaped.
		r.mu.Lock()
		if r.cmd != nil {
			_ = r.cmd.Wait()
			r.cmd = nil
		}
		r.cancel = nil
		r.mu.Unlock()

		r.wg.Done()
	}()

	args := r.buildPwRecordArgs()
	cmd := exec.CommandContext(ctx, "pw-record", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.emitErr(errCh, fmt.Errorf("create stdout pipe: %w", err))
		r.requestCancel()
		return
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.emitErr(errCh, fmt.Errorf("create stderr pipe: %w", err))
		r.requestCancel()
		return
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()

	if err := cmd.Start(); err != nil {
		r.emitErr(errCh, fmt.Errorf("start pw-record: %w", err))
		r.requestCancel()
		return
	}

	// Log stderr lines to aid diagnostics.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			r.log.Debug().Str("stderr", scanner.Text()).Msg("pw-record")
		}
	}()

	buffer := make([]byte, r.cfg.BufferSize)
	var droppedCount int
	lastDropLog := time.Now()

	for {
		n, readErr := stdout.Read(buffer)
		if n > 0 {
			frameData := make([]byte, n)
			copy(frameData, buffer[:n])

			frame := Frame{Data: frameData, Timestamp: time.Now()}

			select {
			case frameCh <- frame:
			case <-ctx.Done():
				return
			default:
				droppedCount++
				if time.Since(lastDropLog) > time.Second {
					r.log.Warn().Int("dropped", droppedCount).Msg("dropped frames due to backpressure")
					lastDropLog = time.Now()
					droppedCount = 0
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return
			}
			r.emitErr(errCh, fmt.Errorf("read audio: %w", readErr))
			r.requestCancel()
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (r *PipeWireRecorder) requestCancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *PipeWireRecorder) emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
		// Best-effort; avoid blocking
	}
	r.log.Error().Err(err).Msg("recording error")
}

func (r *PipeWireRecorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.cfg.Format,
		"--rate", strconv.Itoa(r.cfg.SampleRate),
		"--channels", strconv.Itoa(r.cfg.Channels),
		"-", // stdout
	}
	if r.cfg.Device != "" {
		args = append(args, "--target", r.cfg.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// Short timeout to avoid hangs on misconfigured systems.
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *PipeWireRecorder) validateConfig() error {
	if r.cfg.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.cfg.SampleRate)
	}
	if r.cfg.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.cfg.Channels)
	}
	if r.cfg.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.cfg.BufferSize)
	}
	if r.cfg.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.cfg.ChannelBufferSize)
	}
	if r.cfg.Format == "" {
		return fmt.Errorf("invalid Format: empty")
	}
	// For s16le, a sample frame is 2 bytes per sample per channel.
	if r.cfg.Format == "s16le" {
		frameBytes := 2 * r.cfg.Channels
		if r.cfg.BufferSize%frameBytes != 0 {
			r.log.Warn().
				Int("buffer_size", r.cfg.BufferSize).
				Int("frame_bytes", frameBytes).
				Msg("buffer size not aligned to frame size; audio frames may split")
		}
	}
	return nil
}
