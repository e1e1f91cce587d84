package notify

import (
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// Notifier receives session state changes for user feedback.
// All methods are fire-and-forget; implementations must never block the caller
// for long or propagate errors back into the session.
type Notifier interface {
	Listening(msg string)
	Success(text, msg string)
	NoSpeech(msg string)
	Failure(kind, msg string)
}

const appName = "Voiceclip"

// Desktop sends desktop notifications through notify-send.
type Desktop struct {
	Log zerolog.Logger
}

func (d Desktop) Listening(msg string) {
	d.send(msg, false)
}

func (d Desktop) Success(text, msg string) {
	body := msg
	if text != "" {
		body = fmt.Sprintf("%s\n%s", msg, text)
	}
	d.send(body, false)
}

func (d Desktop) NoSpeech(msg string) {
	d.send(msg, false)
}

func (d Desktop) Failure(kind, msg string) {
	d.send(msg, true)
}

func (d Desktop) send(body string, critical bool) {
	args := []string{"-a", appName}
	if critical {
		args = append(args, "-u", "critical")
	}
	args = append(args, appName, body)

	if err := exec.Command("notify-send", args...).Run(); err != nil {
		d.Log.Warn().Err(err).Msg("failed to send desktop notification")
	}
}

// Log writes feedback to the logger only. Used when notifications are
// disabled or no notification daemon is available.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Listening(msg string) {
	l.Logger.Info().Str("event", "listening").Msg(msg)
}

func (l Log) Success(text, msg string) {
	l.Logger.Info().Str("event", "success").Str("text", text).Msg(msg)
}

func (l Log) NoSpeech(msg string) {
	l.Logger.Info().Str("event", "no_speech").Msg(msg)
}

func (l Log) Failure(kind, msg string) {
	l.Logger.Error().Str("event", "failure").Str("kind", kind).Msg(msg)
}

// Nop does nothing. Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Listening(msg string)     {}
func (Nop) Success(text, msg string) {}
func (Nop) NoSpeech(msg string)      {}
func (Nop) Failure(kind, msg string) {}

// ForType returns the notifier matching the configured notification type.
func ForType(typ string, logger zerolog.Logger) Notifier {
	switch typ {
	case "desktop":
		return Desktop{Log: logger}
	case "log":
		return Log{Logger: logger}
	default:
		return Nop{}
	}
}
