package config

import (
	"time"

	"voiceclip/internal/capture"
	"voiceclip/internal/recognizer"
	"voiceclip/internal/session"
)

type Config struct {
	Capture       CaptureConfig       `toml:"capture"`
	Recognition   RecognitionConfig   `toml:"recognition"`
	Session       SessionConfig       `toml:"session"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type CaptureConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	Channels          int           `toml:"channels"`
	Format            string        `toml:"format"`
	BufferSize        int           `toml:"buffer_size"`
	Device            string        `toml:"device"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	MaxDuration       time.Duration `toml:"max_duration"`
	SilenceTimeout    time.Duration `toml:"silence_timeout"`
	LeadingTimeout    time.Duration `toml:"leading_timeout"`
	SilenceThreshold  float64       `toml:"silence_threshold"`
}

type RecognitionConfig struct {
	Provider string        `toml:"provider"`
	APIKey   string        `toml:"api_key"`
	Language string        `toml:"language"`
	Model    string        `toml:"model"`
	Timeout  time.Duration `toml:"timeout"`
}

type SessionConfig struct {
	StartPolicy string        `toml:"start_policy"` // "ignore" or "restart"
	ErrorHold   time.Duration `toml:"error_hold"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

// ControllerConfig assembles the controller configuration from the file config.
func (c *Config) ControllerConfig() session.Config {
	return session.Config{
		StartPolicy: session.StartPolicy(c.Session.StartPolicy),
		ErrorHold:   c.Session.ErrorHold,
		Capture: capture.Config{
			SampleRate:        c.Capture.SampleRate,
			Channels:          c.Capture.Channels,
			Format:            c.Capture.Format,
			BufferSize:        c.Capture.BufferSize,
			Device:            c.Capture.Device,
			ChannelBufferSize: c.Capture.ChannelBufferSize,
			MaxDuration:       c.Capture.MaxDuration,
			SilenceTimeout:    c.Capture.SilenceTimeout,
			LeadingTimeout:    c.Capture.LeadingTimeout,
			SilenceThreshold:  c.Capture.SilenceThreshold,
		},
		Recognition: recognizer.Config{
			Provider:   c.Recognition.Provider,
			APIKey:     c.Recognition.APIKey,
			Language:   c.Recognition.Language,
			Model:      c.Recognition.Model,
			Timeout:    c.Recognition.Timeout,
			SampleRate: c.Capture.SampleRate,
			Channels:   c.Capture.Channels,
		},
	}
}

// NotifierType resolves the notification backend name.
func (c *Config) NotifierType() string {
	if !c.Notifications.Enabled {
		return "none"
	}
	return c.Notifications.Type
}
