package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
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
		},
		Recognition: RecognitionConfig{
			Provider: "openai",
			Language: "es",
			Model:    "whisper-1",
			Timeout:  30 * time.Second,
		},
		Session: SessionConfig{
			StartPolicy: "ignore",
			ErrorHold:   2 * time.Second,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
