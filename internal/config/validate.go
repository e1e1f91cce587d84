package config

import (
	"fmt"
	"os"
)

func (c *Config) Validate() error {
	if c.Capture.SampleRate <= 0 {
		return fmt.Errorf("invalid capture.sample_rate: %d", c.Capture.SampleRate)
	}
	if c.Capture.Channels <= 0 {
		return fmt.Errorf("invalid capture.channels: %d", c.Capture.Channels)
	}
	if c.Capture.BufferSize <= 0 {
		return fmt.Errorf("invalid capture.buffer_size: %d", c.Capture.BufferSize)
	}
	if c.Capture.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid capture.channel_buffer_size: %d", c.Capture.ChannelBufferSize)
	}
	if c.Capture.Format == "" {
		return fmt.Errorf("invalid capture.format: empty")
	}
	if c.Capture.MaxDuration <= 0 {
		return fmt.Errorf("invalid capture.max_duration: %v", c.Capture.MaxDuration)
	}
	if c.Capture.SilenceTimeout <= 0 {
		return fmt.Errorf("invalid capture.silence_timeout: %v", c.Capture.SilenceTimeout)
	}
	if c.Capture.LeadingTimeout <= 0 {
		return fmt.Errorf("invalid capture.leading_timeout: %v", c.Capture.LeadingTimeout)
	}
	if c.Capture.SilenceThreshold <= 0 || c.Capture.SilenceThreshold >= 1 {
		return fmt.Errorf("invalid capture.silence_threshold: %f (must be in (0, 1))", c.Capture.SilenceThreshold)
	}

	switch c.Recognition.Provider {
	case "openai":
		if c.Recognition.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("OpenAI API key required: set recognition.api_key or the OPENAI_API_KEY environment variable")
		}
	case "":
		return fmt.Errorf("invalid recognition.provider: empty")
	default:
		return fmt.Errorf("invalid recognition.provider: %s (only openai is supported)", c.Recognition.Provider)
	}
	if c.Recognition.Model == "" {
		return fmt.Errorf("invalid recognition.model: empty")
	}
	if c.Recognition.Timeout <= 0 {
		return fmt.Errorf("invalid recognition.timeout: %v", c.Recognition.Timeout)
	}

	switch c.Session.StartPolicy {
	case "ignore", "restart":
	default:
		return fmt.Errorf("invalid session.start_policy: %s (must be ignore or restart)", c.Session.StartPolicy)
	}
	if c.Session.ErrorHold < 0 {
		return fmt.Errorf("invalid session.error_hold: %v", c.Session.ErrorHold)
	}

	switch c.Notifications.Type {
	case "desktop", "log", "none", "":
	default:
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log or none)", c.Notifications.Type)
	}

	return nil
}
