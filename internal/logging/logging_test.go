package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	logger.Info().Str("key", "value").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") {
		t.Errorf("expected log output to contain message, got: %s", out)
	}
	if !strings.Contains(out, "key") {
		t.Errorf("expected log output to contain field, got: %s", out)
	}
}

func TestComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(&buf), "session")

	logger.Info().Msg("started")

	if !strings.Contains(buf.String(), "session") {
		t.Errorf("expected component field in output, got: %s", buf.String())
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"debug", "debug"},
		{"warn", "warn"},
		{"error", "error"},
		{"", "info"},
		{"garbage", "info"},
	}

	for _, tt := range tests {
		t.Run("VOICECLIP_LOG="+tt.value, func(t *testing.T) {
			t.Setenv("VOICECLIP_LOG", tt.value)
			if got := levelFromEnv().String(); got != tt.want {
				t.Errorf("levelFromEnv() = %s, want %s", got, tt.want)
			}
		})
	}
}
