package clipboard

import (
	"fmt"

	cb "github.com/atotto/clipboard"
)

// Sink receives final transcription text.
type Sink interface {
	Set(text string) error
}

// System writes to the OS clipboard.
type System struct{}

func (System) Set(text string) error {
	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// Nop discards text. Useful in tests and headless builds.
type Nop struct{}

func (Nop) Set(text string) error { return nil }
