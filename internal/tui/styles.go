package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#06B6D4") // cyan accent
	colorSuccess = lipgloss.Color("#22C55E")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#94A3B8")
)

var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleError = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)
)

const logoASCII = `
             _               _ _       
 _   _  ___ (_) ___ ___  ___| (_)_ __  
| | | |/ _ \| |/ __/ _ \/ __| | | '_ \ 
| |_| | (_) | | (_|  __/ (__| | | |_) |
 \__,_|\___/|_|\___\___|\___|_|_| .__/ 
                                |_|    `

// Logo returns the styled voiceclip banner.
func Logo() string {
	return styleHeader.Render(strings.Trim(logoASCII, "\n"))
}
