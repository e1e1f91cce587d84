package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"

	"voiceclip/internal/config"
)

// ConfigureResult holds the outcome of the configuration wizard.
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

var languageOptions = []huh.Option[string]{
	huh.NewOption("Español (es)", "es"),
	huh.NewOption("English (en)", "en"),
	huh.NewOption("Français (fr)", "fr"),
	huh.NewOption("Deutsch (de)", "de"),
	huh.NewOption("Italiano (it)", "it"),
	huh.NewOption("Português (pt)", "pt"),
	huh.NewOption("Auto-detect", ""),
}

// Run starts the interactive configuration wizard over the given config.
// The config is edited in place; Cancelled is set when the user aborts.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	clearScreen()
	fmt.Println(Logo())
	fmt.Println()
	fmt.Println(styleMuted.Render("Press Enter to keep the current value, Esc to cancel."))
	fmt.Println()

	silenceTimeout := formatDuration(cfg.Capture.SilenceTimeout)
	errorHold := formatDuration(cfg.Session.ErrorHold)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API Key").
				Description("Leave empty to use the OPENAI_API_KEY environment variable").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Recognition.APIKey),
			huh.NewSelect[string]().
				Title("Language").
				Options(languageOptions...).
				Value(&cfg.Recognition.Language),
			huh.NewInput().
				Title("Model").
				Description("Speech recognition model").
				Value(&cfg.Recognition.Model).
				Validate(notEmpty("model")),
		).Title("Recognition"),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("When toggled while already listening").
				Options(
					huh.NewOption("Ignore the extra press", "ignore"),
					huh.NewOption("Restart the recording", "restart"),
				).
				Value(&cfg.Session.StartPolicy),
			huh.NewInput().
				Title("Silence timeout").
				Description("How long to wait after speech ends, e.g. 1.5s").
				Value(&silenceTimeout).
				Validate(validDuration),
			huh.NewInput().
				Title("Error display time").
				Description("How long failures stay visible, e.g. 4s").
				Value(&errorHold).
				Validate(validDuration),
		).Title("Session"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Value(&cfg.Notifications.Enabled),
			huh.NewSelect[string]().
				Title("Notification backend").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
				).
				Value(&cfg.Notifications.Type),
		).Title("Notifications"),
	)

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return &ConfigureResult{Cancelled: true}, nil
		}
		return nil, fmt.Errorf("configuration form: %w", err)
	}

	cfg.Capture.SilenceTimeout, _ = time.ParseDuration(silenceTimeout)
	cfg.Session.ErrorHold, _ = time.ParseDuration(errorHold)

	if err := cfg.Validate(); err != nil {
		fmt.Println(styleError.Render("Configuration is invalid: " + err.Error()))
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	printSummary(cfg)
	return &ConfigureResult{Config: cfg, Cancelled: false}, nil
}

func printSummary(cfg *config.Config) {
	fmt.Println()
	fmt.Println(styleSuccess.Render("Configuration saved"))
	fmt.Printf("  %s %s\n", styleMuted.Render("language:"), displayLanguage(cfg.Recognition.Language))
	fmt.Printf("  %s %s\n", styleMuted.Render("model:"), cfg.Recognition.Model)
	fmt.Printf("  %s %s\n", styleMuted.Render("start policy:"), cfg.Session.StartPolicy)
	fmt.Printf("  %s %s\n", styleMuted.Render("notifications:"), cfg.NotifierType())
	if cfg.Recognition.APIKey == "" {
		fmt.Println()
		fmt.Println(styleMuted.Render("  No API key stored; OPENAI_API_KEY will be used at runtime."))
	}
}

func displayLanguage(code string) string {
	if code == "" {
		return "auto-detect"
	}
	return code
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func validDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration (use e.g. 1.5s)")
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

func formatDuration(d time.Duration) string {
	return d.String()
}

func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}
