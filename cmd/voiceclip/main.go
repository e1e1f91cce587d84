package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"voiceclip/internal/bus"
	"voiceclip/internal/config"
	"voiceclip/internal/daemon"
	"voiceclip/internal/logging"
	"voiceclip/internal/tui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "voiceclip",
	Short: "Voice dictation to your clipboard",
	Long: `voiceclip listens to the microphone, detects when you stop talking,
transcribes the utterance and puts the text on the clipboard.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		startCmd(),
		stopCmd(),
		cancelCmd(),
		statusCmd(),
		versionCmd(),
		quitCmd(),
		configureCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Optional .env for OPENAI_API_KEY during development.
			_ = godotenv.Load()

			log := logging.New(os.Stderr)

			d, err := daemon.New(log)
			if err != nil {
				if errors.Is(err, config.ErrConfigNotFound) {
					fmt.Fprintln(os.Stderr, "No configuration found. Run 'voiceclip configure' first.")
				}
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle dictation on/off",
		RunE:  sendCmd(bus.CmdToggle, "toggle dictation"),
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start listening",
		RunE:  sendCmd(bus.CmdStart, "start listening"),
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop listening and transcribe what was captured",
		RunE:  sendCmd(bus.CmdStop, "stop listening"),
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the current dictation",
		RunE:  sendCmd(bus.CmdCancel, "cancel dictation"),
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get current dictation status",
		RunE:  sendCmd(bus.CmdStatus, "get status"),
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE:  sendCmd(bus.CmdVersion, "get version"),
	}
}

func quitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Stop the daemon",
		RunE:  sendCmd(bus.CmdQuit, "stop daemon"),
	}
}

func sendCmd(cmd byte, action string) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		resp, err := bus.SendCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to %s: %w", action, err)
		}
		fmt.Print(resp)
		return nil
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for voiceclip.
This will guide you through setting up:
- OpenAI API key and recognition language
- Silence detection and toggle behavior
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.DefaultConfig()
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if err := config.Save(result.Config, configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Restart the daemon (voiceclip quit; voiceclip serve) if it is running,")
	fmt.Println("or it will pick up the new settings automatically on the next reload.")
	return nil
}
