package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"voiceclip/internal/bus"
	"voiceclip/internal/config"
	"voiceclip/internal/logging"
	"voiceclip/internal/notify"
	"voiceclip/internal/session"
)

// Daemon owns the transcription controller and serves the control socket.
type Daemon struct {
	log        zerolog.Logger
	manager    *config.Manager
	controller *session.Controller

	ctx    context.Context
	cancel context.CancelFunc
}

func New(log zerolog.Logger) (*Daemon, error) {
	manager, err := config.NewManager(logging.Component(log, "config"))
	if err != nil {
		return nil, err
	}

	cfg := manager.GetConfig()
	notifier := notify.ForType(cfg.NotifierType(), logging.Component(log, "notify"))

	controller := session.New(
		cfg.ControllerConfig(),
		logging.Component(log, "session"),
		session.WithNotifier(notifier),
	)

	manager.OnReload(func(cfg *config.Config) {
		controller.SetConfig(cfg.ControllerConfig())
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		log:        log,
		manager:    manager,
		controller: controller,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// newForTest wires a daemon around a prebuilt controller, skipping config
// loading and the watcher.
func newForTest(log zerolog.Logger, controller *session.Controller) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		log:        log,
		controller: controller,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if d.manager != nil {
		if err := d.manager.StartWatching(d.ctx); err != nil {
			d.log.Warn().Err(err).Msg("config watching disabled")
		}
		defer d.manager.Stop()
	}
	defer d.controller.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		d.log.Info().Str("signal", sig.String()).Msg("shutting down")
		d.cancel()
	}()

	// Close the listener when context is done.
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	d.log.Info().Msg("daemon started, listening on control socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.log.Info().Msg("shutdown requested")
				return nil
			}
			d.log.Error().Err(err).Msg("accept error")
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		d.log.Warn().Err(err).Msg("client read error")
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch line[0] {
	case bus.CmdToggle:
		if err := d.controller.Toggle(d.ctx); err != nil {
			fmt.Fprintf(c, "ERR toggle: %v\n", err)
			return
		}
		fmt.Fprint(c, "OK toggled\n")

	case bus.CmdStart:
		if err := d.controller.Start(d.ctx); err != nil {
			fmt.Fprintf(c, "ERR start: %v\n", err)
			return
		}
		fmt.Fprint(c, "OK listening\n")

	case bus.CmdStop:
		d.controller.Stop()
		fmt.Fprint(c, "OK stopped\n")

	case bus.CmdCancel:
		d.controller.Cancel()
		fmt.Fprint(c, "OK cancelled\n")

	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS status=%s\n", d.controller.State())

	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)

	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()

	default:
		d.log.Warn().Str("command", string(line[0])).Msg("unknown command")
		fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
	}
}
