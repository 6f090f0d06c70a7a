package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arkitektio/rekuest-next/agent"
	"github.com/arkitektio/rekuest-next/config"
	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/locks"
	"github.com/arkitektio/rekuest-next/serial"
	"github.com/arkitektio/rekuest-next/shelf"
	"github.com/arkitektio/rekuest-next/transport"
)

// RunCmd dials the server and serves assignments until interrupted,
// mirroring cmd/qntx/commands's ServerCmd: a background goroutine for
// the long-running loop, raced against a signal channel with a
// graceful-then-forced double-Ctrl+C shutdown.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the server and serve assignments until interrupted",
	RunE:  runRun,
}

var runConfigPath string

func init() {
	RunCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a rekuest-agent.toml config file (overrides layered discovery)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	defReg, structReg := buildDemoRegistry()
	expander := serial.New(structReg, shelf.New())
	a := agent.New(cfg.Agent.InstanceID, defReg, expander, shelf.New(), locks.New())

	transportCfg := cfg.ToTransportConfig()
	printStartupBanner(cfg.Agent.InstanceID, transportCfg.URL)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	metrics := transport.NewMetrics()
	conn, err := transport.DialWithBackoff(ctx, transportCfg, metrics)
	if err != nil {
		return errors.Wrap(err, "dialing control-plane connection")
	}
	defer conn.Close()

	sender := transport.NewSender(conn, cfg.Transport.SendRatePerSec, cfg.Transport.SendQueueSize)
	keepalive := transport.NewKeepalive(conn, transportCfg)

	errCh := make(chan error, 2)
	go func() { errCh <- sender.Run(ctx) }()
	go keepalive.Run(ctx)
	go func() { errCh <- a.Run(ctx, conn, sender) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			return errors.Wrap(err, "agent stopped unexpectedly")
		}
		return nil
	case <-sigCh:
		pterm.Info.Println("shutting down gracefully (press Ctrl+C again to force)...")
		cancel()
		sender.Close()

		select {
		case <-errCh:
			pterm.Success.Println("agent stopped cleanly")
			return nil
		case <-sigCh:
			pterm.Warning.Println("force shutdown - exiting immediately")
			os.Exit(1)
			return nil // unreachable
		}
	}
}

func loadConfig() (*config.Config, error) {
	if runConfigPath != "" {
		return config.LoadFromFile(runConfigPath)
	}
	return config.Load()
}
