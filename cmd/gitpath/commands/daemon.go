package commands

import (
	"log/slog"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/daemon"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	NoWatch bool `help:"Do not reload the configuration when the file changes"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}

	ctx, cancel := g.commandContext()
	defer cancel()

	dm, err := daemon.New(cfg, root.Config, daemon.Options{DisableWatcher: d.NoWatch})
	if err != nil {
		return errors.DaemonError("failed to create daemon").WithCause(err).Build()
	}
	slog.Info("Daemon starting, waiting for shutdown signal", slog.String("config", root.Config))
	if err := dm.Run(ctx); err != nil {
		return err
	}
	slog.Info("Daemon stopped successfully")
	return nil
}
