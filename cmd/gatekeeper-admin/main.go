package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clanhall/gatekeeper/config"
	"github.com/clanhall/gatekeeper/internal/bootstrap"
)

type app struct {
	logger *slog.Logger
	cfg    *config.AppConfig
	// loadConfig is replaced in tests.
	loadConfig func() (config.AppConfig, error)
}

func main() {
	logger := bootstrap.InitLogger(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCmd(&app{logger: logger, loadConfig: bootstrap.ParseConfig})
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "gatekeeper-admin",
		Short:        "Administrative tasks for the clan gatekeeper",
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(a),
		newMapRolesCmd(a),
		newProfileCmd(a),
		newMembersCmd(a),
		newWhoamiCmd(),
	)
	return root
}

// config lazily parses the environment; whoami never needs it.
func (a *app) config() (*config.AppConfig, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a.cfg = &cfg
	return a.cfg, nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
