package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/matgreaves/run"

	"github.com/edgemesh/sidecar-proxy/internal/bootstrap"
	"github.com/edgemesh/sidecar-proxy/internal/telemetry"
)

func main() {
	logger := telemetry.NewLogger(os.Stderr, slog.LevelInfo)

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sidecar: %v\n", err)
		os.Exit(1)
	}

	rt, err := bootstrap.BuildForwarders(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sidecar: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("error closing rate limit store", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	group := run.Group{
		"edges": rt.Runner(),
		"admin": run.Func(func(ctx context.Context) error {
			return bootstrap.ServeAdmin(ctx, cfg.AdminListenAddr, rt)
		}),
	}

	logger.Info("sidecar starting",
		"inbound_addr", cfg.InboundListenAddr,
		"outbound_addr", cfg.OutboundListenAddr,
		"admin_addr", cfg.AdminListenAddr,
		"protocol", cfg.Protocol,
	)

	if err := group.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("sidecar exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("sidecar stopped")
}
