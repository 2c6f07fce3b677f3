package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"perpdesk/internal/api"
	"perpdesk/internal/app"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// .env is optional; the environment wins over the config file either way.
	godotenv.Load()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background icon sync for seeded markets
	go bootstrap.SyncIcons(ctx)

	server := api.NewServer(
		bootstrap.Trading,
		bootstrap.Verifier,
		bootstrap.Metrics,
		bootstrap.Kana,
		bootstrap.Logger,
		bootstrap.Config.Server.AllowedOrigins,
	)

	addr := net.JoinHostPort(bootstrap.Config.Server.Host, bootstrap.Config.Server.Port)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("shut down gracefully")
}
