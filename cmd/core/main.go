package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	grpc_adapter "github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/in/grpc"
	http_adapter "github.com/JoeShih716/go-nox-ledger/internal/app/core/adapter/in/http"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/bootstrap"
	"github.com/JoeShih716/go-nox-ledger/internal/config"
	"github.com/JoeShih716/go-nox-ledger/internal/logging"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	logger := logging.New(cfg.Log)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Info().
		Str("driver", cfg.Store.Driver).
		Str("ledger", cfg.Store.Ledger).
		Str("auth_store", cfg.Auth.Store).
		Str("feed", cfg.Notifications.Feed).
		Msg("config loaded")

	// 2. 建立 stores、ledger 與 use cases
	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build application")
	}

	// 3. gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		_ = app.Close()
		logger.Fatal().Err(err).Str("addr", cfg.Server.GRPCAddr).Msg("failed to listen")
	}
	grpcServer := grpc_adapter.NewGrpcServer(app.Services, logger).NewServer()
	go func() {
		logger.Info().Str("addr", cfg.Server.GRPCAddr).Msg("starting grpc server")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	// 4. HTTP Server
	var opts http_adapter.Options
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}
	httpServer := http_adapter.NewServer(app.Services, app.Metrics, opts, logger)
	go func() {
		if err := httpServer.Listen(cfg.Server.HTTPAddr); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// 最後關閉 dispatcher、ledger 與資料庫，WAL 在這裡 flush
	if err := app.Close(); err != nil {
		logger.Error().Err(err).Msg("close application")
	}
	logger.Info().Msg("server exited")
}
