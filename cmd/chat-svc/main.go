package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"gochat/internal/wire"
)

func main() {
	app, cleanup, err := wire.InitializeApplication()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to initialize chat service")
	}
	defer cleanup()
	log := app.Logger
	cfg := app.Config

	server := &http.Server{
		Addr:           net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:        app.Router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// gRPC carries only health and reflection for orchestrators.
	healthServer := health.NewServer()
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(loggingUnaryInterceptor(log)),
		grpc.StreamInterceptor(loggingStreamInterceptor(log)),
	)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Server.GRPCPort).Msg("failed to listen")
	}

	go func() {
		log.Info().Str("port", cfg.Server.GRPCPort).Msg("gRPC health server running")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC server stopped")
		}
	}()

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("store", cfg.Store.Driver).
			Str("media", cfg.Media.Driver).
			Msg("chat service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down chat service")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	// hijacked websocket connections are not tracked by http.Server
	app.Hub.Shutdown()
	grpcServer.GracefulStop()

	log.Info().Msg("chat service stopped")
}

func loggingUnaryInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		event := log.Debug()
		if err != nil {
			event = log.Warn().Err(err)
		}
		event.Str("method", info.FullMethod).Dur("duration", time.Since(start)).Msg("grpc call")
		return resp, err
	}
}

func loggingStreamInterceptor(log zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		log.Debug().Str("method", info.FullMethod).Msg("grpc stream started")
		err := handler(srv, stream)
		if err != nil {
			log.Warn().Err(err).Str("method", info.FullMethod).Msg("grpc stream ended with error")
		}
		return err
	}
}
