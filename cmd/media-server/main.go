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

	"gochat/internal/wire"
)

func main() {
	app, cleanup, err := wire.InitializeMediaServer()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to initialize media server")
	}
	defer cleanup()
	log := app.Logger

	server := &http.Server{
		Addr:        net.JoinHostPort(app.Config.Server.Host, app.Config.Server.MediaPort),
		Handler:     app.Server,
		ReadTimeout: time.Duration(app.Config.Server.ReadTimeout) * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("driver", app.Config.Media.Driver).
			Msg("media server starting, serving /media/{fileId}")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("media server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("media server forced to shutdown")
	}
	log.Info().Msg("media server stopped")
}
