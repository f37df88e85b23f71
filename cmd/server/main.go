package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storechat/internal/auth"
	"storechat/internal/chat"
	"storechat/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine; the environment itself still applies.
	_ = godotenv.Load()

	cfg, err := chat.LoadConfig()
	if err != nil {
		logging.New("info").Fatal("invalid configuration", zap.Error(err))
	}

	log := logging.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	var verifier auth.Verifier = auth.AllowAll{}
	if cfg.RequireAuth {
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
		log.Info("token verification enabled")
	} else {
		log.Warn("token verification disabled; any admin_login grants admin access")
	}

	hub := chat.NewHub(cfg, verifier, log)
	go hub.Run()

	handler := chat.NewHandler(hub, log)
	server := chat.CreateServer(cfg.Addr, chat.SetupRoutes(handler))

	errCh := make(chan error, 1)
	go func() {
		errCh <- chat.StartServer(server, log)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exited", zap.Error(err))
		}
	}

	if err := chat.ShutdownServer(server, shutdownTimeout, log); err != nil {
		log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Warn("hub shutdown incomplete", zap.Error(err))
	}
}
