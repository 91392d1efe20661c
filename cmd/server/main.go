package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"chatify/api"
	"chatify/auth"
	"chatify/gateway"
	"chatify/internal"
	"chatify/notify"
	"chatify/repositories"
	"chatify/runtime"
	"chatify/runtime/workers"
	"chatify/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main is a thin wrapper: run() does the work, main maps the outcome
	// to an OS exit code after all defers have executed.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.Logger(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// Storage
	userRepo := repositories.NewUserRepository(db)
	chatRepo := repositories.NewChatRepository(db)
	messageRepo := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	statusRepo := repositories.NewStatusRepository(db)
	callRepo := repositories.NewCallRepository(db)

	// Runtime
	registry := runtime.NewRegistry()
	notifier := notify.NewLogNotifier(logger)
	router := workers.NewRouter(logger, registry, notifier, config.DeliveryQueueSize)
	heartbeat := workers.NewHeartbeatWorker(logger, config.HeartbeatInterval, registry.SessionCount)

	// Services
	tokens := auth.NewTokenManager([]byte(config.JWTSecret), config.AuthTokenDuration)
	system := services.NewSystemMessenger(messageRepo, chatRepo, router, logger)
	chatService := services.NewChatService(chatRepo, userRepo, messageRepo, system, logger)
	messageService := services.NewMessageService(messageRepo, chatRepo, userRepo, router, logger)
	userService := services.NewUserService(userRepo, chatRepo, tokens, system, logger)
	statusService := services.NewStatusService(statusRepo, chatRepo, userRepo)
	callService := services.NewCallService(callRepo, userRepo)
	presence := services.NewPresenceService(userRepo, registry, router, logger)

	// Transport
	ws := gateway.NewGateway(logger, tokens, presence, router, config.SessionBufferSize, config.DevOrigins)
	server := api.NewServer(logger, tokens, userService, chatService, messageService, statusService, callService)

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(router, heartbeat)
	go supervisor.Run(ctx)
	defer supervisor.Stop()

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	httpServer := &http.Server{Addr: addr, Handler: server.Router(ws)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, err
		}
	case <-ctx.Done():
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitRuntime, err
		}
	}
	return exitOK, nil
}
