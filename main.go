package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"strangerchat/internal/chat/directory"
	"strangerchat/internal/chat/matchqueue"
	"strangerchat/internal/chat/presence"
	"strangerchat/internal/chat/registry"
	"strangerchat/internal/chat/session"
	"strangerchat/internal/config"
	"strangerchat/internal/http/http_server"
	"strangerchat/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Core state: rooms, matchmaking queue, name directory, presence.
	// All process-lifetime only; a restart drops every room and waiter.
	reg := registry.New(cfg.RoomCodeMaxAttempts)
	queue := matchqueue.New(reg)
	dir := directory.New()
	pres := presence.New()

	// 4. Session dispatcher orchestrating the core state
	dispatcher := session.New(reg, queue, dir, pres)

	// 5. Initialize the WS server
	wsSrv := ws.NewWsServer(dispatcher, cfg.WsReadLimit)

	// 6. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, dispatcher)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
