package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chatfanoutgo/internal/config"
	"chatfanoutgo/internal/database/db_client"
	"chatfanoutgo/internal/fanout"
	"chatfanoutgo/internal/http/http_server"
	"chatfanoutgo/internal/redis/redis_client"
	"chatfanoutgo/internal/services/chat"
	"chatfanoutgo/internal/ws"

	"go.uber.org/zap"
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

	// 3. Postgres db client
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 4. Durable chat store collaborator
	chatService := chat.NewChatService(pgDb)

	// 5. Room registry + in-process hub
	registry := ws.NewRegistry()
	hub := ws.NewHub(registry)

	// 6. Optional: cross-instance fan-out over Redis pub/sub
	var pub ws.Publisher = hub
	if cfg.RedisFanoutEnabled {
		redisClient, err := redis_client.NewRedisClient(cfg.RedisChatHost, int(cfg.RedisChatPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		bridge := ws.NewRedisBridge(redisClient, hub)
		go bridge.Run(ctx)
		pub = bridge
		Log.Debug("Redis fan-out bridge enabled")
	}

	// 7. Write-then-notify coordinator for the durable write path
	coord := fanout.NewCoordinator(pub)

	// 8. Connection gateway
	wsSrv := ws.NewWsServer(registry, pub, cfg.WsSendQueueSize)

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, chatService, coord)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
