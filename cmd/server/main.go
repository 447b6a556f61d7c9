package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/auth"
	"github.com/alexindevs/roomey-api/internal/cache"
	"github.com/alexindevs/roomey-api/internal/config"
	"github.com/alexindevs/roomey-api/internal/connections"
	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/handler"
	"github.com/alexindevs/roomey-api/internal/httpapi"
	"github.com/alexindevs/roomey-api/internal/messaging"
	"github.com/alexindevs/roomey-api/internal/notification"
	"github.com/alexindevs/roomey-api/internal/observability"
	"github.com/alexindevs/roomey-api/internal/presence"
	"github.com/alexindevs/roomey-api/internal/queue"
	"github.com/alexindevs/roomey-api/internal/repository/postgres"
	"github.com/alexindevs/roomey-api/internal/router"
	"github.com/alexindevs/roomey-api/internal/server"
	"github.com/alexindevs/roomey-api/internal/tx"
	"github.com/alexindevs/roomey-api/internal/websocket"
)

func main() {
	cfg := config.Load()

	// Observability
	observability.InitLogger(cfg.ServiceName, cfg.LogLevel)
	log := observability.Log

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer tp.Shutdown(context.Background())
	}

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	instanceID := cfg.InstanceID
	log = log.With(zap.String("instance_id", instanceID))

	db, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	// Connections left behind by a previous run of this instance are stale.
	conns := connections.New(db, instanceID)
	if n, err := conns.DeactivateInstance(ctx, instanceID); err != nil {
		log.Fatal("failed to clear stale connections", zap.Error(err))
	} else if n > 0 {
		log.Info("cleared stale connections", zap.Int64("count", n))
	}

	redisClient := initRedis(ctx, cfg, log)
	defer redisClient.Close()

	producer, err := queue.NewProducer(cfg.KafkaBrokers, cfg.NotificationsTopic)
	if err != nil {
		log.Fatal("failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	repo := postgres.New(db)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)

	rtr := router.New(redisClient, instanceID)
	reg := websocket.NewRegistry()
	gw := presence.New(conns, reg, rtr, instanceID)
	if err := rtr.Subscribe(ctx, gw.HandleDelivery); err != nil {
		log.Fatal("failed to subscribe to delivery channel", zap.Error(err))
	}

	msgSvc := messaging.New(repo, &tx.Manager{DB: db}, cache.New(redisClient, cfg.ConvCacheTTL), producer)
	wsHandler := websocket.NewHandler(reg, conns, verifier, cfg.AuthTimeout)
	wsHandler.Handle(domain.NamespaceMessaging, websocket.NewMessagingEvents(msgSvc, gw))

	checks := map[string]observability.Pinger{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"kafka":    producer.Ping,
	}

	apiHandler := httpapi.NewRouter(httpapi.Deps{
		Notifications: handler.NewNotificationHandler(notification.New(repo)),
		WebSocket:     wsHandler,
		Verifier:      verifier,
		Checks:        checks,
	}, cfg)

	// Servers
	obsSrv := server.NewObservability(cfg.ServiceName, cfg.ObsHTTPAddr, checks)
	apiSrv := server.New("api", cfg.HTTPAddr, apiHandler)
	startServers(cancel, log, obsSrv, apiSrv)

	<-ctx.Done()
	performGracefulShutdown(conns, instanceID, reg, log, apiSrv, obsSrv)
}

func setupSignalHandler(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func initRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return client
}

func startServers(cancel context.CancelFunc, log *zap.Logger, servers ...*server.Server) {
	for _, srv := range servers {
		go func(srv *server.Server) {
			if err := srv.Start(); err != nil {
				log.Error("server error", zap.String("addr", srv.Addr()), zap.Error(err))
				cancel()
			}
		}(srv)
	}
}

func performGracefulShutdown(conns *connections.Registry, instanceID string, reg *websocket.Registry, log *zap.Logger, servers ...*server.Server) {
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("error during server shutdown", zap.String("addr", srv.Addr()), zap.Error(err))
		}
	}
	reg.CloseAll()

	if _, err := conns.DeactivateInstance(ctx, instanceID); err != nil {
		log.Error("failed to deactivate connections", zap.Error(err))
	}
	log.Info("shutdown complete, exiting")
}
