package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/config"
	"github.com/alexindevs/roomey-api/internal/connections"
	"github.com/alexindevs/roomey-api/internal/delivery"
	"github.com/alexindevs/roomey-api/internal/dispatcher"
	"github.com/alexindevs/roomey-api/internal/observability"
	"github.com/alexindevs/roomey-api/internal/presence"
	"github.com/alexindevs/roomey-api/internal/queue"
	"github.com/alexindevs/roomey-api/internal/repository/postgres"
	"github.com/alexindevs/roomey-api/internal/router"
	"github.com/alexindevs/roomey-api/internal/server"
)

// The worker consumes notification jobs. It holds no sockets: live
// notifications are forwarded to the gateway instance owning each
// connection.
func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.ServiceName+"-worker", cfg.LogLevel)
	log := observability.Log

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName+"-worker", cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer tp.Shutdown(context.Background())
	}

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	instanceID := "worker-" + cfg.InstanceID

	db, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	repo := postgres.New(db)
	live := presence.New(connections.New(db, instanceID), nil, router.New(redisClient, instanceID), instanceID)

	opts := dispatcher.Options{
		Notifications:  repo,
		Users:          repo,
		Live:           live,
		ChannelTimeout: cfg.ChannelTimeout,
	}
	initChannels(ctx, cfg, &opts, log)

	consumer, err := queue.NewConsumer(queue.ConsumerOptions{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.NotificationsTopic,
		Group:        cfg.ConsumerGroup,
		MaxAttempts:  cfg.MaxJobAttempts,
		InitialDelay: cfg.JobRetryDelay,
	}, dispatcher.New(opts))
	if err != nil {
		log.Fatal("failed to create kafka consumer", zap.Error(err))
	}

	obsSrv := server.NewObservability(cfg.ServiceName+"-worker", cfg.ObsHTTPAddr, map[string]observability.Pinger{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"kafka":    consumer.Ping,
	})
	go func() {
		if err := obsSrv.Start(); err != nil {
			log.Error("observability server error", zap.Error(err))
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Run(ctx)
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	// let in-flight jobs finish their current attempt
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("consumer did not stop in time")
	}
	consumer.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := obsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during observability server shutdown", zap.Error(err))
	}
	log.Info("shutdown complete, exiting")
}

// initChannels attaches the email and push senders that are enabled.
func initChannels(ctx context.Context, cfg *config.Config, opts *dispatcher.Options, log *zap.Logger) {
	if !cfg.EmailEnabled && !cfg.PushEnabled {
		return
	}

	awsCfg, err := delivery.LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatal("failed to load aws config", zap.Error(err))
	}
	if cfg.EmailEnabled {
		opts.Email = delivery.NewEmailSender(delivery.NewSESClient(awsCfg), cfg.EmailFrom, cfg.ChannelTimeout)
	}
	if cfg.PushEnabled {
		opts.Push = delivery.NewPushSender(delivery.NewSNSClient(awsCfg), cfg.ChannelTimeout)
	}
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
