package main

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"

	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	orderkafka "github.com/dmehra2102/storefront/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/storefront/internal/platform/config"
	"github.com/dmehra2102/storefront/internal/platform/grpcserver"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const serviceName = "order-notifier"

func main() {
	cfg, err := config.Load()
	log := logging.New(serviceName, cfg.LogLevel)
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.KafkaAddr == "" {
		log.Error("KAFKA_ADDR is required")
		os.Exit(1)
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var dedup orderkafka.Deduper
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		dedup = idempotency.NewStore(rdb, cfg.IdemTTL)
	}

	gs, err := grpcserver.Run(log, cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc server failed", "err", err)
		os.Exit(1)
	}
	gs.SetServing(serviceName, true)
	defer gs.Stop()

	reader := orderkafka.NewReader([]string{cfg.KafkaAddr}, cfg.OutboxTopic, cfg.NotifyGroup)
	consumer := orderkafka.NewConsumer(log, reader, orderapp.NewNotifier(log), dedup)

	go func() {
		log.Info("consuming order events", "topic", cfg.OutboxTopic, "group", cfg.NotifyGroup)
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("order-notifier shutdown")
}
