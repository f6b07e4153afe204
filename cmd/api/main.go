package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/storefront/internal/auth"
	cartapp "github.com/dmehra2102/storefront/internal/cart/application"
	carthttp "github.com/dmehra2102/storefront/internal/cart/infrastructure/http"
	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/storefront/internal/catalog/infrastructure/http"
	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	orderhttp "github.com/dmehra2102/storefront/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/storefront/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/storefront/internal/platform/config"
	"github.com/dmehra2102/storefront/internal/platform/grpcserver"
	"github.com/dmehra2102/storefront/internal/server"
	userapp "github.com/dmehra2102/storefront/internal/user/application"
	userhttp "github.com/dmehra2102/storefront/internal/user/infrastructure/http"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const serviceName = "storefront-api"

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateAPI()
	}
	log := logging.New(serviceName, cfg.LogLevel)
	if err != nil {
		log.Error("invalid configuration", "err", err)
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

	st, err := openStores(ctx, log, cfg)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer st.close()

	// Services
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	users := userapp.NewService(log, st.users, tokens, auth.NewPasswords(bcrypt.DefaultCost))
	products := catalogapp.NewService(st.products)
	carts := cartapp.NewService(log, st.users, st.products)
	orders := orderapp.NewService(log, st.orders, st.products, carts)

	if cfg.AdminEmail != "" {
		if err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPass); err != nil {
			log.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}
	}

	// Idempotency for order placement
	var idem func(http.Handler) http.Handler
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		idem = idempotency.NewStore(rdb, cfg.IdemTTL).Middleware(log, "orders", auth.SubjectOf)
	}

	// Outbox relay
	if cfg.KafkaAddr != "" && st.outbox != nil {
		writer := orderkafka.NewWriter([]string{cfg.KafkaAddr})
		defer writer.Close()
		dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
		host, _ := os.Hostname()
		relay := outbox.NewRelay(log, st.outbox, dispatch, serviceName+"-"+host)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("relay stopped with error", "err", err)
			}
		}()
	} else {
		log.Info("outbox relay disabled", "driver", cfg.StoreDriver, "kafka", cfg.KafkaAddr != "")
	}

	authn := auth.NewMiddleware(log, tokens, users)
	router := server.NewRouter(log, authn, server.Handlers{
		Users:    userhttp.NewHandler(log, users),
		Products: cataloghttp.NewHandler(log, products),
		Cart:     carthttp.NewHandler(log, carts),
		Orders:   orderhttp.NewHandler(log, orders),
	}, idem, cfg.CORSOrigins)

	// gRPC health
	gs, err := grpcserver.Run(log, cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc server failed", "err", err)
		os.Exit(1)
	}
	gs.SetServing(serviceName, true)
	defer gs.Stop()

	// HTTP server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "driver", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	gs.SetServing(serviceName, false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("storefront-api shutdown complete")
}
