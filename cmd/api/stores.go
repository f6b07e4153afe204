package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"

	cartapp "github.com/dmehra2102/storefront/internal/cart/application"
	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	catalogmem "github.com/dmehra2102/storefront/internal/catalog/infrastructure/memory"
	catalogmongo "github.com/dmehra2102/storefront/internal/catalog/infrastructure/mongo"
	catalogpg "github.com/dmehra2102/storefront/internal/catalog/infrastructure/postgres"
	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	ordermem "github.com/dmehra2102/storefront/internal/order/infrastructure/memory"
	ordermongo "github.com/dmehra2102/storefront/internal/order/infrastructure/mongo"
	orderpg "github.com/dmehra2102/storefront/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/storefront/internal/platform/config"
	"github.com/dmehra2102/storefront/internal/platform/database"
	"github.com/dmehra2102/storefront/internal/platform/mongodb"
	userapp "github.com/dmehra2102/storefront/internal/user/application"
	usermem "github.com/dmehra2102/storefront/internal/user/infrastructure/memory"
	usermongo "github.com/dmehra2102/storefront/internal/user/infrastructure/mongo"
	userpg "github.com/dmehra2102/storefront/internal/user/infrastructure/postgres"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type userStore interface {
	userapp.UserRepository
	cartapp.CartStore
}

// stores bundles the repositories of the selected driver. outbox is nil for
// the memory driver.
type stores struct {
	users    userStore
	products catalogapp.ProductRepository
	orders   orderapp.OrderRepository
	outbox   outbox.Store
	close    func()
}

func openStores(ctx context.Context, log *slog.Logger, cfg config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.PGURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, log, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgresStores(log, pool), nil
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return mongoStores(log, client, db), nil
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		products := catalogmem.NewRepository()
		return &stores{
			users:    usermem.NewRepository(),
			products: products,
			orders:   ordermem.NewRepository(products),
			close:    func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func postgresStores(log *slog.Logger, pool *pgxpool.Pool) *stores {
	return &stores{
		users:    userpg.NewRepository(log, pool),
		products: catalogpg.NewRepository(log, pool),
		orders:   orderpg.NewRepository(log, pool),
		outbox:   orderpg.NewOutboxStore(log, pool),
		close:    pool.Close,
	}
}

func mongoStores(log *slog.Logger, client *mongo.Client, db *mongo.Database) *stores {
	products := catalogmongo.NewRepository(log, db)
	return &stores{
		users:    usermongo.NewRepository(log, db),
		products: products,
		orders:   ordermongo.NewRepository(log, db, products),
		outbox:   ordermongo.NewOutboxStore(log, db),
		close: func() {
			_ = client.Disconnect(context.Background())
		},
	}
}
