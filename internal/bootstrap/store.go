package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/code-editor-backend/config"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/repository"
	storagemongo "github.com/GoSim-25-26J-441/code-editor-backend/internal/storage/mongo"
	storagepg "github.com/GoSim-25-26J-441/code-editor-backend/internal/storage/postgres"
	storageredis "github.com/GoSim-25-26J-441/code-editor-backend/internal/storage/redis"
)

// CloseFunc releases the connection behind a store.
type CloseFunc func(ctx context.Context) error

// OpenStore connects the backend named by cfg.Store.Driver and runs its
// migrations.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, CloseFunc, error) {
	var (
		store   repository.Store
		closeFn CloseFunc
	)

	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, err := storagemongo.Connect(ctx, &cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		store = repository.NewMongoStore(storagemongo.Collection(client, &cfg.Mongo))
		closeFn = client.Disconnect

	case config.StoreRedis:
		client, err := storageredis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		store = repository.NewRedisStore(client)
		closeFn = func(context.Context) error { return client.Close() }

	case config.StorePostgres:
		db, err := storagepg.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store = repository.NewPostgresStore(db)
		closeFn = func(context.Context) error { return db.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = closeFn(ctx)
		return nil, nil, fmt.Errorf("migrate %s store: %w", cfg.Store.Driver, err)
	}

	logger.Info("project store ready", zap.String("driver", cfg.Store.Driver))
	return store, closeFn, nil
}
