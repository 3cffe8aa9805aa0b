package bootstrap

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/job-tracker/config"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/repository"
	"github.com/GoSim-25-26J-441/job-tracker/internal/logging"
)

// StoreHandle is an opened store plus whatever must be closed with it
type StoreHandle struct {
	Backend string
	Store   repository.Store
	close   func() error
}

// Close releases the underlying client or pool
func (h *StoreHandle) Close() error {
	if h == nil || h.close == nil {
		return nil
	}
	return h.close()
}

// OpenStore connects the backend named by cfg.Store.Backend
func OpenStore(ctx context.Context, cfg *config.Config) (*StoreHandle, error) {
	log := logging.Component("bootstrap")

	switch cfg.Store.Backend {
	case config.BackendFirestore:
		client, err := OpenFirestore(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		log.Info().Str("collection", cfg.Firebase.Collection).Msg("firestore store ready")
		return &StoreHandle{
			Backend: cfg.Store.Backend,
			Store:   repository.NewFirestoreStore(client, cfg.Firebase.Collection),
			close:   client.Close,
		}, nil

	case config.BackendRedis:
		client, err := OpenRedis(ctx, cfg.Redis, cfg.Database.PingTO)
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("redis store ready")
		return &StoreHandle{
			Backend: cfg.Store.Backend,
			Store:   repository.NewRedisStore(client),
			close:   client.Close,
		}, nil

	case config.BackendPostgres:
		pool, err := OpenDB(ctx, DBOptions{
			DSN:       cfg.Database.DSN,
			ConnectTO: cfg.Database.ConnectTO,
			PingTO:    cfg.Database.PingTO,
			MaxConns:  int32(cfg.Database.MaxConns),
			MinConns:  int32(cfg.Database.MinConns),
		})
		if err != nil {
			return nil, err
		}
		store := repository.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return &StoreHandle{
			Backend: cfg.Store.Backend,
			Store:   store,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
