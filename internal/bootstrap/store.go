package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/repofetch/repofetch/config"
	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/data"
)

// JobStore bundles the selected repository with its connection cleanup.
type JobStore struct {
	Repo  core.JobRepository
	close func() error
}

// Close releases the store's underlying connections, if any.
func (s *JobStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewJobStore connects the configured job store backend.
func NewJobStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*JobStore, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		logger.InfoContext(ctx, "using in-memory job store")
		return &JobStore{Repo: data.NewMemoryJobRepo()}, nil

	case config.StorePostgres:
		db, err := connectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		repo := data.NewPostgresJobRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, errors.Join(err, db.Close())
		}
		return &JobStore{Repo: repo, close: db.Close}, nil

	case config.StoreRedis:
		client, err := connectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return &JobStore{Repo: data.NewRedisJobRepo(client), close: client.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func connectDB(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	logger.InfoContext(ctx, "database connected",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
	)
	return db, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	logger.InfoContext(ctx, "redis connected", "addr", cfg.Addr)
	return client, nil
}
