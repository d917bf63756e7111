package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tutorpy/api/internal/config"
)

// Open подключает бэкенд, выбранный в конфиге, и проверяет соединение.
// Возвращаемую функцию close нужно вызвать при завершении.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (KV, func() error, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		// пул под умеренную нагрузку
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		kv := NewPostgresKV(db)
		if err := kv.EnsureSchema(pctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info().Str("dsn", config.SafeDSNSummary(cfg.DatabaseURL)).Msg("db connected")
		return kv, db.Close, nil

	case config.StorageRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info().Str("addr", opt.Addr).Int("db", opt.DB).Msg("redis connected")
		return NewRedisKV(client), client.Close, nil

	case config.StorageMemory, "":
		log.Warn().Msg("using in-memory hint storage, records are lost on restart")
		return NewMemoryKV(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}
