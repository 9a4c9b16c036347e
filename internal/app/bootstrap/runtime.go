package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	appconfig "github.com/Rithvickkr/DOBBE-assignment/internal/config"
	"github.com/Rithvickkr/DOBBE-assignment/internal/conversation"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildPostgresPool opens and pings a pgx pool, or returns nil without DATABASE_URL.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// Stores groups the persistence chosen by STORE_BACKEND.
type Stores struct {
	Scheduling scheduling.Store
	Users      auth.UserRepository
	History    conversation.HistoryRepository
	Backend    string

	closers []func()
}

// Close releases every connection the stores hold.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// BuildStores wires the scheduling store, user accounts and prompt history.
// Postgres backs all three when selected; the redis backend keeps the
// schedule in Redis and the rest in Postgres when DATABASE_URL is set.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	stores := &Stores{Backend: cfg.StoreBackend}

	pool, err := BuildPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		stores.closers = append(stores.closers, pool.Close)
		db := stdlib.OpenDBFromPool(pool)
		stores.closers = append(stores.closers, func() { _ = db.Close() })
		stores.Users = auth.NewPostgresUserRepository(pool)
		stores.History = conversation.NewSQLHistoryRepository(db)
	} else {
		stores.Users = auth.NewInMemoryUserRepository()
		stores.History = conversation.NewInMemoryHistoryRepository()
	}

	switch cfg.StoreBackend {
	case "postgres":
		if pool == nil {
			stores.Close()
			return nil, errors.New("bootstrap: STORE_BACKEND=postgres requires DATABASE_URL")
		}
		stores.Scheduling = scheduling.NewPostgresStore(pool)
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			stores.Close()
			return nil, errors.New("bootstrap: STORE_BACKEND=redis requires a reachable REDIS_ADDR")
		}
		stores.closers = append(stores.closers, func() { _ = client.Close() })
		stores.Scheduling = scheduling.NewRedisStore(client, "")
	case "", "memory":
		stores.Backend = "memory"
		stores.Scheduling = scheduling.NewMemoryStore()
	default:
		stores.Close()
		return nil, fmt.Errorf("bootstrap: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	logger.Info("stores ready", "backend", stores.Backend, "postgres", pool != nil)
	return stores, nil
}

// DoctorRegistrar creates the bookable doctor record for a newly registered
// doctor account. An existing record with the same name is left as is.
func DoctorRegistrar(directory scheduling.Directory) auth.DoctorRegistrarFunc {
	return func(ctx context.Context, name, ownerEmail string) error {
		_, err := directory.CreateDoctor(ctx, name, ownerEmail)
		if errors.Is(err, scheduling.ErrDoctorExists) {
			return nil
		}
		return err
	}
}
